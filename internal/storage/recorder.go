package storage

import (
	"context"
	"time"

	"raidbot/internal/eventbus"
	"raidbot/internal/timers"
	"raidbot/pkg/logx"
)

// Record subscribes to the event bus and journals timer/reminder lifecycle
// events until ctx is canceled. Writes are best-effort; a failing disk
// must not disturb the scheduler.
func Record(ctx context.Context, bus eventbus.Bus, store Store, log logx.Logger) {
	if bus == nil || store == nil {
		return
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	events, unsub := bus.Subscribe(64)
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			e, ok := entryFrom(ev)
			if !ok {
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			err := store.Append(wctx, e)
			cancel()
			if err != nil {
				log.Warn("audit append failed", logx.String("kind", e.Kind), logx.Err(err))
			}
		}
	}
}

func entryFrom(ev eventbus.Event) (Entry, bool) {
	e := Entry{At: ev.Time, Kind: ev.Type}
	switch data := ev.Data.(type) {
	case timers.TimerEvent:
		e.TimerID = data.ID
		e.Owner = data.Owner
		e.Region = data.Region
		e.Link = data.Link
		e.Hop = data.Hop
		e.Hops = data.Hops
		return e, true
	case timers.ReminderEvent:
		e.Owner = data.Owner
		e.Keyword = data.Keyword
		e.Duration = data.Duration
		return e, true
	default:
		return Entry{}, false
	}
}
