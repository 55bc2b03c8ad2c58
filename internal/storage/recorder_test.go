package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"raidbot/internal/eventbus"
	"raidbot/internal/timers"
	"raidbot/pkg/logx"
)

type memStore struct {
	mu      sync.Mutex
	entries []Entry
	ch      chan Entry
}

func newMemStore() *memStore { return &memStore{ch: make(chan Entry, 16)} }

func (m *memStore) Append(_ context.Context, e Entry) error {
	m.mu.Lock()
	m.entries = append(m.entries, e)
	m.mu.Unlock()
	select {
	case m.ch <- e:
	default:
	}
	return nil
}

func (m *memStore) Close() error { return nil }

func TestRecordJournalsLifecycleEvents(t *testing.T) {
	t.Parallel()

	bus := eventbus.New()
	st := newMemStore()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		Record(ctx, bus, st, logx.Nop())
	}()

	// Give the recorder a beat to subscribe before publishing.
	time.Sleep(20 * time.Millisecond)

	bus.Publish(eventbus.Event{
		Type: eventbus.TimerCreated,
		Data: timers.TimerEvent{ID: 4, Owner: "@ann", Region: "EU", Hops: 2},
	})
	bus.Publish(eventbus.Event{Type: "unrelated", Data: "ignored"})
	bus.Publish(eventbus.Event{
		Type: eventbus.ReminderFired,
		Data: timers.ReminderEvent{Owner: "@bob", Keyword: "raids", Duration: 2 * time.Hour},
	})

	var got []Entry
	for len(got) < 2 {
		select {
		case e := <-st.ch:
			got = append(got, e)
		case <-time.After(2 * time.Second):
			t.Fatalf("journaled %d entries, want 2", len(got))
		}
	}

	if got[0].Kind != eventbus.TimerCreated || got[0].TimerID != 4 || got[0].Region != "EU" {
		t.Fatalf("entry 0 = %+v", got[0])
	}
	if got[0].At.IsZero() {
		t.Fatal("entry 0 has no timestamp")
	}
	if got[1].Kind != eventbus.ReminderFired || got[1].Keyword != "raids" || got[1].Duration != 2*time.Hour {
		t.Fatalf("entry 1 = %+v", got[1])
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("recorder did not exit on cancel")
	}
}
