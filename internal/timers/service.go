package timers

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"raidbot/internal/eventbus"
	"raidbot/internal/transport"
	"raidbot/pkg/logx"
)

// ErrNotRunning is returned by Create* before Start or after Stop.
var ErrNotRunning = errors.New("timer service not running")

// Notifier is the outbound capability workers need. Satisfied by
// notifier.Service; tests plug in a recorder.
type Notifier interface {
	Notify(ctx context.Context, n transport.Notification) error
}

// Options tunes the engine. Zero values fall back to the domain constants.
type Options struct {
	WarnLead          time.Duration
	HopCooldown       time.Duration
	ReminderDurations map[string]time.Duration
}

func (o Options) withDefaults() Options {
	if o.WarnLead <= 0 {
		o.WarnLead = DefaultWarnLead
	}
	if o.HopCooldown <= 0 {
		o.HopCooldown = DefaultHopCooldown
	}
	if len(o.ReminderDurations) == 0 {
		o.ReminderDurations = DefaultReminderDurations()
	}
	return o
}

// Service is the scheduling facade: it owns the registry of active timers
// and reminders and spawns one worker goroutine per record. All registry
// access is funneled through the service; the lock is never held across a
// wait.
type Service struct {
	log   logx.Logger
	notif Notifier
	bus   eventbus.Bus

	mu        sync.Mutex
	opt       Options
	nextID    int64
	timers    []*timer
	reminders map[int64][]*reminder

	runCtx    context.Context
	runCancel context.CancelFunc
	wg        sync.WaitGroup
}

func New(opt Options, notif Notifier, bus eventbus.Bus, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		log:       log,
		notif:     notif,
		bus:       bus,
		opt:       opt.withDefaults(),
		nextID:    1,
		reminders: map[int64][]*reminder{},
	}
}

// Start is idempotent. Workers spawned later are children of ctx, so
// canceling it (or calling Stop) winds every worker down.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runCtx != nil {
		return
	}
	s.runCtx, s.runCancel = context.WithCancel(ctx)
	s.log.Info("timer service started")
}

// Stop cancels every worker and waits for them to exit, bounded by ctx.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.runCancel
	s.runCtx, s.runCancel = nil, nil
	nTimers := len(s.timers)
	nRem := 0
	for _, rs := range s.reminders {
		nRem += len(rs)
	}
	s.timers = nil
	s.reminders = map[int64][]*reminder{}
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.log.Info("timer service stopped", logx.Int("timers", nTimers), logx.Int("reminders", nRem))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Apply updates tunables at runtime (config hot-reload). Running hops keep
// the durations they already computed; the next hop picks up new values.
func (s *Service) Apply(opt Options) {
	s.mu.Lock()
	s.opt = opt.withDefaults()
	s.mu.Unlock()
}

// CreateTimer validates, registers and starts a timer. It returns the
// assigned id immediately; the worker runs independently.
func (s *Service) CreateTimer(owner Owner, dest transport.ChatTarget, d time.Duration, hops int, region, link string) (int64, error) {
	if hops < 1 {
		return 0, ErrInvalidHops
	}
	link = strings.TrimSpace(link)

	now := time.Now().UTC()

	s.mu.Lock()
	if s.runCtx == nil {
		s.mu.Unlock()
		return 0, ErrNotRunning
	}
	if link != "" {
		for _, t := range s.timers {
			if t.link == link {
				s.mu.Unlock()
				return 0, ErrDuplicateLink
			}
		}
	}

	id := s.nextID
	s.nextID++

	t := &timer{
		id:            id,
		owner:         owner,
		dest:          dest,
		initial:       d,
		region:        region,
		link:          link,
		totalHops:     hops,
		createdAt:     now,
		remainingHops: hops,
		nextAlert:     nextAlertAfter(now, d, s.opt.WarnLead),
	}
	tctx, cancel := context.WithCancel(s.runCtx)
	t.cancel = cancel
	s.timers = append(s.timers, t)
	s.wg.Add(1)
	s.mu.Unlock()

	go s.runTimer(tctx, t)

	s.publish(eventbus.TimerCreated, TimerEvent{
		ID: id, Owner: owner.Mention, Region: region, Link: link, Hops: hops,
	})
	s.log.Info("timer created",
		logx.Int64("id", id),
		logx.Duration("duration", d),
		logx.Int("hops", hops),
		logx.String("region", region))
	return id, nil
}

// ListTimers returns read-only snapshots in creation order.
func (s *Service) ListTimers() []TimerSnapshot {
	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TimerSnapshot, 0, len(s.timers))
	for _, t := range s.timers {
		out = append(out, TimerSnapshot{
			ID:            t.id,
			Region:        t.region,
			Link:          t.link,
			TotalHops:     t.totalHops,
			RemainingHops: t.remainingHops,
			NextAlert:     t.nextAlert,
			Until:         FormatRemaining(t.nextAlert, now),
		})
	}
	return out
}

// CancelTimer stops and removes a timer. The false return for an unknown
// id is an informational negative, not an error.
func (s *Service) CancelTimer(id int64) bool {
	t, ok := s.removeTimer(id)
	if !ok {
		return false
	}
	t.cancel()
	s.publish(eventbus.TimerCancelled, TimerEvent{
		ID: t.id, Owner: t.owner.Mention, Region: t.region, Link: t.link, Hops: t.totalHops,
	})
	s.log.Info("timer cancelled", logx.Int64("id", id))
	return true
}

// CreateReminder registers a one-shot reminder for owner. A zero override
// uses the keyword's configured duration. The effective duration is
// returned for the confirmation message.
func (s *Service) CreateReminder(owner Owner, dest transport.ChatTarget, keyword string, override time.Duration) (time.Duration, error) {
	kw := strings.ToLower(strings.TrimSpace(keyword))

	s.mu.Lock()
	if s.runCtx == nil {
		s.mu.Unlock()
		return 0, ErrNotRunning
	}
	d, ok := s.opt.ReminderDurations[kw]
	if !ok {
		s.mu.Unlock()
		return 0, ErrUnknownKeyword
	}
	if override > 0 {
		d = override
	}

	r := &reminder{
		owner:     owner,
		dest:      dest,
		keyword:   kw,
		duration:  d,
		createdAt: time.Now().UTC(),
	}
	rctx, cancel := context.WithCancel(s.runCtx)
	r.cancel = cancel
	s.reminders[owner.ID] = append(s.reminders[owner.ID], r)
	s.wg.Add(1)
	s.mu.Unlock()

	go s.runReminder(rctx, r)

	s.publish(eventbus.ReminderCreated, ReminderEvent{Owner: owner.Mention, Keyword: kw, Duration: d})
	s.log.Info("reminder created",
		logx.Int64("owner", owner.ID),
		logx.String("keyword", kw),
		logx.Duration("duration", d))
	return d, nil
}

// ListReminders returns the owner's active reminders in creation order.
func (s *Service) ListReminders(ownerID int64) []ReminderSnapshot {
	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	rs := s.reminders[ownerID]
	out := make([]ReminderSnapshot, 0, len(rs))
	for _, r := range rs {
		fires := r.createdAt.Add(r.duration)
		remaining := fires.Sub(now)
		if remaining < 0 {
			remaining = 0
		}
		out = append(out, ReminderSnapshot{Keyword: r.keyword, FiresAt: fires, Remaining: remaining})
	}
	return out
}

// CancelReminder stops every reminder the owner has under keyword.
// Returns false when none matched.
func (s *Service) CancelReminder(ownerID int64, keyword string) bool {
	kw := strings.ToLower(strings.TrimSpace(keyword))

	s.mu.Lock()
	rs := s.reminders[ownerID]
	var cancelled []*reminder
	kept := rs[:0]
	for _, r := range rs {
		if r.keyword == kw {
			cancelled = append(cancelled, r)
		} else {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		delete(s.reminders, ownerID)
	} else {
		s.reminders[ownerID] = kept
	}
	s.mu.Unlock()

	if len(cancelled) == 0 {
		return false
	}
	for _, r := range cancelled {
		r.cancel()
		s.publish(eventbus.ReminderCancelled, ReminderEvent{Owner: r.owner.Mention, Keyword: r.keyword, Duration: r.duration})
	}
	s.log.Info("reminders cancelled",
		logx.Int64("owner", ownerID),
		logx.String("keyword", kw),
		logx.Int("count", len(cancelled)))
	return true
}

// Counts reports active timers and reminders (health endpoint).
func (s *Service) Counts() (timers, reminders int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rs := range s.reminders {
		reminders += len(rs)
	}
	return len(s.timers), reminders
}

// removeTimer detaches the record from the registry. Idempotent: both the
// worker's own cleanup and an external cancel go through here, and the
// loser of the race simply gets ok=false.
func (s *Service) removeTimer(id int64) (*timer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.timers {
		if t.id == id {
			s.timers = append(s.timers[:i], s.timers[i+1:]...)
			return t, true
		}
	}
	return nil, false
}

func (s *Service) containsTimer(t *timer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cur := range s.timers {
		if cur == t {
			return true
		}
	}
	return false
}

// removeReminder detaches one reminder record. Idempotent like removeTimer.
func (s *Service) removeReminder(r *reminder) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs := s.reminders[r.owner.ID]
	for i, cur := range rs {
		if cur == r {
			rs = append(rs[:i], rs[i+1:]...)
			if len(rs) == 0 {
				delete(s.reminders, r.owner.ID)
			} else {
				s.reminders[r.owner.ID] = rs
			}
			return true
		}
	}
	return false
}

func (s *Service) options() Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opt
}

func (s *Service) publish(typ string, data any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Type: typ, Data: data})
}

// nextAlertAfter computes the next externally visible event after start:
// the early warning when the hop leaves enough runway, else hop completion.
func nextAlertAfter(start time.Time, d, lead time.Duration) time.Time {
	if d > lead {
		return start.Add(d - lead)
	}
	return start.Add(d)
}
