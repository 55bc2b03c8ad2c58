package timers

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"raidbot/internal/transport"
	"raidbot/pkg/logx"
)

func testLogger() logx.Logger { return logx.Nop() }

// recorder captures outbound notifications for assertions.
type recorder struct {
	mu   sync.Mutex
	sent []transport.Notification
	ch   chan transport.Notification
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan transport.Notification, 16)}
}

func (r *recorder) Notify(_ context.Context, n transport.Notification) error {
	r.mu.Lock()
	r.sent = append(r.sent, n)
	r.mu.Unlock()
	select {
	case r.ch <- n:
	default:
	}
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func (r *recorder) waitOne(t *testing.T, timeout time.Duration) transport.Notification {
	t.Helper()
	select {
	case n := <-r.ch:
		return n
	case <-time.After(timeout):
		t.Fatal("timed out waiting for a notification")
		return transport.Notification{}
	}
}

var testDest = transport.ChatTarget{ChatID: 42}

func newTestService(t *testing.T, opt Options) (*Service, *recorder) {
	t.Helper()
	rec := newRecorder()
	svc := New(opt, rec, nil, testLogger())
	svc.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := svc.Stop(ctx); err != nil {
			t.Errorf("Stop: %v", err)
		}
	})
	return svc, rec
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestCreateTimerValidation(t *testing.T) {
	svc, _ := newTestService(t, Options{})

	if _, err := svc.CreateTimer(Owner{ID: 1}, testDest, time.Hour, 0, "EU", ""); !errors.Is(err, ErrInvalidHops) {
		t.Fatalf("hops=0 err = %v, want ErrInvalidHops", err)
	}

	if _, err := svc.CreateTimer(Owner{ID: 1}, testDest, time.Hour, 1, "EU", "https://x/1"); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := svc.CreateTimer(Owner{ID: 2}, testDest, time.Hour, 1, "NA", " https://x/1 "); !errors.Is(err, ErrDuplicateLink) {
		t.Fatalf("duplicate link err = %v, want ErrDuplicateLink", err)
	}
	// Empty links never collide with each other.
	if _, err := svc.CreateTimer(Owner{ID: 3}, testDest, time.Hour, 1, "EU", ""); err != nil {
		t.Fatalf("second empty-link create: %v", err)
	}
	if _, err := svc.CreateTimer(Owner{ID: 4}, testDest, time.Hour, 1, "EU", ""); err != nil {
		t.Fatalf("third empty-link create: %v", err)
	}
}

func TestCreateTimerNotRunning(t *testing.T) {
	svc := New(Options{}, newRecorder(), nil, testLogger())
	if _, err := svc.CreateTimer(Owner{ID: 1}, testDest, time.Hour, 1, "EU", ""); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("err = %v, want ErrNotRunning", err)
	}
	if _, err := svc.CreateReminder(Owner{ID: 1}, testDest, KeywordBoss, 0); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("reminder err = %v, want ErrNotRunning", err)
	}
}

func TestTimerWarnsThenCompletes(t *testing.T) {
	svc, rec := newTestService(t, Options{
		WarnLead:    30 * time.Millisecond,
		HopCooldown: time.Hour,
	})

	id, err := svc.CreateTimer(Owner{ID: 1, Mention: "@ann"}, testDest, 80*time.Millisecond, 1, "EU", "https://x/raid")
	if err != nil {
		t.Fatalf("CreateTimer: %v", err)
	}

	n := rec.waitOne(t, 2*time.Second)
	if n.Target != testDest {
		t.Fatalf("warning target = %+v, want %+v", n.Target, testDest)
	}
	for _, want := range []string{"Timer #1", "bosses in 0 minutes", "Region: EU", "https://x/raid"} {
		if !strings.Contains(n.Text, want) {
			t.Fatalf("warning text %q missing %q", n.Text, want)
		}
	}

	waitFor(t, 2*time.Second, func() bool {
		timers, _ := svc.Counts()
		return timers == 0
	})
	if got := svc.CancelTimer(id); got {
		t.Fatal("CancelTimer after completion should report false")
	}
	if got := rec.count(); got != 1 {
		t.Fatalf("notifications = %d, want 1 (warning only, no completion ping)", got)
	}
}

func TestShortHopSkipsWarning(t *testing.T) {
	svc, rec := newTestService(t, Options{
		WarnLead:    time.Hour,
		HopCooldown: time.Hour,
	})

	if _, err := svc.CreateTimer(Owner{ID: 1}, testDest, 40*time.Millisecond, 1, "EU", ""); err != nil {
		t.Fatalf("CreateTimer: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		timers, _ := svc.Counts()
		return timers == 0
	})
	if got := rec.count(); got != 0 {
		t.Fatalf("notifications = %d, want 0 for a hop shorter than the warn lead", got)
	}
}

func TestMultiHopRunsCooldownHops(t *testing.T) {
	svc, rec := newTestService(t, Options{
		WarnLead:    20 * time.Millisecond,
		HopCooldown: 60 * time.Millisecond,
	})

	if _, err := svc.CreateTimer(Owner{ID: 1}, testDest, 50*time.Millisecond, 3, "NA", "https://x/multi"); err != nil {
		t.Fatalf("CreateTimer: %v", err)
	}

	waitFor(t, 3*time.Second, func() bool {
		timers, _ := svc.Counts()
		return timers == 0
	})
	// One warning per hop: the initial hop and both cooldown hops all
	// exceed the lead.
	if got := rec.count(); got != 3 {
		t.Fatalf("notifications = %d, want 3", got)
	}
}

func TestCancelTimerSuppressesWarning(t *testing.T) {
	svc, rec := newTestService(t, Options{
		WarnLead:    20 * time.Millisecond,
		HopCooldown: time.Hour,
	})

	id, err := svc.CreateTimer(Owner{ID: 1}, testDest, 10*time.Second, 1, "EU", "")
	if err != nil {
		t.Fatalf("CreateTimer: %v", err)
	}

	if !svc.CancelTimer(id) {
		t.Fatal("CancelTimer = false, want true")
	}
	if svc.CancelTimer(id) {
		t.Fatal("second CancelTimer = true, want false")
	}

	waitFor(t, 2*time.Second, func() bool {
		timers, _ := svc.Counts()
		return timers == 0
	})
	time.Sleep(50 * time.Millisecond)
	if got := rec.count(); got != 0 {
		t.Fatalf("notifications after cancel = %d, want 0", got)
	}
}

func TestListTimersSnapshots(t *testing.T) {
	svc, _ := newTestService(t, Options{})

	id1, err := svc.CreateTimer(Owner{ID: 1}, testDest, 2*time.Hour, 3, "EU", "https://x/a")
	if err != nil {
		t.Fatalf("CreateTimer: %v", err)
	}
	id2, err := svc.CreateTimer(Owner{ID: 2}, testDest, time.Hour, 1, "NA", "https://x/b")
	if err != nil {
		t.Fatalf("CreateTimer: %v", err)
	}

	snaps := svc.ListTimers()
	if len(snaps) != 2 {
		t.Fatalf("len = %d, want 2", len(snaps))
	}
	if snaps[0].ID != id1 || snaps[1].ID != id2 {
		t.Fatalf("order = [%d %d], want [%d %d]", snaps[0].ID, snaps[1].ID, id1, id2)
	}
	first := snaps[0]
	if first.Region != "EU" || first.TotalHops != 3 || first.RemainingHops != 3 {
		t.Fatalf("snapshot = %+v", first)
	}
	// 2h minus the 5m default lead; the snapshot may render a minute
	// lower because time passes between create and list.
	if first.Until != "1h55m" && first.Until != "1h54m" {
		t.Fatalf("Until = %q, want about 1h55m", first.Until)
	}
}

func TestReminderLifecycle(t *testing.T) {
	svc, rec := newTestService(t, Options{
		ReminderDurations: map[string]time.Duration{
			KeywordBoss:  40 * time.Millisecond,
			KeywordRaids: time.Hour,
		},
	})
	owner := Owner{ID: 7, Mention: "@bob"}

	if _, err := svc.CreateReminder(owner, testDest, "nosuch", 0); !errors.Is(err, ErrUnknownKeyword) {
		t.Fatalf("unknown keyword err = %v, want ErrUnknownKeyword", err)
	}

	d, err := svc.CreateReminder(owner, testDest, "BOSS", 0)
	if err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}
	if d != 40*time.Millisecond {
		t.Fatalf("effective duration = %v, want keyword default", d)
	}

	n := rec.waitOne(t, 2*time.Second)
	if !strings.HasPrefix(n.Text, "@bob ") {
		t.Fatalf("reminder text %q should lead with the mention", n.Text)
	}
	if !strings.Contains(n.Text, "boss is happening now") {
		t.Fatalf("reminder text %q missing keyword", n.Text)
	}
	waitFor(t, 2*time.Second, func() bool {
		_, reminders := svc.Counts()
		return reminders == 0
	})
}

func TestReminderOverrideAndCancel(t *testing.T) {
	svc, rec := newTestService(t, Options{})
	owner := Owner{ID: 9}

	d, err := svc.CreateReminder(owner, testDest, KeywordRaids, 90*time.Minute)
	if err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}
	if d != 90*time.Minute {
		t.Fatalf("override duration = %v, want 90m", d)
	}

	rs := svc.ListReminders(owner.ID)
	if len(rs) != 1 || rs[0].Keyword != KeywordRaids {
		t.Fatalf("ListReminders = %+v", rs)
	}
	if rs[0].Remaining <= 0 || rs[0].Remaining > 90*time.Minute {
		t.Fatalf("Remaining = %v out of range", rs[0].Remaining)
	}

	if svc.CancelReminder(owner.ID, "boss") {
		t.Fatal("cancel of absent keyword = true, want false")
	}
	if !svc.CancelReminder(owner.ID, "RAIDS") {
		t.Fatal("CancelReminder = false, want true")
	}
	if svc.CancelReminder(owner.ID, KeywordRaids) {
		t.Fatal("second CancelReminder = true, want false")
	}

	time.Sleep(30 * time.Millisecond)
	if got := rec.count(); got != 0 {
		t.Fatalf("notifications after cancel = %d, want 0", got)
	}
	if got := len(svc.ListReminders(owner.ID)); got != 0 {
		t.Fatalf("reminders left = %d, want 0", got)
	}
}

func TestCancelReminderRemovesAllMatching(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	owner := Owner{ID: 11}

	for i := 0; i < 3; i++ {
		if _, err := svc.CreateReminder(owner, testDest, KeywordBoss, 0); err != nil {
			t.Fatalf("CreateReminder: %v", err)
		}
	}
	if _, err := svc.CreateReminder(owner, testDest, KeywordRaids, 0); err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}

	if !svc.CancelReminder(owner.ID, KeywordBoss) {
		t.Fatal("CancelReminder = false, want true")
	}
	rs := svc.ListReminders(owner.ID)
	if len(rs) != 1 || rs[0].Keyword != KeywordRaids {
		t.Fatalf("remaining reminders = %+v, want only raids", rs)
	}
}

func TestStopClearsRegistries(t *testing.T) {
	rec := newRecorder()
	svc := New(Options{}, rec, nil, testLogger())
	svc.Start(context.Background())

	if _, err := svc.CreateTimer(Owner{ID: 1}, testDest, time.Hour, 2, "EU", ""); err != nil {
		t.Fatalf("CreateTimer: %v", err)
	}
	if _, err := svc.CreateReminder(Owner{ID: 1}, testDest, KeywordBoss, 0); err != nil {
		t.Fatalf("CreateReminder: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := svc.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	timers, reminders := svc.Counts()
	if timers != 0 || reminders != 0 {
		t.Fatalf("counts after stop = %d/%d, want 0/0", timers, reminders)
	}
	if got := rec.count(); got != 0 {
		t.Fatalf("notifications during stop = %d, want 0", got)
	}
}
