package timers

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"raidbot/internal/eventbus"
	"raidbot/internal/transport"
	"raidbot/pkg/logx"
)

// runTimer drives one timer through its hops. Hop 1 uses the requested
// duration; every later hop is the respawn cooldown. A hop longer than the
// warn lead is split into wait, early warning, then the final lead window.
//
// Failures stay inside this goroutine: notification errors are logged and
// the schedule continues; anything else (panic included) retires this one
// timer and nothing else.
func (s *Service) runTimer(ctx context.Context, t *timer) {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("timer worker failed",
				logx.Int64("id", t.id),
				logx.Any("panic", r),
				logx.Stack(string(debug.Stack())))
			s.removeTimer(t.id)
		}
	}()

	log := s.log.With(logx.Int64("id", t.id))
	duration := t.initial

	for hop := 1; hop <= t.totalHops; hop++ {
		lead := s.options().WarnLead

		s.mu.Lock()
		t.nextAlert = nextAlertAfter(time.Now().UTC(), duration, lead)
		s.mu.Unlock()

		log.Info("hop started",
			logx.Int("hop", hop),
			logx.Int("hops", t.totalHops),
			logx.Duration("duration", duration))

		if duration > lead {
			if !sleepCtx(ctx, duration-lead) {
				s.finishCancelled(t)
				return
			}
			// The cancel may have landed while we slept; the record is
			// already gone then and no warning must go out.
			if !s.containsTimer(t) {
				return
			}
			s.sendWarning(ctx, t, lead)
			s.publish(eventbus.TimerWarned, TimerEvent{
				ID: t.id, Owner: t.owner.Mention, Region: t.region, Link: t.link, Hop: hop, Hops: t.totalHops,
			})
			if !sleepCtx(ctx, lead) {
				s.finishCancelled(t)
				return
			}
		} else {
			if !sleepCtx(ctx, duration) {
				s.finishCancelled(t)
				return
			}
		}

		s.mu.Lock()
		t.remainingHops = t.totalHops - hop
		s.mu.Unlock()
		s.publish(eventbus.TimerHopCompleted, TimerEvent{
			ID: t.id, Owner: t.owner.Mention, Region: t.region, Link: t.link, Hop: hop, Hops: t.totalHops,
		})

		duration = s.options().HopCooldown
	}

	if _, ok := s.removeTimer(t.id); ok {
		s.publish(eventbus.TimerCompleted, TimerEvent{
			ID: t.id, Owner: t.owner.Mention, Region: t.region, Link: t.link, Hops: t.totalHops,
		})
		log.Info("timer completed", logx.Int("hops", t.totalHops))
	}
}

// finishCancelled is the worker-side half of cancellation: make sure the
// record is gone (CancelTimer usually removed it already) and go quiet.
func (s *Service) finishCancelled(t *timer) {
	s.removeTimer(t.id)
	s.log.Debug("timer worker exiting (cancelled)", logx.Int64("id", t.id))
}

func (s *Service) sendWarning(ctx context.Context, t *timer, lead time.Duration) {
	if t.dest.IsZero() || s.notif == nil {
		return
	}
	link := t.link
	if link == "" {
		link = "No link provided"
	}
	text := fmt.Sprintf("⚠️ Timer #%d — bosses in %d minutes!\n🌍 Region: %s\n🔗 %s",
		t.id, int(lead.Minutes()), t.region, link)

	if err := s.notif.Notify(ctx, transport.Notification{Target: t.dest, Text: text}); err != nil {
		// Best-effort: a missed warning never aborts the schedule.
		s.log.Warn("warning delivery failed", logx.Int64("id", t.id), logx.Err(err))
	}
}

// runReminder waits out the reminder and fires once. Cancellation
// deregisters without a notification.
func (s *Service) runReminder(ctx context.Context, r *reminder) {
	defer s.wg.Done()
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error("reminder worker failed",
				logx.String("keyword", r.keyword),
				logx.Int64("owner", r.owner.ID),
				logx.Any("panic", rec),
				logx.Stack(string(debug.Stack())))
			s.removeReminder(r)
		}
	}()

	if !sleepCtx(ctx, r.duration) {
		s.removeReminder(r)
		return
	}
	// removeReminder doubles as the fired-vs-cancelled arbiter: whoever
	// removes the record first wins, so a racing cancel suppresses the
	// notification.
	if !s.removeReminder(r) {
		return
	}

	if !r.dest.IsZero() && s.notif != nil {
		text := fmt.Sprintf("⏰ Reminder: %s is happening now!", r.keyword)
		if r.owner.Mention != "" {
			text = r.owner.Mention + " " + text
		}
		if err := s.notif.Notify(ctx, transport.Notification{Target: r.dest, Text: text}); err != nil {
			s.log.Warn("reminder delivery failed",
				logx.String("keyword", r.keyword),
				logx.Int64("owner", r.owner.ID),
				logx.Err(err))
		}
	}
	s.publish(eventbus.ReminderFired, ReminderEvent{Owner: r.owner.Mention, Keyword: r.keyword, Duration: r.duration})
	s.log.Info("reminder fired", logx.Int64("owner", r.owner.ID), logx.String("keyword", r.keyword))
}

// sleepCtx waits d unless ctx is canceled first. Returns false on cancel.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
