// Package digest posts a scheduled summary of active timers to a
// configured chat. Purely additive: disabling it changes nothing about
// timer behavior.
package digest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"raidbot/internal/timers"
	"raidbot/internal/transport"
	"raidbot/pkg/logx"
)

type Config struct {
	Enabled  bool
	Spec     string // 5-field cron expression
	Target   transport.ChatTarget
	Timezone string
}

// Lister is the read-only view of the timer registry the digest needs.
type Lister interface {
	ListTimers() []timers.TimerSnapshot
}

type Service struct {
	log    logx.Logger
	cfg    Config
	lister Lister
	notif  timers.Notifier

	c *cron.Cron
}

func New(cfg Config, lister Lister, notif timers.Notifier, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{log: log, cfg: cfg, lister: lister, notif: notif}
}

func (s *Service) Enabled() bool { return s.cfg.Enabled && s.cfg.Spec != "" }

func (s *Service) Start(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}
	if s.cfg.Target.IsZero() {
		s.log.Warn("digest enabled but chat_id is not set; skipping")
		return nil
	}

	loc := time.Local
	if tz := strings.TrimSpace(s.cfg.Timezone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("digest timezone: invalid %q: %w", tz, err)
		}
		loc = l
	}

	c := cron.New(cron.WithLocation(loc))
	_, err := c.AddFunc(s.cfg.Spec, func() { s.post(ctx) })
	if err != nil {
		return fmt.Errorf("digest spec %q: %w", s.cfg.Spec, err)
	}
	s.c = c
	c.Start()
	s.log.Info("digest started", logx.String("spec", s.cfg.Spec), logx.String("tz", loc.String()))
	return nil
}

func (s *Service) Stop(ctx context.Context) error {
	if s.c == nil {
		return nil
	}
	stopped := s.c.Stop()
	s.c = nil
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) post(ctx context.Context) {
	snaps := s.lister.ListTimers()
	text := renderDigest(snaps)
	if err := s.notif.Notify(ctx, transport.Notification{Target: s.cfg.Target, Text: text}); err != nil {
		s.log.Warn("digest delivery failed", logx.Err(err))
		return
	}
	s.log.Debug("digest posted", logx.Int("timers", len(snaps)))
}

func renderDigest(snaps []timers.TimerSnapshot) string {
	if len(snaps) == 0 {
		return "📭 Daily digest: no active timers."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🕒 Daily digest: %d active timer(s)\n", len(snaps))
	for _, t := range snaps {
		region := t.Region
		if region == "" {
			region = "Unknown"
		}
		fmt.Fprintf(&b, "Timer #%d — Region: %s — Hops left: %d — Next: %s\n",
			t.ID, region, t.RemainingHops, t.Until)
	}
	return strings.TrimRight(b.String(), "\n")
}
