// Package notifier is the async outbound pipeline: a bounded queue drained
// by a small worker pool behind a token-bucket rate limit (Telegram flood
// control). Delivery is best-effort; failures are logged, never propagated
// to the code that scheduled the notification.
package notifier

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"raidbot/internal/runtime/supervisor"
	"raidbot/internal/transport"
	"raidbot/pkg/logx"
)

var (
	ErrQueueFull = errors.New("notifier queue full")
	ErrStopped   = errors.New("notifier stopped")
)

type Config struct {
	Workers    int
	QueueSize  int
	RatePerSec int
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.RatePerSec <= 0 {
		c.RatePerSec = 3
	}
	return c
}

type Service struct {
	log     logx.Logger
	adapter transport.Adapter

	mu        sync.Mutex
	cfg       Config
	limiter   *rate.Limiter
	queue     chan transport.Notification
	sup       *supervisor.Supervisor
	accepting bool
}

func New(cfg Config, adapter transport.Adapter, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	cfg = cfg.withDefaults()
	return &Service{
		log:     log,
		adapter: adapter,
		cfg:     cfg,
		// Burst = rate so short spikes don't stall the queue.
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
	}
}

// Apply updates the rate limit at runtime. Worker/queue sizing is fixed at
// Start; a restart picks up new values.
func (s *Service) Apply(cfg Config) {
	cfg = cfg.withDefaults()
	s.mu.Lock()
	s.cfg.RatePerSec = cfg.RatePerSec
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	s.mu.Unlock()
}

// Start is idempotent.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.queue != nil {
		s.mu.Unlock()
		return
	}
	s.queue = make(chan transport.Notification, s.cfg.QueueSize)
	s.accepting = true
	s.sup = supervisor.New(ctx,
		supervisor.WithLogger(s.log),
		// Delivery problems must never take the app down.
		supervisor.WithCancelOnError(false),
	)
	sup, q, workers := s.sup, s.queue, s.cfg.Workers
	s.mu.Unlock()

	for i := 0; i < workers; i++ {
		sup.Go0("notifier.worker", func(c context.Context) {
			s.workerLoop(c, q)
		})
	}
	s.log.Info("notifier started", logx.Int("workers", workers))
}

// Stop drains nothing: queued notifications for a stopping process are
// stale by definition. It just stops accepting and waits for workers.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.accepting = false
	sup := s.sup
	s.sup = nil
	s.queue = nil
	s.mu.Unlock()

	if sup == nil {
		return nil
	}
	return sup.Stop(ctx)
}

// Notify enqueues one outbound message. Zero targets are accepted and
// dropped silently (destination went away).
func (s *Service) Notify(ctx context.Context, n transport.Notification) error {
	if n.Target.IsZero() {
		return nil
	}
	s.mu.Lock()
	q := s.queue
	accepting := s.accepting
	s.mu.Unlock()

	if q == nil || !accepting {
		return ErrStopped
	}
	select {
	case q <- n:
		return nil
	default:
		s.log.Warn("notification dropped (queue full)", logx.Int64("chat", n.Target.ChatID))
		return ErrQueueFull
	}
}

func (s *Service) workerLoop(ctx context.Context, q <-chan transport.Notification) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-q:
			s.deliver(ctx, n)
		}
	}
}

func (s *Service) deliver(ctx context.Context, n transport.Notification) {
	s.mu.Lock()
	lim := s.limiter
	s.mu.Unlock()

	if err := lim.Wait(ctx); err != nil {
		return
	}

	start := time.Now()
	_, err := s.adapter.SendText(ctx, n.Target, n.Text, n.Options)
	if err != nil {
		s.log.Warn("delivery failed",
			logx.Int64("chat", n.Target.ChatID),
			logx.Duration("took", time.Since(start)),
			logx.Err(err))
		return
	}
	s.log.Debug("delivered", logx.Int64("chat", n.Target.ChatID), logx.Duration("took", time.Since(start)))
}
