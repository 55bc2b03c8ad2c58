// Package app assembles the bot: config, logging, transport, the timer
// engine and its supporting services. It owns startup ordering and the
// staged shutdown sequence.
package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"raidbot/internal/commands"
	"raidbot/internal/config"
	"raidbot/internal/digest"
	"raidbot/internal/eventbus"
	"raidbot/internal/health"
	"raidbot/internal/notifier"
	"raidbot/internal/runtime/supervisor"
	"raidbot/internal/storage"
	"raidbot/internal/timers"
	"raidbot/internal/transport"
	"raidbot/internal/transport/telegram"
	"raidbot/pkg/logx"
)

const tokenEnv = "RAIDBOT_TOKEN"

type App struct {
	log    logx.Logger
	logSvc *logx.Service

	cfgMgr  *config.Manager
	sup     *supervisor.Supervisor
	adapter *telegram.Adapter
	bus     eventbus.Bus
	store   storage.Store
	notif   *notifier.Service
	engine  *timers.Service
	router  *commands.Router
	dig     *digest.Service
	hs      *health.Server

	updates chan transport.Update
	cfgSub  chan *config.Config
}

// New loads configuration and constructs every component without starting
// any of them. A non-nil App is always ready for Start or Stop.
func New(configPath string) (*App, error) {
	a := &App{}

	a.cfgMgr = config.NewManager(configPath)
	cfg, err := a.cfgMgr.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	a.logSvc, a.log = logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	a.cfgMgr.SetLogger(a.log.With(logx.String("svc", "config")))
	a.cfgMgr.SetValidator(validateConfig)

	token := strings.TrimSpace(cfg.Telegram.Token)
	if token == "" {
		token = strings.TrimSpace(os.Getenv(tokenEnv))
	}
	if token == "" {
		a.logSvc.Close()
		return nil, fmt.Errorf("telegram token not set (config telegram.token or %s)", tokenEnv)
	}

	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		a.logSvc.Close()
		return nil, err
	}
	a.adapter, err = telegram.New(telegram.Config{
		Token:       token,
		PollTimeout: pollTimeout,
	}, a.log.With(logx.String("svc", "telegram")))
	if err != nil {
		a.logSvc.Close()
		return nil, fmt.Errorf("telegram: %w", err)
	}

	a.bus = eventbus.New()

	a.store, err = openStore(cfg.Storage, a.log.With(logx.String("svc", "storage")))
	if err != nil {
		a.logSvc.Close()
		return nil, fmt.Errorf("storage: %w", err)
	}

	a.notif = notifier.New(notifier.Config{
		Workers:    cfg.Notifier.Workers,
		QueueSize:  cfg.Notifier.QueueSize,
		RatePerSec: cfg.Notifier.RatePerSec,
	}, a.adapter, a.log.With(logx.String("svc", "notifier")))

	opt, err := timerOptions(cfg.Timers)
	if err != nil {
		a.logSvc.Close()
		return nil, err
	}
	a.engine = timers.New(opt, a.notif, a.bus, a.log.With(logx.String("svc", "timers")))

	a.router = commands.NewRouter(a.adapter, a.engine, a.log.With(logx.String("svc", "commands")))

	a.dig = digest.New(digest.Config{
		Enabled:  cfg.Digest.Enabled,
		Spec:     cfg.Digest.Spec,
		Target:   transport.ChatTarget{ChatID: cfg.Digest.ChatID, ThreadID: cfg.Digest.ThreadID},
		Timezone: cfg.Digest.Timezone,
	}, a.engine, a.notif, a.log.With(logx.String("svc", "digest")))

	a.hs = health.New(health.Config{
		Enabled: cfg.Health.Enabled,
		Addr:    cfg.Health.Addr,
	}, a.engine, a.log.With(logx.String("svc", "health")))

	return a, nil
}

// Start brings every component up. On error the caller should still call
// Stop to release whatever did start.
func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx,
		supervisor.WithLogger(a.log.With(logx.String("svc", "supervisor"))))

	a.updates = make(chan transport.Update, 128)
	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return fmt.Errorf("telegram start: %w", err)
	}

	a.notif.Start(a.sup.Context())
	a.engine.Start(a.sup.Context())

	if a.store != nil {
		a.sup.Go0("journal", func(ctx context.Context) {
			storage.Record(ctx, a.bus, a.store, a.log.With(logx.String("svc", "journal")))
		})
	}

	a.sup.Go("dispatch", func(ctx context.Context) error {
		return a.router.DispatchLoop(ctx, a.updates)
	})

	if err := a.dig.Start(a.sup.Context()); err != nil {
		return fmt.Errorf("digest start: %w", err)
	}
	if err := a.hs.Start(); err != nil {
		return fmt.Errorf("health start: %w", err)
	}

	a.cfgSub = a.cfgMgr.Subscribe(4)
	a.sup.Go0("config-reload", a.reloadLoop)
	a.sup.GoRestart("config-watch", a.cfgMgr.Watch)

	a.log.Info("bot started")
	return nil
}

// Stop shuts components down in reverse dependency order. Each stage gets
// a slice of the remaining deadline so one stuck component cannot eat the
// whole budget.
func (a *App) Stop(ctx context.Context) error {
	var firstErr error
	step := func(name string, d time.Duration, fn func(ctx context.Context) error) {
		stepCtx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		if err := fn(stepCtx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", name, err)
		}
	}

	// Stop intake first so no new commands arrive while draining.
	step("telegram", 5*time.Second, a.adapter.Stop)
	step("digest", 2*time.Second, a.dig.Stop)
	step("health", 2*time.Second, a.hs.Stop)
	step("timers", 5*time.Second, a.engine.Stop)
	step("notifier", 5*time.Second, a.notif.Stop)

	if a.sup != nil {
		step("supervisor", 5*time.Second, a.sup.Stop)
	}
	if a.cfgSub != nil {
		a.cfgMgr.Unsubscribe(a.cfgSub)
		a.cfgSub = nil
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("storage: %w", err)
		}
	}

	a.log.Info("bot stopped")
	if a.logSvc != nil {
		a.logSvc.Close()
	}
	return firstErr
}

// reloadLoop applies config changes that are safe to swap at runtime:
// log level and outputs, timer tunables, notifier throughput. Transport,
// digest schedule and storage driver changes need a restart.
func (a *App) reloadLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-a.cfgSub:
			if !ok {
				return
			}
			a.applyConfig(cfg)
		}
	}
}

func (a *App) applyConfig(cfg *config.Config) {
	a.logSvc.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	opt, err := timerOptions(cfg.Timers)
	if err != nil {
		a.log.Warn("reload: timer options rejected", logx.Err(err))
	} else {
		a.engine.Apply(opt)
	}

	a.notif.Apply(notifier.Config{
		Workers:    cfg.Notifier.Workers,
		QueueSize:  cfg.Notifier.QueueSize,
		RatePerSec: cfg.Notifier.RatePerSec,
	})

	a.log.Info("configuration reloaded")
}

// validateConfig rejects a config file before it is committed by the
// watcher. Anything parseable but semantically broken lands here.
func validateConfig(_ context.Context, cfg *config.Config) error {
	if _, err := timerOptions(cfg.Timers); err != nil {
		return err
	}
	if _, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second); err != nil {
		return err
	}
	if cfg.Digest.Enabled && strings.TrimSpace(cfg.Digest.Spec) == "" {
		return fmt.Errorf("digest.spec is required when digest is enabled")
	}
	return nil
}

func timerOptions(tc config.TimersConfig) (timers.Options, error) {
	warn, err := config.ParseDurationOrDefault("timers.warn_lead", tc.WarnLead, timers.DefaultWarnLead)
	if err != nil {
		return timers.Options{}, err
	}
	cooldown, err := config.ParseDurationOrDefault("timers.hop_cooldown", tc.HopCooldown, timers.DefaultHopCooldown)
	if err != nil {
		return timers.Options{}, err
	}
	opt := timers.Options{WarnLead: warn, HopCooldown: cooldown}
	if len(tc.Reminders) > 0 {
		opt.ReminderDurations = make(map[string]time.Duration, len(tc.Reminders))
		for kw, raw := range tc.Reminders {
			d, err := config.ParseDurationField("timers.reminders."+kw, raw)
			if err != nil {
				return timers.Options{}, err
			}
			opt.ReminderDurations[strings.ToLower(kw)] = d
		}
	}
	return opt, nil
}

func openStore(sc config.StorageConfig, log logx.Logger) (storage.Store, error) {
	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, 0)
	if err != nil {
		return nil, err
	}
	return storage.Open(storage.Config{
		Driver:      sc.Driver,
		Path:        sc.Path,
		BusyTimeout: busy,
	}, log)
}
