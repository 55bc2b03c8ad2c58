package config

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Health   HealthConfig   `json:"health,omitempty"`
	Timers   TimersConfig   `json:"timers,omitempty"`
	Notifier NotifierConfig `json:"notifier,omitempty"`
	Digest   DigestConfig   `json:"digest,omitempty"`
	Storage  StorageConfig  `json:"storage,omitempty"`
}

type TelegramConfig struct {
	// Token may be empty; the app then falls back to the RAIDBOT_TOKEN
	// environment variable.
	Token string `json:"token"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type HealthConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default "127.0.0.1:8090"
}

// TimersConfig tunes the timer engine.
//
// All durations are Go duration strings. WarnLead and HopCooldown default
// to the domain constants (5m warning window, 2h respawn cooldown); they
// are overridable mainly so timing behavior stays testable, not as an
// end-user knob.
type TimersConfig struct {
	WarnLead    string `json:"warn_lead,omitempty"`
	HopCooldown string `json:"hop_cooldown,omitempty"`
	// Reminders maps a reminder keyword to its wait duration.
	// When omitted, the built-in set is used (boss/super 1h, raids 2h).
	Reminders map[string]string `json:"reminders,omitempty"`
}

// NotifierConfig controls the outbound delivery pipeline.
type NotifierConfig struct {
	Workers    int `json:"workers,omitempty"`
	QueueSize  int `json:"queue_size,omitempty"`
	RatePerSec int `json:"rate_per_sec,omitempty"`
}

// DigestConfig controls the optional scheduled digest of active timers.
type DigestConfig struct {
	Enabled bool `json:"enabled"`
	// Spec is a standard 5-field cron expression, e.g. "0 9 * * *".
	Spec     string `json:"spec,omitempty"`
	ChatID   int64  `json:"chat_id,omitempty"`
	ThreadID int    `json:"thread_id,omitempty"`
	Timezone string `json:"timezone,omitempty"` // IANA TZ, e.g. "Europe/Berlin"
}

// StorageConfig controls the optional audit journal.
//
// Driver values: "" or "none" (disabled), "file", "sqlite" (requires the
// sqlite build tag). The journal records lifecycle events only; scheduled
// state is never persisted.
type StorageConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}
