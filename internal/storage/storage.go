// Package storage is the optional audit journal: an append-only record of
// timer/reminder lifecycle events for operators.
//
// It deliberately never holds scheduler state: a restart always starts
// with an empty registry, the journal is history only.
package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"raidbot/pkg/logx"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures the journal.
//
// Driver values:
//   - "file": dependency-free JSON Lines backend
//   - "sqlite": SQLite database file (requires the sqlite build tag)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Entry is one journal row. Keep it compact and schema-stable.
type Entry struct {
	At       time.Time
	Kind     string // event type, e.g. "timer.created"
	TimerID  int64
	Owner    string
	Keyword  string
	Region   string
	Link     string
	Hop      int
	Hops     int
	Duration time.Duration
}

// Store is the minimal persistence API used by the recorder.
type Store interface {
	Append(ctx context.Context, e Entry) error
	Close() error
}

// Open initializes the configured store. Returns (nil, nil) when storage
// is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
