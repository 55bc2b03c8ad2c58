package timers

import (
	"context"
	"errors"
	"time"

	"raidbot/internal/transport"
)

var (
	// ErrInvalidHops rejects a timer request with fewer than one hop.
	ErrInvalidHops = errors.New("hops must be at least 1")
	// ErrDuplicateLink rejects a timer whose non-empty link collides with
	// an active timer's link.
	ErrDuplicateLink = errors.New("a timer with that link already exists")
	// ErrUnknownKeyword rejects a reminder keyword outside the known set.
	ErrUnknownKeyword = errors.New("unknown reminder keyword; use one of: boss, super, raids")
)

// Domain constants: the boss event has a fixed five-minute window between
// warning and occurrence, and respawns on a two-hour cooldown.
const (
	DefaultWarnLead    = 5 * time.Minute
	DefaultHopCooldown = 2 * time.Hour
)

// Reminder keywords and their default wait durations.
const (
	KeywordBoss  = "boss"
	KeywordSuper = "super"
	KeywordRaids = "raids"
)

func DefaultReminderDurations() map[string]time.Duration {
	return map[string]time.Duration{
		KeywordBoss:  time.Hour,
		KeywordSuper: time.Hour,
		KeywordRaids: 2 * time.Hour,
	}
}

// Owner identifies the requesting user. Used for addressing only, never
// for authorization.
type Owner struct {
	ID      int64
	Mention string // e.g. "@username"; may be empty
}

// timer is the registry record for one multi-hop timer. The registry lock
// guards remainingHops and nextAlert; everything else is immutable after
// creation. Only the record's own worker mutates the two mutable fields.
type timer struct {
	id        int64
	owner     Owner
	dest      transport.ChatTarget
	initial   time.Duration
	region    string
	link      string
	totalHops int
	createdAt time.Time

	remainingHops int
	nextAlert     time.Time

	cancel context.CancelFunc
}

// reminder is the registry record for one one-shot reminder.
type reminder struct {
	owner     Owner
	dest      transport.ChatTarget
	keyword   string
	duration  time.Duration
	createdAt time.Time

	cancel context.CancelFunc
}

// TimerSnapshot is a read-only view of an active timer for listings.
type TimerSnapshot struct {
	ID            int64
	Region        string
	Link          string
	TotalHops     int
	RemainingHops int
	NextAlert     time.Time
	// Until is NextAlert rendered per FormatRemaining at snapshot time.
	Until string
}

// ReminderSnapshot is a read-only view of an active reminder.
type ReminderSnapshot struct {
	Keyword   string
	FiresAt   time.Time
	Remaining time.Duration
}

// TimerEvent is the event-bus payload for timer lifecycle events.
type TimerEvent struct {
	ID     int64  `json:"id"`
	Owner  string `json:"owner,omitempty"`
	Region string `json:"region,omitempty"`
	Link   string `json:"link,omitempty"`
	Hop    int    `json:"hop,omitempty"`
	Hops   int    `json:"hops"`
}

// ReminderEvent is the event-bus payload for reminder lifecycle events.
type ReminderEvent struct {
	Owner    string        `json:"owner,omitempty"`
	Keyword  string        `json:"keyword"`
	Duration time.Duration `json:"duration"`
}
