package timers

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidFormat rejects input that doesn't match the compact
	// hours/minutes grammar. This is a user-input error, not a fault.
	ErrInvalidFormat = errors.New(`invalid time format; use e.g. "1h30m", "45m", "2h"`)
	// ErrNonPositiveDuration rejects syntactically valid but zero input
	// like "0h0m".
	ErrNonPositiveDuration = errors.New("time must be greater than zero")
)

var clockPattern = regexp.MustCompile(`^(?:(\d+)h)?(?:(\d+)m)?$`)

// Largest component values whose nanosecond conversion still fits in a
// time.Duration.
const (
	maxHours   = int(math.MaxInt64 / int64(time.Hour))
	maxMinutes = int(math.MaxInt64 / int64(time.Minute))
)

// ParseClock converts a compact human time expression ("1h30m", "45m",
// "2h") into a duration. Whitespace is stripped and the input lowercased
// first; the grammar must consume the whole string and at least one of the
// hour/minute groups must be present.
func ParseClock(s string) (time.Duration, error) {
	cleaned := strings.ToLower(strings.ReplaceAll(s, " ", ""))
	m := clockPattern.FindStringSubmatch(cleaned)
	if m == nil || (m[1] == "" && m[2] == "") {
		return 0, ErrInvalidFormat
	}

	hours, minutes := 0, 0
	var err error
	if m[1] != "" {
		if hours, err = strconv.Atoi(m[1]); err != nil {
			return 0, ErrInvalidFormat
		}
	}
	if m[2] != "" {
		if minutes, err = strconv.Atoi(m[2]); err != nil {
			return 0, ErrInvalidFormat
		}
	}

	// Components that would overflow the int64 nanosecond representation
	// wrap to a bogus (possibly positive) duration; reject them outright.
	if hours > maxHours || minutes > maxMinutes {
		return 0, ErrInvalidFormat
	}
	hd := time.Duration(hours) * time.Hour
	md := time.Duration(minutes) * time.Minute
	if hd > math.MaxInt64-md {
		return 0, ErrInvalidFormat
	}

	d := hd + md
	if d <= 0 {
		return 0, ErrNonPositiveDuration
	}
	return d, nil
}
