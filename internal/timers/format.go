package timers

import (
	"fmt"
	"time"
)

// FormatRemaining renders the time left until target for listings.
// Past-due targets collapse to "Alert pending"; sub-minute remainders to a
// fixed phrase so listings never show raw seconds.
func FormatRemaining(target, now time.Time) string {
	remaining := target.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	total := int(remaining / time.Second)

	switch {
	case total == 0:
		return "Alert pending"
	case total >= 3600:
		return fmt.Sprintf("%dh%dm", total/3600, (total%3600)/60)
	case total >= 60:
		return fmt.Sprintf("%dm", total/60)
	default:
		return "Less than 1m"
	}
}
