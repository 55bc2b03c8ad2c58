package timers

import (
	"testing"
	"time"
)

func TestFormatRemaining(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		target time.Time
		want   string
	}{
		{name: "past due", target: now.Add(-time.Minute), want: "Alert pending"},
		{name: "exactly now", target: now, want: "Alert pending"},
		{name: "under a minute", target: now.Add(59 * time.Second), want: "Less than 1m"},
		{name: "one minute", target: now.Add(time.Minute), want: "1m"},
		{name: "minutes truncate", target: now.Add(90 * time.Second), want: "1m"},
		{name: "fifty nine minutes", target: now.Add(59*time.Minute + 59*time.Second), want: "59m"},
		{name: "one hour", target: now.Add(time.Hour), want: "1h0m"},
		{name: "hour and a half", target: now.Add(90 * time.Minute), want: "1h30m"},
		{name: "two hours five", target: now.Add(2*time.Hour + 5*time.Minute), want: "2h5m"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := FormatRemaining(tc.target, now); got != tc.want {
				t.Fatalf("FormatRemaining = %q, want %q", got, tc.want)
			}
		})
	}
}
