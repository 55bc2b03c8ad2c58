package timers

import (
	"errors"
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want time.Duration
		err  error
	}{
		{in: "1h", want: time.Hour},
		{in: "45m", want: 45 * time.Minute},
		{in: "1h30m", want: 90 * time.Minute},
		{in: "2h", want: 2 * time.Hour},
		{in: "1H 30M", want: 90 * time.Minute},
		{in: " 10m ", want: 10 * time.Minute},
		{in: "0h45m", want: 45 * time.Minute},
		{in: "120m", want: 2 * time.Hour},

		{in: "", err: ErrInvalidFormat},
		{in: "30s", err: ErrInvalidFormat},
		{in: "1h30mx", err: ErrInvalidFormat},
		{in: "m", err: ErrInvalidFormat},
		{in: "h30m", err: ErrInvalidFormat},
		{in: "1.5h", err: ErrInvalidFormat},
		{in: "-1h", err: ErrInvalidFormat},
		{in: "30m1h", err: ErrInvalidFormat},

		{in: "0h", err: ErrNonPositiveDuration},
		{in: "0m", err: ErrNonPositiveDuration},
		{in: "0h0m", err: ErrNonPositiveDuration},

		// Values past the int64 nanosecond range must not wrap into an
		// accepted duration.
		{in: "5124095h5124095m", err: ErrInvalidFormat},
		{in: "99999999999h", err: ErrInvalidFormat},
		{in: "99999999999m", err: ErrInvalidFormat},
		{in: "2562047h48m", err: ErrInvalidFormat},
		{in: "2562047h", want: 2562047 * time.Hour},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseClock(tc.in)
			if tc.err != nil {
				if !errors.Is(err, tc.err) {
					t.Fatalf("ParseClock(%q) err = %v, want %v", tc.in, err, tc.err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseClock(%q) unexpected error: %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("ParseClock(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}
