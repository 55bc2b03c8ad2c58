package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"raidbot/internal/timers"
	"raidbot/internal/transport"
	"raidbot/pkg/logx"
)

const helpText = `🕒 Raid timer bot

/timer <time> [hops] [region] [link] — start a boss timer, e.g. /timer 1h30m 3 EU
/timers — list all active timers
/remove <number> — delete a timer
/reminder <boss|super|raids> [time] — set a personal reminder
/reminders — list your reminders
/help — this message`

func (r *Router) handleHelp(_ context.Context, _ *transport.Message, _ []string) string {
	return helpText
}

// /timer <time> [hops] [region] [link]
func (r *Router) handleTimer(_ context.Context, msg *transport.Message, args []string) string {
	if len(args) == 0 {
		return usage("Usage: /timer <time> [hops] [region] [link], e.g. /timer 1h30m 3 EU")
	}

	d, err := timers.ParseClock(args[0])
	if err != nil {
		return "❌ " + err.Error()
	}

	hops := 1
	if len(args) >= 2 {
		hops, err = strconv.Atoi(args[1])
		if err != nil {
			return usage("Hops must be a number.")
		}
	}
	region := "Unknown"
	if len(args) >= 3 {
		region = args[2]
	}
	link := ""
	if len(args) >= 4 {
		link = args[3]
	}

	id, err := r.timers.CreateTimer(ownerFrom(msg), destFrom(msg), d, hops, region, link)
	if err != nil {
		switch {
		case errors.Is(err, timers.ErrInvalidHops), errors.Is(err, timers.ErrDuplicateLink):
			return "❌ " + err.Error()
		default:
			r.log.Error("create timer failed", logx.Err(err))
			return "❌ Could not start the timer, try again."
		}
	}
	return fmt.Sprintf("⏱ Timer #%d activated for %s (hops: %d) in region %s.", id, args[0], hops, region)
}

// /timers
func (r *Router) handleTimers(_ context.Context, _ *transport.Message, _ []string) string {
	snaps := r.timers.ListTimers()
	if len(snaps) == 0 {
		return "📭 No active timers."
	}

	var b strings.Builder
	b.WriteString("🕒 Active timers:\n")
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

// /remove <number>
func (r *Router) handleRemove(_ context.Context, _ *transport.Message, args []string) string {
	if len(args) != 1 {
		return usage("Usage: /remove <timer number>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return usage("Timer number must be a number.")
	}
	if !r.timers.CancelTimer(id) {
		return "❌ No timer found with that number."
	}
	return fmt.Sprintf("🛑 Timer #%d deleted.", id)
}

// /reminder <keyword> [time]
func (r *Router) handleReminder(_ context.Context, msg *transport.Message, args []string) string {
	if len(args) == 0 {
		return usage("Usage: /reminder <boss|super|raids> [time]")
	}

	var override time.Duration
	if len(args) >= 2 {
		d, err := timers.ParseClock(args[1])
		if err != nil {
			return "❌ " + err.Error()
		}
		override = d
	}

	effective, err := r.timers.CreateReminder(ownerFrom(msg), destFrom(msg), args[0], override)
	if err != nil {
		if errors.Is(err, timers.ErrUnknownKeyword) {
			return "❌ " + err.Error()
		}
		r.log.Error("create reminder failed", logx.Err(err))
		return "❌ Could not set the reminder, try again."
	}
	return fmt.Sprintf("⏰ Reminder set for %s in %d minutes!",
		strings.ToLower(strings.TrimSpace(args[0])), int(effective.Minutes()))
}

// /reminders
func (r *Router) handleReminders(_ context.Context, msg *transport.Message, _ []string) string {
	snaps := r.timers.ListReminders(msg.FromID)
	if len(snaps) == 0 {
		return "📭 You have no active reminders."
	}

	var b strings.Builder
	b.WriteString("⏰ Your active reminders:\n")
	for i, rem := range snaps {
		total := int(rem.Remaining.Seconds())
		fmt.Fprintf(&b, "%d. %s — %dm%ds remaining\n", i+1, rem.Keyword, total/60, total%60)
	}
	return strings.TrimRight(b.String(), "\n")
}
