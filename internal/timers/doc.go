// Package timers is the scheduling core of the bot: an in-memory registry
// of multi-hop timers and one-shot reminders, each driven by its own
// goroutine.
//
// A timer waits out its hop duration and emits an early-warning
// notification five minutes before a hop completes (when the hop is long
// enough to leave that runway). After each hop the timer rolls into a
// fixed two-hour cooldown until its hop budget is spent. Reminders are the
// single-wait, single-notification sibling, registered per user.
//
// Everything lives in memory only: a restart clears all scheduled state.
// Cancellation is an explicit per-record context, not registry-membership
// polling, so a cancel and a worker's own cleanup can race safely.
package timers
