//go:build linux

// Package sdnotify reports process readiness to systemd.
//
// All calls are best-effort: outside a systemd unit (NOTIFY_SOCKET unset)
// they are no-ops and never return an error worth acting on.
package sdnotify

import "github.com/coreos/go-systemd/v22/daemon"

// Ready sends READY=1. Returns true if the notification was acknowledged
// by a notify socket (false outside systemd).
func Ready() bool {
	ok, _ := daemon.SdNotify(false, daemon.SdNotifyReady)
	return ok
}

// Stopping sends STOPPING=1 so systemd stops treating delays during
// shutdown as a hang.
func Stopping() bool {
	ok, _ := daemon.SdNotify(false, daemon.SdNotifyStopping)
	return ok
}

// Status publishes a short human-readable status line (systemctl status).
func Status(text string) bool {
	ok, _ := daemon.SdNotify(false, "STATUS="+text)
	return ok
}
