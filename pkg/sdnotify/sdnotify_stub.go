//go:build !linux

package sdnotify

// Non-linux builds have no notify socket; everything is a no-op.

func Ready() bool    { return false }
func Stopping() bool { return false }

func Status(text string) bool { return false }
