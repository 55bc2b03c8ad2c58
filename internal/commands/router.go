// Package commands translates inbound chat updates into calls on the timer
// service and renders the replies. The core never sees platform types; the
// router only hands it validated arguments.
package commands

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"raidbot/internal/timers"
	"raidbot/internal/transport"
	"raidbot/pkg/logx"
)

type handlerFunc func(ctx context.Context, msg *transport.Message, args []string) string

type Router struct {
	log     logx.Logger
	adapter transport.Adapter
	timers  *timers.Service

	handlers map[string]handlerFunc
}

func NewRouter(adapter transport.Adapter, svc *timers.Service, log logx.Logger) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	r := &Router{
		log:     log,
		adapter: adapter,
		timers:  svc,
	}
	r.handlers = map[string]handlerFunc{
		"timer":     r.handleTimer,
		"timers":    r.handleTimers,
		"remove":    r.handleRemove,
		"reminder":  r.handleReminder,
		"reminders": r.handleReminders,
		"help":      r.handleHelp,
		"start":     r.handleHelp, // telegram convention: /start greets new chats
	}
	return r
}

// DispatchLoop consumes updates until ctx is canceled. One misbehaving
// handler never kills the loop.
func (r *Router) DispatchLoop(ctx context.Context, updates <-chan transport.Update) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case up := <-updates:
			msg := up.Message
			if msg == nil {
				continue
			}
			name, args, ok := splitCommand(msg.Text)
			if !ok {
				continue
			}
			h := r.handlers[name]
			if h == nil {
				continue
			}
			reply := r.invoke(ctx, h, msg, args, name)
			if reply == "" {
				continue
			}
			to := transport.ChatTarget{ChatID: msg.ChatID, ThreadID: msg.ThreadID}
			if _, err := r.adapter.SendText(ctx, to, reply, nil); err != nil {
				r.log.Warn("reply failed",
					logx.String("command", name),
					logx.Int64("chat", msg.ChatID),
					logx.Err(err))
			}
		}
	}
}

func (r *Router) invoke(ctx context.Context, h handlerFunc, msg *transport.Message, args []string, name string) (reply string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("command handler panicked",
				logx.String("command", name),
				logx.Any("panic", rec),
				logx.Stack(string(debug.Stack())))
			reply = "❌ Something went wrong, try again."
		}
	}()
	return h(ctx, msg, args)
}

// splitCommand parses "/timer@somebot 1h30m 3" into ("timer",
// ["1h30m","3"], true). Non-commands return ok=false.
func splitCommand(text string) (name string, args []string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", nil, false
	}
	fields := strings.Fields(text[1:])
	if len(fields) == 0 {
		return "", nil, false
	}
	name = strings.ToLower(fields[0])
	// strip the @botname suffix Telegram appends in groups
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	return name, fields[1:], name != ""
}

func ownerFrom(msg *transport.Message) timers.Owner {
	o := timers.Owner{ID: msg.FromID}
	if msg.FromUsername != "" {
		o.Mention = "@" + msg.FromUsername
	}
	return o
}

func destFrom(msg *transport.Message) transport.ChatTarget {
	return transport.ChatTarget{ChatID: msg.ChatID, ThreadID: msg.ThreadID}
}

func usage(text string) string {
	return fmt.Sprintf("❌ %s", text)
}
