package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"raidbot/internal/transport"
	"raidbot/pkg/logx"
)

type captureAdapter struct {
	mu   sync.Mutex
	sent []string
	ch   chan string
	err  error
}

func newCaptureAdapter() *captureAdapter {
	return &captureAdapter{ch: make(chan string, 64)}
}

func (a *captureAdapter) Start(context.Context, chan<- transport.Update) error { return nil }
func (a *captureAdapter) Stop(context.Context) error                           { return nil }

func (a *captureAdapter) SendText(_ context.Context, _ transport.ChatTarget, text string, _ *transport.SendOptions) (transport.MessageRef, error) {
	a.mu.Lock()
	a.sent = append(a.sent, text)
	err := a.err
	a.mu.Unlock()
	select {
	case a.ch <- text:
	default:
	}
	return transport.MessageRef{}, err
}

var target = transport.ChatTarget{ChatID: 1}

func TestNotifyDelivers(t *testing.T) {
	t.Parallel()

	ad := newCaptureAdapter()
	svc := New(Config{Workers: 1, QueueSize: 8, RatePerSec: 100}, ad, logx.Nop())
	svc.Start(context.Background())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = svc.Stop(ctx)
	}()

	if err := svc.Notify(context.Background(), transport.Notification{Target: target, Text: "hello"}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	select {
	case got := <-ad.ch:
		if got != "hello" {
			t.Fatalf("sent = %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("notification not delivered")
	}
}

func TestNotifyZeroTargetIsDropped(t *testing.T) {
	t.Parallel()

	ad := newCaptureAdapter()
	svc := New(Config{}, ad, logx.Nop())
	svc.Start(context.Background())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = svc.Stop(ctx)
	}()

	if err := svc.Notify(context.Background(), transport.Notification{Text: "nowhere"}); err != nil {
		t.Fatalf("Notify with zero target: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	ad.mu.Lock()
	defer ad.mu.Unlock()
	if len(ad.sent) != 0 {
		t.Fatalf("sent = %v, want none", ad.sent)
	}
}

func TestNotifyQueueFull(t *testing.T) {
	t.Parallel()

	ad := newCaptureAdapter()
	// One worker throttled to a crawl so the queue backs up.
	svc := New(Config{Workers: 1, QueueSize: 1, RatePerSec: 1}, ad, logx.Nop())
	svc.Start(context.Background())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = svc.Stop(ctx)
	}()

	var sawFull bool
	for i := 0; i < 20; i++ {
		if err := svc.Notify(context.Background(), transport.Notification{Target: target, Text: "x"}); errors.Is(err, ErrQueueFull) {
			sawFull = true
			break
		}
	}
	if !sawFull {
		t.Fatal("expected ErrQueueFull under sustained overload")
	}
}

func TestNotifyAfterStop(t *testing.T) {
	t.Parallel()

	svc := New(Config{}, newCaptureAdapter(), logx.Nop())
	if err := svc.Notify(context.Background(), transport.Notification{Target: target, Text: "x"}); !errors.Is(err, ErrStopped) {
		t.Fatalf("before start err = %v, want ErrStopped", err)
	}

	svc.Start(context.Background())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := svc.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := svc.Notify(context.Background(), transport.Notification{Target: target, Text: "x"}); !errors.Is(err, ErrStopped) {
		t.Fatalf("after stop err = %v, want ErrStopped", err)
	}
}
