package eventbus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	t.Parallel()

	bus := New()
	ch, unsub := bus.Subscribe(4)
	defer unsub()

	bus.Publish(Event{Type: TimerCreated, Data: 1})

	select {
	case ev := <-ch:
		if ev.Type != TimerCreated {
			t.Fatalf("type = %q", ev.Type)
		}
		if ev.Time.IsZero() {
			t.Fatal("publish should stamp a time")
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	t.Parallel()

	bus := New()
	_, unsub := bus.Subscribe(1)
	defer unsub()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			bus.Publish(Event{Type: TimerWarned})
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}

func TestUnsubscribeIsIdempotentAndSafe(t *testing.T) {
	t.Parallel()

	bus := New()
	ch, unsub := bus.Subscribe(1)

	unsub()
	unsub()

	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after unsubscribe")
	}
	// Publishing into a bus whose subscriber just left must not panic.
	bus.Publish(Event{Type: TimerCompleted})
}

func TestFanout(t *testing.T) {
	t.Parallel()

	bus := New()
	a, unsubA := bus.Subscribe(2)
	b, unsubB := bus.Subscribe(2)
	defer unsubA()
	defer unsubB()

	bus.Publish(Event{Type: ReminderFired})

	for name, ch := range map[string]<-chan Event{"a": a, "b": b} {
		select {
		case ev := <-ch:
			if ev.Type != ReminderFired {
				t.Fatalf("%s: type = %q", name, ev.Type)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s: event not delivered", name)
		}
	}
}
