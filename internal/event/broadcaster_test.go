package event

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// collector is a Subscriber that records delivered events.
type collector struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (c *collector) Deliver(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.events = append(c.events, ev)
	return nil
}

func (c *collector) snapshot() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestBroadcasterDeliversInOrder(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster()
	defer b.Close()

	c := &collector{}
	b.Subscribe(c)

	for i := 0; i < 5; i++ {
		b.Publish(New(TypeStatus, Status{State: "running"}))
	}
	b.Publish(New(TypeTranscription, Transcription{Text: "last"}))

	waitFor(t, func() bool { return len(c.snapshot()) == 6 })

	got := c.snapshot()
	for i := 0; i < 5; i++ {
		if got[i].Type != TypeStatus {
			t.Fatalf("event %d type = %q, want %q", i, got[i].Type, TypeStatus)
		}
	}
	if got[5].Type != TypeTranscription {
		t.Fatalf("final event type = %q, want %q", got[5].Type, TypeTranscription)
	}
}

func TestBroadcasterRemovesFailingSubscriber(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster()
	defer b.Close()

	healthy1 := &collector{}
	failing := &collector{err: errors.New("connection reset")}
	healthy2 := &collector{}

	b.Subscribe(healthy1)
	b.Subscribe(failing)
	b.Subscribe(healthy2)

	if got := b.SubscriberCount(); got != 3 {
		t.Fatalf("SubscriberCount = %d, want 3", got)
	}

	b.Publish(New(TypeStatus, Status{State: "running"}))

	waitFor(t, func() bool { return b.SubscriberCount() == 2 })
	waitFor(t, func() bool {
		return len(healthy1.snapshot()) == 1 && len(healthy2.snapshot()) == 1
	})

	// Later events still reach the survivors.
	b.Publish(New(TypeError, Error{Stage: "translation", Message: "timeout"}))
	waitFor(t, func() bool {
		return len(healthy1.snapshot()) == 2 && len(healthy2.snapshot()) == 2
	})
}

func TestBroadcasterDropsWhenQueueFull(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster(WithQueueSize(1))
	defer b.Close()

	block := make(chan struct{})
	delivered := make(chan Event, 16)
	b.Subscribe(SubscriberFunc(func(ev Event) error {
		<-block
		delivered <- ev
		return nil
	}))

	// First event is picked up by the drain goroutine, second fills the
	// queue, third must be dropped without blocking Publish.
	for i := 0; i < 3; i++ {
		b.Publish(New(TypeStatus, Status{State: "running"}))
	}
	close(block)

	waitFor(t, func() bool { return len(delivered) >= 1 })
	time.Sleep(50 * time.Millisecond)
	if n := len(delivered); n > 2 {
		t.Fatalf("delivered %d events, want at most 2", n)
	}

	// The subscriber stays registered after a drop.
	if got := b.SubscriberCount(); got != 1 {
		t.Fatalf("SubscriberCount = %d, want 1", got)
	}
}

func TestBroadcasterCancel(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster()
	defer b.Close()

	c := &collector{}
	cancel := b.Subscribe(c)
	cancel()
	cancel() // idempotent

	if got := b.SubscriberCount(); got != 0 {
		t.Fatalf("SubscriberCount after cancel = %d, want 0", got)
	}

	b.Publish(New(TypeStatus, Status{State: "running"}))
	time.Sleep(20 * time.Millisecond)
	if got := len(c.snapshot()); got != 0 {
		t.Fatalf("cancelled subscriber received %d events", got)
	}
}

func TestBroadcasterClose(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster()
	c := &collector{}
	b.Subscribe(c)

	b.Close()
	b.Close() // idempotent

	b.Publish(New(TypeStatus, Status{State: "stopped"}))
	if b.SubscriberCount() != 0 {
		t.Fatal("expected no subscribers after Close")
	}
}
