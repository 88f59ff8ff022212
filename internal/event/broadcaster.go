package event

import (
	"log/slog"
	"sync"
)

// defaultQueueSize is the per-subscriber buffer. A subscriber that falls this
// many events behind starts losing events rather than stalling the pipeline.
const defaultQueueSize = 64

// Subscriber receives events from a Broadcaster. Deliver is called from a
// dedicated goroutine per subscriber, so implementations may block without
// affecting other subscribers. Returning an error removes the subscriber.
type Subscriber interface {
	Deliver(ev Event) error
}

// SubscriberFunc adapts a plain function to the Subscriber interface.
type SubscriberFunc func(ev Event) error

// Deliver calls f(ev).
func (f SubscriberFunc) Deliver(ev Event) error { return f(ev) }

// Broadcaster fans events out to a dynamic set of subscribers. Publish never
// blocks: each subscriber has its own buffered queue drained by its own
// goroutine, and events are dropped per subscriber when that queue is full.
// Delivery order within one subscriber always matches publish order.
type Broadcaster struct {
	logger    *slog.Logger
	queueSize int

	mu     sync.Mutex
	subs   map[*subscription]struct{}
	closed bool
	wg     sync.WaitGroup
}

// Option is a functional option for configuring a Broadcaster.
type Option func(*Broadcaster)

// WithQueueSize overrides the per-subscriber queue size.
func WithQueueSize(n int) Option {
	return func(b *Broadcaster) {
		if n > 0 {
			b.queueSize = n
		}
	}
}

// WithLogger sets the logger used for delivery warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Broadcaster) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster(opts ...Option) *Broadcaster {
	b := &Broadcaster{
		logger:    slog.Default(),
		queueSize: defaultQueueSize,
		subs:      make(map[*subscription]struct{}),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

type subscription struct {
	sub Subscriber
	ch  chan Event
}

// Subscribe registers a subscriber and returns a cancel function that removes
// it. Cancel is idempotent and safe to call after Close.
func (b *Broadcaster) Subscribe(sub Subscriber) (cancel func()) {
	s := &subscription{
		sub: sub,
		ch:  make(chan Event, b.queueSize),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return func() {}
	}
	b.subs[s] = struct{}{}
	b.wg.Add(1)
	b.mu.Unlock()

	go b.drain(s)

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(s) })
	}
}

// drain delivers queued events to one subscriber until its channel closes or
// a delivery fails.
func (b *Broadcaster) drain(s *subscription) {
	defer b.wg.Done()
	for ev := range s.ch {
		if err := s.sub.Deliver(ev); err != nil {
			b.logger.Warn("subscriber delivery failed, removing subscriber",
				"event_type", ev.Type, "error", err)
			b.remove(s)
			// Keep draining so a concurrent Publish cannot block on a full
			// queue between remove and channel close.
			for range s.ch {
			}
			return
		}
	}
}

// remove unregisters a subscription and closes its queue.
func (b *Broadcaster) remove(s *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[s]; !ok {
		return
	}
	delete(b.subs, s)
	close(s.ch)
}

// Publish enqueues ev for every current subscriber. It never blocks; if a
// subscriber's queue is full the event is dropped for that subscriber only
// and the subscriber stays registered.
func (b *Broadcaster) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs {
		select {
		case s.ch <- ev:
		default:
			b.logger.Warn("subscriber queue full, dropping event", "event_type", ev.Type)
		}
	}
}

// SubscriberCount returns the number of registered subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close removes all subscribers and waits for in-flight deliveries to finish.
// Publish and Subscribe become no-ops after Close. Safe to call more than
// once.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for s := range b.subs {
		delete(b.subs, s)
		close(s.ch)
	}
	b.mu.Unlock()
	b.wg.Wait()
}
