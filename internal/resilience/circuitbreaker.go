// Package resilience provides the circuit breaker that shields the pipeline
// from a failing translation backend.
//
// The central type is [Breaker], a classic three-state breaker
// (closed → open → half-open). While the breaker is open, translation calls
// fail fast instead of stacking up timeouts behind a dead engine.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrOpen is returned by [Breaker.Execute] when the breaker is open and the
// cooldown has not yet elapsed.
var ErrOpen = errors.New("resilience: breaker is open")

// State represents the current operating mode of a [Breaker].
type State int

const (
	// StateClosed is the normal operating state; all calls are forwarded.
	StateClosed State = iota

	// StateOpen indicates the breaker has tripped. Calls are rejected
	// immediately with [ErrOpen] until the cooldown elapses.
	StateOpen

	// StateHalfOpen is the probe state entered after the cooldown. A limited
	// number of calls are allowed through; if they succeed the breaker
	// closes, otherwise it re-opens.
	StateHalfOpen
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

const (
	defaultMaxFailures = 5
	defaultCooldown    = 30 * time.Second
	defaultProbeMax    = 3
)

// Option is a functional option for configuring a [Breaker].
type Option func(*Breaker)

// WithMaxFailures sets the number of consecutive failures in the closed state
// before the breaker opens. Default: 5.
func WithMaxFailures(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.maxFailures = n
		}
	}
}

// WithCooldown sets how long the breaker stays open before transitioning to
// half-open. Default: 30s.
func WithCooldown(d time.Duration) Option {
	return func(b *Breaker) {
		if d > 0 {
			b.cooldown = d
		}
	}
}

// WithProbeMax sets the number of probe calls allowed in the half-open state
// before the breaker decides whether to close or re-open. Default: 3.
func WithProbeMax(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.probeMax = n
		}
	}
}

// WithLogger sets the logger used for state-transition messages.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Breaker) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// Breaker implements the three-state circuit breaker pattern. It is safe for
// concurrent use from multiple goroutines.
type Breaker struct {
	name        string
	maxFailures int
	cooldown    time.Duration
	probeMax    int
	logger      *slog.Logger

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time
	probeCalls  int
	probeFails  int
}

// NewBreaker creates a [Breaker] named for log messages, configured with the
// supplied options.
func NewBreaker(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:        name,
		maxFailures: defaultMaxFailures,
		cooldown:    defaultCooldown,
		probeMax:    defaultProbeMax,
		logger:      slog.Default(),
		state:       StateClosed,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Execute runs fn if the breaker allows it. In the open state it returns
// [ErrOpen] without calling fn. In the half-open state a limited number of
// probe calls are permitted.
func (b *Breaker) Execute(fn func() error) error {
	b.mu.Lock()
	switch b.state {
	case StateOpen:
		if time.Since(b.lastFailure) < b.cooldown {
			b.mu.Unlock()
			return ErrOpen
		}
		b.state = StateHalfOpen
		b.probeCalls = 0
		b.probeFails = 0
		b.logger.Info("breaker transitioning to half-open", "name", b.name)

	case StateHalfOpen:
		if b.probeCalls >= b.probeMax {
			b.mu.Unlock()
			return ErrOpen
		}
	}

	probing := b.state == StateHalfOpen
	if probing {
		b.probeCalls++
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.onFailure(probing)
	} else {
		b.onSuccess(probing)
	}
	return err
}

// onFailure handles failure accounting. Must be called with b.mu held.
func (b *Breaker) onFailure(probing bool) {
	b.lastFailure = time.Now()

	if probing {
		b.probeFails++
		// Any failure in half-open immediately re-opens.
		b.state = StateOpen
		b.failures = b.maxFailures
		b.logger.Warn("breaker re-opened from half-open", "name", b.name)
		return
	}

	b.failures++
	if b.failures >= b.maxFailures {
		b.state = StateOpen
		b.logger.Warn("breaker opened", "name", b.name, "consecutive_failures", b.failures)
	}
}

// onSuccess handles success accounting. Must be called with b.mu held.
func (b *Breaker) onSuccess(probing bool) {
	if probing {
		if b.probeCalls-b.probeFails >= b.probeMax {
			b.state = StateClosed
			b.failures = 0
			b.probeCalls = 0
			b.probeFails = 0
			b.logger.Info("breaker closed after successful probes", "name", b.name)
		}
		return
	}
	b.failures = 0
}

// State returns the current [State] of the breaker. If the breaker is open
// and the cooldown has elapsed, the returned state is [StateHalfOpen] (the
// actual transition happens on the next [Execute] call).
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && time.Since(b.lastFailure) >= b.cooldown {
		return StateHalfOpen
	}
	return b.state
}

// Reset manually forces the breaker back to [StateClosed], clearing all
// failure counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.probeCalls = 0
	b.probeFails = 0
}
