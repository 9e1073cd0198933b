// Package circuit stops calling a failing dependency for a while and lets a
// single probe through once the cooldown has passed.
package circuit

import (
	"sync"
	"time"
)

// State is the breaker position.
type State int

const (
	// StateClosed lets every call through.
	StateClosed State = iota
	// StateOpen refuses calls until the cooldown elapses.
	StateOpen
)

func (s State) String() string {
	if s == StateOpen {
		return "open"
	}
	return "closed"
}

// Breaker opens after FailureThreshold consecutive failures and closes again
// on the first successful probe.
type Breaker struct {
	mu               sync.Mutex
	name             string
	state            State
	failures         int
	openedAt         time.Time
	failureThreshold int
	cooldown         time.Duration
	now              func() time.Time
}

// Option configures a Breaker instance.
type Option func(*Breaker)

// WithFailureThreshold sets how many consecutive failures open the circuit.
// Default is 5.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

// WithCooldown sets how long an open circuit refuses calls. Default is 30s.
func WithCooldown(d time.Duration) Option {
	return func(b *Breaker) {
		if d > 0 {
			b.cooldown = d
		}
	}
}

// WithClock replaces time.Now. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		if now != nil {
			b.now = now
		}
	}
}

// New creates a closed breaker.
func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:             name,
		failureThreshold: 5,
		cooldown:         30 * time.Second,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the breaker's name for logging/metrics.
func (b *Breaker) Name() string {
	return b.name
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allow reports whether a call may go ahead. While open it returns true once
// per cooldown period so the caller can probe the dependency.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateClosed {
		return true
	}
	if b.now().Sub(b.openedAt) >= b.cooldown {
		// Restart the cooldown so concurrent callers do not all probe.
		b.openedAt = b.now()
		return true
	}
	return false
}

// Record feeds the outcome of an allowed call back into the breaker and
// reports whether the state changed.
func (b *Breaker) Record(err error) (changed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.failures = 0
		if b.state == StateOpen {
			b.state = StateClosed
			return true
		}
		return false
	}

	b.failures++
	if b.state == StateOpen {
		b.openedAt = b.now()
		return false
	}
	if b.failures >= b.failureThreshold {
		b.state = StateOpen
		b.openedAt = b.now()
		return true
	}
	return false
}
