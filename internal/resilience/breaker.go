// Package resilience implements the circuit breaker and read-retry policy used
// in front of the persistent store and the auth provider.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// State represents the state of a circuit breaker.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures circuit breaker behavior.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before opening.
	FailureThreshold int
	// SuccessThreshold is the number of half-open successes needed to close.
	SuccessThreshold int
	// Timeout is how long the circuit stays open before probing.
	Timeout time.Duration
	// OnStateChange is called synchronously after every transition, with the
	// breaker lock held. It must not call back into the breaker.
	OnStateChange func(from, to State)
}

// DefaultBreakerConfig returns the defaults used by the stores.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
	}
}

// ErrOpen is returned when the circuit is open.
var ErrOpen = errors.New("circuit breaker is open")

// Breaker implements the circuit breaker pattern.
type Breaker struct {
	mu sync.Mutex

	config BreakerConfig
	state  State
	now    func() time.Time

	failures  int
	successes int
	lastError error
	openedAt  time.Time
}

// NewBreaker creates a closed circuit breaker.
func NewBreaker(config BreakerConfig) *Breaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = DefaultBreakerConfig().SuccessThreshold
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultBreakerConfig().Timeout
	}
	return &Breaker{config: config, state: Closed, now: time.Now}
}

// Allow reports whether a call may proceed.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == Open {
		if b.now().Sub(b.openedAt) < b.config.Timeout {
			return ErrOpen
		}
		b.transitionTo(HalfOpen)
	}
	return nil
}

// RecordSuccess records a successful call.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		b.failures = 0
	case HalfOpen:
		b.successes++
		if b.successes >= b.config.SuccessThreshold {
			b.transitionTo(Closed)
		}
	}
}

// RecordFailure records a failed call.
func (b *Breaker) RecordFailure(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastError = err

	switch b.state {
	case Closed:
		b.failures++
		if b.failures >= b.config.FailureThreshold {
			b.transitionTo(Open)
		}
	case HalfOpen:
		b.transitionTo(Open)
	}
}

// Execute runs fn under the breaker. Only errors for which isFailure returns
// true count against the circuit; business errors pass through untouched.
func (b *Breaker) Execute(fn func() error, isFailure func(error) bool) error {
	if err := b.Allow(); err != nil {
		return err
	}
	err := fn()
	if err != nil && isFailure(err) {
		b.RecordFailure(err)
		return err
	}
	b.RecordSuccess()
	return err
}

func (b *Breaker) transitionTo(next State) {
	prev := b.state
	b.state = next

	switch next {
	case Closed:
		b.failures = 0
		b.successes = 0
	case Open:
		b.openedAt = b.now()
		b.successes = 0
	case HalfOpen:
		b.successes = 0
	}

	if b.config.OnStateChange != nil && prev != next {
		b.config.OnStateChange(prev, next)
	}
}

// State returns the current circuit state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// LastError returns the last recorded failure.
func (b *Breaker) LastError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastError
}
