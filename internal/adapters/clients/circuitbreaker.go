package clients

import (
	"sync"
	"time"
)

// State represents the current state of the circuit breaker.
type State int

const (
	// StateClosed lets every request through.
	StateClosed State = iota

	// StateOpen rejects every request until the open timeout elapses.
	StateOpen

	// StateHalfOpen lets a bounded number of probe requests through.
	StateHalfOpen
)

// String returns a human-readable name for the state.
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

// CircuitBreakerConfig configures the circuit breaker behavior.
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the circuit.
	// Zero or negative disables the breaker.
	MaxFailures int

	// Timeout is how long the circuit stays open before probing.
	Timeout time.Duration

	// HalfOpenLimit bounds concurrent probes and is also the number of
	// consecutive probe successes that closes the circuit.
	HalfOpenLimit int
}

// CircuitBreaker stops sending requests to a downstream that keeps failing.
// A failure here is a transport fault or a 5xx after retries; 4xx responses
// count as successes because the downstream answered.
//
//	closed --MaxFailures--> open --Timeout--> half-open --HalfOpenLimit successes--> closed
//	                                          half-open --any failure--> open
type CircuitBreaker struct {
	mu       sync.Mutex
	cfg      CircuitBreakerConfig
	state    State
	streak   int // consecutive failures (closed) or successes (half-open)
	probes   int // probes in flight (half-open)
	openedAt time.Time

	onStateChange func(from, to State)

	// now is overridable for testing.
	now func() time.Time
}

// NewCircuitBreaker creates a new circuit breaker with the given configuration.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.HalfOpenLimit < 1 {
		cfg.HalfOpenLimit = 1
	}

	return &CircuitBreaker{
		cfg:   cfg,
		state: StateClosed,
		now:   time.Now,
	}
}

// OnStateChange registers fn to be called after every state transition.
// fn runs on the goroutine that caused the transition, outside the breaker lock.
func (cb *CircuitBreaker) OnStateChange(fn func(from, to State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onStateChange = fn
}

// Allow reports whether a request may proceed.
// An open circuit becomes half-open here once its timeout has elapsed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	if cb.cfg.MaxFailures <= 0 {
		cb.mu.Unlock()
		return true
	}

	var (
		allowed bool
		notify  func()
	)

	switch cb.state {
	case StateClosed:
		allowed = true
	case StateOpen:
		if cb.now().Sub(cb.openedAt) >= cb.cfg.Timeout {
			notify = cb.moveTo(StateHalfOpen)
			cb.probes = 1
			allowed = true
		}
	case StateHalfOpen:
		if cb.probes < cb.cfg.HalfOpenLimit {
			cb.probes++
			allowed = true
		}
	}
	cb.mu.Unlock()

	if notify != nil {
		notify()
	}

	return allowed
}

// RecordSuccess records a request the downstream answered.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	var notify func()

	switch cb.state {
	case StateClosed:
		cb.streak = 0
	case StateHalfOpen:
		cb.probes--
		cb.streak++
		if cb.streak >= cb.cfg.HalfOpenLimit {
			notify = cb.moveTo(StateClosed)
		}
	}
	cb.mu.Unlock()

	if notify != nil {
		notify()
	}
}

// RecordFailure records a request the downstream did not answer properly.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	if cb.cfg.MaxFailures <= 0 {
		cb.mu.Unlock()
		return
	}

	var notify func()

	switch cb.state {
	case StateClosed:
		cb.streak++
		if cb.streak >= cb.cfg.MaxFailures {
			notify = cb.moveTo(StateOpen)
		}
	case StateHalfOpen:
		cb.probes--
		notify = cb.moveTo(StateOpen)
	}
	cb.mu.Unlock()

	if notify != nil {
		notify()
	}
}

// State returns the current state of the circuit breaker.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// moveTo switches state and returns the pending notification, if any.
// Must be called with cb.mu held.
func (cb *CircuitBreaker) moveTo(to State) func() {
	from := cb.state
	if from == to {
		return nil
	}

	cb.state = to
	cb.streak = 0
	cb.probes = 0
	if to == StateOpen {
		cb.openedAt = cb.now()
	}

	fn := cb.onStateChange
	if fn == nil {
		return nil
	}

	return func() { fn(from, to) }
}
