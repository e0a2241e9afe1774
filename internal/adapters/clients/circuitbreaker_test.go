package clients

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestBreaker returns a breaker whose clock the test controls.
func newTestBreaker(cfg CircuitBreakerConfig) (*CircuitBreaker, *time.Time) {
	now := time.Now()
	cb := NewCircuitBreaker(cfg)
	cb.now = func() time.Time { return now }
	return cb, &now
}

func TestCircuitBreaker_InitialState(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:   5,
		Timeout:       30 * time.Second,
		HalfOpenLimit: 3,
	})

	assert.Equal(t, StateClosed, cb.State())
	assert.True(t, cb.Allow())
}

func TestCircuitBreaker_ClosedToOpen(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:   3,
		Timeout:       30 * time.Second,
		HalfOpenLimit: 2,
	})

	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, StateClosed, cb.State())

	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.Allow())
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:   3,
		Timeout:       30 * time.Second,
		HalfOpenLimit: 2,
	})

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()

	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, StateClosed, cb.State())

	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_OpenToHalfOpen(t *testing.T) {
	cb, now := newTestBreaker(CircuitBreakerConfig{
		MaxFailures:   1,
		Timeout:       100 * time.Millisecond,
		HalfOpenLimit: 2,
	})

	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.Allow())

	*now = now.Add(150 * time.Millisecond)

	assert.True(t, cb.Allow())
	assert.Equal(t, StateHalfOpen, cb.State())
}

func TestCircuitBreaker_HalfOpenLimitsProbes(t *testing.T) {
	cb, now := newTestBreaker(CircuitBreakerConfig{
		MaxFailures:   1,
		Timeout:       100 * time.Millisecond,
		HalfOpenLimit: 2,
	})

	cb.RecordFailure()
	*now = now.Add(150 * time.Millisecond)

	assert.True(t, cb.Allow(), "first probe")
	assert.True(t, cb.Allow(), "second probe")
	assert.False(t, cb.Allow(), "probe limit reached")
}

func TestCircuitBreaker_HalfOpenToClosed(t *testing.T) {
	cb, now := newTestBreaker(CircuitBreakerConfig{
		MaxFailures:   1,
		Timeout:       100 * time.Millisecond,
		HalfOpenLimit: 2,
	})

	cb.RecordFailure()
	*now = now.Add(150 * time.Millisecond)
	cb.Allow()
	cb.Allow()
	assert.Equal(t, StateHalfOpen, cb.State())

	cb.RecordSuccess()
	assert.Equal(t, StateHalfOpen, cb.State())

	cb.RecordSuccess()
	assert.Equal(t, StateClosed, cb.State())
	assert.True(t, cb.Allow())
}

func TestCircuitBreaker_HalfOpenToOpen(t *testing.T) {
	cb, now := newTestBreaker(CircuitBreakerConfig{
		MaxFailures:   1,
		Timeout:       100 * time.Millisecond,
		HalfOpenLimit: 2,
	})

	cb.RecordFailure()
	*now = now.Add(150 * time.Millisecond)
	cb.Allow()
	assert.Equal(t, StateHalfOpen, cb.State())

	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())

	// The open timeout restarts from the half-open failure.
	*now = now.Add(50 * time.Millisecond)
	assert.False(t, cb.Allow())
}

func TestCircuitBreaker_Disabled(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})

	for range 10 {
		cb.RecordFailure()
	}

	assert.Equal(t, StateClosed, cb.State())
	assert.True(t, cb.Allow())
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	type transition struct{ from, to State }
	var transitions []transition

	cb, now := newTestBreaker(CircuitBreakerConfig{
		MaxFailures:   1,
		Timeout:       10 * time.Millisecond,
		HalfOpenLimit: 1,
	})
	cb.OnStateChange(func(from, to State) {
		transitions = append(transitions, transition{from, to})
	})

	cb.RecordFailure()
	*now = now.Add(20 * time.Millisecond)
	cb.Allow()
	cb.RecordSuccess()

	// Callbacks run synchronously, after the lock is released.
	require.Len(t, transitions, 3)
	assert.Equal(t, transition{StateClosed, StateOpen}, transitions[0])
	assert.Equal(t, transition{StateOpen, StateHalfOpen}, transitions[1])
	assert.Equal(t, transition{StateHalfOpen, StateClosed}, transitions[2])
}

func TestCircuitBreaker_CallbackMayReadState(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:   1,
		Timeout:       time.Second,
		HalfOpenLimit: 1,
	})

	var observed State
	cb.OnStateChange(func(_, _ State) {
		observed = cb.State()
	})

	cb.RecordFailure()
	assert.Equal(t, StateOpen, observed)
}

func TestCircuitBreaker_Concurrent(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:   100,
		Timeout:       time.Second,
		HalfOpenLimit: 10,
	})

	var wg sync.WaitGroup
	var allows int64

	for range 1000 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !cb.Allow() {
				return
			}
			if atomic.AddInt64(&allows, 1)%2 == 0 {
				cb.RecordSuccess()
			} else {
				cb.RecordFailure()
			}
		}()
	}

	wg.Wait()

	assert.Contains(t, []State{StateClosed, StateOpen, StateHalfOpen}, cb.State())
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.state.String())
		})
	}
}
