package api

import (
	"errors"
	"sync"
	"time"

	"github.com/retailbridge/rms-commerce-sync/internal/domain/shared"
)

// CircuitState represents the state of the circuit breaker
type CircuitState int

const (
	// CircuitClosed allows all requests
	CircuitClosed CircuitState = iota
	// CircuitOpen blocks all requests
	CircuitOpen
	// CircuitHalfOpen allows limited requests to test recovery
	CircuitHalfOpen
)

var (
	// ErrCircuitOpen is returned when the circuit breaker is open
	ErrCircuitOpen = errors.New("circuit breaker open")
)

// CircuitBreaker guards the commerce transport against a dead remote: after
// maxFailures consecutive transport failures it rejects calls outright until
// the cooldown elapses, then probes with a half-open request.
type CircuitBreaker struct {
	maxFailures     int
	timeout         time.Duration
	state           CircuitState
	failureCount    int
	lastFailureTime time.Time
	mu              sync.RWMutex
	clock           shared.Clock
}

// NewCircuitBreaker creates a new circuit breaker with optional clock injection
// If clock is nil, uses RealClock
func NewCircuitBreaker(maxFailures int, timeout time.Duration, clock shared.Clock) *CircuitBreaker {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &CircuitBreaker{
		maxFailures: maxFailures,
		timeout:     timeout,
		state:       CircuitClosed,
		clock:       clock,
	}
}

// Call executes a function with circuit breaker protection
func (cb *CircuitBreaker) Call(fn func() error) error {
	cb.mu.Lock()
	if cb.state == CircuitOpen {
		elapsed := cb.clock.Now().Sub(cb.lastFailureTime)
		if elapsed >= cb.timeout {
			cb.state = CircuitHalfOpen
		} else {
			cb.mu.Unlock()
			return shared.NewTransientError("circuit", "commerce transport unavailable", ErrCircuitOpen)
		}
	}
	cb.mu.Unlock()

	// Execute the function WITHOUT holding the lock so long retry sequences
	// do not block other requests.
	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		// Only transport-level failures trip the breaker; a validation
		// rejection of one product says nothing about remote health.
		if shared.IsTransient(err) {
			cb.onFailure()
		}
		return err
	}

	cb.onSuccess()
	return nil
}

// onFailure records a failure and updates circuit state
func (cb *CircuitBreaker) onFailure() {
	cb.failureCount++
	cb.lastFailureTime = cb.clock.Now()

	if cb.state == CircuitHalfOpen {
		// Failed in half-open state, reopen circuit
		cb.state = CircuitOpen
		return
	}

	if cb.failureCount >= cb.maxFailures {
		cb.state = CircuitOpen
	}
}

// onSuccess records a success and updates circuit state
func (cb *CircuitBreaker) onSuccess() {
	cb.failureCount = 0

	if cb.state == CircuitHalfOpen {
		// Success in half-open state, close circuit
		cb.state = CircuitClosed
	}
}

// GetState returns the current circuit breaker state
func (cb *CircuitBreaker) GetState() CircuitState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// GetFailureCount returns the current consecutive failure count
func (cb *CircuitBreaker) GetFailureCount() int {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.failureCount
}
