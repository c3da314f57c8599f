package extract

import (
	"sync"
	"time"
)

// CBState is a circuit breaker's lifecycle state.
type CBState int

const (
	// CBClosed allows calls through; failures accumulate toward the trip
	// threshold.
	CBClosed CBState = iota
	// CBOpen rejects all calls until the cooldown elapses.
	CBOpen
	// CBHalfOpen allows a single probe call through to test recovery.
	CBHalfOpen
)

func (s CBState) String() string {
	switch s {
	case CBClosed:
		return "closed"
	case CBOpen:
		return "open"
	case CBHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreaker guards a single failing app's accessibility calls: after
// failureThreshold consecutive failures it opens for cooldown, then allows
// one half-open probe before fully resetting or re-opening. This is the
// teacher's reverse-proxy circuit breaker, re-grounded here as a
// per-bundle-id guard against repeatedly invoking a broken or
// permission-denied accessibility helper.
type CircuitBreaker struct {
	mu sync.Mutex

	failureThreshold int
	cooldown         time.Duration

	state       CBState
	failures    int
	openedAt    time.Time
}

// NewCircuitBreaker builds a CircuitBreaker with the given trip threshold
// and cooldown before a half-open probe is allowed.
func NewCircuitBreaker(failureThreshold int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		cooldown:         cooldown,
		state:            CBClosed,
	}
}

// Allow reports whether a call should proceed, transitioning Open to
// HalfOpen once the cooldown has elapsed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CBClosed:
		return true
	case CBOpen:
		if time.Since(cb.openedAt) >= cb.cooldown {
			cb.state = CBHalfOpen
			return true
		}
		return false
	case CBHalfOpen:
		return true
	default:
		return true
	}
}

// RecordSuccess resets the breaker to Closed.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = CBClosed
	cb.failures = 0
}

// RecordFailure increments the failure count, opening the breaker once the
// threshold is reached (or immediately, if the failing call was itself the
// half-open probe).
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CBHalfOpen {
		cb.state = CBOpen
		cb.openedAt = time.Now()
		return
	}

	cb.failures++
	if cb.failures >= cb.failureThreshold {
		cb.state = CBOpen
		cb.openedAt = time.Now()
	}
}

// State reports the breaker's current state.
func (cb *CircuitBreaker) State() CBState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// CircuitBreakerRegistry lazily creates one CircuitBreaker per bundle id.
type CircuitBreakerRegistry struct {
	mu               sync.Mutex
	breakers         map[string]*CircuitBreaker
	failureThreshold int
	cooldown         time.Duration
}

// NewCircuitBreakerRegistry builds a registry whose breakers all share the
// same threshold and cooldown.
func NewCircuitBreakerRegistry(failureThreshold int, cooldown time.Duration) *CircuitBreakerRegistry {
	return &CircuitBreakerRegistry{
		breakers:         make(map[string]*CircuitBreaker),
		failureThreshold: failureThreshold,
		cooldown:         cooldown,
	}
}

// Get returns the CircuitBreaker for bundleID, creating it on first use.
func (r *CircuitBreakerRegistry) Get(bundleID string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	cb, ok := r.breakers[bundleID]
	if !ok {
		cb = NewCircuitBreaker(r.failureThreshold, r.cooldown)
		r.breakers[bundleID] = cb
	}
	return cb
}
