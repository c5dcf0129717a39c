package resilience

import (
	"sync"
	"time"
)

// BreakerState represents the current state of the circuit breaker.
type BreakerState int

const (
	// StateClosed is the normal operating state. Calls are allowed through.
	StateClosed BreakerState = iota

	// StateOpen is the failing state. Calls are rejected without invoking
	// the operation.
	StateOpen

	// StateHalfOpen permits a single probe attempt to test recovery.
	StateHalfOpen
)

// String returns a human-readable name for the state.
func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures a circuit breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of qualifying failures before the
	// circuit opens.
	FailureThreshold int

	// OpenTimeout is how long to reject calls in the open state before
	// permitting a probe.
	OpenTimeout time.Duration
}

// Breaker guards one backend against sustained failure. Only high and
// critical severity failures count toward the threshold; low and medium
// failures are expected transient noise, not outage signals.
//
// State transitions:
//   - Closed → Open: FailureThreshold qualifying failures
//   - Open → HalfOpen: OpenTimeout elapsed; one probe is allowed through
//   - HalfOpen → Closed: the probe succeeds
//   - HalfOpen → Open: the probe fails with a qualifying severity
//
// Breaker state lives in process memory only and resets on restart.
type Breaker struct {
	mu          sync.Mutex
	state       BreakerState
	failures    int
	lastFailure time.Time
	probing     bool
	cfg         BreakerConfig

	// onStateChange is invoked on transitions, for logging and metrics.
	onStateChange func(from, to BreakerState)

	// now is overridable for tests.
	now func() time.Time
}

// NewBreaker creates a breaker in the closed state.
func NewBreaker(cfg BreakerConfig) *Breaker {
	return &Breaker{
		state: StateClosed,
		cfg:   cfg,
		now:   time.Now,
	}
}

// OnStateChange sets a callback invoked whenever the breaker transitions.
func (b *Breaker) OnStateChange(fn func(from, to BreakerState)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onStateChange = fn
}

// Allow reports whether a call may proceed. In the open state it transitions
// to half-open once OpenTimeout has elapsed since the last qualifying
// failure, admitting exactly one probe.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true

	case StateOpen:
		if b.now().Sub(b.lastFailure) >= b.cfg.OpenTimeout {
			b.transitionTo(StateHalfOpen)
			b.probing = true
			return true
		}
		return false

	case StateHalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true

	default:
		return false
	}
}

// RecordSuccess records a successful call. Any success zeroes the failure
// count; a success while half-open closes the breaker.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.probing = false

	if b.state != StateClosed {
		b.transitionTo(StateClosed)
	}
}

// RecordFailure records a failed call with its classified severity. Low and
// medium severity failures never move the breaker.
func (b *Breaker) RecordFailure(sev Severity) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probing = false

	if sev < SeverityHigh {
		return
	}

	b.lastFailure = b.now()

	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.transitionTo(StateOpen)
		}

	case StateHalfOpen:
		// The probe failed; back to open for another full timeout.
		b.transitionTo(StateOpen)
	}
}

// State returns the current breaker state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures returns the current qualifying-failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// transitionTo changes state. Must be called with the lock held.
func (b *Breaker) transitionTo(newState BreakerState) {
	if b.state == newState {
		return
	}

	oldState := b.state
	b.state = newState

	if b.onStateChange != nil {
		// Run outside the lock so callbacks cannot deadlock the breaker.
		go b.onStateChange(oldState, newState)
	}
}
