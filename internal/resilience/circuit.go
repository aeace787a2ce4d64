// Package resilience provides the fault-isolation pieces of the scoring
// engine: a circuit breaker tracking consecutive analysis failures, and
// the error taxonomy that decides what counts as a failure.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// CircuitState represents the state of the circuit breaker.
type CircuitState int

const (
	// CircuitClosed is the normal operating state; analyses flow through.
	CircuitClosed CircuitState = iota
	// CircuitOpen means too many consecutive failures. Analyses are
	// rejected until the recovery timeout elapses.
	CircuitOpen
	// CircuitHalfOpen permits a single trial analysis to test recovery.
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// MarshalText makes the state serialize as its name in metrics output.
func (s CircuitState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *CircuitState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "closed":
		*s = CircuitClosed
	case "open":
		*s = CircuitOpen
	case "half_open":
		*s = CircuitHalfOpen
	default:
		return eris.Errorf("unknown circuit state %q", text)
	}
	return nil
}

// ErrCircuitOpen is returned when an analysis is rejected because the
// circuit is open.
var ErrCircuitOpen = eris.New("circuit breaker is open")

// CircuitBreakerConfig controls circuit breaker behavior.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before the
	// circuit opens. Default: 5.
	FailureThreshold int

	// RecoveryTimeout is how long the circuit stays open after the last
	// failure before permitting a trial. Default: 5m.
	RecoveryTimeout time.Duration

	// ShouldTrip decides which errors count toward the failure threshold.
	// If nil, every non-nil error counts.
	ShouldTrip func(err error) bool

	// OnStateChange is called when the circuit transitions between states.
	OnStateChange func(from, to CircuitState)
}

// DefaultCircuitBreakerConfig returns the engine defaults.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		RecoveryTimeout:  5 * time.Minute,
	}
}

// CircuitBreaker tracks consecutive analysis failures. All mutations are
// synchronized; it is safe to share across concurrent batch workers.
type CircuitBreaker struct {
	cfg   CircuitBreakerConfig
	mu    sync.Mutex
	state CircuitState

	consecutiveFailures int
	lastFailureTime     time.Time

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

// NewCircuitBreaker creates a circuit breaker with the given config.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = 5 * time.Minute
	}
	return &CircuitBreaker{
		cfg:     cfg,
		state:   CircuitClosed,
		nowFunc: time.Now,
	}
}

// ExecuteVal runs fn through the circuit breaker, preserving its return
// value. Returns ErrCircuitOpen without calling fn when the circuit is
// open and the recovery timeout has not elapsed.
func ExecuteVal[T any](ctx context.Context, cb *CircuitBreaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := cb.allowRequest(); err != nil {
		return zero, err
	}

	val, err := fn(ctx)
	cb.recordResult(err)
	return val, err
}

// Status is a point-in-time snapshot of the breaker for observability.
type Status struct {
	State            CircuitState `json:"state"`
	FailureCount     int          `json:"failure_count"`
	FailureThreshold int          `json:"failure_threshold"`
	RecoveryTimeout  float64      `json:"recovery_timeout_seconds"`
	LastFailureTime  *time.Time   `json:"last_failure_time,omitempty"`
}

// Status returns the current breaker snapshot. An open circuit whose
// recovery timeout has elapsed reports half-open.
func (cb *CircuitBreaker) Status() Status {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	st := Status{
		State:            cb.state,
		FailureCount:     cb.consecutiveFailures,
		FailureThreshold: cb.cfg.FailureThreshold,
		RecoveryTimeout:  cb.cfg.RecoveryTimeout.Seconds(),
	}
	if cb.state == CircuitOpen && cb.nowFunc().Sub(cb.lastFailureTime) >= cb.cfg.RecoveryTimeout {
		st.State = CircuitHalfOpen
	}
	if !cb.lastFailureTime.IsZero() {
		t := cb.lastFailureTime
		st.LastFailureTime = &t
	}
	return st
}

// Reset unconditionally forces the circuit back to closed with a zero
// failure count. Administrative recovery hook.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	old := cb.state
	cb.state = CircuitClosed
	cb.consecutiveFailures = 0
	cb.lastFailureTime = time.Time{}
	if old != CircuitClosed && cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(old, CircuitClosed)
	}
}

func (cb *CircuitBreaker) allowRequest() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitOpen:
		if cb.nowFunc().Sub(cb.lastFailureTime) >= cb.cfg.RecoveryTimeout {
			cb.transition(CircuitHalfOpen)
			return nil // allow the trial
		}
		return ErrCircuitOpen
	default:
		return nil
	}
}

func (cb *CircuitBreaker) recordResult(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	shouldTrip := cb.cfg.ShouldTrip
	if shouldTrip == nil {
		shouldTrip = func(e error) bool { return e != nil }
	}

	if err == nil || !shouldTrip(err) {
		switch cb.state {
		case CircuitHalfOpen:
			// Trial succeeded.
			cb.transition(CircuitClosed)
			cb.consecutiveFailures = 0
		case CircuitClosed:
			cb.consecutiveFailures = 0
		}
		return
	}

	cb.consecutiveFailures++
	cb.lastFailureTime = cb.nowFunc()

	switch cb.state {
	case CircuitClosed:
		if cb.consecutiveFailures >= cb.cfg.FailureThreshold {
			cb.transition(CircuitOpen)
		}
	case CircuitHalfOpen:
		// Trial failed: reopen and restart the recovery timer.
		cb.transition(CircuitOpen)
	}
}

func (cb *CircuitBreaker) transition(to CircuitState) {
	from := cb.state
	cb.state = to
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(from, to)
	}
}
