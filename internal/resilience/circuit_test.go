package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = eris.New("boom")

func failing(_ context.Context) (int, error) { return 0, errBoom }

func succeeding(_ context.Context) (int, error) { return 42, nil }

func TestCircuitBreaker_OpensAtThreshold(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 5, RecoveryTimeout: 5 * time.Minute})
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := ExecuteVal(ctx, cb, failing)
		require.ErrorIs(t, err, errBoom)
		assert.Equal(t, CircuitClosed, cb.Status().State, "call %d", i)
	}

	// Fifth consecutive failure trips the breaker.
	_, err := ExecuteVal(ctx, cb, failing)
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, CircuitOpen, cb.Status().State)
	assert.Equal(t, 5, cb.Status().FailureCount)

	// While open, calls are rejected without running fn.
	called := false
	_, err = ExecuteVal(ctx, cb, func(_ context.Context) (int, error) {
		called = true
		return 0, nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_SuccessResetsCount(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, _ = ExecuteVal(ctx, cb, failing)
	}
	v, err := ExecuteVal(ctx, cb, succeeding)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 0, cb.Status().FailureCount)

	// The window restarts: four more failures still do not trip.
	for i := 0; i < 4; i++ {
		_, _ = ExecuteVal(ctx, cb, failing)
	}
	assert.Equal(t, CircuitClosed, cb.Status().State)
}

func TestCircuitBreaker_HalfOpenTrial(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2, RecoveryTimeout: 300 * time.Second})
	cb.nowFunc = func() time.Time { return now }
	ctx := context.Background()

	_, _ = ExecuteVal(ctx, cb, failing)
	_, _ = ExecuteVal(ctx, cb, failing)
	require.Equal(t, CircuitOpen, cb.Status().State)

	// Before the recovery timeout the circuit stays shut.
	now = now.Add(299 * time.Second)
	_, err := ExecuteVal(ctx, cb, succeeding)
	assert.ErrorIs(t, err, ErrCircuitOpen)

	// At the timeout a single trial is allowed; success closes the circuit.
	now = now.Add(1 * time.Second)
	assert.Equal(t, CircuitHalfOpen, cb.Status().State)
	v, err := ExecuteVal(ctx, cb, succeeding)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, CircuitClosed, cb.Status().State)
	assert.Equal(t, 0, cb.Status().FailureCount)
}

func TestCircuitBreaker_FailedTrialReopens(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, RecoveryTimeout: time.Minute})
	cb.nowFunc = func() time.Time { return now }
	ctx := context.Background()

	_, _ = ExecuteVal(ctx, cb, failing)
	require.Equal(t, CircuitOpen, cb.Status().State)

	now = now.Add(time.Minute)
	_, err := ExecuteVal(ctx, cb, failing)
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, CircuitOpen, cb.Status().State)

	// The recovery timer restarted at the failed trial.
	now = now.Add(30 * time.Second)
	_, err = ExecuteVal(ctx, cb, succeeding)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreaker_Reset(t *testing.T) {
	t.Parallel()

	var transitions []string
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		OnStateChange: func(from, to CircuitState) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})
	ctx := context.Background()

	_, _ = ExecuteVal(ctx, cb, failing)
	require.Equal(t, CircuitOpen, cb.Status().State)

	cb.Reset()
	st := cb.Status()
	assert.Equal(t, CircuitClosed, st.State)
	assert.Equal(t, 0, st.FailureCount)
	assert.Nil(t, st.LastFailureTime)
	assert.Equal(t, []string{"closed->open", "open->closed"}, transitions)

	// Reset while already closed is a no-op for the callback.
	cb.Reset()
	assert.Len(t, transitions, 2)
}

func TestCircuitBreaker_ShouldTripFilter(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		ShouldTrip:       func(err error) bool { return !IsValidation(err) },
	})
	ctx := context.Background()

	// Validation failures pass through without tripping.
	_, err := ExecuteVal(ctx, cb, func(_ context.Context) (int, error) {
		return 0, NewValidationError(errBoom)
	})
	require.Error(t, err)
	assert.Equal(t, CircuitClosed, cb.Status().State)
	assert.Equal(t, 0, cb.Status().FailureCount)

	// A transient failure still trips.
	_, err = ExecuteVal(ctx, cb, func(_ context.Context) (int, error) {
		return 0, NewTransientError(errBoom)
	})
	require.Error(t, err)
	assert.Equal(t, CircuitOpen, cb.Status().State)
}

func TestCircuitState_MarshalText(t *testing.T) {
	t.Parallel()

	for state, want := range map[CircuitState]string{
		CircuitClosed:   "closed",
		CircuitOpen:     "open",
		CircuitHalfOpen: "half_open",
	} {
		b, err := state.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, want, string(b))
	}
}
