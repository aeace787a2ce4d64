package resilience

import (
	"errors"
	"net"
)

// ValidationError marks an error caused by invalid input: an unknown or
// inactive tenant, or a malformed lead record. Validation errors abort the
// call immediately and never count toward the circuit breaker.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError wraps err as a validation failure.
func NewValidationError(err error) *ValidationError {
	return &ValidationError{Err: err}
}

// IsValidation reports whether the error chain contains a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// TransientError marks a dependency fault such as the cache or external
// scorer being unavailable. The affected lead is dropped from batch output and the
// failure counts toward the circuit breaker. No retry is performed.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps err as a transient dependency failure.
func NewTransientError(err error) *TransientError {
	return &TransientError{Err: err}
}

// IsTransient reports whether the error chain contains a TransientError or
// a network-level timeout.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
