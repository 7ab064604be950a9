package domain

import (
	"errors"
	"fmt"
)

// Gateway error taxonomy. Each class drives a different controller
// behavior: transient errors keep polling, auth expiry is tolerated up to a
// retry budget, not-found kills the session, validation errors are surfaced
// verbatim with no retry.
var (
	ErrAuthExpired     = errors.New("authentication expired")
	ErrSessionNotFound = errors.New("session not found")
	ErrTransient       = errors.New("transient gateway error")
)

// ValidationError carries a permanent, user-facing rejection from the
// gateway (e.g. distance-too-far, out-of-time-slot on session start).
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// TransientError wraps a recoverable failure (timeout, 5xx) so callers can
// both classify it and log the cause.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient gateway error: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return ErrTransient
}

func IsAuthExpired(err error) bool {
	return errors.Is(err, ErrAuthExpired)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}

func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
