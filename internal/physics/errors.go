package physics

import (
	"errors"
	"fmt"
)

var (
	// ErrBodyNotFound is returned when a drag, launch or removal target is not live.
	ErrBodyNotFound = errors.New("body not found")
	// ErrInvalidTransition is returned when a body state change is not allowed.
	ErrInvalidTransition = errors.New("invalid body state transition")
	// ErrStepInProgress is returned for mutations attempted while a tick runs.
	ErrStepInProgress = errors.New("step in progress")
)

// ValidationError reports a rejected parameter. The previous value is kept.
type ValidationError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

func invalid(field string, value float64, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// IsValidationError reports whether err wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
