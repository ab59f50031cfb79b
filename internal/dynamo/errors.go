package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors returned at the edges of the simulator. The core step and
// rollout functions never return them; they propagate non-finite values.
var (
	// ErrInvalidInput indicates a non-finite or out-of-domain numeric input.
	ErrInvalidInput = errors.New("dynamo: invalid input (NaN, Inf or out of range)")

	// ErrInvalidGains indicates a gain triple that cannot be clamped into range.
	ErrInvalidGains = errors.New("dynamo: invalid gains (non-finite component)")

	// ErrInvalidState indicates a state record with non-finite fields.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")
)

// InputError names the field that failed validation.
type InputError struct {
	Field   string
	Value   float64
	Wrapped error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s = %v", e.Wrapped.Error(), e.Field, e.Value)
}

func (e *InputError) Unwrap() error {
	return e.Wrapped
}

// CheckFinite returns an *InputError wrapping ErrInvalidInput when v is NaN or
// infinite.
func CheckFinite(field string, v float64) error {
	if IsFinite(v) {
		return nil
	}
	return &InputError{Field: field, Value: v, Wrapped: ErrInvalidInput}
}
