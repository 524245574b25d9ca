package store

import "errors"

// ErrNotFound is returned when the target project id does not exist.
// Callers performing background work treat it as "deleted concurrently".
var ErrNotFound = errors.New("project not found")

// ErrValidation is matched (via errors.Is) by every [*ValidationError].
var ErrValidation = errors.New("invalid project")

// ValidationError reports why a [Draft] was rejected. Nothing is persisted
// when it is returned.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return ErrValidation.Error() + ": " + e.Err.Error()
}

// Unwrap exposes both the [ErrValidation] sentinel and the underlying
// field errors.
func (e *ValidationError) Unwrap() []error {
	return []error{ErrValidation, e.Err}
}
