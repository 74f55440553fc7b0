// Package apperr defines the errors the sentence layer surfaces to its callers.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no sentence has the requested id.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a sentence with the same original text already exists.
	ErrDuplicate = errors.New("sentence already exists")
)

// ValidationError reports missing or malformed input for a named field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Invalid is shorthand for constructing a *ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
