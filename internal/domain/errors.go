package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrUnauthorized is returned when an operation is not permitted.
	ErrUnauthorized = errors.New("unauthorized operation")
)

// ValidationError describes a validation failure on a named field. It wraps
// a sentinel (usually ErrValidation or ErrInvalidID) so callers can branch
// with errors.Is while keeping the field detail for messages.
type ValidationError struct {
	// Field is the name of the offending field or parameter.
	Field string

	// Message describes what is wrong with the field.
	Message string

	// Err is the sentinel this failure is classified under.
	Err error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Unwrap returns the wrapped sentinel to support errors.Is/errors.As.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string, sentinel error) error {
	return &ValidationError{
		Field:   field,
		Message: message,
		Err:     sentinel,
	}
}
