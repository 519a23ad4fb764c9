package utils

import (
	"errors"
	"fmt"
)

// ValidationError reports a bad input value, such as a query parameter or an
// engine setting. Callers map it to a client error.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns the message, prefixed with the field when one is set.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + " " + e.Message
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewValidationErrorf creates a ValidationError for field with a formatted message.
func NewValidationErrorf(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err wraps a ValidationError.
func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}
