package models

import (
	"errors"
	"strings"
)

var (
	// ErrUnauthenticated is returned when a request carries no valid principal.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrNotFound is returned when a resource is missing or the caller may not know it exists.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when a caller who can see a resource may not act on it.
	ErrForbidden = errors.New("forbidden")
)

// FieldError is a single human-readable validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries one or more field errors. Its body shape is the one
// clients expect from a rejected request: {"errors":[{"field","message"}]}.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

// NewValidationError returns a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Errors: []FieldError{{Field: field, Message: message}}}
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fe.Message)
	}
	return strings.Join(msgs, "; ")
}

// First returns the message of the first field error.
func (e *ValidationError) First() string {
	if len(e.Errors) == 0 {
		return ""
	}
	return e.Errors[0].Message
}
