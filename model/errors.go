package model

import (
	"errors"
	"fmt"
)

// Standard error codes.
const (
	ErrValidation  = "VALIDATION_ERROR"
	ErrNotFound    = "NOT_FOUND"
	ErrDuplicate   = "DUPLICATE"
	ErrPersistence = "PERSISTENCE_ERROR"
	ErrScheduling  = "SCHEDULING_ERROR"
	ErrInternal    = "INTERNAL_ERROR"
)

// ErrorEnvelope is the standard coded error carried through the dialogue
// and the background loops. It implements the error interface.
type ErrorEnvelope struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *ErrorEnvelope) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// FieldError describes a field-level validation error.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewValidationError returns a VALIDATION_ERROR for a single field.
func NewValidationError(field, msg string) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrValidation,
		Message: msg,
		Details: []FieldError{{Field: field, Message: msg}},
	}
}

// NewNotFoundError returns a NOT_FOUND error.
func NewNotFoundError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrNotFound, Message: msg}
}

// NewDuplicateError returns a DUPLICATE error.
func NewDuplicateError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrDuplicate, Message: msg}
}

// NewPersistenceError wraps a store failure.
func NewPersistenceError(op string, cause error) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrPersistence,
		Message: fmt.Sprintf("%s: %v", op, cause),
	}
}

// NewSchedulingError returns a SCHEDULING_ERROR.
func NewSchedulingError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrScheduling, Message: msg}
}

// NewInternalError returns an INTERNAL_ERROR.
func NewInternalError(msg string) *ErrorEnvelope {
	if msg == "" {
		msg = "an unexpected error occurred"
	}
	return &ErrorEnvelope{Code: ErrInternal, Message: msg}
}

// CodeOf returns the error code of err, or INTERNAL_ERROR for errors that
// are not envelopes.
func CodeOf(err error) string {
	var env *ErrorEnvelope
	if errors.As(err, &env) {
		return env.Code
	}
	return ErrInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}
