package models

import (
	"errors"
	"fmt"
)

// =====================================
// Error Handling
// =====================================

// EntityError represents an error raised by entity or schema logic
type EntityError struct {
	Type    ErrorType
	Message string
	Entity  string
	Field   string
	Cause   error
}

// Error implements the error interface
func (e EntityError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	switch {
	case e.Entity != "" && e.Field != "":
		msg += fmt.Sprintf(" [%s.%s]", e.Entity, e.Field)
	case e.Entity != "":
		msg += fmt.Sprintf(" [%s]", e.Entity)
	case e.Field != "":
		msg += fmt.Sprintf(" [%s]", e.Field)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(" (caused by: %v)", e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error
func (e EntityError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is of a specific type
func (e EntityError) Is(target error) bool {
	if t, ok := target.(EntityError); ok {
		return e.Type == t.Type
	}
	return false
}

// NewError creates a new EntityError
func NewError(errorType ErrorType, message string) EntityError {
	return EntityError{
		Type:    errorType,
		Message: message,
	}
}

// NewErrorWithCause creates a new EntityError with a cause
func NewErrorWithCause(errorType ErrorType, message string, cause error) EntityError {
	return EntityError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

// NewAccessError reports a rejected field read or write
func NewAccessError(field, message string, cause error) EntityError {
	return EntityError{
		Type:    ErrorTypeAccess,
		Message: message,
		Field:   field,
		Cause:   cause,
	}
}

// NewSchemaError reports malformed declaration metadata
func NewSchemaError(entity, message string, cause error) EntityError {
	return EntityError{
		Type:    ErrorTypeSchema,
		Message: message,
		Entity:  entity,
		Cause:   cause,
	}
}

// IsAccess checks if an error is an "access" error
func IsAccess(err error) bool {
	return IsErrorType(err, ErrorTypeAccess)
}

// IsSchema checks if an error is a "schema" error
func IsSchema(err error) bool {
	return IsErrorType(err, ErrorTypeSchema)
}

// IsNotFound checks if an error is a "not found" error
func IsNotFound(err error) bool {
	return IsErrorType(err, ErrorTypeNotFound)
}

// IsErrorType checks if an error, or any error it wraps, is of a specific type
func IsErrorType(err error, errorType ErrorType) bool {
	var entityErr EntityError
	if errors.As(err, &entityErr) {
		return entityErr.Type == errorType
	}
	return false
}
