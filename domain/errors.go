package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrCodeValidation      ErrorCode = "VALIDATION"
	ErrCodeConflict        ErrorCode = "CONFLICT"
	ErrCodeExpired         ErrorCode = "EXPIRED"
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE"
	ErrCodeForbidden       ErrorCode = "FORBIDDEN"
	ErrCodeUnauthorized    ErrorCode = "UNAUTHORIZED"
	ErrCodeInternal        ErrorCode = "INTERNAL"
)

// Error represents a domain-level error.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain errors.
var (
	ErrStateNotFound    = NewError(ErrCodeNotFound, "application not found")
	ErrRefCodeNotFound  = NewError(ErrCodeNotFound, "reference code not found")
	ErrDeliveryNotFound = NewError(ErrCodeNotFound, "delivery record not found")
	ErrCodeGeneration   = NewError(ErrCodeConflict, "could not generate a unique reference code")
	ErrWizardCompleted  = NewError(ErrCodeConflict, "application already completed")
	ErrSessionExpired   = NewError(ErrCodeExpired, "application session expired")
	ErrUnauthorized     = NewError(ErrCodeUnauthorized, "unauthorized")
	ErrInvalidPayload   = NewError(ErrCodeValidation, "invalid payload")
	ErrCheckUnavailable = NewError(ErrCodeExternalService, "check service unavailable")
)

// ValidationError reports which submitted fields failed a step's requirements.
// The state store is never mutated when one is returned.
type ValidationError struct {
	Step   string
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("step %q missing or invalid fields: %s", e.Step, strings.Join(e.Fields, ", "))
}

// NewValidationError builds a ValidationError for the given step.
func NewValidationError(step string, fields ...string) *ValidationError {
	return &ValidationError{Step: step, Fields: fields}
}

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	if code == ErrCodeValidation {
		var vErr *ValidationError
		return errors.As(err, &vErr)
	}
	return false
}
