package models

import (
	"errors"
	"fmt"
)

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error codes carried by AppError.
const (
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeInternal     = "INTERNAL_ERROR"
)

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:    CodeForbidden,
		Message: message,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// HasCode reports whether err wraps an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

var (
	// ErrSelfFollow is returned when a user tries to follow themselves.
	ErrSelfFollow = NewValidationError("You cannot follow yourself.")
	// ErrWrongPassword is returned when a re-authentication check fails.
	ErrWrongPassword = NewUnauthorizedError("Incorrect password.")
	// ErrForbidden is the single answer for "not logged in" and "not yours".
	ErrForbidden = NewForbiddenError("Access unauthorized.")
)

// ErrIntegrity matches every IntegrityError through errors.Is.
var ErrIntegrity = errors.New("integrity violation")

// Integrity constraint kinds.
const (
	ConstraintUnique  = "unique"
	ConstraintNotNull = "not_null"
)

// IntegrityError is a rejected write: a duplicate value or a missing required field.
// Field is empty when the database did not say which column was involved.
type IntegrityError struct {
	Constraint string
	Field      string
	Message    string
	Err        error
}

func (e *IntegrityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *IntegrityError) Unwrap() error {
	return e.Err
}

// Is matches ErrIntegrity and any IntegrityError with the same constraint and field,
// so a driver-mapped error still compares equal to the sentinels below.
func (e *IntegrityError) Is(target error) bool {
	if target == ErrIntegrity {
		return true
	}
	t, ok := target.(*IntegrityError)
	if !ok {
		return false
	}
	return t.Constraint == e.Constraint && t.Field == e.Field
}

var (
	ErrUsernameTaken = &IntegrityError{Constraint: ConstraintUnique, Field: "username", Message: "Username already taken"}
	ErrEmailTaken    = &IntegrityError{Constraint: ConstraintUnique, Field: "email", Message: "Email already registered"}
)

// ErrRequiredField builds the not-null violation for field.
func ErrRequiredField(field string) *IntegrityError {
	return &IntegrityError{
		Constraint: ConstraintNotNull,
		Field:      field,
		Message:    fmt.Sprintf("%s is required", field),
	}
}

// NewDuplicateError builds a unique violation. Known user fields map to their sentinels.
func NewDuplicateError(field string, cause error) *IntegrityError {
	msg := "Duplicate value"
	switch field {
	case "username":
		msg = ErrUsernameTaken.Message
	case "email":
		msg = ErrEmailTaken.Message
	case "":
	default:
		msg = fmt.Sprintf("Duplicate %s", field)
	}
	return &IntegrityError{Constraint: ConstraintUnique, Field: field, Message: msg, Err: cause}
}
