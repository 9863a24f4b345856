// Package apperror defines the error vocabulary shared by the store, the
// services and the HTTP handlers.
//
// Every *AppError wraps one of the sentinel errors below, so callers test the
// kind with errors.Is and read the human-readable text with errors.As.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrDecode       = errors.New("decode error")
)

type AppError struct {
	Err     error  // sentinel kind
	Message string // human-readable error message
	Field   string // optional: field or column causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource string, id any) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %v", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports that a uniqueness rule rejected a write, e.g.
// Conflict("user", "nickname", "Alex").
func Conflict(resource, field string, value any) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s with %s %v already exists", resource, field, value),
		Field:   field,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized is returned for failed logins and missing credentials.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Decode reports a stored value that could not be converted back into its
// Go type (bad date text, bad images JSON, bad avatar hex).
func Decode(resource string, id any, column string, cause error) *AppError {
	return &AppError{
		Err:     ErrDecode,
		Message: fmt.Sprintf("%s %v: decoding column %s: %v", resource, id, column, cause),
		Field:   column,
	}
}
