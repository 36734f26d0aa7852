// Package apperr defines transport-agnostic error kinds. The HTTP layer maps
// each kind to a status code; services never see status codes.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation indicates a malformed or out-of-range field.
	ErrValidation = errors.New("validation failed")
	// ErrBadRequest indicates a request that is well-formed but rejected, such
	// as a search term that is too short or a duplicate user id.
	ErrBadRequest = errors.New("bad request")
	// ErrConflict indicates the request clashes with the current state.
	ErrConflict = errors.New("conflict")
	// ErrNotFound indicates the referenced record does not exist.
	ErrNotFound = errors.New("not found")
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"campo"`
	Message string `json:"mensaje"`
}

// Error carries a kind and the human-readable detail returned to callers.
// Fields is only set for validation failures.
type Error struct {
	Kind   error
	Detail string
	Fields []FieldError
}

func (e *Error) Error() string {
	return e.Detail
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return newError(ErrValidation, format, args...)
}

// InvalidFields builds a validation error listing every rejected field.
func InvalidFields(fields []FieldError) *Error {
	detail := "Los datos enviados no son válidos"
	if len(fields) == 1 {
		detail = fields[0].Field + ": " + fields[0].Message
	}
	return &Error{Kind: ErrValidation, Detail: detail, Fields: fields}
}

func BadRequest(format string, args ...any) *Error {
	return newError(ErrBadRequest, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return newError(ErrConflict, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newError(ErrNotFound, format, args...)
}

// Detail returns the caller-facing message of err, or its Error() text when
// err is not an *Error.
func Detail(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Detail
	}
	return err.Error()
}
