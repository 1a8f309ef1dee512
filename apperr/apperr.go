package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel kinds checked with errors.Is. Services return errors tagged with
// one of these; the REST layer maps them to status codes.
var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("conflict")
	ErrInternal  = errors.New("internal error")
)

// Error is a kinded error with optional structured details
// (e.g. the offending identifier) for the boundary layer to render.
type Error struct {
	kind    error
	msg     string
	Details map[string]interface{}
}

func (e *Error) Error() string {
	if e.msg == "" {
		return e.kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.kind.Error(), e.msg)
}

func (e *Error) Unwrap() error { return e.kind }

// Message returns the human-readable message without the kind prefix.
func (e *Error) Message() string {
	if e.msg == "" {
		return e.kind.Error()
	}
	return e.msg
}

// WithDetail attaches a structured detail and returns the same error.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{}, 1)
	}
	e.Details[key] = value
	return e
}

// NotFound tags an error as a missing (or not-owned) resource.
func NotFound(msg string) *Error { return &Error{kind: ErrNotFound, msg: msg} }

// Forbidden tags an error as an authorization failure.
func Forbidden(msg string) *Error { return &Error{kind: ErrForbidden, msg: msg} }

// Conflict tags an error as an invariant-violating duplicate or lost race.
func Conflict(msg string) *Error { return &Error{kind: ErrConflict, msg: msg} }

// Internal tags an error as an unexpected persistence or system failure.
func Internal(msg string) *Error { return &Error{kind: ErrInternal, msg: msg} }

// HTTPStatus maps an error kind to its REST status code.
// Unknown errors are treated as internal.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// DetailsOf returns the structured details of err, if it carries any.
func DetailsOf(err error) map[string]interface{} {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}

// MessageOf returns the renderable message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message()
	}
	return err.Error()
}
