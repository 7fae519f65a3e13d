// Package apierr defines the error kinds and their HTTP
// status mapping, so that every layer (repository, engines, gateway)
// speaks the same vocabulary instead of ad-hoc fmt.Errorf strings.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is one of the five error kinds
type Kind int

const (
	KindValidation Kind = iota
	KindNotFound
	KindConflict
	KindUnavailable
	KindInternal
)

// Error wraps an underlying cause with a Kind and, for InternalError,
// a correlation id that is safe to expose without leaking stack traces.
type Error struct {
	Kind          Kind
	Message       string
	CorrelationID string
	cause         error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Status returns the HTTP status code for this error kind.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusBadRequest
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflict reports an illegal state transition, naming source and target
// state
func Conflict(from, to string) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf("cannot transition from %s to %s", from, to)}
}

func ConflictMsg(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func Unavailable(cause error) *Error {
	return &Error{Kind: KindUnavailable, Message: "repository unavailable", cause: cause}
}

func Internal(correlationID string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", CorrelationID: correlationID, cause: cause}
}

// As is a thin wrapper around errors.As for *Error, used by the gateway's
// error middleware to recover the Kind of a returned error.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
