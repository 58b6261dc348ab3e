// Package apperr defines the typed errors the engine and store return.
// The HTTP layer maps Kind to a status code; nothing downstream of the
// engine ever inspects an error string.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an Error for the purposes of mapping it to a
// transport-level response. See SPEC_FULL.md §7 for the full table.
type Kind string

const (
	Validation      Kind = "VALIDATION"
	NotFound        Kind = "NOT_FOUND"
	DuplicatePlate  Kind = "DUPLICATE_PLATE"
	StateConflict   Kind = "STATE_CONFLICT"
	Forbidden       Kind = "FORBIDDEN"
	Unauthenticated Kind = "UNAUTHENTICATED"
	Timeout         Kind = "TIMEOUT"
	Internal        Kind = "INTERNAL"
)

// Error is the typed error returned by every engine and store
// operation. Payload, when non-nil, carries kind-specific data the
// HTTP layer folds into the response body (e.g. DuplicatePlate's
// existing turn number).
type Error struct {
	Kind    Kind
	Message string
	Payload any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an Error of the given kind with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithPayload attaches a response payload to the error and returns it,
// to keep call sites a one-liner: `return apperr.New(...).WithPayload(x)`.
func (e *Error) WithPayload(payload any) *Error {
	e.Payload = payload
	return e
}

// Wrap builds an INTERNAL error that chains to cause via %w, so callers
// further up the stack can still errors.Is/As against the original
// driver error without it reaching the client.
func Wrap(cause error, message string) *Error {
	return &Error{Kind: Internal, Message: message, cause: cause}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// As extracts the *Error from err, if any.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
