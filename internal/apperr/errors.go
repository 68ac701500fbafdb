// Package apperr defines the failure kinds shared by services and handlers.
// Callers match kinds with errors.Is; only Message is ever shown to clients.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation error")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrTokenInvalid       = errors.New("token invalid")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInternal           = errors.New("internal error")
)

// internalMessage is the only text clients see for unexpected failures.
const internalMessage = "Something went wrong"

// Error is a typed operation error with a stable Op + Kind contract.
// Msg is safe to return to clients; Err carries the underlying cause for logs.
type Error struct {
	Op   string
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	s := fmt.Sprintf("%s: %v", e.Op, e.Kind)
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// New returns an Error of the given kind with a client-visible message.
func New(op string, kind error, msg string) error {
	return &Error{Op: op, Kind: kind, Msg: msg}
}

// Internal wraps an unexpected failure. The cause is kept for logging only.
func Internal(op string, err error) error {
	return &Error{Op: op, Kind: ErrInternal, Msg: internalMessage, Err: err}
}

var kinds = []error{
	ErrValidation,
	ErrConflict,
	ErrInvalidCredentials,
	ErrUnauthenticated,
	ErrTokenInvalid,
	ErrNotFound,
	ErrForbidden,
	ErrInternal,
}

// KindOf returns the failure kind of err. Unknown errors are ErrInternal.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) && e.Kind != nil {
		return e.Kind
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrInternal
}

// Message returns the client-visible text for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" && e.Kind != ErrInternal {
		return e.Msg
	}
	switch KindOf(err) {
	case ErrValidation:
		return "Invalid request"
	case ErrConflict:
		return "Resource already exists"
	case ErrInvalidCredentials:
		return "Invalid email or password"
	case ErrUnauthenticated, ErrTokenInvalid:
		return "Invalid or expired token"
	case ErrNotFound:
		return "Not found"
	case ErrForbidden:
		return "Not allowed"
	default:
		return internalMessage
	}
}

// IsNotFound reports whether err represents ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
