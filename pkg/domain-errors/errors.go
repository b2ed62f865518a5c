// Package domainerrors defines coded errors that cross service boundaries.
// Services translate store sentinels and validation failures into these so the
// HTTP layer can map each code to a status and a stable reason string without
// inspecting error text.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies the kind of failure. The set is closed; handlers switch on
// it exhaustively.
type Code string

const (
	// CodeBadRequest covers locally recoverable validation failures: bad GPS
	// coordinates, malformed address input, malformed assignment lists.
	CodeBadRequest Code = "bad_request"
	// CodeNotFound covers absent entities: unknown code value, unknown person.
	CodeNotFound Code = "not_found"
	// CodeForbidden covers ownership failures: redeeming someone else's code.
	CodeForbidden Code = "forbidden"
	// CodeExhausted covers bounded counters at their limit. Kept distinct from
	// CodeBadRequest so callers can tell "already used twice today" apart from
	// generic validation failures.
	CodeExhausted Code = "exhausted"
	// CodeConflict covers races lost after the internal retry.
	CodeConflict Code = "conflict"
	// CodeSecurityRejected covers inputs matching the malicious-pattern deny
	// list. Handled like a validation failure but logged at Warn.
	CodeSecurityRejected Code = "security_rejected"
	// CodeTimeout covers operations aborted by context deadline.
	CodeTimeout Code = "timeout"
	// CodeInternal covers storage and infrastructure failures.
	CodeInternal Code = "internal"
)

// Error carries a code, a caller-safe message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a coded error without a cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and caller-safe message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the code from an error chain, defaulting to CodeInternal for
// anything that is not a coded error.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the caller-safe message from an error chain. Uncoded
// errors yield a generic message so internals never leak to clients.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}

// Is reports whether the error chain carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}
