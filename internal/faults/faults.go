// Package faults defines the error kinds surfaced by silosync operations.
package faults

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error.
type Kind string

const (
	// Validation means bad input; no remote call was made for it.
	Validation Kind = "ValidationError"
	// RemoteCall means the remote reported a failure.
	RemoteCall Kind = "RemoteCallError"
	// NotFound means a path or record could not be located.
	NotFound Kind = "NotFoundError"
	// Transport means the request never produced a usable reply.
	Transport Kind = "TransportError"
	Internal  Kind = "InternalError"
)

// Error carries a kind, the operation that failed and an optional cause.
type Error struct {
	Kind    Kind
	Op      string
	Method  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	parts := make([]string, 0, 3)
	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	if len(parts) == 0 {
		return string(e.Kind)
	}
	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Validationf returns a validation error for op.
func Validationf(op, format string, args ...any) *Error {
	return &Error{Kind: Validation, Op: op, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf returns a not-found error for op.
func NotFoundf(op, format string, args ...any) *Error {
	return &Error{Kind: NotFound, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Remote wraps a failure reported by the remote for method.
func Remote(method string, cause error) *Error {
	return &Error{Kind: RemoteCall, Method: method, Cause: cause}
}

// Transportf wraps a transport failure for method.
func Transportf(method string, cause error, format string, args ...any) *Error {
	return &Error{Kind: Transport, Method: method, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Wrap adds op as context to err while keeping its kind.
// Wrap(nil, op) returns nil.
func Wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindOf(err), Op: op, Cause: err}
}

// KindOf returns the kind of the outermost *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries kind.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// AsError returns the outermost *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// MethodOf returns the remote method recorded anywhere in err's chain.
func MethodOf(err error) string {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Method != "" {
			return e.Method
		}
		err = errors.Unwrap(err)
	}
	return ""
}
