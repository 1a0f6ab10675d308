// Package errors provides structured error types for depview.
//
// Errors carry a machine-readable [Code] so that the CLI, the HTTP server and
// the websocket surface can classify failures the same way:
//   - INVALID_*: malformed input (graph descriptions, identities, flags)
//   - NOT_FOUND: missing resources
//   - NETWORK_ERROR / TIMEOUT: transport failures talking to the backend
//   - BACKEND_REJECTED: the backend answered a mutation with a non-2xx status
//   - INTERNAL_ERROR: unexpected failures
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidGraph, "duplicate node %q", name)
//	if errors.Is(err, errors.ErrCodeInvalidGraph) {
//	    // show the error state instead of a partial graph
//	}
//
//	err := errors.Wrap(errors.ErrCodeNetwork, origErr, "put edge %s -> %s", from, to)
package errors

import (
	"errors"
	"fmt"
)

// Code classifies an error for callers that must react to it: the server
// picks a status, the CLI and viewer show the code next to the message.
type Code string

const (
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidGraph    Code = "INVALID_GRAPH"
	ErrCodeInvalidIdentity Code = "INVALID_IDENTITY"
	ErrCodeInvalidFormat   Code = "INVALID_FORMAT"
	ErrCodeInvalidPolicy   Code = "INVALID_POLICY"
	ErrCodeInvalidConfig   Code = "INVALID_CONFIG"

	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	ErrCodeNetwork         Code = "NETWORK_ERROR"
	ErrCodeTimeout         Code = "TIMEOUT"
	ErrCodeBackendRejected Code = "BACKEND_REJECTED"

	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a coded error. Message is meant for people; Cause, when set, is
// kept for errors.Is/As and for logs.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := string(e.Code) + ": " + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// New returns an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap is New with a cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	e := New(code, format, args...)
	e.Cause = cause
	return e
}

// find returns the outermost *Error in err's chain.
func find(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// Is reports whether the outermost *Error in err's chain has code.
func Is(err error, code Code) bool {
	e, ok := find(err)
	return ok && e.Code == code
}

// GetCode returns the code of the outermost *Error, or "" when there is none.
func GetCode(err error) Code {
	if e, ok := find(err); ok {
		return e.Code
	}
	return ""
}

// UserMessage returns the message of the outermost *Error without code or
// cause, or err.Error() for other errors.
func UserMessage(err error) string {
	if e, ok := find(err); ok {
		return e.Message
	}
	return err.Error()
}
