// Package errors gives every failure in cc99vis a stable code.
//
// The CLI turns a code into an exit status, the HTTP server into an
// envelope status and the MCP server into a tool error, so callers branch on
// [Code] rather than on message text:
//
//	err := errors.New(errors.ErrCodeInvalidFormat, "unknown format %q", f)
//	if errors.Is(err, errors.ErrCodeInvalidFormat) { ... }
//
//	err = errors.Wrap(errors.ErrCodeUnavailable, cause, "start compiler %s", bin)
//
// Typed errors from other packages, such as ast.MalformedInputError, join in
// by implementing [Coder].
package errors

import (
	"errors"
	"fmt"
)

// Code is a machine-readable failure class.
type Code string

const (
	// Caller mistakes
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidFormat  Code = "INVALID_FORMAT"
	ErrCodeMalformedInput Code = "MALFORMED_INPUT"
	ErrCodeUnknownVariant Code = "UNKNOWN_VARIANT"

	// The compiler rejected the source
	ErrCodeCompileFailed Code = "COMPILE_FAILED"

	ErrCodeNotFound Code = "NOT_FOUND"

	// Compiler, cache, store or rsvg-convert misbehaved
	ErrCodeTimeout     Code = "TIMEOUT"
	ErrCodeUnavailable Code = "UNAVAILABLE"

	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Coder is implemented by typed errors that carry an error code.
type Coder interface {
	Code() Code
}

// Error pairs a code with a message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func New(code Code, format string, args ...any) *Error {
	return Wrap(code, nil, format, args...)
}

// Wrap attaches code to cause. A nil cause is allowed.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether the outermost code in err's chain is code.
func Is(err error, code Code) bool {
	return err != nil && GetCode(err) == code
}

// GetCode returns the outermost code in err's chain, or "" when nothing in
// the chain carries one. Joined errors report their first coded branch.
func GetCode(err error) Code {
	switch e := err.(type) {
	case nil:
		return ""
	case *Error:
		return e.Code
	case Coder:
		return e.Code()
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			if code := GetCode(inner); code != "" {
				return code
			}
		}
		return ""
	}
	return GetCode(errors.Unwrap(err))
}

// UserMessage strips the code prefix from a coded error. Other errors are
// returned as err.Error().
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
