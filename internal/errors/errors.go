// Package errors provides structured error handling for augment-lite.
//
// Errors carry short, stable machine codes that are returned verbatim to the
// MCP caller; verbose detail stays on the diagnostic channel (logs/stderr).
package errors

import (
	"errors"
	"fmt"
)

// Error is a structured error with a stable machine code.
type Error struct {
	// Code is the short machine-readable code (e.g. INVALID_INPUT).
	Code string

	// Message is the human-readable description.
	Message string

	// Err is the wrapped underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a structured error with the given code and message.
func New(code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with a code and message.
// Returns nil if err is nil.
func Wrap(err error, code, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// CodeOf extracts the machine code from an error chain.
// Returns INTERNAL for errors without a structured code.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
