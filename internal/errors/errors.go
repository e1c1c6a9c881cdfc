// Package errors provides structured errors for cachemon components.
//
// Every failure is tagged with a code that mirrors where in the run it can
// occur: CONFIG errors are reported before any monitoring resource exists,
// RESOURCE and OUTPUT errors can occur mid-setup, and BACKEND errors cover
// the monitoring backend's start/poll/stop operations.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for categorizing errors
const (
	ErrConfig   = "CONFIG"   // malformed spec, unknown event, group/pid overflow, set overlap
	ErrResource = "RESOURCE" // handle or memory allocation failure during setup
	ErrBackend  = "BACKEND"  // monitoring backend start/poll/stop failure
	ErrOutput   = "OUTPUT"   // destination stream open/write failure
)

// Error represents a structured error with code, message, suggestion, and
// optional cause:
//
//	✗ <What failed>
//
//	  <Why it failed - technical details>
//
//	  <How to fix it - actionable steps>
type Error struct {
	Code       string
	Message    string
	Suggestion string
	Cause      error
}

// New creates a new structured error with the given code, message, and suggestion.
func New(code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
	}
}

// Wrap wraps an existing error with a message, defaulting to ErrBackend code.
func Wrap(err error, message string) *Error {
	return &Error{
		Code:    ErrBackend,
		Message: message,
		Cause:   err,
	}
}

// WrapWithCode wraps an existing error with a specific code, message, and suggestion.
func WrapWithCode(err error, code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
		Cause:      err,
	}
}

// Error implements the error interface with formatted output.
func (e *Error) Error() string {
	var b strings.Builder

	// First line: failure symbol + main message
	b.WriteString(fmt.Sprintf("✗ %s\n", e.Message))

	// Include cause if present (why it failed)
	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Cause.Error()))
	}

	// Include suggestion if present (how to fix)
	if e.Suggestion != "" {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Suggestion))
	}

	return b.String()
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsCode checks if an error is a structured Error with the given code.
func IsCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var cmErr *Error
	if errors.As(err, &cmErr) {
		return cmErr.Code == code
	}
	return false
}
