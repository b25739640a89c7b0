// Package errors defines the error values shared by lazystream packages.
package errors

import (
	"errors"
	"fmt"
)

// Common error types used across the lazystream library

var (
	// ErrClosed indicates that an operation was attempted on a closed stream
	ErrClosed = errors.New("stream is closed")

	// ErrLocked indicates that a stream already has an active reader
	ErrLocked = errors.New("stream is locked to a reader")

	// ErrReleased indicates that a reader was used after its lock was released
	ErrReleased = errors.New("reader lock released")

	// ErrNotBound indicates that a deferred stream was used before its source was resolved
	ErrNotBound = errors.New("stream source not bound")

	// ErrInvalidConfiguration indicates invalid configuration parameters
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// ValidationError describes a rejected configuration value.
type ValidationError struct {
	Module string
	Field  string
	Value  interface{}
	Reason string
	Hint   string
}

// NewValidationError creates a ValidationError for module.field.
func NewValidationError(module, field string, value interface{}, reason string) *ValidationError {
	return &ValidationError{
		Module: module,
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}

// WithHint attaches a remediation hint and returns the same error for chaining.
func (e *ValidationError) WithHint(hint string) *ValidationError {
	e.Hint = hint
	return e
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: invalid %s=%v (%s)", e.Module, e.Field, e.Value, e.Reason)
	if e.Hint != "" {
		msg += " - " + e.Hint
	}
	return msg
}

// Unwrap lets errors.Is match ErrInvalidConfiguration.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfiguration
}

// IsValidationError reports whether err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// IsTerminal returns true if the error indicates the stream can no longer
// serve reads or accept chunks
func IsTerminal(err error) bool {
	return errors.Is(err, ErrClosed) || errors.Is(err, ErrReleased)
}
