// Package tutorerr defines the error kinds shared by the tutor packages.
// Every kind is recoverable: the session reports it and returns to the prompt.
package tutorerr

import (
	"errors"
	"fmt"
)

// Base kinds, matched with errors.Is.
var (
	ErrInputValidation = errors.New("input validation error")
	ErrTimeout         = errors.New("command timed out")
	ErrVerification    = errors.New("verification failed")
	ErrRosterLoad      = errors.New("roster load error")
	ErrStateTransition = errors.New("invalid state transition")
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrUnknownSpec     = errors.New("unknown verification spec")
)

// Error carries the component and operation that failed.
type Error struct {
	Component string // e.g. "cohort", "progress", "verify"
	Op        string // operation that failed, e.g. "LoadRoster"
	Kind      error  // base kind for errors.Is
	Message   string
	Err       error // underlying cause (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Component, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Component, e.Op, e.Message)
}

// Unwrap returns the underlying cause, or the kind when there is none.
func (e *Error) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is matches either the kind or the wrapped cause.
func (e *Error) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// New creates an Error without an underlying cause.
func New(component, op string, kind error, message string) *Error {
	return &Error{Component: component, Op: op, Kind: kind, Message: message}
}

// Wrap creates an Error around an existing cause.
func Wrap(component, op string, kind error, message string, err error) *Error {
	return &Error{Component: component, Op: op, Kind: kind, Message: message, Err: err}
}

// IsRetryable reports whether the learner can simply try again.
// Everything except configuration errors is retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrInvalidConfig)
}
