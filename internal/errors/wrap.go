package errors

import (
	"errors"
	"fmt"
)

// ErrorWrapper attaches the component and operation to errors that reach the user.
type ErrorWrapper struct {
	operation string
	component string
}

// NewWrapper creates a new error wrapper for a component (e.g. "session") and operation (e.g. "load").
func NewWrapper(component, operation string) *ErrorWrapper {
	return &ErrorWrapper{
		component: component,
		operation: operation,
	}
}

// Wrap wraps an error with operation context.
// Returns nil if err is nil.
func (w *ErrorWrapper) Wrap(err error, userMessage string) error {
	if err == nil {
		return nil
	}
	return &WrappedError{
		Operation:   w.operation,
		Component:   w.component,
		Cause:       err,
		UserMessage: userMessage,
	}
}

// Wrapf wraps an error with a formatted user message.
func (w *ErrorWrapper) Wrapf(err error, userMessageFormat string, args ...any) error {
	if err == nil {
		return nil
	}
	return &WrappedError{
		Operation:   w.operation,
		Component:   w.component,
		Cause:       err,
		UserMessage: fmt.Sprintf(userMessageFormat, args...),
	}
}

// WrappedError contains both internal error details and the text shown to the user.
type WrappedError struct {
	Operation   string // e.g. "load", "recognize"
	Component   string // e.g. "session", "dialog"
	Cause       error
	UserMessage string
}

func (e *WrappedError) Error() string {
	return fmt.Sprintf("[%s:%s] %s: %v", e.Component, e.Operation, e.UserMessage, e.Cause)
}

func (e *WrappedError) Unwrap() error {
	return e.Cause
}

// GetUserMessage returns the user-facing message of the outermost WrappedError in the chain.
// Returns fallback when err carries none.
func GetUserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var wrapped *WrappedError
	if errors.As(err, &wrapped) && wrapped.UserMessage != "" {
		return wrapped.UserMessage
	}
	return fallback
}
