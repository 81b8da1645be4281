// Package errors provides domain-specific error types and sentinel errors
// shared by the dialog engine, the recognizers and the session stores.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors. Check them with errors.Is().
var (
	// ErrNotFound indicates a conversation, profile or object does not exist (or has expired).
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates the user sent something the bot cannot process.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRateLimited indicates a turn was dropped by the rate limiter.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrTimeout indicates an operation exceeded its deadline.
	ErrTimeout = errors.New("operation timed out")

	// ErrRecognizerUnavailable indicates no recognizer is configured or every provider failed.
	ErrRecognizerUnavailable = errors.New("recognizer unavailable")

	// ErrUnknownIntent indicates a recognizer returned a label outside the intent set.
	ErrUnknownIntent = errors.New("unknown intent")

	// ErrUnknownTopic indicates a transition names a topic that is not in the script table.
	ErrUnknownTopic = errors.New("unknown topic")

	// ErrInvalidScript indicates the dialog script table failed validation.
	ErrInvalidScript = errors.New("invalid dialog script")
)

// ValidationError represents input validation failures.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// ScriptError points at the topic and step of the dialog script that failed validation.
type ScriptError struct {
	Topic string
	Step  string
	Err   error
}

func (e *ScriptError) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("script %s/%s: %v", e.Topic, e.Step, e.Err)
	}
	return fmt.Sprintf("script %s: %v", e.Topic, e.Err)
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}

// Is reports ErrInvalidScript for every script error.
func (e *ScriptError) Is(target error) bool {
	return target == ErrInvalidScript
}

// NewScriptError creates a new script validation error.
func NewScriptError(topic, step string, err error) *ScriptError {
	return &ScriptError{
		Topic: topic,
		Step:  step,
		Err:   err,
	}
}
