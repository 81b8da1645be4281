package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorWrapper(t *testing.T) {
	t.Parallel()
	wrapper := NewWrapper("session", "load")

	t.Run("Wrap returns nil for nil error", func(t *testing.T) {
		t.Parallel()
		if result := wrapper.Wrap(nil, "could not load"); result != nil {
			t.Errorf("expected nil, got %v", result)
		}
	})

	t.Run("Wrap creates WrappedError", func(t *testing.T) {
		t.Parallel()
		baseErr := errors.New("database is locked")
		wrapped := wrapper.Wrap(baseErr, "Sorry, something went wrong.")

		var wrappedErr *WrappedError
		if !errors.As(wrapped, &wrappedErr) {
			t.Fatal("expected WrappedError type")
		}
		if wrappedErr.Component != "session" {
			t.Errorf("expected component 'session', got '%s'", wrappedErr.Component)
		}
		if wrappedErr.Operation != "load" {
			t.Errorf("expected operation 'load', got '%s'", wrappedErr.Operation)
		}
		if !errors.Is(wrapped, baseErr) {
			t.Error("wrapped error should unwrap to base error")
		}
	})

	t.Run("Wrapf formats message", func(t *testing.T) {
		t.Parallel()
		wrapped := wrapper.Wrapf(ErrNotFound, "no conversation for %s", "C123")
		if got := GetUserMessage(wrapped, ""); got != "no conversation for C123" {
			t.Errorf("unexpected user message %q", got)
		}
		if !errors.Is(wrapped, ErrNotFound) {
			t.Error("expected ErrNotFound in chain")
		}
	})
}

func TestGetUserMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		fallback string
		want     string
	}{
		{"nil error", nil, "fallback", ""},
		{"plain error uses fallback", errors.New("boom"), "fallback", "fallback"},
		{"wrapped error", NewWrapper("dialog", "step").Wrap(errors.New("boom"), "try again"), "fallback", "try again"},
		{"wrapped twice keeps outer message", fmt.Errorf("outer: %w", NewWrapper("bot", "reply").Wrap(errors.New("boom"), "inner")), "fallback", "inner"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := GetUserMessage(tt.err, tt.fallback); got != tt.want {
				t.Errorf("GetUserMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestScriptError(t *testing.T) {
	t.Parallel()
	err := NewScriptError("Campus", "corona", errors.New("missing on_no"))

	if !errors.Is(err, ErrInvalidScript) {
		t.Error("script error should match ErrInvalidScript")
	}
	if got, want := err.Error(), "script Campus/corona: missing on_no"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	topicOnly := NewScriptError("Main", "", errors.New("no steps"))
	if got, want := topicOnly.Error(), "script Main: no steps"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
