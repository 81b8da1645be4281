package genai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestClassifyError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want ErrorAction
	}{
		{"nil", nil, ActionFail},
		{"canceled", context.Canceled, ActionFail},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), ActionRetry},
		{"429 status", &LLMError{Err: errors.New("slow down"), StatusCode: 429, Provider: ProviderGemini}, ActionRetry},
		{"503 status", &LLMError{Err: errors.New("unavailable"), StatusCode: 503}, ActionRetry},
		{"401 status", &LLMError{Err: errors.New("bad key"), StatusCode: 401}, ActionFallback},
		{"400 status", &LLMError{Err: errors.New("bad"), StatusCode: 400}, ActionFail},
		{"quota wins over 429", &LLMError{Err: errors.New("insufficient_quota"), StatusCode: 429}, ActionFallback},
		{"quota text", errors.New("daily limit reached"), ActionFallback},
		{"rate limit text", errors.New("rate limit exceeded"), ActionRetry},
		{"connection reset", errors.New("connection reset by peer"), ActionRetry},
		{"invalid request", errors.New("invalid argument"), ActionFail},
		{"unknown", errors.New("something odd"), ActionRetry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestErrorActionString(t *testing.T) {
	t.Parallel()
	for action, want := range map[ErrorAction]string{
		ActionRetry:     "retry",
		ActionFallback:  "fallback",
		ActionFail:      "fail",
		ErrorAction(42): "unknown",
	} {
		if got := action.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}

func TestLLMError(t *testing.T) {
	t.Parallel()
	base := errors.New("boom")
	err := &LLMError{Err: base, StatusCode: 500, Provider: ProviderOpenAI}
	if !errors.Is(err, base) {
		t.Error("LLMError should unwrap to its cause")
	}
	if got, want := err.Error(), "openai: boom (status: 500)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if got := wrapAPIError(ProviderGemini, nil); got != nil {
		t.Errorf("wrapAPIError(nil) = %v, want nil", got)
	}
}

func TestParseRetryAfter(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		headers http.Header
		want    time.Duration
	}{
		{"empty", http.Header{}, 0},
		{"milliseconds", http.Header{"Retry-After-Ms": {"250"}}, 250 * time.Millisecond},
		{"seconds", http.Header{"Retry-After": {"3"}}, 3 * time.Second},
		{"groq reset", http.Header{"X-Ratelimit-Reset-Tokens": {"1.5s"}}, 1500 * time.Millisecond},
		{"garbage", http.Header{"Retry-After": {"soon"}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ParseRetryAfter(tt.headers); got != tt.want {
				t.Errorf("ParseRetryAfter() = %v, want %v", got, tt.want)
			}
		})
	}
}
