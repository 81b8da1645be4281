package genai

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"google.golang.org/genai"
)

// ErrorAction is what the fallback recognizer does after a failed call.
type ErrorAction int

const (
	// ActionRetry retries the same provider after a backoff.
	ActionRetry ErrorAction = iota
	// ActionFallback moves on to the fallback provider.
	ActionFallback
	// ActionFail gives up.
	ActionFail
)

func (a ErrorAction) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionFallback:
		return "fallback"
	case ActionFail:
		return "fail"
	default:
		return "unknown"
	}
}

// LLMError carries the provider, HTTP status and server-requested delay of a failed call.
type LLMError struct {
	Err        error
	StatusCode int
	Provider   Provider
	RetryAfter time.Duration
}

func (e *LLMError) Error() string {
	if e.StatusCode > 0 {
		return string(e.Provider) + ": " + e.Err.Error() + " (status: " + strconv.Itoa(e.StatusCode) + ")"
	}
	return string(e.Provider) + ": " + e.Err.Error()
}

func (e *LLMError) Unwrap() error {
	return e.Err
}

// wrapAPIError extracts the status code (and Retry-After for OpenAI-compatible APIs)
// from SDK errors.
func wrapAPIError(provider Provider, err error) error {
	if err == nil {
		return nil
	}
	llmErr := &LLMError{Err: err, Provider: provider}

	var oaErr *openai.Error
	if errors.As(err, &oaErr) {
		llmErr.StatusCode = oaErr.StatusCode
		if oaErr.Response != nil {
			llmErr.RetryAfter = ParseRetryAfter(oaErr.Response.Header)
		}
		return llmErr
	}

	var gErr genai.APIError
	if errors.As(err, &gErr) {
		llmErr.StatusCode = gErr.Code
	}
	return llmErr
}

// ClassifyError maps an error to an action:
//   - 429, 408, 409, 5xx, network errors and timeouts: retry
//   - quota or billing exhaustion: fall back to the other provider
//   - other 4xx: fail
func ClassifyError(err error) ErrorAction {
	if err == nil {
		return ActionFail
	}
	if errors.Is(err, context.Canceled) {
		return ActionFail
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ActionRetry
	}

	errStr := strings.ToLower(err.Error())

	// Quota wording takes precedence over the 429 it usually comes with.
	if containsAny(errStr, "quota", "daily limit", "monthly limit", "billing", "insufficient_quota") {
		return ActionFallback
	}

	var llmErr *LLMError
	if errors.As(err, &llmErr) && llmErr.StatusCode > 0 {
		return classifyStatusCode(llmErr.StatusCode)
	}

	switch {
	case containsAny(errStr, "rate limit", "too many requests", "resource_exhausted", "429"):
		return ActionRetry
	case containsAny(errStr, "unavailable", "overloaded", "500", "502", "503", "504", "bad gateway"):
		return ActionRetry
	case containsAny(errStr, "timeout", "deadline", "connection", "eof"):
		return ActionRetry
	case containsAny(errStr, "401", "403", "unauthorized", "unauthenticated", "permission denied", "api key"):
		return ActionFail
	case containsAny(errStr, "400", "404", "422", "invalid", "bad request", "not found"):
		return ActionFail
	default:
		return ActionRetry
	}
}

func classifyStatusCode(statusCode int) ErrorAction {
	switch {
	case statusCode == http.StatusTooManyRequests,
		statusCode == http.StatusRequestTimeout,
		statusCode == http.StatusConflict,
		statusCode >= 500 && statusCode < 600:
		return ActionRetry
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		// Bad credentials on one provider; the other may still work.
		return ActionFallback
	case statusCode >= 400 && statusCode < 500:
		return ActionFail
	default:
		return ActionRetry
	}
}

// ParseRetryAfter reads retry-after-ms, retry-after (seconds or HTTP date) and
// Groq's x-ratelimit-reset-tokens. Returns 0 when none is usable.
func ParseRetryAfter(headers http.Header) time.Duration {
	if msStr := headers.Get("retry-after-ms"); msStr != "" {
		if ms, err := strconv.Atoi(msStr); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	if secStr := headers.Get("retry-after"); secStr != "" {
		if sec, err := strconv.Atoi(secStr); err == nil && sec > 0 {
			return time.Duration(sec) * time.Second
		}
		if t, err := http.ParseTime(secStr); err == nil {
			if d := time.Until(t); d > 0 {
				return d
			}
		}
	}
	if resetStr := headers.Get("x-ratelimit-reset-tokens"); resetStr != "" {
		if d, err := time.ParseDuration(resetStr); err == nil && d > 0 {
			return d
		}
	}
	return 0
}

func retryAfterOf(err error) time.Duration {
	var llmErr *LLMError
	if errors.As(err, &llmErr) {
		return llmErr.RetryAfter
	}
	return 0
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
