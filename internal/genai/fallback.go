package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/garyellow/campus-interview-bot/internal/metrics"
	"github.com/garyellow/campus-interview-bot/internal/nlu"
)

// ProviderRecognizer is an nlu.Recognizer that reports its provider name.
type ProviderRecognizer interface {
	nlu.Recognizer
	nlu.Named
}

// FallbackRecognizer tries primary with retries, then fallback with retries.
// Each call is bounded by timeout; the whole sequence is bounded by the caller's context.
type FallbackRecognizer struct {
	primary  ProviderRecognizer
	fallback ProviderRecognizer
	retry    RetryConfig
	timeout  time.Duration
	metrics  *metrics.Metrics
}

// NewFallbackRecognizer wraps primary and an optional fallback.
func NewFallbackRecognizer(primary, fallback ProviderRecognizer, retry RetryConfig, timeout time.Duration, m *metrics.Metrics) *FallbackRecognizer {
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = 1
	}
	return &FallbackRecognizer{
		primary:  primary,
		fallback: fallback,
		retry:    retry,
		timeout:  timeout,
		metrics:  m,
	}
}

// Name implements nlu.Named.
func (f *FallbackRecognizer) Name() string {
	if f == nil || f.primary == nil {
		return "llm"
	}
	return f.primary.Name()
}

// RecordsRequestMetrics implements nlu.SelfInstrumented: call records every
// provider attempt.
func (f *FallbackRecognizer) RecordsRequestMetrics() {}

// IsConfigured implements nlu.Recognizer.
func (f *FallbackRecognizer) IsConfigured() bool {
	if f == nil {
		return false
	}
	return (f.primary != nil && f.primary.IsConfigured()) ||
		(f.fallback != nil && f.fallback.IsConfigured())
}

// Recognize implements nlu.Recognizer.
func (f *FallbackRecognizer) Recognize(ctx context.Context, text string) (*nlu.Result, error) {
	if f == nil || f.primary == nil {
		return nil, errors.New("recognizer not configured")
	}

	start := time.Now()
	res, err := f.recognizeWithRetry(ctx, f.primary, text)
	if err == nil {
		return res, nil
	}

	action := ClassifyError(err)
	slog.WarnContext(ctx, "Primary recognizer failed",
		"provider", f.primary.Name(),
		"action", action,
		"duration", time.Since(start),
		"error", err)

	if action == ActionFail || f.fallback == nil || !f.fallback.IsConfigured() || ctx.Err() != nil {
		return nil, err
	}

	f.metrics.RecordRecognizerFallback(f.primary.Name(), f.fallback.Name())
	res, fbErr := f.recognizeWithRetry(ctx, f.fallback, text)
	if fbErr == nil {
		return res, nil
	}
	return nil, fmt.Errorf("all providers failed: %w", errors.Join(err, fbErr))
}

func (f *FallbackRecognizer) recognizeWithRetry(ctx context.Context, r ProviderRecognizer, text string) (*nlu.Result, error) {
	var lastErr error
	for attempt := range f.retry.MaxAttempts {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		res, err := f.call(ctx, r, text)
		if err == nil {
			return res, nil
		}
		lastErr = err

		if ClassifyError(err) != ActionRetry || attempt == f.retry.MaxAttempts-1 {
			break
		}

		backoff := max(CalculateBackoff(attempt+1, f.retry.InitialDelay, f.retry.MaxDelay), retryAfterOf(err))
		if !HasSufficientBudget(ctx, backoff) {
			return nil, fmt.Errorf("timeout during retry: %w", lastErr)
		}
		slog.DebugContext(ctx, "Retrying recognizer",
			"provider", r.Name(),
			"attempt", attempt+1,
			"backoff", backoff,
			"error", err)
		if err := Sleep(ctx, backoff); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (f *FallbackRecognizer) call(ctx context.Context, r ProviderRecognizer, text string) (*nlu.Result, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := r.Recognize(ctx, text)
	switch {
	case err == nil:
		f.metrics.RecordRecognizer(r.Name(), "success", time.Since(start))
	case errors.Is(err, context.DeadlineExceeded):
		f.metrics.RecordRecognizer(r.Name(), "timeout", time.Since(start))
	default:
		f.metrics.RecordRecognizer(r.Name(), "error", time.Since(start))
	}
	return res, err
}
