package nlu

import (
	"context"
	"errors"
	"fmt"
	"time"

	domerrors "github.com/garyellow/campus-interview-bot/internal/errors"
	"github.com/garyellow/campus-interview-bot/internal/logger"
	"github.com/garyellow/campus-interview-bot/internal/metrics"
)

// Recognizer turns a user message into an intent and entity slots.
type Recognizer interface {
	// IsConfigured reports whether the recognizer can serve requests.
	IsConfigured() bool
	Recognize(ctx context.Context, text string) (*Result, error)
}

// Named is implemented by recognizers that report a provider name.
type Named interface {
	Name() string
}

// SelfInstrumented is implemented by recognizers that record request metrics
// for each provider they call. Chain does not count their calls again.
type SelfInstrumented interface {
	RecordsRequestMetrics()
}

func nameOf(r Recognizer) string {
	if n, ok := r.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", r)
}

// Chain tries its configured members in order and returns the first successful result.
type Chain struct {
	members []Recognizer
	metrics *metrics.Metrics
	logger  *logger.Logger
}

// NewChain builds a chain. Nil members are skipped.
func NewChain(m *metrics.Metrics, log *logger.Logger, members ...Recognizer) *Chain {
	c := &Chain{metrics: m, logger: log}
	for _, r := range members {
		if r != nil {
			c.members = append(c.members, r)
		}
	}
	return c
}

// IsConfigured is true when any member is configured.
func (c *Chain) IsConfigured() bool {
	for _, r := range c.members {
		if r.IsConfigured() {
			return true
		}
	}
	return false
}

// Name implements Named.
func (c *Chain) Name() string { return "chain" }

// Recognize asks each configured member in turn. Errors from all members are joined
// under ErrRecognizerUnavailable.
func (c *Chain) Recognize(ctx context.Context, text string) (*Result, error) {
	var errs []error
	prev := ""
	for _, r := range c.members {
		if !r.IsConfigured() {
			continue
		}
		name := nameOf(r)
		_, instrumented := r.(SelfInstrumented)
		if prev != "" {
			c.metrics.RecordRecognizerFallback(prev, name)
		}

		start := time.Now()
		res, err := r.Recognize(ctx, text)
		if err == nil && res != nil {
			if !instrumented {
				c.metrics.RecordRecognizer(name, "success", time.Since(start))
			}
			if res.Provider == "" {
				res.Provider = name
			}
			return res, nil
		}
		if err == nil {
			err = errors.New("empty result")
		}
		if !instrumented {
			c.metrics.RecordRecognizer(name, statusOf(err), time.Since(start))
		}
		if c.logger != nil {
			c.logger.WithError(err).WarnContext(ctx, "Recognizer failed", "provider", name)
		}
		errs = append(errs, fmt.Errorf("%s: %w", name, err))
		prev = name

		if ctx.Err() != nil {
			break
		}
	}
	if len(errs) == 0 {
		return nil, domerrors.ErrRecognizerUnavailable
	}
	return nil, fmt.Errorf("%w: %w", domerrors.ErrRecognizerUnavailable, errors.Join(errs...))
}

func statusOf(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "error"
}
