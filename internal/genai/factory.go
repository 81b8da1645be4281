package genai

import (
	"context"
	"log/slog"

	"github.com/garyellow/campus-interview-bot/internal/metrics"
)

// NewRecognizer builds the LLM recognizer for cfg: the primary provider wrapped
// with retries and the fallback provider. Returns nil when no provider has a key.
// If the preferred primary has no key, the first configured provider takes its place.
func NewRecognizer(ctx context.Context, cfg Config, m *metrics.Metrics) (*FallbackRecognizer, error) {
	order := []Provider{cfg.Primary}
	if cfg.Fallback != "" && cfg.Fallback != cfg.Primary {
		order = append(order, cfg.Fallback)
	}
	for _, p := range []Provider{ProviderGemini, ProviderOpenAI, ProviderGroq} {
		if p != cfg.Primary && p != cfg.Fallback {
			order = append(order, p)
		}
	}

	var chain []ProviderRecognizer
	for _, p := range order {
		if len(chain) == 2 {
			break
		}
		if !cfg.HasProvider(p) {
			continue
		}
		r, err := newProvider(ctx, p, cfg.provider(p))
		if err != nil {
			slog.WarnContext(ctx, "Failed to create recognizer", "provider", p, "error", err)
			continue
		}
		chain = append(chain, r)
	}

	switch len(chain) {
	case 0:
		slog.InfoContext(ctx, "No LLM provider configured for recognition")
		return nil, nil //nolint:nilnil // no provider configured
	case 1:
		slog.InfoContext(ctx, "Recognizer configured", "primary", chain[0].Name())
		return NewFallbackRecognizer(chain[0], nil, cfg.Retry, cfg.Timeout, m), nil
	default:
		slog.InfoContext(ctx, "Recognizer configured", "primary", chain[0].Name(), "fallback", chain[1].Name())
		return NewFallbackRecognizer(chain[0], chain[1], cfg.Retry, cfg.Timeout, m), nil
	}
}

func newProvider(ctx context.Context, p Provider, pc ProviderConfig) (ProviderRecognizer, error) {
	if p == ProviderGemini {
		return NewGeminiRecognizer(ctx, pc)
	}
	return NewOpenAIRecognizer(p, pc)
}
