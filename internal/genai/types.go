// Package genai implements turn recognizers backed by hosted LLMs.
//
// Both providers are driven by forced function calling with a single
// recognize_turn declaration, so every reply is a structured intent plus slots:
//   - Gemini: google.golang.org/genai
//   - OpenAI and compatible endpoints (Groq, self-hosted): github.com/openai/openai-go/v3
//
// FallbackRecognizer retries the primary provider with backoff and then falls
// back to the secondary provider.
package genai

import "time"

// Provider identifies an LLM backend.
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
	ProviderGroq   Provider = "groq"
)

// ProviderEndpoint holds base URLs for OpenAI-compatible providers that have a well-known endpoint.
var ProviderEndpoint = map[Provider]string{
	ProviderGroq: "https://api.groq.com/openai/v1/",
}

func (p Provider) String() string {
	return string(p)
}

// Default models.
const (
	DefaultGeminiModel = "gemini-2.5-flash-lite"
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultGroqModel   = "llama-3.3-70b-versatile"
)

// RetryConfig defines retry behavior for one provider.
type RetryConfig struct {
	MaxAttempts  int // including the first call
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// Retry defaults
const (
	DefaultMaxRetryAttempts  = 3
	DefaultInitialRetryDelay = 500 * time.Millisecond
	DefaultMaxRetryDelay     = 4 * time.Second
)

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  DefaultMaxRetryAttempts,
		InitialDelay: DefaultInitialRetryDelay,
		MaxDelay:     DefaultMaxRetryDelay,
	}
}

// ProviderConfig holds the credentials and model of one provider.
type ProviderConfig struct {
	APIKey  string
	Model   string
	BaseURL string // OpenAI-compatible only
}

// Config selects and configures the LLM recognizers.
type Config struct {
	Primary  Provider
	Fallback Provider

	Gemini ProviderConfig
	OpenAI ProviderConfig
	Groq   ProviderConfig

	// Timeout bounds one provider call.
	Timeout time.Duration
	Retry   RetryConfig
}

func (c Config) provider(p Provider) ProviderConfig {
	switch p {
	case ProviderGemini:
		return c.Gemini
	case ProviderOpenAI:
		return c.OpenAI
	case ProviderGroq:
		return c.Groq
	default:
		return ProviderConfig{}
	}
}

// HasProvider reports whether p has an API key.
func (c Config) HasProvider(p Provider) bool {
	return c.provider(p).APIKey != ""
}
