// Package config provides application configuration management.
// Settings come from environment variables (optionally from a .env file)
// with defaults suitable for a single-instance deployment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ValidationMode selects which settings are mandatory.
type ValidationMode int

const (
	// ServerMode requires the LINE channel credentials.
	ServerMode ValidationMode = iota
	// CLIMode runs the dialog engine in a terminal; LINE credentials are optional.
	CLIMode
)

// Session store backends.
const (
	StoreSQLite   = "sqlite"
	StoreRedis    = "redis"
	StoreDynamoDB = "dynamodb"
)

// Config holds all application configuration
type Config struct {
	// LINE Bot Configuration
	LineChannelToken  string
	LineChannelSecret string

	// Server Configuration
	Port            string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Metrics Authentication (empty password = no auth)
	MetricsUsername string
	MetricsPassword string

	// Data Configuration
	DataDir string

	Bot     BotConfig
	NLU     NLUConfig
	Session SessionConfig
	Archive ArchiveConfig
	Sentry  SentryConfig

	BetterStackToken string
}

// BotConfig holds turn processing limits.
type BotConfig struct {
	WebhookTimeout      time.Duration
	MaxMessagesPerReply int
	MaxMessageLength    int
	MaxInputLength      int

	// DialogMaxRetries bounds consecutive re-prompts of one step.
	DialogMaxRetries int
	// TranscriptLimit bounds the transcript entries kept per conversation.
	TranscriptLimit int

	// WebhookConcurrency bounds the callbacks processed at once.
	WebhookConcurrency int

	// Rate limits (token bucket per user + global)
	UserRateBurst     float64
	UserRateRefillSec float64
	GlobalRateRPS     float64
}

// NLUConfig selects and tunes the recognizers.
type NLUConfig struct {
	GeminiAPIKey string
	GeminiModel  string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	GroqAPIKey string
	GroqModel  string

	PrimaryProvider  string // "gemini", "openai" or "groq"
	FallbackProvider string // same set, or "" (none)

	// LocalEnabled turns on the offline lexical recognizer.
	LocalEnabled bool

	Timeout     time.Duration
	MaxAttempts int
}

// SessionConfig selects the conversation store.
type SessionConfig struct {
	Store string
	TTL   time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	DynamoDBTable  string
	DynamoDBRegion string
}

// ArchiveConfig configures the transcript archive upload.
type ArchiveConfig struct {
	Endpoint    string
	AccessKeyID string
	SecretKey   string
	Bucket      string
	Prefix      string
	Interval    time.Duration
	BatchLimit  int
}

// SentryConfig configures error reporting.
type SentryConfig struct {
	Token       string
	Host        string
	Environment string
	SampleRate  float64
}

// Load reads the server configuration.
func Load() (*Config, error) {
	return LoadForMode(ServerMode)
}

// LoadForMode reads configuration from the environment and validates it for mode.
// A .env file in the working directory is loaded first when present.
func LoadForMode(mode ValidationMode) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		LineChannelToken:  getEnv(EnvLineChannelAccessToken, ""),
		LineChannelSecret: getEnv(EnvLineChannelSecret, ""),

		Port:            getEnv(EnvPort, "10000"),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		LogFormat:       getEnv(EnvLogFormat, "json"),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, GracefulShutdown),

		MetricsUsername: getEnv(EnvMetricsUsername, "prometheus"),
		MetricsPassword: getEnv(EnvMetricsPassword, ""),

		DataDir: getEnv(EnvDataDir, getDefaultDataDir()),

		Bot: BotConfig{
			WebhookTimeout:      getDurationEnv(EnvWebhookTimeout, WebhookProcessing),
			WebhookConcurrency:  getIntEnv(EnvWebhookConcurrency, 16),
			MaxMessagesPerReply: LINEMaxMessagesPerReply,
			MaxMessageLength:    LINEMaxTextMessageLength,
			MaxInputLength:      500,
			DialogMaxRetries:    getIntEnv(EnvDialogMaxRetries, 3),
			TranscriptLimit:     getIntEnv(EnvTranscriptLimit, 200),
			UserRateBurst:       getFloatEnv(EnvUserRateBurst, 10),
			UserRateRefillSec:   getFloatEnv(EnvUserRateRefill, 0.5),
			GlobalRateRPS:       getFloatEnv(EnvGlobalRateRPS, 80),
		},

		NLU: NLUConfig{
			GeminiAPIKey:     getEnv(EnvGeminiAPIKey, ""),
			GeminiModel:      getEnv(EnvGeminiModel, ""),
			OpenAIAPIKey:     getEnv(EnvOpenAIAPIKey, ""),
			OpenAIBaseURL:    getEnv(EnvOpenAIBaseURL, ""),
			OpenAIModel:      getEnv(EnvOpenAIModel, ""),
			GroqAPIKey:       getEnv(EnvGroqAPIKey, ""),
			GroqModel:        getEnv(EnvGroqModel, ""),
			PrimaryProvider:  strings.ToLower(getEnv(EnvNLUPrimaryProvider, "gemini")),
			FallbackProvider: strings.ToLower(getEnv(EnvNLUFallbackProvider, "openai")),
			LocalEnabled:     getBoolEnv(EnvNLULocalEnabled, false),
			Timeout:          getDurationEnv(EnvNLUTimeout, NLURequest),
			MaxAttempts:      getIntEnv(EnvNLUMaxAttempts, 3),
		},

		Session: SessionConfig{
			Store:          strings.ToLower(getEnv(EnvSessionStore, StoreSQLite)),
			TTL:            getDurationEnv(EnvSessionTTL, 24*time.Hour),
			RedisAddr:      getEnv(EnvRedisAddr, "localhost:6379"),
			RedisPassword:  getEnv(EnvRedisPassword, ""),
			RedisDB:        getIntEnv(EnvRedisDB, 0),
			DynamoDBTable:  getEnv(EnvDynamoDBTable, ""),
			DynamoDBRegion: getEnv(EnvDynamoDBRegion, ""),
		},

		Archive: ArchiveConfig{
			Endpoint:    getEnv(EnvR2Endpoint, ""),
			AccessKeyID: getEnv(EnvR2AccessKeyID, ""),
			SecretKey:   getEnv(EnvR2SecretKey, ""),
			Bucket:      getEnv(EnvR2Bucket, ""),
			Prefix:      getEnv(EnvArchivePrefix, "transcripts"),
			Interval:    getDurationEnv(EnvArchiveInterval, ArchiveInterval),
			BatchLimit:  getIntEnv(EnvArchiveBatchLimit, 500),
		},

		Sentry: SentryConfig{
			Token:       getEnv(EnvSentryToken, ""),
			Host:        getEnv(EnvSentryHost, ""),
			Environment: getEnv(EnvSentryEnv, "production"),
			SampleRate:  getFloatEnv(EnvSentrySampleRate, 1.0),
		},

		BetterStackToken: getEnv(EnvBetterStackToken, ""),
	}

	if err := cfg.ValidateForMode(mode); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the server configuration.
func (c *Config) Validate() error {
	return c.ValidateForMode(ServerMode)
}

// ValidateForMode checks the configuration and reports every problem at once.
func (c *Config) ValidateForMode(mode ValidationMode) error {
	var errs []error

	if mode == ServerMode {
		if c.LineChannelToken == "" {
			errs = append(errs, errors.New(EnvLineChannelAccessToken+" is required"))
		}
		if c.LineChannelSecret == "" {
			errs = append(errs, errors.New(EnvLineChannelSecret+" is required"))
		}
		if c.Port == "" {
			errs = append(errs, errors.New(EnvPort+" is required"))
		}
	}

	if err := c.Bot.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("bot config: %w", err))
	}
	if err := c.NLU.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("nlu config: %w", err))
	}
	if err := c.Session.Validate(c.DataDir); err != nil {
		errs = append(errs, fmt.Errorf("session config: %w", err))
	}
	if c.Archive.Enabled() && c.Archive.Interval <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvArchiveInterval, c.Archive.Interval))
	}
	if c.Sentry.Token != "" && c.Sentry.Host == "" {
		errs = append(errs, errors.New(EnvSentryHost+" is required when "+EnvSentryToken+" is set"))
	}

	return errors.Join(errs...)
}

// Validate checks turn processing limits.
func (b BotConfig) Validate() error {
	var errs []error
	if b.WebhookTimeout <= 0 {
		errs = append(errs, fmt.Errorf("webhook timeout must be positive, got %v", b.WebhookTimeout))
	}
	if b.WebhookConcurrency < 0 {
		errs = append(errs, fmt.Errorf("%s cannot be negative, got %d", EnvWebhookConcurrency, b.WebhookConcurrency))
	}
	if b.MaxMessagesPerReply < 1 || b.MaxMessagesPerReply > LINEMaxMessagesPerReply {
		errs = append(errs, fmt.Errorf("max messages per reply must be 1-%d, got %d", LINEMaxMessagesPerReply, b.MaxMessagesPerReply))
	}
	if b.DialogMaxRetries < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1, got %d", EnvDialogMaxRetries, b.DialogMaxRetries))
	}
	if b.TranscriptLimit < 0 {
		errs = append(errs, fmt.Errorf("%s cannot be negative, got %d", EnvTranscriptLimit, b.TranscriptLimit))
	}
	if b.UserRateBurst <= 0 || b.UserRateRefillSec <= 0 {
		errs = append(errs, fmt.Errorf("user rate limit must be positive, got burst=%v refill=%v", b.UserRateBurst, b.UserRateRefillSec))
	}
	if b.GlobalRateRPS <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvGlobalRateRPS, b.GlobalRateRPS))
	}
	return errors.Join(errs...)
}

// Validate checks provider names and limits.
func (n NLUConfig) Validate() error {
	var errs []error
	valid := map[string]bool{"gemini": true, "openai": true, "groq": true}
	if !valid[n.PrimaryProvider] {
		errs = append(errs, fmt.Errorf("%s must be gemini, openai or groq, got %q", EnvNLUPrimaryProvider, n.PrimaryProvider))
	}
	if n.FallbackProvider != "" && !valid[n.FallbackProvider] {
		errs = append(errs, fmt.Errorf("%s must be gemini, openai, groq or empty, got %q", EnvNLUFallbackProvider, n.FallbackProvider))
	}
	if n.OpenAIAPIKey != "" && n.OpenAIBaseURL != "" && n.OpenAIModel == "" {
		errs = append(errs, errors.New(EnvOpenAIModel+" is required with a custom "+EnvOpenAIBaseURL))
	}
	if n.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvNLUTimeout, n.Timeout))
	}
	if n.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1, got %d", EnvNLUMaxAttempts, n.MaxAttempts))
	}
	return errors.Join(errs...)
}

// Validate checks that the selected store has what it needs.
func (s SessionConfig) Validate(dataDir string) error {
	var errs []error
	switch s.Store {
	case StoreSQLite:
		if dataDir == "" {
			errs = append(errs, errors.New(EnvDataDir+" is required for the sqlite store"))
		}
	case StoreRedis:
		if s.RedisAddr == "" {
			errs = append(errs, errors.New(EnvRedisAddr+" is required for the redis store"))
		}
	case StoreDynamoDB:
		if s.DynamoDBTable == "" {
			errs = append(errs, errors.New(EnvDynamoDBTable+" is required for the dynamodb store"))
		}
	default:
		errs = append(errs, fmt.Errorf("%s must be sqlite, redis or dynamodb, got %q", EnvSessionStore, s.Store))
	}
	if s.TTL <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvSessionTTL, s.TTL))
	}
	return errors.Join(errs...)
}

// Enabled reports whether every credential for the archive bucket is present.
func (a ArchiveConfig) Enabled() bool {
	return a.Endpoint != "" && a.AccessKeyID != "" && a.SecretKey != "" && a.Bucket != ""
}

// HasLLMProvider returns true if at least one LLM provider is configured.
func (n NLUConfig) HasLLMProvider() bool {
	return n.GeminiAPIKey != "" || n.OpenAIAPIKey != "" || n.GroqAPIKey != ""
}

// SQLitePath returns the full path to the SQLite database file
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "conversations.db")
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getBoolEnv retrieves boolean environment variable with fallback to default value
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getDefaultDataDir returns platform-specific default data directory
func getDefaultDataDir() string {
	if runtime.GOOS == "windows" {
		return "./data"
	}
	return "/data"
}
