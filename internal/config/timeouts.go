package config

import "time"

// LINE webhook limits.
// The reply token should be used quickly; LINE expects the 200 OK long before processing ends.
const (
	// WebhookProcessing bounds one event: session load, recognizer calls, session save and the reply.
	WebhookProcessing = 30 * time.Second

	// WebhookHTTPRead is the HTTP server read timeout. LINE payloads are small.
	WebhookHTTPRead = 10 * time.Second

	// WebhookHTTPWrite is the HTTP server write timeout.
	WebhookHTTPWrite = 15 * time.Second

	// WebhookHTTPIdle is the keep-alive idle timeout.
	WebhookHTTPIdle = 120 * time.Second

	// ReadinessCheck bounds the store pings behind /readyz.
	ReadinessCheck = 3 * time.Second
)

// LINE API limits.
const (
	LINEMaxMessagesPerReply  = 5
	LINEMaxTextMessageLength = 5000
	LINEMaxQuickReplyItems   = 13
)

// Recognizer timeouts.
const (
	// NLURequest bounds a single recognizer call, including provider retries.
	NLURequest = 12 * time.Second

	// NLURetryInitial is the first backoff delay between provider attempts.
	NLURetryInitial = 500 * time.Millisecond

	// NLURetryMax caps the backoff delay.
	NLURetryMax = 4 * time.Second
)

// Database timeouts.
const (
	// DatabaseBusyTimeout is the SQLite busy_timeout pragma value.
	DatabaseBusyTimeout = 5 * time.Second

	// DatabaseConnMaxLifetime recycles pooled connections.
	DatabaseConnMaxLifetime = time.Hour
)

// Background job intervals.
const (
	// SessionCleanupInterval is how often expired conversations are deleted.
	SessionCleanupInterval = 30 * time.Minute

	// ArchiveInterval is the default period of the transcript archive job.
	ArchiveInterval = 6 * time.Hour

	// RateLimiterCleanupInterval is how often idle per-user limiters are dropped.
	RateLimiterCleanupInterval = 5 * time.Minute

	// MetricsUpdateInterval is how often stored item gauges are refreshed.
	MetricsUpdateInterval = time.Minute

	// GracefulShutdown is the default time allowed for in-flight events on shutdown.
	GracefulShutdown = 30 * time.Second
)
