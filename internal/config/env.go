package config

//nolint:gosec,revive // Environment variable keys are not credentials.
const (
	// LINE
	EnvLineChannelAccessToken = "LINE_CHANNEL_ACCESS_TOKEN"
	EnvLineChannelSecret      = "LINE_CHANNEL_SECRET"

	// Server
	EnvPort               = "PORT"
	EnvLogLevel           = "LOG_LEVEL"
	EnvLogFormat          = "LOG_FORMAT"
	EnvShutdownTimeout    = "SHUTDOWN_TIMEOUT"
	EnvWebhookTimeout     = "WEBHOOK_TIMEOUT"
	EnvWebhookConcurrency = "WEBHOOK_CONCURRENCY"
	EnvMetricsUsername    = "METRICS_USERNAME"
	EnvMetricsPassword    = "METRICS_PASSWORD"

	// Dialog
	EnvDialogMaxRetries = "DIALOG_MAX_RETRIES"
	EnvTranscriptLimit  = "TRANSCRIPT_LIMIT"

	// NLU
	EnvGeminiAPIKey        = "GEMINI_API_KEY"
	EnvGeminiModel         = "GEMINI_MODEL"
	EnvOpenAIAPIKey        = "OPENAI_API_KEY"
	EnvOpenAIBaseURL       = "OPENAI_BASE_URL"
	EnvOpenAIModel         = "OPENAI_MODEL"
	EnvGroqAPIKey          = "GROQ_API_KEY"
	EnvGroqModel           = "GROQ_MODEL"
	EnvNLUPrimaryProvider  = "NLU_PRIMARY_PROVIDER"
	EnvNLUFallbackProvider = "NLU_FALLBACK_PROVIDER"
	EnvNLULocalEnabled     = "NLU_LOCAL_ENABLED"
	EnvNLUTimeout          = "NLU_TIMEOUT"
	EnvNLUMaxAttempts      = "NLU_MAX_ATTEMPTS"

	// Sessions
	EnvSessionStore   = "SESSION_STORE"
	EnvSessionTTL     = "SESSION_TTL"
	EnvDataDir        = "DATA_DIR"
	EnvRedisAddr      = "REDIS_ADDR"
	EnvRedisPassword  = "REDIS_PASSWORD"
	EnvRedisDB        = "REDIS_DB"
	EnvDynamoDBTable  = "DYNAMODB_TABLE"
	EnvDynamoDBRegion = "DYNAMODB_REGION"

	// Rate limits
	EnvUserRateBurst  = "USER_RATE_BURST"
	EnvUserRateRefill = "USER_RATE_REFILL"
	EnvGlobalRateRPS  = "GLOBAL_RATE_RPS"

	// Transcript archive (S3-compatible, e.g. Cloudflare R2)
	EnvR2Endpoint        = "R2_ENDPOINT"
	EnvR2AccessKeyID     = "R2_ACCESS_KEY_ID"
	EnvR2SecretKey       = "R2_SECRET_ACCESS_KEY"
	EnvR2Bucket          = "R2_BUCKET"
	EnvArchivePrefix     = "ARCHIVE_PREFIX"
	EnvArchiveInterval   = "ARCHIVE_INTERVAL"
	EnvArchiveBatchLimit = "ARCHIVE_BATCH_LIMIT"

	// Observability
	EnvSentryToken      = "SENTRY_TOKEN"
	EnvSentryHost       = "SENTRY_HOST"
	EnvSentryEnv        = "SENTRY_ENVIRONMENT"
	EnvSentrySampleRate = "SENTRY_SAMPLE_RATE"
	EnvBetterStackToken = "BETTERSTACK_SOURCE_TOKEN"
)
