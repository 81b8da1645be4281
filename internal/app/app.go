// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/garyellow/campus-interview-bot/internal/archive"
	"github.com/garyellow/campus-interview-bot/internal/bot"
	"github.com/garyellow/campus-interview-bot/internal/buildinfo"
	"github.com/garyellow/campus-interview-bot/internal/config"
	"github.com/garyellow/campus-interview-bot/internal/dialog"
	"github.com/garyellow/campus-interview-bot/internal/genai"
	"github.com/garyellow/campus-interview-bot/internal/logger"
	"github.com/garyellow/campus-interview-bot/internal/metrics"
	"github.com/garyellow/campus-interview-bot/internal/nlu"
	"github.com/garyellow/campus-interview-bot/internal/r2client"
	"github.com/garyellow/campus-interview-bot/internal/ratelimit"
	"github.com/garyellow/campus-interview-bot/internal/sentry"
	"github.com/garyellow/campus-interview-bot/internal/session"
	"github.com/garyellow/campus-interview-bot/internal/storage"
	"github.com/garyellow/campus-interview-bot/internal/webhook"
)

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg            *config.Config
	logger         *logger.Logger
	db             *storage.DB
	store          session.Store
	metrics        *metrics.Metrics
	registry       *prometheus.Registry
	llm            *genai.FallbackRecognizer // nil when no provider has a key
	engine         *dialog.Engine
	recorder       *session.Recorder
	limiter        *ratelimit.TurnLimiter
	webhookHandler *webhook.Handler
	archiver       *archive.Archiver // nil when R2 is not configured
	server         *http.Server
}

// Option adjusts Initialize, mainly for tests.
type Option func(*options)

type options struct {
	messenger webhook.Messenger
	archive   r2client.ConditionalStore
}

// WithMessenger replaces the LINE API client used for replies.
func WithMessenger(m webhook.Messenger) Option {
	return func(o *options) { o.messenger = m }
}

// WithArchiveStore replaces the R2 bucket used by the transcript archive.
// The archive runs even when R2 credentials are missing.
func WithArchiveStore(s r2client.ConditionalStore) Option {
	return func(o *options) { o.archive = s }
}

// Initialize creates and initializes a new application with all dependencies.
func Initialize(ctx context.Context, cfg *config.Config, opts ...Option) (*Application, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	m := metrics.New(registry)

	log := logger.NewWithOptions(logger.Options{
		Level:            cfg.LogLevel,
		Format:           cfg.LogFormat,
		BetterStackToken: cfg.BetterStackToken,
		OnDrop:           m.RecordLogDropped,
	})
	log = log.WithField("service", "campus-interview-bot")
	if host, err := os.Hostname(); err == nil && host != "" {
		log = log.WithField("instance_id", host)
	}
	// Package-level slog calls pick up chat and request IDs through the ContextHandler.
	log.SetDefault()

	log.WithField("version", buildinfo.Version).Info("Initializing application...")

	if err := sentry.Initialize(sentry.Config{
		Token:       cfg.Sentry.Token,
		Host:        cfg.Sentry.Host,
		Environment: cfg.Sentry.Environment,
		Release:     buildinfo.Version,
		SampleRate:  cfg.Sentry.SampleRate,
	}); err != nil {
		log.WithError(err).Warn("Error reporting disabled")
	}

	db, err := storage.New(ctx, cfg.SQLitePath())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	log.WithField("path", cfg.SQLitePath()).Info("Database connected")

	store, err := session.Open(ctx, cfg.Session, db, m)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("session store: %w", err)
	}
	log.WithField("store", cfg.Session.Store).WithField("ttl", cfg.Session.TTL).Info("Session store ready")

	recognizer, llm := NewRecognizer(ctx, cfg.NLU, m, log)
	if !recognizer.IsConfigured() {
		log.Warn("No recognizer configured; replies will carry the setup note")
	}

	scripts, err := dialog.DefaultScripts()
	if err != nil {
		_ = store.Close()
		_ = db.Close()
		return nil, fmt.Errorf("scripts: %w", err)
	}
	engine := dialog.NewEngine(scripts, recognizer, dialog.Config{
		MaxRetries: cfg.Bot.DialogMaxRetries,
		Metrics:    m,
		Logger:     log,
	})

	limiter := ratelimit.NewTurnLimiter(ratelimit.TurnConfig{
		UserBurst:      cfg.Bot.UserRateBurst,
		UserRefillRate: cfg.Bot.UserRateRefillSec,
		GlobalRPS:      cfg.Bot.GlobalRateRPS,
		CleanupPeriod:  config.RateLimiterCleanupInterval,
		Metrics:        m,
	})

	recorder := session.NewRecorder(db, db)
	processor := bot.NewProcessor(bot.ProcessorConfig{
		Engine:    engine,
		Store:     store,
		Recorder:  recorder,
		Limiter:   limiter,
		Logger:    log,
		Metrics:   m,
		BotConfig: &cfg.Bot,
	})

	webhookHandler, err := webhook.NewHandler(webhook.HandlerConfig{
		ChannelSecret:       cfg.LineChannelSecret,
		ChannelToken:        cfg.LineChannelToken,
		Messenger:           o.messenger,
		Processor:           processor,
		Metrics:             m,
		Logger:              log,
		GlobalRateRPS:       cfg.Bot.GlobalRateRPS,
		MaxMessagesPerReply: cfg.Bot.MaxMessagesPerReply,
		Concurrency:         cfg.Bot.WebhookConcurrency,
	})
	if err != nil {
		limiter.Stop()
		_ = store.Close()
		_ = db.Close()
		return nil, fmt.Errorf("webhook: %w", err)
	}

	app := &Application{
		cfg:            cfg,
		logger:         log,
		db:             db,
		store:          store,
		metrics:        m,
		registry:       registry,
		llm:            llm,
		engine:         engine,
		recorder:       recorder,
		limiter:        limiter,
		webhookHandler: webhookHandler,
	}

	app.archiver, err = newArchiver(ctx, cfg.Archive, db, o.archive, m, log)
	if err != nil {
		log.WithError(err).Warn("Transcript archive disabled")
	}

	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.newRouter(),
		ReadHeaderTimeout: config.WebhookHTTPRead,
		ReadTimeout:       config.WebhookHTTPRead,
		WriteTimeout:      config.WebhookHTTPWrite,
		IdleTimeout:       config.WebhookHTTPIdle,
	}

	log.Info("Initialization complete")
	return app, nil
}

// NewRecognizer builds the recognizer chain: the LLM recognizer when a
// provider has a key, then the lexical recognizer. The LLM recognizer is
// also returned on its own and is nil when no provider is configured.
func NewRecognizer(ctx context.Context, cfg config.NLUConfig, m *metrics.Metrics, log *logger.Logger) (*nlu.Chain, *genai.FallbackRecognizer) {
	llm, err := genai.NewRecognizer(ctx, buildRecognizerConfig(cfg), m)
	if err != nil {
		log.WithError(err).Warn("LLM recognizer initialization failed")
	}
	var members []nlu.Recognizer
	if llm != nil {
		members = append(members, llm)
	}
	members = append(members, nlu.NewLexicalRecognizer(cfg.LocalEnabled))
	return nlu.NewChain(m, log, members...), llm
}

// buildRecognizerConfig maps NLU settings onto the LLM recognizer config.
func buildRecognizerConfig(n config.NLUConfig) genai.Config {
	return genai.Config{
		Primary:  genai.Provider(n.PrimaryProvider),
		Fallback: genai.Provider(n.FallbackProvider),
		Gemini:   genai.ProviderConfig{APIKey: n.GeminiAPIKey, Model: n.GeminiModel},
		OpenAI:   genai.ProviderConfig{APIKey: n.OpenAIAPIKey, Model: n.OpenAIModel, BaseURL: n.OpenAIBaseURL},
		Groq:     genai.ProviderConfig{APIKey: n.GroqAPIKey, Model: n.GroqModel},
		Timeout:  n.Timeout,
		Retry: genai.RetryConfig{
			MaxAttempts:  n.MaxAttempts,
			InitialDelay: config.NLURetryInitial,
			MaxDelay:     config.NLURetryMax,
		},
	}
}

// newArchiver returns nil without error when there is nowhere to upload.
func newArchiver(ctx context.Context, cfg config.ArchiveConfig, db *storage.DB, store r2client.ConditionalStore, m *metrics.Metrics, log *logger.Logger) (*archive.Archiver, error) {
	if store == nil {
		if !cfg.Enabled() {
			return nil, nil //nolint:nilnil // archive not configured
		}
		client, err := r2client.New(ctx, r2client.Config{
			Endpoint:    cfg.Endpoint,
			AccessKeyID: cfg.AccessKeyID,
			SecretKey:   cfg.SecretKey,
			BucketName:  cfg.Bucket,
		})
		if err != nil {
			return nil, fmt.Errorf("r2 client: %w", err)
		}
		store = client
	}
	log.WithField("prefix", cfg.Prefix).WithField("interval", cfg.Interval).Info("Transcript archive enabled")
	return archive.New(db, store, archive.Config{
		Prefix:     cfg.Prefix,
		BatchLimit: cfg.BatchLimit,
		Metrics:    m,
		Logger:     log,
	}), nil
}

// Handler returns the HTTP handler serving every route.
func (a *Application) Handler() http.Handler {
	return a.server.Handler
}

// Run serves until SIGINT or SIGTERM, then shuts down.
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return a.Serve(ctx)
}

// Serve starts the HTTP server and background jobs and blocks until ctx is
// cancelled or the server fails.
//
// Shutdown order:
//  1. stop accepting requests and wait for in-flight webhook events
//  2. wait for background jobs to return
//  3. close the session store, database and limiters
//
// Closing the database last keeps jobs and in-flight turns from hitting a closed pool.
func (a *Application) Serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("Received shutdown signal")
		a.stopServing()
		return nil
	})
	a.startBackgroundJobs(gctx, g)

	err := g.Wait()

	a.closeResources()
	return err
}

// stopServing stops the HTTP server and waits for queued webhook events.
func (a *Application) stopServing() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping HTTP server...")
	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
	}

	a.logger.Info("Waiting for webhook events to complete...")
	if err := a.webhookHandler.Shutdown(ctx); err != nil {
		a.logger.WithError(err).Warn("Webhook handler shutdown timeout")
	}
}

func (a *Application) closeResources() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Closing resources...")

	a.limiter.Stop()

	if err := a.store.Close(); err != nil {
		a.logger.WithError(err).WithField("component", "session_store").Error("Component close error")
	}
	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).WithField("component", "database").Error("Component close error")
	}

	sentry.Flush(2 * time.Second)

	a.logger.Info("Shutdown complete")
	if err := a.logger.Shutdown(ctx); err != nil {
		a.logger.WithError(err).Warn("Logger shutdown timed out")
	}
}
