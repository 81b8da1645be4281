package app

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garyellow/campus-interview-bot/internal/config"
	"github.com/garyellow/campus-interview-bot/internal/ctxutil"
	"github.com/garyellow/campus-interview-bot/internal/logger"
	"github.com/garyellow/campus-interview-bot/internal/sentry"
)

const repositoryURL = "https://github.com/garyellow/campus-interview-bot"

func (a *Application) newRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if sentry.IsEnabled() {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(securityHeadersMiddleware())
	router.Use(requestLogMiddleware(a.logger))

	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusTemporaryRedirect, repositoryURL)
	})
	router.GET("/livez", a.livenessCheck)
	router.HEAD("/livez", a.livenessCheck)
	router.GET("/readyz", a.readinessCheck)
	router.HEAD("/readyz", a.readinessCheck)
	router.POST("/webhook", a.webhookHandler.Handle)
	router.GET("/metrics",
		metricsAuth(a.cfg.MetricsUsername, a.cfg.MetricsPassword),
		gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	return router
}

func (a *Application) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (a *Application) features() map[string]bool {
	return map[string]bool{
		"llm_recognizer":     a.llm != nil && a.llm.IsConfigured(),
		"lexical_recognizer": a.cfg.NLU.LocalEnabled,
		"transcript_archive": a.archiver != nil,
		"error_reporting":    sentry.IsEnabled(),
	}
}

// readinessCheck reports 503 until both the database and the session store answer.
func (a *Application) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), config.ReadinessCheck)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		a.logger.WithError(err).Warn("Readiness check failed: database unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "database unavailable",
		})
		return
	}
	if err := a.store.Ping(ctx); err != nil {
		a.logger.WithError(err).WithField("store", a.cfg.Session.Store).
			Warn("Readiness check failed: session store unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "session store unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        "ready",
		"database":      "connected",
		"session_store": a.cfg.Session.Store,
		"stored":        a.storedCounts(ctx),
		"features":      a.features(),
	})
}

// storedCounts skips counts that could not be read.
func (a *Application) storedCounts(ctx context.Context) map[string]int {
	counts := make(map[string]int)

	if n, err := a.db.CountConversations(ctx); err == nil {
		counts["conversations"] = n
	} else {
		a.logger.WithError(err).Warn("Failed to count conversations")
	}
	if total, unarchived, err := a.db.CountTranscripts(ctx); err == nil {
		counts["transcripts"] = total
		counts["transcripts_unarchived"] = unarchived
	} else {
		a.logger.WithError(err).Warn("Failed to count transcripts")
	}

	return counts
}

// metricsAuth enforces Basic Auth on /metrics. An empty password disables it.
func metricsAuth(username, password string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if password == "" {
			c.Next()
			return
		}

		user, pass, ok := c.Request.BasicAuth()
		userOK := subtle.ConstantTimeCompare([]byte(user), []byte(username)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(password)) == 1
		if !ok || !userOK || !passOK {
			c.Header("WWW-Authenticate", `Basic realm="metrics"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'none'")
		c.Header("X-Permitted-Cross-Domain-Policies", "none")
		c.Next()
	}
}

// requestLogMiddleware tags each request with an ID (taken from the proxy
// headers or generated) and logs it at a level that follows the status:
// 5xx=Error, 4xx=Warn except 404, everything else Debug.
func requestLogMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader("X-Request-Id")
		if requestID == "" {
			requestID = c.GetHeader("X-Correlation-Id")
		}
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-Id", requestID)
		c.Request = c.Request.WithContext(ctxutil.WithRequestID(c.Request.Context(), requestID))

		c.Next()

		status := c.Writer.Status()
		entry := log.WithRequestID(requestID).
			WithField("http_method", c.Request.Method).
			WithField("http_path", c.Request.URL.Path).
			WithField("http_status", status).
			WithField("duration_ms", time.Since(start).Milliseconds()).
			WithField("client_ip", c.ClientIP())

		switch {
		case status >= 500:
			entry.Error("HTTP request failed")
		case status == http.StatusNotFound:
			entry.Debug("HTTP request not found")
		case status >= 400:
			entry.Warn("HTTP request rejected")
		default:
			entry.Debug("HTTP request completed")
		}
	}
}
