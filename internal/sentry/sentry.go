// Package sentry reports bot failures to a Sentry-compatible backend (Better Stack Errors).
// Events carry the chat and topic of the failed turn as tags.
package sentry

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// Config holds the error reporting settings.
type Config struct {
	// Token is the application token; an empty token disables reporting.
	Token string

	// Host is the ingesting host, e.g. "errors.betterstack.com".
	Host string

	Environment string
	Release     string

	// SampleRate is clamped to (0, 1]; zero means report everything.
	SampleRate float64

	Debug bool
}

// DSN builds https://TOKEN@HOST/1. The project ID is ignored by Better Stack.
func (c Config) DSN() string {
	return fmt.Sprintf("https://%s@%s/1", c.Token, c.Host)
}

// ClientOptions converts the config into SDK options.
func (c Config) ClientOptions() sentry.ClientOptions {
	sampleRate := c.SampleRate
	if sampleRate <= 0 || sampleRate > 1 {
		sampleRate = 1.0
	}
	return sentry.ClientOptions{
		Dsn:              c.DSN(),
		Environment:      c.Environment,
		Release:          c.Release,
		SampleRate:       sampleRate,
		Debug:            c.Debug,
		AttachStacktrace: true,
	}
}

// Initialize sets up the SDK. It returns nil without doing anything when Token is empty.
func Initialize(cfg Config) error {
	if cfg.Token == "" {
		return nil
	}
	if cfg.Host == "" {
		return fmt.Errorf("sentry host is required when token is provided")
	}
	return sentry.Init(cfg.ClientOptions())
}

// Flush waits for buffered events. Returns true if all were sent within timeout.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// IsEnabled reports whether a client is bound to the current hub.
func IsEnabled() bool {
	return sentry.CurrentHub().Client() != nil
}

// TurnInfo identifies the conversation turn an error belongs to.
type TurnInfo struct {
	ChatID    string
	Topic     string
	Component string
}

// CaptureTurnError reports err tagged with the turn it interrupted.
// The hub attached to ctx (by the gin middleware) is preferred over the global hub.
func CaptureTurnError(ctx context.Context, err error, info TurnInfo) {
	if err == nil {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	if hub.Client() == nil {
		return
	}
	hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range info.tags() {
			scope.SetTag(k, v)
		}
		hub.CaptureException(err)
	})
}

func (t TurnInfo) tags() map[string]string {
	tags := make(map[string]string, 3)
	if t.ChatID != "" {
		tags["chat_id"] = t.ChatID
	}
	if t.Topic != "" {
		tags["topic"] = t.Topic
	}
	if t.Component != "" {
		tags["component"] = t.Component
	}
	return tags
}

// CaptureMessage reports a plain message.
func CaptureMessage(message string) {
	sentry.CaptureMessage(message)
}
