// Package logger provides structured logging for the bot.
// It wraps log/slog with JSON output, context-derived tracing fields and
// optional shipping to Better Stack.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	slogbetterstack "github.com/samber/slog-betterstack"
)

// Logger is the application logger
type Logger struct {
	*slog.Logger
	async *AsyncHandler // remote shipping pipeline, nil when disabled
}

// Options configures a Logger.
type Options struct {
	Level  string    // debug, info, warn, error
	Format string    // json (default) or text
	Writer io.Writer // defaults to os.Stdout

	// BetterStackToken enables log shipping to Better Stack when non-empty.
	BetterStackToken string
	// OnDrop observes records the Better Stack queue discards.
	OnDrop func(reason string)
}

// New creates a JSON logger writing to stdout.
func New(level string) *Logger {
	return NewWithOptions(Options{Level: level})
}

// NewWithWriter creates a JSON logger writing to w.
func NewWithWriter(level string, w io.Writer) *Logger {
	return NewWithOptions(Options{Level: level, Writer: w})
}

// NewWithOptions creates a logger from opts.
// Every handler is wrapped in a ContextHandler so tracing values on the context
// show up in each record logged with a *Context method.
func NewWithOptions(opts Options) *Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}
	level := ParseLevel(opts.Level)

	handlerOpts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: renameAttr,
	}

	var local slog.Handler
	if opts.Format == "text" {
		local = slog.NewTextHandler(w, handlerOpts)
	} else {
		local = slog.NewJSONHandler(w, handlerOpts)
	}

	// Better Stack ships over HTTP; it runs behind an async queue so a slow
	// intake never delays a reply.
	var async *AsyncHandler
	var remote slog.Handler
	if opts.BetterStackToken != "" {
		async = NewAsyncHandler(slogbetterstack.Option{
			Level: level,
			Token: opts.BetterStackToken,
		}.NewBetterstackHandler(), AsyncOptions{OnDrop: opts.OnDrop})
		remote = async
	}

	return &Logger{
		Logger: slog.New(NewContextHandler(NewMultiHandler(local, remote))),
		async:  async,
	}
}

// ParseLevel maps a level name to slog.Level. Unknown names map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func renameAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.TimeKey:
		a.Key = "timestamp"
	case slog.LevelKey:
		a.Key = "level"
		level := a.Value.String()
		if level == "WARN" {
			level = "warning"
		} else {
			level = strings.ToLower(level)
		}
		a.Value = slog.StringValue(level)
	case slog.MessageKey:
		a.Key = "message"
	}
	return a
}

// SetDefault installs l as the slog default so package-level slog calls share its handlers.
func (l *Logger) SetDefault() {
	slog.SetDefault(l.Logger)
}

// WithModule creates a new entry with module field
func (l *Logger) WithModule(module string) *Logger {
	return l.derive("module", module)
}

// WithRequestID creates a new entry with request ID field
func (l *Logger) WithRequestID(requestID string) *Logger {
	return l.derive("request_id", requestID)
}

// WithError creates a new entry with error field
func (l *Logger) WithError(err error) *Logger {
	return l.derive("error", err)
}

// WithField creates a new entry with a single field
func (l *Logger) WithField(key string, value any) *Logger {
	return l.derive(key, value)
}

// WithFields creates a new entry with multiple fields
func (l *Logger) WithFields(fields map[string]any) *Logger {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return l.derive(args...)
}

func (l *Logger) derive(args ...any) *Logger {
	return &Logger{Logger: l.With(args...), async: l.async}
}

// Shutdown flushes records queued for remote shipping.
func (l *Logger) Shutdown(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.async.Shutdown(ctx)
}

// Infof logs a formatted message at info level.
func (l *Logger) Infof(format string, args ...any) {
	l.Info(fmt.Sprintf(format, args...))
}

// Warnf logs a formatted message at warn level.
func (l *Logger) Warnf(format string, args ...any) {
	l.Warn(fmt.Sprintf(format, args...))
}

// Errorf logs a formatted message at error level.
func (l *Logger) Errorf(format string, args ...any) {
	l.Error(fmt.Sprintf(format, args...))
}

// Debugf logs a formatted message at debug level.
func (l *Logger) Debugf(format string, args ...any) {
	l.Debug(fmt.Sprintf(format, args...))
}
