package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/garyellow/campus-interview-bot/internal/dialog"
	"github.com/garyellow/campus-interview-bot/internal/logger"
	"github.com/garyellow/campus-interview-bot/internal/sentry"
)

// Turn is one user message addressed to the dialog.
type Turn struct {
	ChatID   string
	UserID   string
	Text     string
	Personal bool
	// Start is set for follow events: the conversation is reset and the
	// text is ignored.
	Start bool
}

// TurnFunc runs one turn.
type TurnFunc func(ctx context.Context, t Turn) (dialog.Reply, error)

// Middleware wraps a TurnFunc.
type Middleware func(next TurnFunc) TurnFunc

// Chain applies middlewares so the first one listed runs outermost.
func Chain(h TurnFunc, mws ...Middleware) TurnFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// LoggingMiddleware logs each turn with its duration.
func LoggingMiddleware(log *logger.Logger) Middleware {
	return func(next TurnFunc) TurnFunc {
		return func(ctx context.Context, t Turn) (dialog.Reply, error) {
			start := time.Now()
			log.DebugContext(ctx, "Turn started", "text_length", len(t.Text), "start", t.Start)

			reply, err := next(ctx, t)

			l := log.WithField("duration_ms", time.Since(start).Milliseconds()).
				WithField("msg_count", len(reply.Messages))
			if err != nil {
				l.WithError(err).WarnContext(ctx, "Turn failed")
			} else {
				l.DebugContext(ctx, "Turn completed")
			}
			return reply, err
		}
	}
}

// RecoveryMiddleware turns a panic into an error and reports it.
func RecoveryMiddleware(log *logger.Logger) Middleware {
	return func(next TurnFunc) TurnFunc {
		return func(ctx context.Context, t Turn) (reply dialog.Reply, err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("turn panicked: %v", r)
					log.WithField("panic", r).
						WithField("stack", string(debug.Stack())).
						ErrorContext(ctx, "Turn panicked")
					sentry.CaptureTurnError(ctx, err, sentry.TurnInfo{ChatID: t.ChatID, Component: "processor"})
				}
			}()
			return next(ctx, t)
		}
	}
}
