// Package ctxutil carries per-turn tracing values (user, chat, session, request)
// through context.Context using private key types.
package ctxutil

import (
	"context"
)

type contextKey string

const (
	userIDKey    contextKey = "ctxutil.userID"
	chatIDKey    contextKey = "ctxutil.chatID"
	sessionIDKey contextKey = "ctxutil.sessionID"
	requestIDKey contextKey = "ctxutil.requestID"
)

func withString(ctx context.Context, key contextKey, value string) context.Context {
	return context.WithValue(ctx, key, value)
}

func getString(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// WithUserID adds the LINE user ID (or the terminal user name) to the context.
// It keys per-user rate limiting.
func WithUserID(ctx context.Context, userID string) context.Context {
	return withString(ctx, userIDKey, userID)
}

// GetUserID returns the user ID, or "" when absent.
func GetUserID(ctx context.Context) string {
	return getString(ctx, userIDKey)
}

// WithChatID adds the chat ID to the context.
// A chat is a user, group or room; conversations are stored per chat.
func WithChatID(ctx context.Context, chatID string) context.Context {
	return withString(ctx, chatIDKey, chatID)
}

// GetChatID returns the chat ID, or "" when absent.
func GetChatID(ctx context.Context) string {
	return getString(ctx, chatIDKey)
}

// WithSessionID adds the conversation session ID to the context.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return withString(ctx, sessionIDKey, sessionID)
}

// GetSessionID returns the session ID, or "" when absent.
func GetSessionID(ctx context.Context) string {
	return getString(ctx, sessionIDKey)
}

// WithRequestID adds a request ID to the context for log correlation.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withString(ctx, requestIDKey, requestID)
}

// GetRequestID returns the request ID and whether it was set.
func GetRequestID(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(requestIDKey).(string)
	return requestID, ok && requestID != ""
}

// MustGetChatID returns the chat ID and panics when it is missing.
// Only call it below bot.Processor, which always sets one.
func MustGetChatID(ctx context.Context) string {
	chatID := GetChatID(ctx)
	if chatID == "" {
		panic("ctxutil: chatID not found")
	}
	return chatID
}

// PreserveTracing returns a fresh background context carrying only the tracing values of ctx.
// Webhook events keep processing after the HTTP response is written, so they must not
// inherit the request's cancellation.
func PreserveTracing(ctx context.Context) context.Context {
	out := context.Background()
	for _, key := range []contextKey{userIDKey, chatIDKey, sessionIDKey, requestIDKey} {
		if v := getString(ctx, key); v != "" {
			out = withString(out, key, v)
		}
	}
	return out
}
