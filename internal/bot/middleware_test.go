package bot

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/campus-interview-bot/internal/dialog"
	"github.com/garyellow/campus-interview-bot/internal/logger"
)

func TestChain_Order(t *testing.T) {
	t.Parallel()
	var order []string
	mark := func(name string) Middleware {
		return func(next TurnFunc) TurnFunc {
			return func(ctx context.Context, tr Turn) (dialog.Reply, error) {
				order = append(order, name)
				return next(ctx, tr)
			}
		}
	}
	h := Chain(func(context.Context, Turn) (dialog.Reply, error) {
		order = append(order, "handler")
		return dialog.Reply{}, nil
	}, mark("outer"), mark("inner"))

	_, err := h(context.Background(), Turn{})
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestRecoveryMiddleware(t *testing.T) {
	t.Parallel()
	log := logger.NewWithWriter("error", io.Discard)
	h := Chain(func(context.Context, Turn) (dialog.Reply, error) {
		panic("boom")
	}, RecoveryMiddleware(log), LoggingMiddleware(log))

	reply, err := h(context.Background(), Turn{ChatID: "U1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Empty(t, reply.Messages)
}

func TestLoggingMiddleware_PassesThrough(t *testing.T) {
	t.Parallel()
	log := logger.NewWithWriter("debug", io.Discard)
	want := dialog.Reply{Messages: []string{"hi"}}
	h := LoggingMiddleware(log)(func(context.Context, Turn) (dialog.Reply, error) {
		return want, nil
	})

	got, err := h(context.Background(), Turn{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
