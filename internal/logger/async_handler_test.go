package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestAsyncHandler_FlushOnShutdown(t *testing.T) {
	t.Parallel()
	var out lockedBuffer
	var drops []string
	h := NewAsyncHandler(slog.NewJSONHandler(&out, nil), AsyncOptions{
		QueueSize: 16,
		OnDrop:    func(reason string) { drops = append(drops, reason) },
	})
	log := slog.New(h).With("chat_id", "U1")

	log.Info("first")
	log.Info("second")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := h.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "first") || !strings.Contains(got, "second") {
		t.Errorf("expected both records after shutdown, got %q", got)
	}
	if !strings.Contains(got, `"chat_id":"U1"`) {
		t.Errorf("expected attrs to survive WithAttrs, got %q", got)
	}

	// Records after shutdown are dropped, and a second shutdown is a no-op.
	log.Info("late")
	if err := h.Shutdown(ctx); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
	if strings.Contains(out.String(), "late") {
		t.Error("record logged after shutdown was shipped")
	}
	if len(drops) != 1 || drops[0] != DropClosed {
		t.Errorf("drops = %v, want [%s]", drops, DropClosed)
	}
}

// blockingHandler holds the shipping goroutine until release is closed.
type blockingHandler struct {
	release chan struct{}
}

func (h *blockingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *blockingHandler) Handle(context.Context, slog.Record) error {
	<-h.release
	return nil
}
func (h *blockingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *blockingHandler) WithGroup(string) slog.Handler      { return h }

func TestAsyncHandler_DropsWhenQueueFull(t *testing.T) {
	t.Parallel()
	slow := &blockingHandler{release: make(chan struct{})}
	var mu sync.Mutex
	drops := map[string]int{}
	h := NewAsyncHandler(slow, AsyncOptions{
		QueueSize: 1,
		OnDrop: func(reason string) {
			mu.Lock()
			drops[reason]++
			mu.Unlock()
		},
	})
	log := slog.New(h)

	// One record may be held by the shipping goroutine and one fits in the
	// queue; the rest of the burst is dropped.
	for range 10 {
		log.Info("burst")
	}
	close(slow.release)
	if err := h.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if drops[DropQueueFull] < 8 {
		t.Errorf("queue_full drops = %d, want at least 8", drops[DropQueueFull])
	}
}

func TestLoggerShutdownWithoutRemote(t *testing.T) {
	t.Parallel()
	log := NewWithWriter("info", &bytes.Buffer{})
	if err := log.WithModule("bot").Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() without remote shipping = %v, want nil", err)
	}
	var nilAsync *AsyncHandler
	if err := nilAsync.Shutdown(context.Background()); err != nil {
		t.Errorf("nil handler Shutdown() = %v, want nil", err)
	}
}
