package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultQueueSize    = 1024
	defaultDrainTimeout = 5 * time.Second
)

// Reasons passed to AsyncOptions.OnDrop.
const (
	DropQueueFull = "queue_full"
	DropClosed    = "closed"
)

// AsyncOptions configures the shipping queue.
type AsyncOptions struct {
	QueueSize    int
	DrainTimeout time.Duration
	// OnDrop is called for every record the queue discards. It runs on the
	// logging goroutine and must not log.
	OnDrop func(reason string)
}

type queued struct {
	ctx     context.Context
	record  slog.Record
	handler slog.Handler
}

// shipQueue is shared by an AsyncHandler and every handler derived from it.
type shipQueue struct {
	records      chan queued
	drainTimeout time.Duration
	onDrop       func(reason string)
	closed       atomic.Bool
	done         chan struct{}
	closeOnce    sync.Once
}

func newShipQueue(opts AsyncOptions) *shipQueue {
	size := opts.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	timeout := opts.DrainTimeout
	if timeout <= 0 {
		timeout = defaultDrainTimeout
	}

	q := &shipQueue{
		records:      make(chan queued, size),
		drainTimeout: timeout,
		onDrop:       opts.OnDrop,
		done:         make(chan struct{}),
	}
	go q.ship()
	return q
}

func (q *shipQueue) ship() {
	defer close(q.done)
	for rec := range q.records {
		_ = rec.handler.Handle(rec.ctx, rec.record)
	}
}

func (q *shipQueue) push(rec queued) {
	if q.closed.Load() {
		q.drop(DropClosed)
		return
	}
	select {
	case q.records <- rec:
	default:
		q.drop(DropQueueFull)
	}
}

func (q *shipQueue) drop(reason string) {
	if q.onDrop != nil {
		q.onDrop(reason)
	}
}

// drain stops accepting records and waits for the queued ones, bounded by
// ctx or the drain timeout when ctx has no deadline.
func (q *shipQueue) drain(ctx context.Context) error {
	q.closeOnce.Do(func() {
		q.closed.Store(true)
		close(q.records)
	})
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.drainTimeout)
		defer cancel()
	}
	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AsyncHandler ships records to a slow handler from one background goroutine.
// A full queue drops records instead of blocking the caller.
type AsyncHandler struct {
	queue   *shipQueue
	handler slog.Handler
}

// NewAsyncHandler starts the queue for handler.
func NewAsyncHandler(handler slog.Handler, opts AsyncOptions) *AsyncHandler {
	return &AsyncHandler{queue: newShipQueue(opts), handler: handler}
}

func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle queues a clone of r; the record is reused by slog after Handle returns.
func (h *AsyncHandler) Handle(ctx context.Context, r slog.Record) error {
	if !h.handler.Enabled(ctx, r.Level) {
		return nil
	}
	h.queue.push(queued{ctx: context.WithoutCancel(ctx), record: r.Clone(), handler: h.handler})
	return nil
}

func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{queue: h.queue, handler: h.handler.WithAttrs(attrs)}
}

func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{queue: h.queue, handler: h.handler.WithGroup(name)}
}

// Shutdown flushes queued records. Calling it again is a no-op.
func (h *AsyncHandler) Shutdown(ctx context.Context) error {
	if h == nil || h.queue == nil {
		return nil
	}
	return h.queue.drain(ctx)
}
