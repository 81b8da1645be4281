package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/garyellow/campus-interview-bot/internal/config"
	"github.com/garyellow/campus-interview-bot/internal/dialog"
	"github.com/garyellow/campus-interview-bot/internal/session"
)

// startBackgroundJobs runs every periodic job on g. Jobs return when ctx is cancelled.
func (a *Application) startBackgroundJobs(ctx context.Context, g *errgroup.Group) {
	if expirer, ok := a.store.(session.Expirer); ok {
		g.Go(func() error {
			a.every(ctx, "session_cleanup", config.SessionCleanupInterval, func(ctx context.Context) {
				a.cleanupSessions(ctx, expirer)
			})
			return nil
		})
	}
	if a.archiver != nil {
		g.Go(func() error {
			a.logger.Debug("Transcript archive job started")
			defer a.logger.Debug("Transcript archive job stopped")
			a.archiver.Run(ctx, a.cfg.Archive.Interval)
			return nil
		})
	}
	g.Go(func() error {
		a.every(ctx, "stored_metrics", config.MetricsUpdateInterval, a.recordStoredMetrics)
		return nil
	})
}

// every calls fn on a ticker until ctx is cancelled.
func (a *Application) every(ctx context.Context, name string, interval time.Duration, fn func(context.Context)) {
	log := a.logger.WithField("job", name)
	log.Debug("Background job started")
	defer log.Debug("Background job stopped")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// cleanupSessions drops expired conversations from stores without native TTL.
// Conversations that were still running are recorded first.
func (a *Application) cleanupSessions(ctx context.Context, expirer session.Expirer) {
	start := time.Now()
	var expired int
	deleted, err := expirer.DeleteExpired(ctx, func(ctx context.Context, conv *session.Conversation) error {
		if err := a.recorder.Record(ctx, conv); err != nil {
			return fmt.Errorf("record expired conversation: %w", err)
		}
		expired++
		a.metrics.RecordConversationEnded(dialog.EndExpired)
		return nil
	})
	a.metrics.RecordJob("session_cleanup", time.Since(start))
	if err != nil {
		if ctx.Err() == nil {
			a.logger.WithError(err).Error("Session cleanup failed")
		}
		return
	}
	a.logger.WithField("deleted", deleted).
		WithField("recorded", expired).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("Session cleanup completed")
}

func (a *Application) recordStoredMetrics(ctx context.Context) {
	for kind, n := range a.storedCounts(ctx) {
		a.metrics.SetStoredItems(kind, n)
	}
	a.metrics.SetActiveChats(a.limiter.ActiveChats())
}
