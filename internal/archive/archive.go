// Package archive moves finished transcripts from SQLite into compressed
// JSON Lines objects in S3-compatible storage.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/garyellow/campus-interview-bot/internal/logger"
	"github.com/garyellow/campus-interview-bot/internal/metrics"
	"github.com/garyellow/campus-interview-bot/internal/r2client"
	"github.com/garyellow/campus-interview-bot/internal/storage"
)

const (
	contentType      = "application/zstd"
	defaultBatch     = 500
	defaultRetention = 7 * 24 * time.Hour
	defaultLockTTL   = 5 * time.Minute
	// maxBatchesPerRun keeps one run from holding the lock indefinitely.
	maxBatchesPerRun = 20
)

// Config tunes an Archiver. Zero values select defaults.
type Config struct {
	Prefix     string
	BatchLimit int
	// Retention is how long archived rows stay in SQLite.
	Retention time.Duration
	LockTTL   time.Duration
	Metrics   *metrics.Metrics
	Logger    *logger.Logger
}

// Result reports one archive run.
type Result struct {
	Objects     int
	Transcripts int
	Purged      int64
	// Skipped is true when another instance held the lock.
	Skipped bool
}

// Archiver uploads unarchived transcripts in batches.
type Archiver struct {
	repo     storage.TranscriptRepository
	store    r2client.ConditionalStore
	lock     *r2client.DistributedLock
	manifest *manifestStore
	cfg      Config
	log      *logger.Logger
	now      func() time.Time
}

// New creates an archiver writing under cfg.Prefix in store.
func New(repo storage.TranscriptRepository, store r2client.ConditionalStore, cfg Config) *Archiver {
	if cfg.Prefix == "" {
		cfg.Prefix = "transcripts"
	}
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = defaultBatch
	}
	if cfg.Retention <= 0 {
		cfg.Retention = defaultRetention
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultLockTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewWithWriter("error", io.Discard)
	}
	return &Archiver{
		repo:     repo,
		store:    store,
		lock:     r2client.NewDistributedLock(store, path.Join(cfg.Prefix, ".lock"), cfg.LockTTL),
		manifest: &manifestStore{client: store, key: path.Join(cfg.Prefix, "manifest.json")},
		cfg:      cfg,
		log:      cfg.Logger.WithModule("archive"),
		now:      time.Now,
	}
}

// Manifest returns the shared archive manifest.
func (a *Archiver) Manifest(ctx context.Context) (Manifest, error) {
	return a.manifest.Load(ctx)
}

// RunOnce archives pending transcripts and purges old archived rows.
func (a *Archiver) RunOnce(ctx context.Context) (Result, error) {
	var res Result

	acquired, err := a.lock.Acquire(ctx)
	if err != nil {
		return res, fmt.Errorf("archive: acquire lock: %w", err)
	}
	if !acquired {
		a.log.DebugContext(ctx, "Archive lock held elsewhere, skipping run")
		res.Skipped = true
		return res, nil
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := a.lock.Release(releaseCtx); err != nil {
			a.log.WithError(err).WarnContext(ctx, "Failed to release archive lock")
		}
	}()

	for range maxBatchesPerRun {
		n, err := a.archiveBatch(ctx)
		if err != nil {
			return res, err
		}
		if n == 0 {
			break
		}
		res.Objects++
		res.Transcripts += n
		if n < a.cfg.BatchLimit {
			break
		}
		if ok, err := a.lock.Renew(ctx); err != nil || !ok {
			a.log.WarnContext(ctx, "Lost archive lock, stopping run", "error", err)
			break
		}
	}

	purged, err := a.repo.DeleteArchivedTranscripts(ctx, a.cfg.Retention)
	if err != nil {
		return res, err
	}
	res.Purged = purged

	if res.Objects > 0 || purged > 0 {
		a.log.InfoContext(ctx, "Archive run complete",
			"objects", res.Objects, "transcripts", res.Transcripts, "purged", purged)
	}
	return res, nil
}

// archiveBatch uploads one batch and returns how many transcripts it held.
func (a *Archiver) archiveBatch(ctx context.Context) (int, error) {
	records, err := a.repo.GetUnarchivedTranscripts(ctx, a.cfg.BatchLimit)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	if err := Encode(&buf, records); err != nil {
		a.cfg.Metrics.RecordArchiveUpload("error", 0)
		return 0, err
	}

	now := a.now().UTC()
	key := a.objectKey(now)
	created, _, err := a.store.PutObjectIfNotExists(ctx, key, bytes.NewReader(buf.Bytes()), contentType)
	if err != nil {
		a.cfg.Metrics.RecordArchiveUpload("error", 0)
		return 0, fmt.Errorf("archive: upload %s: %w", key, err)
	}
	if !created {
		a.cfg.Metrics.RecordArchiveUpload("error", 0)
		return 0, fmt.Errorf("archive: object %s already exists", key)
	}

	ids := make([]int64, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}
	// If marking fails the rows are uploaded again on the next run; readers
	// deduplicate by session_id.
	if err := a.repo.MarkTranscriptsArchived(ctx, ids, key); err != nil {
		a.cfg.Metrics.RecordArchiveUpload("error", 0)
		return 0, err
	}
	a.cfg.Metrics.RecordArchiveUpload("success", len(records))

	if err := a.manifest.Add(ctx, ObjectInfo{Key: key, Transcripts: len(records), CreatedAt: now.Unix()}); err != nil {
		a.log.WithError(err).WarnContext(ctx, "Failed to update archive manifest", "key", key)
	}
	return len(records), nil
}

func (a *Archiver) objectKey(now time.Time) string {
	return path.Join(a.cfg.Prefix, now.Format("2006/01/02"),
		now.Format("150405")+"-"+uuid.NewString()+".jsonl.zst")
}

// Run archives every interval until ctx is cancelled.
func (a *Archiver) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			if _, err := a.RunOnce(ctx); err != nil && ctx.Err() == nil {
				a.log.WithError(err).ErrorContext(ctx, "Archive run failed")
			}
			a.cfg.Metrics.RecordJob("archive", time.Since(start))
		}
	}
}
