package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/campus-interview-bot/internal/dialog"
	domerrors "github.com/garyellow/campus-interview-bot/internal/errors"
	"github.com/garyellow/campus-interview-bot/internal/metrics"
	"github.com/garyellow/campus-interview-bot/internal/storage"
)

func newTestDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLiteStore(t *testing.T) {
	t.Parallel()
	testStoreContract(t, NewSQLiteStore(newTestDB(t), time.Hour, nil))
}

func TestSQLiteStore_TTL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewSQLiteStore(newTestDB(t), time.Hour, nil)

	store.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	require.NoError(t, store.Save(ctx, sampleConversation("old")))
	store.now = time.Now
	require.NoError(t, store.Save(ctx, sampleConversation("new")))

	_, err := store.Load(ctx, "old")
	require.ErrorIs(t, err, domerrors.ErrNotFound)

	n, err := store.DeleteExpired(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = store.Load(ctx, "new")
	require.NoError(t, err)
}

func TestSQLiteStore_DeleteExpiredHandsOverRunningConversations(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewSQLiteStore(newTestDB(t), time.Hour, nil)

	finished := sampleConversation("finished")
	finished.State.Phase = dialog.PhaseDone
	finished.State.EndReason = dialog.EndConfirmed

	store.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	require.NoError(t, store.Save(ctx, sampleConversation("running")))
	require.NoError(t, store.Save(ctx, finished))
	store.now = time.Now
	require.NoError(t, store.Save(ctx, sampleConversation("live")))

	var got []*Conversation
	n, err := store.DeleteExpired(ctx, func(_ context.Context, conv *Conversation) error {
		got = append(got, conv)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.Len(t, got, 1)
	assert.Equal(t, "running", got[0].ChatID)
	assert.True(t, got[0].State.Done())
	assert.Equal(t, dialog.EndExpired, got[0].State.EndReason)
	assert.Len(t, got[0].Transcript, 2)
}

func TestSQLiteStore_DeleteExpiredKeepsRowsWhenHandoverFails(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewSQLiteStore(newTestDB(t), time.Hour, nil)

	store.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	require.NoError(t, store.Save(ctx, sampleConversation("running")))
	store.now = time.Now

	_, err := store.DeleteExpired(ctx, func(context.Context, *Conversation) error {
		return errors.New("disk full")
	})
	require.Error(t, err)

	var calls int
	n, err := store.DeleteExpired(ctx, func(context.Context, *Conversation) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1, calls)
}

func TestSQLiteStore_Metrics(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := metrics.New(prometheus.NewRegistry())
	store := NewSQLiteStore(newTestDB(t), time.Hour, m)

	_, _ = store.Load(ctx, "missing")
	require.NoError(t, store.Save(ctx, sampleConversation("C1")))

	assert.InDelta(t, 1, testutil.ToFloat64(m.SessionOpsTotal.WithLabelValues(StoreSQLite, "load", "not_found")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.SessionOpsTotal.WithLabelValues(StoreSQLite, "save", "ok")), 0)
}

func TestRecorder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	rec := NewRecorder(db, db)

	_, err := rec.Profile(ctx, "U-C1")
	require.ErrorIs(t, err, domerrors.ErrNotFound)

	conv := sampleConversation("C1")
	conv.State.EndReason = "confirmed"
	require.NoError(t, rec.Record(ctx, conv))
	// A second record of the same session keeps one transcript.
	require.NoError(t, rec.Record(ctx, conv))

	total, unarchived, err := db.CountTranscripts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, unarchived)

	pending, err := db.GetUnarchivedTranscripts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "confirmed", pending[0].EndReason)
	assert.Equal(t, 3, pending[0].Turns)
	assert.Contains(t, string(pending[0].Entries), "I take Databases")

	p, err := rec.Profile(ctx, "U-C1")
	require.NoError(t, err)
	assert.Equal(t, "Sam", p.Name)
	assert.Equal(t, []string{"Databases"}, p.ModulesTaken)
}

func TestRecorder_AnonymousChat(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	rec := NewRecorder(db, db)

	conv := sampleConversation("G1")
	conv.UserID = ""
	require.NoError(t, rec.Record(ctx, conv))

	total, _, err := db.CountTranscripts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}
