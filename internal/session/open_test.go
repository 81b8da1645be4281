package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/campus-interview-bot/internal/config"
)

func TestOpen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("sqlite", func(t *testing.T) {
		t.Parallel()
		store, err := Open(ctx, config.SessionConfig{Store: StoreSQLite, TTL: time.Hour}, newTestDB(t), nil)
		require.NoError(t, err)
		assert.IsType(t, &SQLiteStore{}, store)
	})

	t.Run("sqlite without database", func(t *testing.T) {
		t.Parallel()
		_, err := Open(ctx, config.SessionConfig{Store: StoreSQLite, TTL: time.Hour}, nil, nil)
		require.Error(t, err)
	})

	t.Run("redis", func(t *testing.T) {
		t.Parallel()
		mr := miniredis.RunT(t)
		store, err := Open(ctx, config.SessionConfig{Store: StoreRedis, TTL: time.Hour, RedisAddr: mr.Addr()}, nil, nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		assert.IsType(t, &RedisStore{}, store)
	})

	t.Run("unknown", func(t *testing.T) {
		t.Parallel()
		_, err := Open(ctx, config.SessionConfig{Store: "memcached"}, nil, nil)
		require.ErrorContains(t, err, "memcached")
	})
}
