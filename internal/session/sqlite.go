package session

import (
	"context"
	"fmt"
	"time"

	domerrors "github.com/garyellow/campus-interview-bot/internal/errors"
	"github.com/garyellow/campus-interview-bot/internal/metrics"
	"github.com/garyellow/campus-interview-bot/internal/storage"
)

// SQLiteStore keeps conversations in the storage conversations table.
// The underlying database is owned by the caller; Close does not close it.
type SQLiteStore struct {
	db      *storage.DB
	ttl     time.Duration
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewSQLiteStore wraps db. m may be nil.
func NewSQLiteStore(db *storage.DB, ttl time.Duration, m *metrics.Metrics) *SQLiteStore {
	return &SQLiteStore{db: db, ttl: ttl, metrics: m, now: time.Now}
}

func (s *SQLiteStore) Load(ctx context.Context, chatID string) (conv *Conversation, err error) {
	defer func(start time.Time) { observe(s.metrics, StoreSQLite, "load", start, err) }(time.Now())

	rec, err := s.db.GetConversation(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return decode(rec.Data)
}

func (s *SQLiteStore) Save(ctx context.Context, conv *Conversation) (err error) {
	defer func(start time.Time) { observe(s.metrics, StoreSQLite, "save", start, err) }(time.Now())

	if conv == nil || conv.ChatID == "" {
		return fmt.Errorf("save conversation: %w", domerrors.ErrInvalidInput)
	}
	conv.ExpiresAt = s.now().Add(s.ttl)
	data, err := encode(conv)
	if err != nil {
		return err
	}
	return s.db.SaveConversation(ctx, &storage.ConversationRecord{
		ChatID:    conv.ChatID,
		UserID:    conv.UserID,
		SessionID: conv.SessionID,
		Data:      data,
		ExpiresAt: conv.ExpiresAt,
	})
}

func (s *SQLiteStore) Delete(ctx context.Context, chatID string) (err error) {
	defer func(start time.Time) { observe(s.metrics, StoreSQLite, "delete", start, err) }(time.Now())
	return s.db.DeleteConversation(ctx, chatID)
}

// DeleteExpired removes conversations past their TTL. When onExpire fails
// nothing is deleted, so the next pass retries.
func (s *SQLiteStore) DeleteExpired(ctx context.Context, onExpire func(context.Context, *Conversation) error) (int64, error) {
	cutoff := s.now()
	if onExpire != nil {
		recs, err := s.db.GetExpiredConversations(ctx, cutoff)
		if err != nil {
			return 0, err
		}
		for _, rec := range recs {
			conv, err := decode(rec.Data)
			if err != nil || !conv.State.Started() || conv.State.Done() {
				continue
			}
			conv.State.Expire()
			if err := onExpire(ctx, conv); err != nil {
				return 0, fmt.Errorf("chat %s: %w", rec.ChatID, err)
			}
		}
	}
	return s.db.DeleteConversationsExpiredBy(ctx, cutoff)
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *SQLiteStore) Close() error {
	return nil
}
