package storage

import (
	"context"
	"time"
)

// ConversationRepository stores running conversations.
type ConversationRepository interface {
	GetConversation(ctx context.Context, chatID string) (*ConversationRecord, error)
	SaveConversation(ctx context.Context, rec *ConversationRecord) error
	DeleteConversation(ctx context.Context, chatID string) error
	DeleteExpiredConversations(ctx context.Context) (int64, error)
	GetExpiredConversations(ctx context.Context, cutoff time.Time) ([]ConversationRecord, error)
	DeleteConversationsExpiredBy(ctx context.Context, cutoff time.Time) (int64, error)
	CountConversations(ctx context.Context) (int, error)
}

// ProfileRepository stores user profiles.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID string) (*ProfileRecord, error)
	SaveProfile(ctx context.Context, rec *ProfileRecord) error
}

// TranscriptRepository stores finished transcripts until they are archived.
type TranscriptRepository interface {
	SaveTranscript(ctx context.Context, rec *TranscriptRecord) (int64, error)
	GetUnarchivedTranscripts(ctx context.Context, limit int) ([]TranscriptRecord, error)
	MarkTranscriptsArchived(ctx context.Context, ids []int64, objectKey string) error
	DeleteArchivedTranscripts(ctx context.Context, olderThan time.Duration) (int64, error)
	CountTranscripts(ctx context.Context) (total, unarchived int, err error)
}

var (
	_ ConversationRepository = (*DB)(nil)
	_ ProfileRepository      = (*DB)(nil)
	_ TranscriptRepository   = (*DB)(nil)
)
