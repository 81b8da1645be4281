package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	domerrors "github.com/garyellow/campus-interview-bot/internal/errors"
)

// GetConversation returns the conversation for chatID.
// Missing or expired conversations return ErrNotFound.
func (db *DB) GetConversation(ctx context.Context, chatID string) (*ConversationRecord, error) {
	start := time.Now()
	defer warnSlow(ctx, "get_conversation", start)

	query := `SELECT chat_id, user_id, session_id, data, expires_at, updated_at
		FROM conversations WHERE chat_id = ? AND expires_at > ?`

	var rec ConversationRecord
	var data string
	var expiresAt, updatedAt int64
	err := db.reader.QueryRowContext(ctx, query, chatID, db.now().Unix()).Scan(
		&rec.ChatID, &rec.UserID, &rec.SessionID, &data, &expiresAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domerrors.ErrNotFound
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to get conversation", "chat_id", chatID, "error", err)
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	rec.Data = []byte(data)
	rec.ExpiresAt = time.Unix(expiresAt, 0)
	rec.UpdatedAt = time.Unix(updatedAt, 0)
	return &rec, nil
}

// SaveConversation inserts or replaces a conversation.
func (db *DB) SaveConversation(ctx context.Context, rec *ConversationRecord) error {
	if rec == nil || rec.ChatID == "" {
		return fmt.Errorf("save conversation: %w", domerrors.ErrInvalidInput)
	}
	start := time.Now()
	defer warnSlow(ctx, "save_conversation", start)

	query := `
		INSERT INTO conversations (chat_id, user_id, session_id, data, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			user_id = excluded.user_id,
			session_id = excluded.session_id,
			data = excluded.data,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`
	_, err := db.writer.ExecContext(ctx, query,
		rec.ChatID, rec.UserID, rec.SessionID, string(rec.Data),
		rec.ExpiresAt.Unix(), db.now().Unix(),
	)
	if err != nil {
		slog.ErrorContext(ctx, "failed to save conversation", "chat_id", rec.ChatID, "error", err)
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

// DeleteConversation removes a conversation. Deleting a missing one is not an error.
func (db *DB) DeleteConversation(ctx context.Context, chatID string) error {
	if _, err := db.writer.ExecContext(ctx, `DELETE FROM conversations WHERE chat_id = ?`, chatID); err != nil {
		slog.ErrorContext(ctx, "failed to delete conversation", "chat_id", chatID, "error", err)
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}

// DeleteExpiredConversations removes conversations past their expiry.
func (db *DB) DeleteExpiredConversations(ctx context.Context) (int64, error) {
	return db.DeleteConversationsExpiredBy(ctx, db.now())
}

// DeleteConversationsExpiredBy removes conversations whose expiry is at or before cutoff.
func (db *DB) DeleteConversationsExpiredBy(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := db.writer.ExecContext(ctx, `DELETE FROM conversations WHERE expires_at <= ?`, cutoff.Unix())
	if err != nil {
		slog.ErrorContext(ctx, "failed to delete expired conversations", "error", err)
		return 0, fmt.Errorf("failed to delete expired conversations: %w", err)
	}
	return result.RowsAffected()
}

// GetExpiredConversations returns the conversations whose expiry is at or before cutoff,
// oldest first.
func (db *DB) GetExpiredConversations(ctx context.Context, cutoff time.Time) ([]ConversationRecord, error) {
	start := time.Now()
	defer warnSlow(ctx, "get_expired_conversations", start)

	rows, err := db.reader.QueryContext(ctx, `SELECT chat_id, user_id, session_id, data, expires_at, updated_at
		FROM conversations WHERE expires_at <= ? ORDER BY expires_at`, cutoff.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query expired conversations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []ConversationRecord
	for rows.Next() {
		var rec ConversationRecord
		var data string
		var expiresAt, updatedAt int64
		if err := rows.Scan(&rec.ChatID, &rec.UserID, &rec.SessionID, &data, &expiresAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan expired conversation: %w", err)
		}
		rec.Data = []byte(data)
		rec.ExpiresAt = time.Unix(expiresAt, 0)
		rec.UpdatedAt = time.Unix(updatedAt, 0)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expired conversations: %w", err)
	}
	return out, nil
}

// CountConversations returns the number of unexpired conversations.
func (db *DB) CountConversations(ctx context.Context) (int, error) {
	var count int
	err := db.reader.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM conversations WHERE expires_at > ?`, db.now().Unix(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count conversations: %w", err)
	}
	return count, nil
}

// GetProfile returns the stored profile for userID, or ErrNotFound.
func (db *DB) GetProfile(ctx context.Context, userID string) (*ProfileRecord, error) {
	query := `SELECT user_id, name, module, lecturer, opinion, emotion, number_of_modules,
		extracurricular, stage, modules_taken, conversations, updated_at
		FROM profiles WHERE user_id = ?`

	var rec ProfileRecord
	var name, module, lecturer, opinion, emotion, count, extra, stage, taken sql.NullString
	var updatedAt int64
	err := db.reader.QueryRowContext(ctx, query, userID).Scan(
		&rec.UserID, &name, &module, &lecturer, &opinion, &emotion, &count,
		&extra, &stage, &taken, &rec.Conversations, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domerrors.ErrNotFound
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to get profile", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	rec.Name = name.String
	rec.Module = module.String
	rec.Lecturer = lecturer.String
	rec.Opinion = opinion.String
	rec.Emotion = emotion.String
	rec.NumberOfModules = count.String
	rec.Extracurricular = extra.String
	rec.Stage = stage.String
	rec.UpdatedAt = time.Unix(updatedAt, 0)
	if taken.Valid && taken.String != "" {
		if err := json.Unmarshal([]byte(taken.String), &rec.ModulesTaken); err != nil {
			slog.WarnContext(ctx, "failed to decode modules_taken", "user_id", userID, "error", err)
		}
	}
	return &rec, nil
}

// SaveProfile upserts a profile and increments its conversation counter.
func (db *DB) SaveProfile(ctx context.Context, rec *ProfileRecord) error {
	if rec == nil || rec.UserID == "" {
		return fmt.Errorf("save profile: %w", domerrors.ErrInvalidInput)
	}
	taken, err := json.Marshal(rec.ModulesTaken)
	if err != nil {
		return fmt.Errorf("failed to encode modules_taken: %w", err)
	}

	query := `
		INSERT INTO profiles (user_id, name, module, lecturer, opinion, emotion, number_of_modules,
			extracurricular, stage, modules_taken, conversations, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			name = excluded.name,
			module = excluded.module,
			lecturer = excluded.lecturer,
			opinion = excluded.opinion,
			emotion = excluded.emotion,
			number_of_modules = excluded.number_of_modules,
			extracurricular = excluded.extracurricular,
			stage = excluded.stage,
			modules_taken = excluded.modules_taken,
			conversations = profiles.conversations + 1,
			updated_at = excluded.updated_at
	`
	_, err = db.writer.ExecContext(ctx, query,
		rec.UserID, rec.Name, rec.Module, rec.Lecturer, rec.Opinion, rec.Emotion,
		rec.NumberOfModules, rec.Extracurricular, rec.Stage, string(taken), db.now().Unix(),
	)
	if err != nil {
		slog.ErrorContext(ctx, "failed to save profile", "user_id", rec.UserID, "error", err)
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// SaveTranscript stores a finished conversation and returns its row ID.
// Saving the same session twice keeps the first copy and returns 0.
func (db *DB) SaveTranscript(ctx context.Context, rec *TranscriptRecord) (int64, error) {
	if rec == nil || rec.SessionID == "" {
		return 0, fmt.Errorf("save transcript: %w", domerrors.ErrInvalidInput)
	}
	query := `
		INSERT INTO transcripts (chat_id, user_id, session_id, end_reason, turns, entries, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO NOTHING
	`
	result, err := db.writer.ExecContext(ctx, query,
		rec.ChatID, rec.UserID, rec.SessionID, rec.EndReason, rec.Turns, string(rec.Entries),
		rec.StartedAt.Unix(), rec.EndedAt.Unix(),
	)
	if err != nil {
		slog.ErrorContext(ctx, "failed to save transcript", "session_id", rec.SessionID, "error", err)
		return 0, fmt.Errorf("failed to save transcript: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return 0, nil
	}
	return result.LastInsertId()
}

// GetUnarchivedTranscripts returns up to limit transcripts not yet archived, oldest first.
func (db *DB) GetUnarchivedTranscripts(ctx context.Context, limit int) ([]TranscriptRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	start := time.Now()
	defer warnSlow(ctx, "get_unarchived_transcripts", start, "limit", limit)

	rows, err := db.reader.QueryContext(ctx, `
		SELECT id, chat_id, user_id, session_id, end_reason, turns, entries, started_at, ended_at
		FROM transcripts WHERE archived_at IS NULL ORDER BY id LIMIT ?`, limit)
	if err != nil {
		slog.ErrorContext(ctx, "failed to query unarchived transcripts", "error", err)
		return nil, fmt.Errorf("failed to query transcripts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []TranscriptRecord
	for rows.Next() {
		var rec TranscriptRecord
		var entries string
		var startedAt, endedAt int64
		if err := rows.Scan(&rec.ID, &rec.ChatID, &rec.UserID, &rec.SessionID, &rec.EndReason,
			&rec.Turns, &entries, &startedAt, &endedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transcript: %w", err)
		}
		rec.Entries = []byte(entries)
		rec.StartedAt = time.Unix(startedAt, 0)
		rec.EndedAt = time.Unix(endedAt, 0)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transcripts: %w", err)
	}
	return records, nil
}

// MarkTranscriptsArchived records the object key that now holds ids.
func (db *DB) MarkTranscriptsArchived(ctx context.Context, ids []int64, objectKey string) error {
	if len(ids) == 0 {
		return nil
	}
	now := db.now().Unix()
	err := db.ExecBatchContext(ctx,
		`UPDATE transcripts SET archived_at = ?, object_key = ? WHERE id = ?`,
		func(stmt *sql.Stmt) error {
			for _, id := range ids {
				if _, err := stmt.ExecContext(ctx, now, objectKey, id); err != nil {
					return fmt.Errorf("failed to mark transcript %d: %w", id, err)
				}
			}
			return nil
		})
	if err != nil {
		slog.ErrorContext(ctx, "failed to mark transcripts archived",
			"count", len(ids), "object_key", objectKey, "error", err)
	}
	return err
}

// DeleteArchivedTranscripts removes transcripts archived more than olderThan ago.
func (db *DB) DeleteArchivedTranscripts(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := db.now().Add(-olderThan).Unix()
	result, err := db.writer.ExecContext(ctx,
		`DELETE FROM transcripts WHERE archived_at IS NOT NULL AND archived_at <= ?`, cutoff)
	if err != nil {
		slog.ErrorContext(ctx, "failed to delete archived transcripts", "error", err)
		return 0, fmt.Errorf("failed to delete archived transcripts: %w", err)
	}
	return result.RowsAffected()
}

// CountTranscripts returns the total and unarchived transcript counts.
func (db *DB) CountTranscripts(ctx context.Context) (total, unarchived int, err error) {
	err = db.reader.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) - COUNT(archived_at) FROM transcripts`,
	).Scan(&total, &unarchived)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count transcripts: %w", err)
	}
	return total, unarchived, nil
}
