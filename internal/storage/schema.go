package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// InitSchema creates all tables and indexes.
func InitSchema(ctx context.Context, db *sql.DB) error {
	for _, create := range []func(context.Context, *sql.DB) error{
		createConversationsTable,
		createProfilesTable,
		createTranscriptsTable,
	} {
		if err := create(ctx, db); err != nil {
			return err
		}
	}
	return nil
}

func createConversationsTable(ctx context.Context, db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS conversations (
		chat_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL DEFAULT '',
		session_id TEXT NOT NULL,
		data TEXT NOT NULL,
		expires_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_expires_at ON conversations(expires_at);
	`
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create conversations table: %w", err)
	}
	return nil
}

func createProfilesTable(ctx context.Context, db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS profiles (
		user_id TEXT PRIMARY KEY,
		name TEXT,
		module TEXT,
		lecturer TEXT,
		opinion TEXT,
		emotion TEXT,
		number_of_modules TEXT,
		extracurricular TEXT,
		stage TEXT,
		modules_taken TEXT,
		conversations INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create profiles table: %w", err)
	}
	return nil
}

func createTranscriptsTable(ctx context.Context, db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS transcripts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		chat_id TEXT NOT NULL,
		user_id TEXT NOT NULL DEFAULT '',
		session_id TEXT NOT NULL,
		end_reason TEXT NOT NULL,
		turns INTEGER NOT NULL DEFAULT 0,
		entries TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		ended_at INTEGER NOT NULL,
		archived_at INTEGER,
		object_key TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_transcripts_archived_at ON transcripts(archived_at);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_transcripts_session ON transcripts(session_id);
	`
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create transcripts table: %w", err)
	}
	return nil
}
