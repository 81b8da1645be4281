package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// setupTestDB creates an in-memory database closed at test cleanup.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNew_FileSystemDatabase(t *testing.T) {
	t.Parallel()
	dbPath := filepath.Join(t.TempDir(), "nested", "test.db")

	ctx := context.Background()
	db, err := New(ctx, dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("Database file not created: %s", dbPath)
	}
	if db.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", db.Path(), dbPath)
	}

	rec := &ConversationRecord{
		ChatID:    "U1",
		SessionID: "s1",
		Data:      []byte(`{"topic":"Main"}`),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := db.SaveConversation(ctx, rec); err != nil {
		t.Fatalf("SaveConversation failed: %v", err)
	}

	// A read through the reader pool sees the writer's commit.
	got, err := db.GetConversation(ctx, "U1")
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if string(got.Data) != `{"topic":"Main"}` {
		t.Errorf("Data = %s", got.Data)
	}
}

func TestNew_Reopen(t *testing.T) {
	t.Parallel()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	db, err := New(ctx, dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	if _, err := db.SaveTranscript(ctx, &TranscriptRecord{
		ChatID: "U1", SessionID: "s1", EndReason: "completed", Entries: []byte("[]"),
		StartedAt: time.Now(), EndedAt: time.Now(),
	}); err != nil {
		t.Fatalf("SaveTranscript failed: %v", err)
	}
	_ = db.Close()

	db, err = New(ctx, dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer func() { _ = db.Close() }()

	total, _, err := db.CountTranscripts(ctx)
	if err != nil {
		t.Fatalf("CountTranscripts failed: %v", err)
	}
	if total != 1 {
		t.Errorf("total = %d, want 1", total)
	}
}

func TestPing(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}
