package storage

import "time"

// ConversationRecord is the stored form of a running conversation.
// Data is opaque to this package.
type ConversationRecord struct {
	ChatID    string
	UserID    string
	SessionID string
	Data      []byte
	ExpiresAt time.Time
	UpdatedAt time.Time
}

// ProfileRecord is the last known profile of a user.
type ProfileRecord struct {
	UserID          string
	Name            string
	Module          string
	Lecturer        string
	Opinion         string
	Emotion         string
	NumberOfModules string
	Extracurricular string
	Stage           string
	ModulesTaken    []string
	// Conversations counts finished conversations.
	Conversations int
	UpdatedAt     time.Time
}

// TranscriptRecord is a finished conversation waiting to be archived.
// Entries holds the JSON-encoded transcript.
type TranscriptRecord struct {
	ID         int64
	ChatID     string
	UserID     string
	SessionID  string
	EndReason  string
	Turns      int
	Entries    []byte
	StartedAt  time.Time
	EndedAt    time.Time
	ArchivedAt time.Time
	ObjectKey  string
}
