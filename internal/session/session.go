// Package session persists conversations between webhook events.
//
// A Conversation bundles the dialog state with a bounded transcript.
// Stores hold one Conversation per chat and forget it after a TTL.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garyellow/campus-interview-bot/internal/dialog"
)

// Role identifies who wrote a transcript entry.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Entry is one line of a transcript.
type Entry struct {
	Role Role      `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Conversation is the stored unit: dialog state plus transcript.
type Conversation struct {
	ChatID     string       `json:"chat_id"`
	UserID     string       `json:"user_id,omitempty"`
	SessionID  string       `json:"session_id"`
	State      dialog.State `json:"state"`
	Transcript []Entry      `json:"transcript,omitempty"`
	ExpiresAt  time.Time    `json:"expires_at"`
}

// NewConversation returns an empty conversation with a fresh session ID.
func NewConversation(chatID, userID string) *Conversation {
	return &Conversation{
		ChatID:    chatID,
		UserID:    userID,
		SessionID: uuid.NewString(),
	}
}

// Append adds entries and drops the oldest ones beyond limit.
// A limit of zero or less keeps everything.
func (c *Conversation) Append(limit int, entries ...Entry) {
	c.Transcript = append(c.Transcript, entries...)
	if limit > 0 && len(c.Transcript) > limit {
		c.Transcript = append([]Entry(nil), c.Transcript[len(c.Transcript)-limit:]...)
	}
}

// Renew starts a new session on the same chat.
// The dialog state is kept so the engine can carry the profile over.
func (c *Conversation) Renew() {
	c.SessionID = uuid.NewString()
	c.Transcript = nil
}

// Store persists conversations keyed by chat ID.
type Store interface {
	// Load returns ErrNotFound when the chat has no live conversation.
	Load(ctx context.Context, chatID string) (*Conversation, error)
	// Save writes conv and extends its expiry.
	Save(ctx context.Context, conv *Conversation) error
	Delete(ctx context.Context, chatID string) error
	Ping(ctx context.Context) error
	Close() error
}

// Expirer is implemented by stores that need an explicit cleanup pass.
// DeleteExpired passes every expired conversation that was still running to
// onExpire, ended with reason expired, before removing it. onExpire may be nil.
type Expirer interface {
	DeleteExpired(ctx context.Context, onExpire func(context.Context, *Conversation) error) (int64, error)
}

func encode(conv *Conversation) ([]byte, error) {
	data, err := json.Marshal(conv)
	if err != nil {
		return nil, fmt.Errorf("encode conversation: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*Conversation, error) {
	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("decode conversation: %w", err)
	}
	return &conv, nil
}
