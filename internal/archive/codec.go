package archive

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/garyellow/campus-interview-bot/internal/storage"
)

// Line is one transcript in an archive object.
type Line struct {
	ID        int64           `json:"id"`
	ChatID    string          `json:"chat_id"`
	UserID    string          `json:"user_id,omitempty"`
	SessionID string          `json:"session_id"`
	EndReason string          `json:"end_reason"`
	Turns     int             `json:"turns"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   time.Time       `json:"ended_at"`
	Entries   json.RawMessage `json:"entries"`
}

func lineFromRecord(rec storage.TranscriptRecord) Line {
	entries := json.RawMessage(rec.Entries)
	if !json.Valid(entries) {
		entries = json.RawMessage("[]")
	}
	return Line{
		ID:        rec.ID,
		ChatID:    rec.ChatID,
		UserID:    rec.UserID,
		SessionID: rec.SessionID,
		EndReason: rec.EndReason,
		Turns:     rec.Turns,
		StartedAt: rec.StartedAt.UTC(),
		EndedAt:   rec.EndedAt.UTC(),
		Entries:   entries,
	}
}

// Encode writes records to w as zstd-compressed JSON Lines.
func Encode(w io.Writer, records []storage.TranscriptRecord) error {
	encoder, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("archive: create encoder: %w", err)
	}

	enc := json.NewEncoder(encoder)
	for _, rec := range records {
		if err := enc.Encode(lineFromRecord(rec)); err != nil {
			_ = encoder.Close()
			return fmt.Errorf("archive: encode transcript %d: %w", rec.ID, err)
		}
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("archive: close encoder: %w", err)
	}
	return nil
}

// Decode reads an object written by Encode.
func Decode(r io.Reader) ([]Line, error) {
	decoder, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("archive: create decoder: %w", err)
	}
	defer decoder.Close()

	var lines []Line
	scanner := bufio.NewScanner(decoder)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var line Line
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			return nil, fmt.Errorf("archive: decode line %d: %w", len(lines)+1, err)
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("archive: read: %w", err)
	}
	return lines, nil
}
