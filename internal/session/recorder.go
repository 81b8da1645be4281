package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/garyellow/campus-interview-bot/internal/dialog"
	"github.com/garyellow/campus-interview-bot/internal/storage"
)

// Recorder copies finished conversations into the profile and transcript tables.
type Recorder struct {
	profiles    storage.ProfileRepository
	transcripts storage.TranscriptRepository
}

// NewRecorder usually receives the same *storage.DB for both repositories.
func NewRecorder(profiles storage.ProfileRepository, transcripts storage.TranscriptRepository) *Recorder {
	return &Recorder{profiles: profiles, transcripts: transcripts}
}

// Record stores the transcript of conv and, when the user is known, its profile.
// Recording the same session twice stores one transcript.
func (r *Recorder) Record(ctx context.Context, conv *Conversation) error {
	entries, err := json.Marshal(conv.Transcript)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}

	endedAt := conv.State.UpdatedAt
	if endedAt.IsZero() {
		endedAt = time.Now()
	}
	startedAt := conv.State.StartedAt
	if startedAt.IsZero() {
		startedAt = endedAt
	}

	var errs []error
	if _, err := r.transcripts.SaveTranscript(ctx, &storage.TranscriptRecord{
		ChatID:    conv.ChatID,
		UserID:    conv.UserID,
		SessionID: conv.SessionID,
		EndReason: conv.State.EndReason,
		Turns:     conv.State.Turns,
		Entries:   entries,
		StartedAt: startedAt,
		EndedAt:   endedAt,
	}); err != nil {
		errs = append(errs, err)
	}

	if conv.UserID != "" {
		p := conv.State.Profile
		if err := r.profiles.SaveProfile(ctx, &storage.ProfileRecord{
			UserID:          conv.UserID,
			Name:            p.Name,
			Module:          p.Module,
			Lecturer:        p.Lecturer,
			Opinion:         p.Opinion,
			Emotion:         p.Emotion,
			NumberOfModules: p.NumberOfModules,
			Extracurricular: p.Extracurricular,
			Stage:           p.Stage,
			ModulesTaken:    p.ModulesTaken,
		}); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Profile returns the last recorded profile of userID as dialog options.
// It returns ErrNotFound for users who never finished a conversation.
func (r *Recorder) Profile(ctx context.Context, userID string) (*dialog.Profile, error) {
	rec, err := r.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &dialog.Profile{
		Name:            rec.Name,
		Module:          rec.Module,
		Lecturer:        rec.Lecturer,
		Opinion:         rec.Opinion,
		Emotion:         rec.Emotion,
		NumberOfModules: rec.NumberOfModules,
		Extracurricular: rec.Extracurricular,
		Stage:           rec.Stage,
		ModulesTaken:    rec.ModulesTaken,
	}, nil
}
