package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/garyellow/campus-interview-bot/internal/r2client"
)

// maxManifestObjects bounds the object list kept in the manifest.
const maxManifestObjects = 1000

// Manifest summarizes what the archive holds. It lives next to the objects
// and is updated with compare-and-swap writes so instances can share it.
type Manifest struct {
	Objects     []ObjectInfo `json:"objects"`
	Transcripts int          `json:"transcripts"`
	UpdatedAt   int64        `json:"updated_at"`
}

// ObjectInfo describes one uploaded archive object.
type ObjectInfo struct {
	Key         string `json:"key"`
	Transcripts int    `json:"transcripts"`
	CreatedAt   int64  `json:"created_at"`
}

type manifestStore struct {
	client r2client.ConditionalStore
	key    string
}

func (s *manifestStore) load(ctx context.Context) (Manifest, string, bool, error) {
	body, etag, err := s.client.Download(ctx, s.key)
	if err != nil {
		if errors.Is(err, r2client.ErrNotFound) {
			return Manifest{}, "", false, nil
		}
		return Manifest{}, "", false, fmt.Errorf("archive: download manifest: %w", err)
	}
	defer func() { _ = body.Close() }()

	var m Manifest
	if err := json.NewDecoder(body).Decode(&m); err != nil {
		return Manifest{}, "", false, fmt.Errorf("archive: decode manifest: %w", err)
	}
	return m, etag, true, nil
}

// Load returns the current manifest, or an empty one when none exists.
func (s *manifestStore) Load(ctx context.Context) (Manifest, error) {
	m, _, _, err := s.load(ctx)
	return m, err
}

// Add records obj, retrying when another writer got there first.
func (s *manifestStore) Add(ctx context.Context, obj ObjectInfo) error {
	for attempt := range 3 {
		m, etag, exists, err := s.load(ctx)
		if err != nil {
			return err
		}

		m.Objects = append(m.Objects, obj)
		if len(m.Objects) > maxManifestObjects {
			m.Objects = m.Objects[len(m.Objects)-maxManifestObjects:]
		}
		m.Transcripts += obj.Transcripts
		m.UpdatedAt = time.Now().UTC().Unix()

		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("archive: marshal manifest: %w", err)
		}

		var written bool
		if exists {
			written, _, err = s.client.PutObjectIfMatch(ctx, s.key, bytes.NewReader(data), etag, "application/json")
		} else {
			written, _, err = s.client.PutObjectIfNotExists(ctx, s.key, bytes.NewReader(data), "application/json")
		}
		if err != nil {
			return fmt.Errorf("archive: write manifest: %w", err)
		}
		if written {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond * time.Duration(attempt+1)):
		}
	}
	return errors.New("archive: manifest update conflict")
}

