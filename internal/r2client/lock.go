package r2client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// ConditionalStore is the object API a DistributedLock needs. *Client implements it.
type ConditionalStore interface {
	Download(ctx context.Context, key string) (io.ReadCloser, string, error)
	PutObjectIfNotExists(ctx context.Context, key string, body io.Reader, contentType string) (bool, string, error)
	PutObjectIfMatch(ctx context.Context, key string, body io.Reader, etag string, contentType string) (bool, string, error)
	DeleteObject(ctx context.Context, key string) error
}

// LockInfo is the body of a lock object.
type LockInfo struct {
	Owner     string    `json:"owner"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DistributedLock is a lease held through conditional writes on one object.
// An expired lease may be taken over by another owner.
type DistributedLock struct {
	store   ConditionalStore
	key     string
	ttl     time.Duration
	ownerID string
	etag    string // ETag of the lock we hold
	now     func() time.Time
}

// NewDistributedLock creates a lock on key with a fresh owner ID.
func NewDistributedLock(store ConditionalStore, key string, ttl time.Duration) *DistributedLock {
	return &DistributedLock{
		store:   store,
		key:     key,
		ttl:     ttl,
		ownerID: uuid.NewString(),
		now:     time.Now,
	}
}

// OwnerID returns the unique identifier of this lock instance.
func (l *DistributedLock) OwnerID() string {
	return l.ownerID
}

func (l *DistributedLock) body() (io.Reader, error) {
	data, err := json.Marshal(LockInfo{Owner: l.ownerID, ExpiresAt: l.now().Add(l.ttl)})
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

// Acquire returns (true, nil) when the lock was taken, (false, nil) when
// another owner holds an unexpired lease.
func (l *DistributedLock) Acquire(ctx context.Context) (bool, error) {
	body, err := l.body()
	if err != nil {
		return false, fmt.Errorf("acquire lock: marshal: %w", err)
	}

	created, etag, err := l.store.PutObjectIfNotExists(ctx, l.key, body, "application/json")
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	if created {
		l.etag = etag
		return true, nil
	}

	expired, oldEtag, err := l.checkExpired(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire lock: check expired: %w", err)
	}
	if !expired {
		return false, nil
	}

	// Deleted between our put and our read: try a fresh create once.
	if oldEtag == "" {
		if body, err = l.body(); err != nil {
			return false, fmt.Errorf("acquire lock: marshal: %w", err)
		}
		created, etag, err = l.store.PutObjectIfNotExists(ctx, l.key, body, "application/json")
		if err != nil {
			return false, fmt.Errorf("acquire lock: %w", err)
		}
		if created {
			l.etag = etag
		}
		return created, nil
	}

	if body, err = l.body(); err != nil {
		return false, fmt.Errorf("acquire lock: marshal: %w", err)
	}
	stolen, newEtag, err := l.store.PutObjectIfMatch(ctx, l.key, body, oldEtag, "application/json")
	if err != nil {
		return false, fmt.Errorf("acquire lock: steal: %w", err)
	}
	if stolen {
		l.etag = newEtag
	}
	return stolen, nil
}

// Renew extends the lease. It returns false when the lock was lost.
func (l *DistributedLock) Renew(ctx context.Context) (bool, error) {
	if l.etag == "" {
		return false, nil
	}
	body, err := l.body()
	if err != nil {
		return false, fmt.Errorf("renew lock: marshal: %w", err)
	}

	updated, newEtag, err := l.store.PutObjectIfMatch(ctx, l.key, body, l.etag, "application/json")
	if err != nil {
		return false, fmt.Errorf("renew lock: %w", err)
	}
	if !updated {
		l.etag = ""
		return false, nil
	}
	l.etag = newEtag
	return true, nil
}

// checkExpired reports whether the current lease is over.
// A missing lock counts as expired with an empty ETag.
func (l *DistributedLock) checkExpired(ctx context.Context) (bool, string, error) {
	body, etag, err := l.store.Download(ctx, l.key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return true, "", nil
		}
		return false, "", err
	}
	defer func() { _ = body.Close() }()

	var info LockInfo
	if err := json.NewDecoder(body).Decode(&info); err != nil {
		// Unreadable lock data is treated as expired.
		return true, etag, nil
	}
	return l.now().After(info.ExpiresAt), etag, nil
}

// Release deletes the lock if this instance still owns it.
func (l *DistributedLock) Release(ctx context.Context) error {
	body, _, err := l.store.Download(ctx, l.key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			l.etag = ""
			return nil
		}
		return fmt.Errorf("release lock: verify: %w", err)
	}

	var info LockInfo
	decodeErr := json.NewDecoder(body).Decode(&info)
	_ = body.Close()
	if decodeErr == nil && info.Owner != l.ownerID {
		return nil
	}

	l.etag = ""
	return l.store.DeleteObject(ctx, l.key)
}
