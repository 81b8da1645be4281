package r2client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/smithy-go"
)

func TestConfig_Validation(t *testing.T) {
	t.Parallel()

	valid := Config{
		Endpoint:    "https://account.r2.cloudflarestorage.com",
		AccessKeyID: "access-key",
		SecretKey:   "secret-key",
		BucketName:  "my-bucket",
	}
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing endpoint", func(c *Config) { c.Endpoint = "" }},
		{"missing access key", func(c *Config) { c.AccessKeyID = "" }},
		{"missing secret", func(c *Config) { c.SecretKey = "" }},
		{"missing bucket", func(c *Config) { c.BucketName = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid
			tt.mutate(&cfg)
			if _, err := New(context.Background(), cfg); err == nil {
				t.Error("expected error for incomplete config")
			}
		})
	}
}

func TestMemoryClient_ObjectLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := NewMemory("bucket")

	if _, _, err := c.Download(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Download(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := c.HeadObject(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("HeadObject(missing) error = %v, want ErrNotFound", err)
	}

	etag, err := c.Upload(ctx, "a", strings.NewReader("hello"), "text/plain")
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if etag == "" || strings.Contains(etag, "\"") {
		t.Errorf("etag = %q, want unquoted non-empty", etag)
	}

	body, gotEtag, err := c.Download(ctx, "a")
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	data, _ := io.ReadAll(body)
	_ = body.Close()
	if string(data) != "hello" || gotEtag != etag {
		t.Errorf("Download = %q/%q, want hello/%q", data, gotEtag, etag)
	}

	if err := c.DeleteObject(ctx, "a"); err != nil {
		t.Fatalf("DeleteObject failed: %v", err)
	}
	if _, err := c.HeadObject(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("after delete error = %v, want ErrNotFound", err)
	}
}

func TestMemoryClient_ConditionalWrites(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := NewMemory("bucket")

	created, etag, err := c.PutObjectIfNotExists(ctx, "k", strings.NewReader("1"), "")
	if err != nil || !created {
		t.Fatalf("first PutObjectIfNotExists = %v, %v", created, err)
	}
	created, _, err = c.PutObjectIfNotExists(ctx, "k", strings.NewReader("2"), "")
	if err != nil || created {
		t.Fatalf("second PutObjectIfNotExists = %v, %v; want false, nil", created, err)
	}

	updated, newEtag, err := c.PutObjectIfMatch(ctx, "k", strings.NewReader("3"), etag, "")
	if err != nil || !updated || newEtag == etag {
		t.Fatalf("PutObjectIfMatch(current) = %v, %q, %v", updated, newEtag, err)
	}
	updated, _, err = c.PutObjectIfMatch(ctx, "k", strings.NewReader("4"), etag, "")
	if err != nil || updated {
		t.Fatalf("PutObjectIfMatch(stale) = %v, %v; want false, nil", updated, err)
	}
}

func TestIsPreconditionFailed(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		want bool
	}{
		{&smithy.GenericAPIError{Code: "PreconditionFailed"}, true},
		{fmt.Errorf("wrapped: %w", &smithy.GenericAPIError{Code: "PreconditionFailed"}), true},
		{errors.New("operation error S3: PutObject, PreconditionFailed"), true},
		{&smithy.GenericAPIError{Code: "AccessDenied"}, false},
		{errors.New("boom"), false},
	}
	for _, tt := range tests {
		if got := isPreconditionFailed(tt.err); got != tt.want {
			t.Errorf("isPreconditionFailed(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestDistributedLock_NewGeneratesUniqueID(t *testing.T) {
	t.Parallel()
	c := NewMemory("bucket")
	a := NewDistributedLock(c, "lock", time.Minute)
	b := NewDistributedLock(c, "lock", time.Minute)
	if a.OwnerID() == "" || a.OwnerID() == b.OwnerID() {
		t.Errorf("owner IDs %q and %q should be unique and non-empty", a.OwnerID(), b.OwnerID())
	}
}

func TestDistributedLock_Exclusive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := NewMemory("bucket")
	first := NewDistributedLock(c, "archive/.lock", time.Minute)
	second := NewDistributedLock(c, "archive/.lock", time.Minute)

	if ok, err := first.Acquire(ctx); err != nil || !ok {
		t.Fatalf("first.Acquire = %v, %v", ok, err)
	}
	if ok, err := second.Acquire(ctx); err != nil || ok {
		t.Fatalf("second.Acquire = %v, %v; want false while held", ok, err)
	}
	if ok, err := first.Renew(ctx); err != nil || !ok {
		t.Fatalf("first.Renew = %v, %v", ok, err)
	}

	// Releasing a lock we do not own leaves it in place.
	if err := second.Release(ctx); err != nil {
		t.Fatalf("second.Release failed: %v", err)
	}
	if _, err := c.HeadObject(ctx, "archive/.lock"); err != nil {
		t.Fatalf("lock removed by non-owner: %v", err)
	}

	if err := first.Release(ctx); err != nil {
		t.Fatalf("first.Release failed: %v", err)
	}
	if ok, err := second.Acquire(ctx); err != nil || !ok {
		t.Fatalf("second.Acquire after release = %v, %v", ok, err)
	}
}

func TestDistributedLock_TakesOverExpiredLease(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := NewMemory("bucket")

	stale := LockInfo{Owner: "crashed", ExpiresAt: time.Now().Add(-time.Minute)}
	data, _ := json.Marshal(stale)
	if _, err := c.Upload(ctx, "lock", bytes.NewReader(data), "application/json"); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	l := NewDistributedLock(c, "lock", time.Minute)
	if ok, err := l.Acquire(ctx); err != nil || !ok {
		t.Fatalf("Acquire over expired lease = %v, %v", ok, err)
	}

	// The crashed owner cannot renew with its old view.
	if ok, err := NewDistributedLock(c, "lock", time.Minute).Renew(ctx); err != nil || ok {
		t.Errorf("Renew without holding = %v, %v; want false", ok, err)
	}
}

func TestDistributedLock_CorruptLockIsExpired(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := NewMemory("bucket")
	if _, err := c.Upload(ctx, "lock", strings.NewReader("{not json"), ""); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	l := NewDistributedLock(c, "lock", time.Minute)
	if ok, err := l.Acquire(ctx); err != nil || !ok {
		t.Fatalf("Acquire over corrupt lock = %v, %v", ok, err)
	}
}
