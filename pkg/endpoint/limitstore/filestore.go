package limitstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	lockRetries  = 20
	lockInterval = 5 * time.Millisecond
	lockStaleAge = 2 * time.Second
)

type counterRecord struct {
	Count       int   `json:"count"`
	WindowStart int64 `json:"windowStart"`
}

// FileStore keeps one counter record per key hash under a directory,
// guarded by an exclusive-create lock file. Lock acquisition is
// bounded; exhausting the retries surfaces as an error the caller
// fails open on.
type FileStore struct {
	dir string
	now func() time.Time
}

// FileStoreOption adjusts a FileStore.
type FileStoreOption func(*FileStore)

// WithClock injects the time source, for tests exercising window
// expiry.
func WithClock(now func() time.Time) FileStoreOption {
	return func(s *FileStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewFileStore creates a store rooted at dir.
func NewFileStore(dir string, opts ...FileStoreOption) *FileStore {
	store := &FileStore{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Increment implements Store with a read-modify-write under a per-key
// lock file.
func (s *FileStore) Increment(ctx context.Context, key string, window time.Duration) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	digest := sha256.Sum256([]byte(key))
	record := filepath.Join(s.dir, "form_rate_"+hex.EncodeToString(digest[:]))
	lock := record + ".lock"

	if err := s.acquireLock(ctx, lock); err != nil {
		return 0, err
	}
	defer os.Remove(lock)

	now := s.now().Unix()
	data := counterRecord{Count: 0, WindowStart: now}
	if raw, err := os.ReadFile(record); err == nil {
		var decoded counterRecord
		if json.Unmarshal(raw, &decoded) == nil && decoded.WindowStart > 0 {
			data = decoded
		}
	}

	if now-data.WindowStart > int64(window/time.Second) {
		data = counterRecord{Count: 0, WindowStart: now}
	}
	data.Count++

	raw, err := json.Marshal(data)
	if err != nil {
		return 0, fmt.Errorf("limitstore: encode counter: %w", err)
	}
	if err := os.WriteFile(record, raw, 0o644); err != nil {
		return 0, fmt.Errorf("limitstore: write counter: %w", err)
	}
	return data.Count, nil
}

// acquireLock takes the per-key lock via exclusive create, retrying a
// bounded number of times. Locks older than lockStaleAge belong to a
// crashed writer and are broken.
func (s *FileStore) acquireLock(ctx context.Context, lock string) error {
	for attempt := 0; attempt < lockRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		handle, err := os.OpenFile(lock, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			return handle.Close()
		}
		if !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("limitstore: create lock: %w", err)
		}
		if info, statErr := os.Stat(lock); statErr == nil && s.now().Sub(info.ModTime()) > lockStaleAge {
			os.Remove(lock)
			continue
		}
		time.Sleep(lockInterval)
	}
	return fmt.Errorf("limitstore: lock %s is busy", filepath.Base(lock))
}
