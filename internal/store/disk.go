// Package store provides the storage backends for the cache: a
// directory-backed store that survives process restarts and an
// in-memory alternative with the same contract.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/climadash/clima-dashboard/internal/cache"
)

const (
	entrySuffix = ".json"
	lockName    = "LOCK"
)

// envelope is the on-disk shape of one entry.
type envelope struct {
	StoredAt time.Time `json:"stored_at"`
	Payload  []byte    `json:"payload"`
}

// DiskStore is a directory-backed key/value store: one JSON envelope
// file per key. Writes go through a temp file and an atomic rename so a
// concurrent reader never observes a partially-written entry. An
// exclusive file lock on the directory prevents a second process from
// opening the same cache.
type DiskStore struct {
	mu   sync.RWMutex
	dir  string
	lock *flock.Flock
}

// NewDiskStore opens (creating if needed) the store at dir and acquires
// the directory lock. The returned store is safe for concurrent use and
// is intended to live for the whole process; call Close on shutdown.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve cache directory: %w", err)
	}

	lock := flock.New(filepath.Join(abs, lockName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock cache directory: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("cache directory %s is in use by another process", abs)
	}

	return &DiskStore{dir: abs, lock: lock}, nil
}

// Path returns the absolute backing directory.
func (s *DiskStore) Path() string {
	return s.dir
}

// Location returns the file path an entry for key would occupy.
func (s *DiskStore) Location(key string) string {
	return filepath.Join(s.dir, key+entrySuffix)
}

func validateKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("invalid cache key %q", key)
	}
	return nil
}

// Get returns the payload and storage time for key. A missing entry is
// (nil, zero, false, nil). An entry whose envelope cannot be decoded is
// removed and reported as absent.
func (s *DiskStore) Get(key string) ([]byte, time.Time, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, time.Time{}, false, err
	}

	s.mu.RLock()
	data, err := os.ReadFile(s.Location(key))
	s.mu.RUnlock()

	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, time.Time{}, false, nil
		}
		return nil, time.Time{}, false, fmt.Errorf("read cache entry %s: %w", key, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Printf("store: removing corrupt entry %s: %v", key, err)
		if delErr := s.Delete(key); delErr != nil {
			log.Printf("store: failed to remove corrupt entry %s: %v", key, delErr)
		}
		return nil, time.Time{}, false, nil
	}
	return env.Payload, env.StoredAt, true, nil
}

// Set stores the payload under key with the current timestamp,
// replacing any existing entry. The write is atomic: temp file first,
// then rename.
func (s *DiskStore) Set(key string, payload []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	data, err := json.Marshal(envelope{StoredAt: time.Now().UTC(), Payload: payload})
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Location(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write cache entry %s: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("commit cache entry %s: %w", key, err)
	}
	return nil
}

// Delete removes one entry; deleting an absent key is a no-op.
func (s *DiskStore) Delete(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.Location(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete cache entry %s: %w", key, err)
	}
	return nil
}

// Clear removes all entries and returns when the clear completed.
func (s *DiskStore) Clear() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.entryNames()
	if err != nil {
		return time.Time{}, err
	}
	for _, name := range names {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return time.Time{}, fmt.Errorf("clear cache: %w", err)
		}
	}
	return time.Now().UTC(), nil
}

// Keys enumerates all stored keys.
func (s *DiskStore) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names, err := s.entryNames()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(names))
	for _, name := range names {
		keys = append(keys, strings.TrimSuffix(name, entrySuffix))
	}
	return keys, nil
}

// Stats reports the entry count and on-disk footprint.
func (s *DiskStore) Stats() (cache.BackendStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return cache.BackendStats{}, fmt.Errorf("read cache directory: %w", err)
	}

	stats := cache.BackendStats{Path: s.dir}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), entrySuffix) {
			continue
		}
		stats.Entries++
		if info, err := entry.Info(); err == nil {
			stats.TotalBytes += info.Size()
		}
	}
	return stats, nil
}

// Close releases the directory lock. The store must not be used after.
func (s *DiskStore) Close() error {
	return s.lock.Unlock()
}

// entryNames lists entry file names; callers hold the mutex.
func (s *DiskStore) entryNames() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read cache directory: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), entrySuffix) {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}
