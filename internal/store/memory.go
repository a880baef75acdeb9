package store

import (
	"sync"
	"time"

	"github.com/climadash/clima-dashboard/internal/cache"
)

// MemoryStore is a concurrency-safe in-memory backend with the same
// contract as DiskStore, minus persistence. It backs the cache when
// CACHE_BACKEND=memory and keeps tests off the filesystem.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	payload  []byte
	storedAt time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

// Get returns the payload and storage time for key, or ok=false.
func (s *MemoryStore) Get(key string) ([]byte, time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, time.Time{}, false, nil
	}
	// Copy so callers cannot mutate the stored payload.
	payload := make([]byte, len(entry.payload))
	copy(payload, entry.payload)
	return payload, entry.storedAt, true, nil
}

// Set stores the payload under key with the current timestamp.
func (s *MemoryStore) Set(key string, payload []byte) error {
	stored := make([]byte, len(payload))
	copy(stored, payload)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = memoryEntry{payload: stored, storedAt: time.Now().UTC()}
	return nil
}

// Delete removes one entry; absent keys are a no-op.
func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// Clear removes all entries and returns when the clear completed.
func (s *MemoryStore) Clear() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]memoryEntry)
	return time.Now().UTC(), nil
}

// Keys enumerates all stored keys.
func (s *MemoryStore) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	return keys, nil
}

// Stats reports the entry count and in-memory payload footprint.
func (s *MemoryStore) Stats() (cache.BackendStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := cache.BackendStats{Path: "memory"}
	for _, entry := range s.entries {
		stats.Entries++
		stats.TotalBytes += int64(len(entry.payload))
	}
	return stats, nil
}

// Close is a no-op; the store lives and dies with the process.
func (s *MemoryStore) Close() error {
	return nil
}
