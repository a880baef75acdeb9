package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/climadash/clima-dashboard/internal/weather"
)

// Backend is the storage contract the Manager composes over. Backends
// are timestamp-agnostic: they record when an entry was stored but
// never apply expiry themselves — TTL policy lives in the Manager.
// Implementations must be safe for concurrent use and must write each
// entry atomically (a concurrent read sees the old value or the new
// one, never a torn one).
type Backend interface {
	// Get returns the payload and its storage time, or ok=false when
	// the key is absent.
	Get(key string) (payload []byte, storedAt time.Time, ok bool, err error)
	// Set stores the payload under key with the current timestamp,
	// overwriting any existing entry.
	Set(key string, payload []byte) error
	// Delete removes one entry; absent keys are a no-op.
	Delete(key string) error
	// Clear removes all entries and returns when the clear completed.
	Clear() (time.Time, error)
	// Stats reports a point-in-time snapshot of the backend.
	Stats() (BackendStats, error)
}

// BackendStats is a backend's footprint snapshot.
type BackendStats struct {
	Entries    int
	TotalBytes int64
	Path       string
}

// Manager fronts a Backend with two namespaces, raw upstream responses
// and processed tables, under a single TTL policy. It satisfies
// weather.Cache. One Manager is constructed at startup and injected by
// reference into every caller.
type Manager struct {
	backend Backend
	ttl     time.Duration
}

// NewManager creates a Manager applying the given TTL to both namespaces.
func NewManager(backend Backend, ttl time.Duration) *Manager {
	return &Manager{backend: backend, ttl: ttl}
}

// keyFor builds the cache key for a query in the given namespace.
// ForecastDays participates only when set, so requests relying on the
// upstream default horizon share an entry.
func (m *Manager) keyFor(namespace string, q weather.Query) (string, error) {
	lat, err := Coordinate(q.Latitude)
	if err != nil {
		return "", err
	}
	lon, err := Coordinate(q.Longitude)
	if err != nil {
		return "", err
	}
	parts := []string{lat, lon, q.Timezone}
	if q.ForecastDays > 0 {
		parts = append(parts, strconv.Itoa(q.ForecastDays))
	}
	return Key(namespace, parts...), nil
}

// getFresh fetches a non-expired payload. Expired entries are deleted
// on read (lazy eviction) so storage stays bounded under steady churn.
func (m *Manager) getFresh(key string) ([]byte, bool, error) {
	payload, storedAt, ok, err := m.backend.Get(key)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	if time.Since(storedAt) >= m.ttl {
		if err := m.backend.Delete(key); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	return payload, true, nil
}

// dropCorrupt removes an undecodable entry so the next read recomputes
// instead of failing again.
func (m *Manager) dropCorrupt(key string, cause error) {
	log.Printf("cache: dropping corrupt entry %s: %v", key, cause)
	if err := m.backend.Delete(key); err != nil {
		log.Printf("cache: failed to delete corrupt entry %s: %v", key, err)
	}
}

// GetRaw returns the cached raw upstream response for q, if present
// and fresh. Stored bytes that are no longer valid JSON degrade to a
// miss.
func (m *Manager) GetRaw(q weather.Query) ([]byte, bool, error) {
	key, err := m.keyFor(NamespaceRaw, q)
	if err != nil {
		return nil, false, err
	}
	payload, ok, err := m.getFresh(key)
	if err != nil || !ok {
		return nil, false, err
	}
	if !json.Valid(payload) {
		m.dropCorrupt(key, errors.New("raw payload is not valid JSON"))
		return nil, false, nil
	}
	return payload, true, nil
}

// SetRaw stores a raw upstream response for q.
func (m *Manager) SetRaw(q weather.Query, payload []byte) error {
	key, err := m.keyFor(NamespaceRaw, q)
	if err != nil {
		return err
	}
	return m.backend.Set(key, payload)
}

// GetProcessed returns the cached processed table for q, if present and
// fresh. A table that fails to decode degrades to a miss.
func (m *Manager) GetProcessed(q weather.Query) (weather.Table, bool, error) {
	key, err := m.keyFor(NamespaceProcessed, q)
	if err != nil {
		return nil, false, err
	}
	payload, ok, err := m.getFresh(key)
	if err != nil || !ok {
		return nil, false, err
	}
	table, err := DecodeTable(payload)
	if err != nil {
		m.dropCorrupt(key, err)
		return nil, false, nil
	}
	return table, true, nil
}

// SetProcessed stores a processed table for q.
func (m *Manager) SetProcessed(q weather.Query, table weather.Table) error {
	key, err := m.keyFor(NamespaceProcessed, q)
	if err != nil {
		return err
	}
	payload, err := EncodeTable(table)
	if err != nil {
		return err
	}
	return m.backend.Set(key, payload)
}

// Clear empties both namespaces and returns when the clear completed.
func (m *Manager) Clear() (time.Time, error) {
	clearedAt, err := m.backend.Clear()
	if err != nil {
		return time.Time{}, fmt.Errorf("clear cache: %w", err)
	}
	return clearedAt, nil
}

// Stats reports the cache footprint and the configured TTL.
func (m *Manager) Stats() (weather.CacheStats, error) {
	bs, err := m.backend.Stats()
	if err != nil {
		return weather.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	return weather.CacheStats{
		EntryCount:  bs.Entries,
		TotalBytes:  bs.TotalBytes,
		BackingPath: bs.Path,
		TTLMinutes:  m.ttl.Minutes(),
	}, nil
}
