package weather

import (
	"context"
	"time"
)

// Provider abstracts the upstream hourly-forecast source. FetchHourly
// returns the raw response body so it can be cached verbatim before
// any transformation.
type Provider interface {
	Name() string
	FetchHourly(ctx context.Context, q Query) ([]byte, error)
}

// Cache is the contract the cache manager must satisfy for the
// service: typed get/set per namespace, bulk clear, and aggregate
// statistics. A get returns ok=false on a miss (absent, expired, or
// undecodable entry); errors are reserved for an unavailable backing
// store.
type Cache interface {
	GetRaw(q Query) (payload []byte, ok bool, err error)
	SetRaw(q Query, payload []byte) error
	GetProcessed(q Query) (table Table, ok bool, err error)
	SetProcessed(q Query, table Table) error
	Clear() (clearedAt time.Time, err error)
	Stats() (CacheStats, error)
}

// CacheStats is a point-in-time snapshot of the cache.
type CacheStats struct {
	EntryCount  int     `json:"entries"`
	TotalBytes  int64   `json:"size_bytes"`
	BackingPath string  `json:"path"`
	TTLMinutes  float64 `json:"ttl_minutes"`
}
