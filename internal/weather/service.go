package weather

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Source labels where a served table came from.
type Source string

const (
	// SourceOrigin marks a freshly fetched and transformed table.
	SourceOrigin Source = "origin"
	// SourceCache marks a table served from the processed cache.
	SourceCache Source = "cache"
)

// Service orchestrates the cache and the upstream provider. On a
// processed-cache hit it serves the table directly; on a miss it
// fetches (reusing the raw cache when fresh), transforms, and fills
// both caches. A broken cache is never fatal: the service logs it and
// falls back to a live fetch.
type Service struct {
	cache    Cache
	provider Provider
}

// NewService creates a Service around the process-wide cache manager.
func NewService(cache Cache, provider Provider) *Service {
	return &Service{cache: cache, provider: provider}
}

// GetHourly returns the hourly table for q and a label describing
// whether it was served from the cache or computed from the origin.
func (s *Service) GetHourly(ctx context.Context, q Query) (Table, Source, error) {
	if err := ValidateQuery(q); err != nil {
		return nil, "", err
	}

	table, ok, err := s.cache.GetProcessed(q)
	if err != nil {
		log.Printf("weather: processed cache unavailable, falling back to live fetch: %v", err)
	}
	if ok {
		return table, SourceCache, nil
	}

	raw, err := s.rawHourly(ctx, q)
	if err != nil {
		return nil, "", err
	}

	table, err = ParseHourly(raw)
	if err != nil {
		return nil, "", fmt.Errorf("transform %s response: %w", s.provider.Name(), err)
	}

	if err := s.cache.SetProcessed(q, table); err != nil {
		log.Printf("weather: failed to cache processed table: %v", err)
	}
	return table, SourceOrigin, nil
}

// rawHourly returns the raw upstream response for q, preferring a
// fresh raw-cache entry over a network call.
func (s *Service) rawHourly(ctx context.Context, q Query) ([]byte, error) {
	raw, ok, err := s.cache.GetRaw(q)
	if err != nil {
		log.Printf("weather: raw cache unavailable: %v", err)
	}
	if ok {
		return raw, nil
	}

	raw, err = s.provider.FetchHourly(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetch hourly data from %s: %w", s.provider.Name(), err)
	}

	if err := s.cache.SetRaw(q, raw); err != nil {
		log.Printf("weather: failed to cache raw response: %v", err)
	}
	return raw, nil
}

// CacheStats delegates to the cache manager.
func (s *Service) CacheStats() (CacheStats, error) {
	return s.cache.Stats()
}

// ClearCache empties both cache namespaces.
func (s *Service) ClearCache() (time.Time, error) {
	return s.cache.Clear()
}
