package weather_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/climadash/clima-dashboard/internal/cache"
	"github.com/climadash/clima-dashboard/internal/store"
	"github.com/climadash/clima-dashboard/internal/weather"
)

var fixture = []byte(`{
	"hourly": {
		"time": ["2024-01-01T00:00", "2024-01-01T01:00"],
		"temperature_2m": [25.0, 24.5],
		"relative_humidity_2m": [80, 85],
		"precipitation": [0.0, 0.5],
		"wind_speed_10m": [10.0, 12.0]
	}
}`)

// fakeProvider serves a canned payload and counts upstream calls.
type fakeProvider struct {
	payload []byte
	err     error
	calls   int
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) FetchHourly(ctx context.Context, q weather.Query) ([]byte, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.payload, nil
}

// brokenCache simulates an unreachable backing store.
type brokenCache struct{}

func (brokenCache) GetRaw(weather.Query) ([]byte, bool, error) {
	return nil, false, errors.New("store unavailable")
}
func (brokenCache) SetRaw(weather.Query, []byte) error { return errors.New("store unavailable") }
func (brokenCache) GetProcessed(weather.Query) (weather.Table, bool, error) {
	return nil, false, errors.New("store unavailable")
}
func (brokenCache) SetProcessed(weather.Query, weather.Table) error {
	return errors.New("store unavailable")
}
func (brokenCache) Clear() (time.Time, error) { return time.Time{}, errors.New("store unavailable") }
func (brokenCache) Stats() (weather.CacheStats, error) {
	return weather.CacheStats{}, errors.New("store unavailable")
}

func newTestService(provider weather.Provider) (*weather.Service, *cache.Manager) {
	m := cache.NewManager(store.NewMemoryStore(), 15*time.Minute)
	return weather.NewService(m, provider), m
}

var bogota = weather.Query{Latitude: 4.711, Longitude: -74.072, Timezone: "America/Bogota"}

func TestGetHourlyMissThenHit(t *testing.T) {
	provider := &fakeProvider{payload: fixture}
	service, _ := newTestService(provider)

	table, source, err := service.GetHourly(context.Background(), bogota)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source != weather.SourceOrigin {
		t.Fatalf("expected origin on a cold cache, got %s", source)
	}
	if len(table) != 2 || provider.calls != 1 {
		t.Fatalf("unexpected first fetch: rows=%d calls=%d", len(table), provider.calls)
	}

	table, source, err = service.GetHourly(context.Background(), bogota)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source != weather.SourceCache {
		t.Fatalf("expected a cache hit, got %s", source)
	}
	if len(table) != 2 || provider.calls != 1 {
		t.Fatalf("cache hit must not call upstream: rows=%d calls=%d", len(table), provider.calls)
	}
}

// TestGetHourlyReusesRawCache warms only the raw namespace: the
// service must transform from it without a network call.
func TestGetHourlyReusesRawCache(t *testing.T) {
	provider := &fakeProvider{payload: fixture}
	service, m := newTestService(provider)

	if err := m.SetRaw(bogota, fixture); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	table, source, err := service.GetHourly(context.Background(), bogota)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.calls != 0 {
		t.Fatalf("expected the raw cache to spare the upstream call, got %d calls", provider.calls)
	}
	if source != weather.SourceOrigin {
		t.Fatalf("a re-transformed table is origin-sourced, got %s", source)
	}
	if len(table) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(table))
	}
}

func TestGetHourlyValidation(t *testing.T) {
	provider := &fakeProvider{payload: fixture}
	service, _ := newTestService(provider)

	bad := weather.Query{Latitude: 95, Longitude: 0, Timezone: "UTC"}
	if _, _, err := service.GetHourly(context.Background(), bad); !errors.Is(err, weather.ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
	if provider.calls != 0 {
		t.Fatal("invalid queries must not reach the provider")
	}
}

func TestGetHourlyProviderFailure(t *testing.T) {
	provider := &fakeProvider{err: errors.New("upstream down")}
	service, _ := newTestService(provider)

	if _, _, err := service.GetHourly(context.Background(), bogota); err == nil {
		t.Fatal("expected the fetch failure to propagate on a cold cache")
	}
}

// TestGetHourlyDegradesWhenCacheIsBroken asserts that a cache
// malfunction only costs a live fetch, never a failed response.
func TestGetHourlyDegradesWhenCacheIsBroken(t *testing.T) {
	provider := &fakeProvider{payload: fixture}
	service := weather.NewService(brokenCache{}, provider)

	table, source, err := service.GetHourly(context.Background(), bogota)
	if err != nil {
		t.Fatalf("a broken cache must not fail the request: %v", err)
	}
	if source != weather.SourceOrigin || len(table) != 2 || provider.calls != 1 {
		t.Fatalf("expected a live fetch, got source=%s rows=%d calls=%d", source, len(table), provider.calls)
	}
}

func TestClearCacheAndStats(t *testing.T) {
	provider := &fakeProvider{payload: fixture}
	service, _ := newTestService(provider)

	if _, _, err := service.GetHourly(context.Background(), bogota); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats, err := service.CacheStats()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.EntryCount != 2 {
		t.Fatalf("expected raw and processed entries, got %d", stats.EntryCount)
	}

	clearedAt, err := service.ClearCache()
	if err != nil || clearedAt.IsZero() {
		t.Fatalf("unexpected clear result: %v at %v", err, clearedAt)
	}

	stats, err = service.CacheStats()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.EntryCount != 0 {
		t.Fatalf("expected an empty cache after clear, got %d entries", stats.EntryCount)
	}
}
