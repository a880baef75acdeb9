package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Cache backend selection.
const (
	BackendDisk   = "disk"
	BackendMemory = "memory"
)

type AppConfig struct {
	Port        string
	HTTPTimeout time.Duration

	// Cache configuration. TTL is a float in minutes to allow
	// sub-minute values in tests and short-lived deployments.
	CacheTTLMinutes float64
	CacheDir        string
	CacheBackend    string

	// PrefetchInterval controls how often the scheduler warms the
	// cache for the default location; 0 disables prefetching.
	PrefetchInterval time.Duration

	// ForecastDays requested from the upstream; 0 uses its default.
	ForecastDays int

	// Default location served by /locations/default and warmed by the
	// scheduler.
	DefaultLatitude  float64
	DefaultLongitude float64
	DefaultTimezone  string
	DefaultCity      string

	// Google geocoding API key; empty disables the geocode endpoint.
	GeocoderAPIKey string
}

// CacheTTL returns the TTL as a duration.
func (c *AppConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes * float64(time.Minute))
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "10s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	cfg.CacheTTLMinutes = getenvFloat("CACHE_TTL_MINUTES", 15)
	if cfg.CacheTTLMinutes <= 0 {
		return nil, fmt.Errorf("CACHE_TTL_MINUTES must be greater than zero, got %v", cfg.CacheTTLMinutes)
	}

	cfg.CacheDir = getenvDefault("CACHE_DIR", "cache")
	cfg.CacheBackend = getenvDefault("CACHE_BACKEND", BackendDisk)
	if cfg.CacheBackend != BackendDisk && cfg.CacheBackend != BackendMemory {
		return nil, fmt.Errorf("invalid CACHE_BACKEND %q: must be %q or %q", cfg.CacheBackend, BackendDisk, BackendMemory)
	}

	prefetchStr := getenvDefault("PREFETCH_INTERVAL", "15m")
	prefetch, err := time.ParseDuration(prefetchStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PREFETCH_INTERVAL: %w", err)
	}
	cfg.PrefetchInterval = prefetch

	cfg.ForecastDays = getenvInt("FORECAST_DAYS", 0)

	cfg.DefaultLatitude = getenvFloat("DEFAULT_LAT", 6.244)
	cfg.DefaultLongitude = getenvFloat("DEFAULT_LON", -75.581)
	cfg.DefaultTimezone = getenvDefault("DEFAULT_TIMEZONE", "America/Bogota")
	cfg.DefaultCity = getenvDefault("DEFAULT_CITY", "Medellín")

	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}
