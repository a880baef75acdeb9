package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/kelvins/geocoder"

	httpapi "github.com/climadash/clima-dashboard/internal/api/http"
	"github.com/climadash/clima-dashboard/internal/cache"
	"github.com/climadash/clima-dashboard/internal/config"
	"github.com/climadash/clima-dashboard/internal/scheduler"
	"github.com/climadash/clima-dashboard/internal/store"
	"github.com/climadash/clima-dashboard/internal/weather"
	"github.com/climadash/clima-dashboard/internal/weather/providers"
)

// cacheBackend is what main needs from a store: the cache contract
// plus resource cleanup at shutdown.
type cacheBackend interface {
	cache.Backend
	Close() error
}

func openBackend(cfg *config.AppConfig) (cacheBackend, error) {
	if cfg.CacheBackend == config.BackendMemory {
		return store.NewMemoryStore(), nil
	}
	return store.NewDiskStore(cfg.CacheDir)
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if cfg.GeocoderAPIKey != "" {
		geocoder.ApiKey = cfg.GeocoderAPIKey
	}

	// One process-wide store, opened at startup and closed at exit.
	backend, err := openBackend(cfg)
	if err != nil {
		log.Fatalf("failed to open cache store: %v", err)
	}
	defer backend.Close()

	// One cache manager injected into every call site.
	cacheManager := cache.NewManager(backend, cfg.CacheTTL())

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	provider := providers.NewOpenMeteoProvider(httpClient)

	// Core service composing cache and provider.
	service := weather.NewService(cacheManager, provider)

	// Scheduler warming the cache for the default location.
	warmQueries := []weather.Query{{
		Latitude:     cfg.DefaultLatitude,
		Longitude:    cfg.DefaultLongitude,
		Timezone:     cfg.DefaultTimezone,
		ForecastDays: cfg.ForecastDays,
	}}
	sched := scheduler.New(warmQueries, cfg.PrefetchInterval, service)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "clima-dashboard",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Clima Dashboard API",
			"version": "1.0.0",
		})
	})

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "clima-dashboard-api",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, service, cfg)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
