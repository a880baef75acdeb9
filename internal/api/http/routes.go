package httpapi

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/kelvins/geocoder"

	"github.com/climadash/clima-dashboard/internal/config"
	"github.com/climadash/clima-dashboard/internal/export"
	"github.com/climadash/clima-dashboard/internal/weather"
)

var validate = validator.New()

// maxResponseRows caps the rows returned by the current-weather
// endpoint (one day of hourly observations).
const maxResponseRows = 24

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service, cfg *config.AppConfig) {
	v1 := app.Group("/api/v1")

	v1.Post("/weather/current", func(c *fiber.Ctx) error {
		q, err := bindLocationBody(c, cfg)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return serveCurrent(c, service, q)
	})

	v1.Get("/weather/export", func(c *fiber.Ctx) error {
		q, err := bindLocationQuery(c, cfg)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		table, _, err := service.GetHourly(c.Context(), q)
		if err != nil {
			return mapServiceError(err)
		}

		var buf bytes.Buffer
		if err := export.WriteCSV(&buf, table); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to encode csv export")
		}

		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="weather_data.csv"`)
		return c.Send(buf.Bytes())
	})

	v1.Get("/cache/stats", func(c *fiber.Ctx) error {
		stats, err := service.CacheStats()
		if err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, fmt.Sprintf("cache unavailable: %v", err))
		}
		return c.JSON(stats)
	})

	v1.Delete("/cache", func(c *fiber.Ctx) error {
		clearedAt, err := service.ClearCache()
		if err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, fmt.Sprintf("cache unavailable: %v", err))
		}
		return c.JSON(fiber.Map{
			"message":    "cache cleared",
			"cleared_at": clearedAt.Format(time.RFC3339),
		})
	})

	v1.Get("/locations/default", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"latitude":  cfg.DefaultLatitude,
			"longitude": cfg.DefaultLongitude,
			"timezone":  cfg.DefaultTimezone,
			"city":      cfg.DefaultCity,
			"country":   "Colombia",
		})
	})

	v1.Get("/locations/geocode", func(c *fiber.Ctx) error {
		if cfg.GeocoderAPIKey == "" {
			return fiber.NewError(fiber.StatusServiceUnavailable, "geocoding is not configured")
		}

		city := c.Query("city")
		if city == "" {
			return fiber.NewError(fiber.StatusBadRequest, "city query parameter is required")
		}

		location, err := geocoder.Geocoding(geocoder.Address{
			City:    city,
			Country: c.Query("country"),
		})
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, fmt.Sprintf("geocoding failed: %v", err))
		}

		return c.JSON(fiber.Map{
			"city":      city,
			"country":   c.Query("country"),
			"latitude":  location.Latitude,
			"longitude": location.Longitude,
		})
	})
}

func serveCurrent(c *fiber.Ctx, service *weather.Service, q weather.Query) error {
	table, source, err := service.GetHourly(c.Context(), q)
	if err != nil {
		return mapServiceError(err)
	}

	rows := make([]weatherRow, 0, maxResponseRows)
	for _, obs := range table.Head(maxResponseRows) {
		rows = append(rows, weatherRow{
			Time:          obs.Time.Format(time.RFC3339),
			Temperature:   obs.TemperatureC,
			Humidity:      obs.HumidityPct,
			Precipitation: obs.PrecipMm,
			WindSpeed:     obs.WindSpeedKmh,
		})
	}

	return c.JSON(weatherResponse{
		Location:  q,
		Data:      rows,
		Source:    string(source),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func mapServiceError(err error) error {
	if errors.Is(err, weather.ErrInvalidQuery) {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return fiber.NewError(fiber.StatusBadGateway, fmt.Sprintf("failed to fetch weather data: %v", err))
}

// weatherRow is one hourly observation in API shape.
type weatherRow struct {
	Time          string  `json:"time"`
	Temperature   float64 `json:"temperature"`
	Humidity      float64 `json:"humidity"`
	Precipitation float64 `json:"precipitation"`
	WindSpeed     float64 `json:"wind_speed"`
}

type weatherResponse struct {
	Location  weather.Query `json:"location"`
	Data      []weatherRow  `json:"data"`
	Source    string        `json:"source"`
	Timestamp string        `json:"timestamp"`
}

// locationBody is the request body of the current-weather endpoint.
// Latitude/longitude are pointers so zero values survive the required
// check.
type locationBody struct {
	Latitude     *float64 `json:"latitude" validate:"required"`
	Longitude    *float64 `json:"longitude" validate:"required"`
	Timezone     string   `json:"timezone"`
	ForecastDays int      `json:"forecast_days" validate:"omitempty,gte=1,lte=16"`
}

func bindLocationBody(c *fiber.Ctx, cfg *config.AppConfig) (weather.Query, error) {
	var body locationBody
	if err := c.BodyParser(&body); err != nil {
		return weather.Query{}, fmt.Errorf("invalid request body: %w", err)
	}
	if err := validate.Struct(body); err != nil {
		return weather.Query{}, err
	}

	q := weather.Query{
		Latitude:     *body.Latitude,
		Longitude:    *body.Longitude,
		Timezone:     body.Timezone,
		ForecastDays: body.ForecastDays,
	}
	if q.Timezone == "" {
		q.Timezone = cfg.DefaultTimezone
	}
	if q.ForecastDays == 0 {
		q.ForecastDays = cfg.ForecastDays
	}
	return q, weather.ValidateQuery(q)
}

func bindLocationQuery(c *fiber.Ctx, cfg *config.AppConfig) (weather.Query, error) {
	latStr := c.Query("latitude")
	lonStr := c.Query("longitude")
	if latStr == "" || lonStr == "" {
		return weather.Query{}, errors.New("latitude and longitude query parameters are required")
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return weather.Query{}, fmt.Errorf("invalid latitude %q", latStr)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return weather.Query{}, fmt.Errorf("invalid longitude %q", lonStr)
	}

	q := weather.Query{
		Latitude:     lat,
		Longitude:    lon,
		Timezone:     c.Query("timezone", cfg.DefaultTimezone),
		ForecastDays: cfg.ForecastDays,
	}
	return q, weather.ValidateQuery(q)
}
