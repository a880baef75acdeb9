package weather

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrInvalidQuery marks a query that fails coordinate/timezone validation.
// Handlers map it to a 400 response.
var ErrInvalidQuery = errors.New("invalid weather query")

// Query identifies one hourly-forecast request. Latitude/longitude are in
// decimal degrees, Timezone is an IANA name, ForecastDays is optional
// (0 lets the upstream pick its default horizon).
type Query struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Timezone     string  `json:"timezone"`
	ForecastDays int     `json:"forecast_days,omitempty"`
}

// ValidateQuery rejects out-of-range coordinates and missing timezones.
// The comparisons are written so NaN fails the range checks too.
func ValidateQuery(q Query) error {
	if !(q.Latitude >= -90 && q.Latitude <= 90) {
		return fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrInvalidQuery, q.Latitude)
	}
	if !(q.Longitude >= -180 && q.Longitude <= 180) {
		return fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrInvalidQuery, q.Longitude)
	}
	if q.Timezone == "" {
		return fmt.Errorf("%w: timezone is required", ErrInvalidQuery)
	}
	if q.ForecastDays < 0 || q.ForecastDays > 16 {
		return fmt.Errorf("%w: forecast_days %d out of range [0, 16]", ErrInvalidQuery, q.ForecastDays)
	}
	return nil
}

// Observation is one hourly weather reading, always in UTC.
type Observation struct {
	Time         time.Time `json:"time"`
	TemperatureC float64   `json:"temperature"`
	HumidityPct  float64   `json:"humidity"`
	PrecipMm     float64   `json:"precipitation"`
	WindSpeedKmh float64   `json:"wind_speed"`
}

// Table is a time-indexed hourly series. Rows are sorted ascending by
// Time and no two rows share a timestamp.
type Table []Observation

// Head returns at most the first n rows.
func (t Table) Head(n int) Table {
	if n < 0 || n > len(t) {
		n = len(t)
	}
	return t[:n]
}

// IsSorted reports whether rows are strictly ascending by timestamp.
func (t Table) IsSorted() bool {
	for i := 1; i < len(t); i++ {
		if !t[i-1].Time.Before(t[i].Time) {
			return false
		}
	}
	return true
}

// sortRows orders rows ascending by timestamp, preserving the relative
// order of rows with equal timestamps.
func sortRows(t Table) {
	sort.SliceStable(t, func(i, j int) bool {
		return t[i].Time.Before(t[j].Time)
	})
}
