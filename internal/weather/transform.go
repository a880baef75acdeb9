package weather

import (
	"encoding/json"
	"fmt"
	"time"
)

// hourlyLayout is Open-Meteo's timestamp format (no seconds, no zone;
// the values are local to the requested timezone but stored as UTC
// wall-clock here).
const hourlyLayout = "2006-01-02T15:04"

// rawHourly mirrors the hourly block of an Open-Meteo forecast response.
type rawHourly struct {
	Hourly struct {
		Time          []string  `json:"time"`
		Temperature   []float64 `json:"temperature_2m"`
		Humidity      []float64 `json:"relative_humidity_2m"`
		Precipitation []float64 `json:"precipitation"`
		WindSpeed     []float64 `json:"wind_speed_10m"`
	} `json:"hourly"`
}

// ParseHourly turns a raw upstream response into a Table: rows sorted
// ascending by timestamp, duplicate timestamps collapsed keeping the
// last occurrence.
func ParseHourly(raw []byte) (Table, error) {
	var payload rawHourly
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("parse hourly payload: %w", err)
	}

	h := payload.Hourly
	n := len(h.Time)
	if n == 0 {
		return nil, fmt.Errorf("hourly payload has no time series")
	}
	if len(h.Temperature) != n || len(h.Humidity) != n || len(h.Precipitation) != n || len(h.WindSpeed) != n {
		return nil, fmt.Errorf("hourly series length mismatch: time=%d temperature=%d humidity=%d precipitation=%d wind=%d",
			n, len(h.Temperature), len(h.Humidity), len(h.Precipitation), len(h.WindSpeed))
	}

	table := make(Table, 0, n)
	for i := 0; i < n; i++ {
		ts, err := parseObservationTime(h.Time[i])
		if err != nil {
			return nil, err
		}
		table = append(table, Observation{
			Time:         ts,
			TemperatureC: h.Temperature[i],
			HumidityPct:  h.Humidity[i],
			PrecipMm:     h.Precipitation[i],
			WindSpeedKmh: h.WindSpeed[i],
		})
	}

	sortRows(table)
	return dedupeRows(table), nil
}

// parseObservationTime accepts Open-Meteo's minute-precision layout and
// full RFC3339 timestamps.
func parseObservationTime(s string) (time.Time, error) {
	if ts, err := time.Parse(hourlyLayout, s); err == nil {
		return ts.UTC(), nil
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid observation time %q", s)
}

// dedupeRows collapses rows sharing a timestamp, keeping the last.
// Rows must already be sorted; the stable sort keeps duplicates in
// input order, so the last occurrence wins.
func dedupeRows(t Table) Table {
	if len(t) == 0 {
		return t
	}
	out := t[:1]
	for _, row := range t[1:] {
		if row.Time.Equal(out[len(out)-1].Time) {
			out[len(out)-1] = row
			continue
		}
		out = append(out, row)
	}
	return out
}
