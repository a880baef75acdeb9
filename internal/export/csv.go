// Package export writes hourly weather tables to CSV files and loads
// them back.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/climadash/clima-dashboard/internal/weather"
)

var header = []string{"time", "temperature_c", "humidity_pct", "precipitation_mm", "wind_speed_kmh"}

// Options controls how SaveCSV writes a file.
type Options struct {
	// Append merges the table into an existing file, deduplicating by
	// timestamp (new rows win) and re-sorting.
	Append bool
	// Timestamped appends _YYYYMMDD_HHMMSS to the file name.
	Timestamped bool
}

// SaveCSV writes a table to path (the .csv extension is added when
// missing) and returns the path actually written.
func SaveCSV(table weather.Table, path string, opts Options) (string, error) {
	if !strings.HasSuffix(path, ".csv") {
		path += ".csv"
	}
	if opts.Timestamped {
		stamp := time.Now().Format("20060102_150405")
		ext := filepath.Ext(path)
		path = strings.TrimSuffix(path, ext) + "_" + stamp + ext
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	if opts.Append {
		if existing, err := LoadCSV(path); err == nil {
			table = merge(existing, table)
		} else if !os.IsNotExist(err) {
			return "", err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	if err := WriteCSV(f, table); err != nil {
		return "", err
	}
	return path, nil
}

// WriteCSV streams a table as CSV with a header row.
func WriteCSV(w io.Writer, table weather.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range table {
		record := []string{
			row.Time.UTC().Format(time.RFC3339),
			formatFloat(row.TemperatureC),
			formatFloat(row.HumidityPct),
			formatFloat(row.PrecipMm),
			formatFloat(row.WindSpeedKmh),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// LoadCSV reads a table previously written by SaveCSV.
func LoadCSV(path string) (weather.Table, error) {
	if !strings.HasSuffix(path, ".csv") {
		path += ".csv"
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv file %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv file %s is empty", path)
	}
	if len(records[0]) != len(header) {
		return nil, fmt.Errorf("csv file %s has %d columns, want %d", path, len(records[0]), len(header))
	}

	table := make(weather.Table, 0, len(records)-1)
	for i, record := range records[1:] {
		ts, err := time.Parse(time.RFC3339, record[0])
		if err != nil {
			return nil, fmt.Errorf("csv row %d: bad timestamp %q", i+1, record[0])
		}
		values := make([]float64, len(header)-1)
		for j := range values {
			v, err := strconv.ParseFloat(record[j+1], 64)
			if err != nil {
				return nil, fmt.Errorf("csv row %d: bad value %q", i+1, record[j+1])
			}
			values[j] = v
		}
		table = append(table, weather.Observation{
			Time:         ts.UTC(),
			TemperatureC: values[0],
			HumidityPct:  values[1],
			PrecipMm:     values[2],
			WindSpeedKmh: values[3],
		})
	}
	return table, nil
}

// merge combines two tables, deduplicating by timestamp with rows from
// the second table winning, sorted ascending.
func merge(existing, incoming weather.Table) weather.Table {
	byTime := make(map[time.Time]weather.Observation, len(existing)+len(incoming))
	order := make([]time.Time, 0, len(existing)+len(incoming))
	for _, t := range []weather.Table{existing, incoming} {
		for _, row := range t {
			ts := row.Time.UTC()
			if _, seen := byTime[ts]; !seen {
				order = append(order, ts)
			}
			byTime[ts] = row
		}
	}

	merged := make(weather.Table, 0, len(order))
	for _, ts := range order {
		merged = append(merged, byTime[ts])
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Time.Before(merged[j].Time)
	})
	return merged
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
