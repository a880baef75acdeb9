package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/climadash/clima-dashboard/internal/weather"
)

// ErrDeserialize marks stored bytes that cannot be decoded into a
// Table. Callers treat it as a cache miss, never as a fatal error.
var ErrDeserialize = errors.New("cache: cannot decode stored table")

// tableColumns is the fixed column order of the serialized frame.
var tableColumns = []string{"temperature_c", "humidity_pct", "precipitation_mm", "wind_speed_kmh"}

// tableFrame is the on-disk shape of a Table: a column list, a
// timestamp index, and one numeric row per index entry.
type tableFrame struct {
	Columns []string    `json:"columns"`
	Index   []string    `json:"index"`
	Data    [][]float64 `json:"data"`
}

// EncodeTable serializes a Table so that DecodeTable reproduces it
// exactly: column order, row order, and the time index all round-trip.
func EncodeTable(t weather.Table) ([]byte, error) {
	frame := tableFrame{
		Columns: tableColumns,
		Index:   make([]string, 0, len(t)),
		Data:    make([][]float64, 0, len(t)),
	}
	for _, row := range t {
		frame.Index = append(frame.Index, row.Time.UTC().Format(time.RFC3339))
		frame.Data = append(frame.Data, []float64{row.TemperatureC, row.HumidityPct, row.PrecipMm, row.WindSpeedKmh})
	}
	encoded, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("encode table: %w", err)
	}
	return encoded, nil
}

// DecodeTable is the inverse of EncodeTable. Any malformed or
// foreign-format input yields ErrDeserialize.
func DecodeTable(encoded []byte) (weather.Table, error) {
	var frame tableFrame
	if err := json.Unmarshal(encoded, &frame); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeserialize, err)
	}
	if len(frame.Columns) != len(tableColumns) {
		return nil, fmt.Errorf("%w: unexpected column count %d", ErrDeserialize, len(frame.Columns))
	}
	for i, col := range frame.Columns {
		if col != tableColumns[i] {
			return nil, fmt.Errorf("%w: unexpected column %q at position %d", ErrDeserialize, col, i)
		}
	}
	if len(frame.Index) != len(frame.Data) {
		return nil, fmt.Errorf("%w: index has %d entries but data has %d rows", ErrDeserialize, len(frame.Index), len(frame.Data))
	}

	table := make(weather.Table, 0, len(frame.Data))
	for i, values := range frame.Data {
		if len(values) != len(tableColumns) {
			return nil, fmt.Errorf("%w: row %d has %d values", ErrDeserialize, i, len(values))
		}
		ts, err := time.Parse(time.RFC3339, frame.Index[i])
		if err != nil {
			return nil, fmt.Errorf("%w: bad timestamp %q", ErrDeserialize, frame.Index[i])
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
