package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/climadash/clima-dashboard/internal/weather"
)

// hourlyVariables are the series requested from Open-Meteo, matching
// the columns of the processed table.
const hourlyVariables = "temperature_2m,relative_humidity_2m,precipitation,wind_speed_10m"

// maxResponseBytes bounds the body read; a 16-day hourly forecast is
// well under 1 MiB.
const maxResponseBytes = 8 << 20

// OpenMeteoProvider fetches hourly forecasts from Open-Meteo. No API
// key is required.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	client  *resilientClient
}

func NewOpenMeteoProvider(client *http.Client) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: "https://api.open-meteo.com/v1/forecast",
		client:  newResilientClient(client, "openmeteo"),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

// FetchHourly returns the raw hourly-forecast response body for q.
func (p *OpenMeteoProvider) FetchHourly(ctx context.Context, q weather.Query) ([]byte, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", strconv.FormatFloat(q.Latitude, 'f', -1, 64))
		values.Set("longitude", strconv.FormatFloat(q.Longitude, 'f', -1, 64))
		values.Set("hourly", hourlyVariables)
		values.Set("timezone", q.Timezone)
		if q.ForecastDays > 0 {
			values.Set("forecast_days", strconv.Itoa(q.ForecastDays))
		}
		return http.NewRequest(http.MethodGet, fmt.Sprintf("%s?%s", p.baseURL, values.Encode()), nil)
	}

	resp, err := p.client.do(ctx, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read openmeteo response: %w", err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("openmeteo returned invalid JSON")
	}
	return body, nil
}
