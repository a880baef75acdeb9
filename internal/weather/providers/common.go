// Package providers implements upstream weather data sources.
package providers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

var (
	errRateLimited = errors.New("rate limited")
	errServerError = errors.New("server error")
	errUnexpected  = errors.New("unexpected status code")
	errCircuitOpen = errors.New("circuit breaker open")
)

// resilientClient wraps an http.Client with retries, exponential
// backoff, and a circuit breaker shared by all requests to one
// upstream.
type resilientClient struct {
	client         *http.Client
	breaker        *gobreaker.CircuitBreaker
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

func newResilientClient(client *http.Client, breakerName string) *resilientClient {
	return &resilientClient{
		client: client,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        breakerName,
			MaxRequests: 5,
			Interval:    1 * time.Minute,
			Timeout:     2 * time.Minute,
		}),
		maxRetries:     3,
		initialBackoff: 500 * time.Millisecond,
		maxBackoff:     5 * time.Second,
	}
}

// do executes the request with retries. buildRequest is called per
// attempt so request bodies are never reused across retries.
func (c *resilientClient) do(ctx context.Context, buildRequest func() (*http.Request, error)) (*http.Response, error) {
	if c.client == nil {
		return nil, errors.New("http client not configured")
	}

	var attempt int
	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := buildRequest()
		if err != nil {
			return nil, err
		}
		req = req.WithContext(ctx)

		result, err := c.breaker.Execute(func() (interface{}, error) {
			resp, execErr := c.client.Do(req)
			if execErr != nil {
				return nil, execErr
			}
			switch {
			case resp.StatusCode == http.StatusTooManyRequests:
				resp.Body.Close()
				return nil, errRateLimited
			case resp.StatusCode >= 500:
				resp.Body.Close()
				return nil, errServerError
			case resp.StatusCode < 200 || resp.StatusCode >= 300:
				resp.Body.Close()
				return nil, fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
			}
			return resp, nil
		})
		if err == nil {
			return result.(*http.Response), nil
		}

		// An open circuit means the upstream is known-bad; retrying
		// here would only extend the outage window.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}

		if attempt >= c.maxRetries {
			return nil, err
		}

		delay := c.initialBackoff * time.Duration(math.Pow(2, float64(attempt)))
		if c.maxBackoff > 0 && delay > c.maxBackoff {
			delay = c.maxBackoff
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		attempt++
	}
}
