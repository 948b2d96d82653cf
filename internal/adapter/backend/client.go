// Package backend fetches observations and forecasts from a remote traffic
// API. Transient failures (transport errors, 429 and 5xx responses) are
// retried with exponential backoff; other responses fail immediately.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/couchcryptid/traffic-dashboard/internal/domain"
	"github.com/couchcryptid/traffic-dashboard/internal/observability"
)

const (
	endpointTraffic     = "traffic"
	endpointPredictions = "predictions"

	maxErrorBody = 512
)

// timestampLayouts are tried in order; the API may omit the zone, in which
// case UTC is assumed.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

// Client implements the refresh sources against a remote traffic API.
type Client struct {
	httpClient      *http.Client
	baseURL         string
	horizon         int
	maxRetry        time.Duration
	initialInterval time.Duration
	logger          *slog.Logger
	metrics         *observability.Metrics
}

// NewClient creates a backend client. maxRetry bounds the total time spent
// retrying one call; zero disables retries.
func NewClient(baseURL string, timeout, maxRetry time.Duration, horizon int, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		httpClient:      &http.Client{Timeout: timeout},
		baseURL:         strings.TrimRight(baseURL, "/"),
		horizon:         horizon,
		maxRetry:        maxRetry,
		initialInterval: 500 * time.Millisecond,
		logger:          logger,
		metrics:         metrics,
	}
}

type trafficResponse struct {
	Data []wireObservation `json:"data"`
}

type predictionRequest struct {
	Location   string `json:"location"`
	TimeRange  string `json:"time_range"`
	HoursAhead int    `json:"hours_ahead"`
}

type predictionResponse struct {
	Predictions []wireForecast `json:"predictions"`
}

// wireObservation shadows the timestamp so zone-less values can be parsed.
type wireObservation struct {
	domain.Observation
	Timestamp string `json:"timestamp"`
}

type wireForecast struct {
	domain.Forecast
	Timestamp string `json:"timestamp"`
}

// FetchObservations requests the traffic readings matching filter.
func (c *Client) FetchObservations(ctx context.Context, filter domain.Filter) ([]domain.Observation, error) {
	params := url.Values{
		"location":   {filter.Location},
		"time_range": {string(filter.TimeRange)},
	}
	var resp trafficResponse
	if err := c.do(ctx, endpointTraffic, http.MethodGet, "/api/traffic-data?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	obs := make([]domain.Observation, len(resp.Data))
	for i, w := range resp.Data {
		ts, err := parseTimestamp(w.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("observation %d: %w", i, err)
		}
		obs[i] = w.Observation
		obs[i].Timestamp = ts
	}
	return obs, nil
}

// FetchForecasts requests the hourly forecast series for filter.
func (c *Client) FetchForecasts(ctx context.Context, filter domain.Filter) ([]domain.Forecast, error) {
	body, err := json.Marshal(predictionRequest{
		Location:   filter.Location,
		TimeRange:  string(filter.TimeRange),
		HoursAhead: c.horizon,
	})
	if err != nil {
		return nil, fmt.Errorf("encode prediction request: %w", err)
	}

	var resp predictionResponse
	if err := c.do(ctx, endpointPredictions, http.MethodPost, "/api/predictions", body, &resp); err != nil {
		return nil, err
	}

	fc := make([]domain.Forecast, len(resp.Predictions))
	for i, w := range resp.Predictions {
		ts, err := parseTimestamp(w.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("forecast %d: %w", i, err)
		}
		fc[i] = w.Forecast
		fc[i].Timestamp = ts
	}
	return fc, nil
}

// do performs one logical call, retrying transient failures.
func (c *Client) do(ctx context.Context, endpoint, method, path string, body []byte, out any) error {
	operation := func() error {
		start := time.Now()
		err := c.attempt(ctx, method, path, body, out)
		c.metrics.BackendDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

		var perm *backoff.PermanentError
		switch {
		case err == nil:
			c.metrics.BackendRequests.WithLabelValues(endpoint, "success").Inc()
		case errors.As(err, &perm):
			c.metrics.BackendRequests.WithLabelValues(endpoint, "error").Inc()
		default:
			c.metrics.BackendRequests.WithLabelValues(endpoint, "retry").Inc()
			c.logger.Warn("backend request failed, retrying", "endpoint", endpoint, "error", err)
		}
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initialInterval
	bo.MaxElapsedTime = c.maxRetry
	var policy backoff.BackOff = bo
	if c.maxRetry <= 0 {
		policy = &backoff.StopBackOff{}
	}

	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return fmt.Errorf("%s request: %w", endpoint, err)
	}
	return nil
}

func (c *Client) attempt(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		if retryable(resp.StatusCode) {
			return statusErr
		}
		return backoff.Permanent(statusErr)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return backoff.Permanent(fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.New("invalid timestamp " + strconv.Quote(s))
}
