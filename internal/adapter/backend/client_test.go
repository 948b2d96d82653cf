package backend

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/traffic-dashboard/internal/domain"
	"github.com/couchcryptid/traffic-dashboard/internal/observability"
)

func newTestClient(baseURL string, maxRetry time.Duration) *Client {
	c := NewClient(baseURL, 2*time.Second, maxRetry, 6,
		slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())
	c.initialInterval = time.Millisecond
	return c
}

const trafficBody = `{
  "data": [
    {"id": "t-1", "timestamp": "2026-03-02T08:15:00.250000", "location": "Airport Road",
     "vehicle_count": 320, "average_speed": 41.5, "congestion_level": "high",
     "weather_condition": "rainy", "temperature": 12, "visibility": 4,
     "road_type": "urban", "event_nearby": true},
    {"id": "t-2", "timestamp": "2026-03-02T09:00:00Z", "location": "Airport Road",
     "vehicle_count": 120, "average_speed": 60, "congestion_level": "low",
     "weather_condition": "clear", "temperature": 15, "visibility": 10,
     "road_type": "urban", "event_nearby": false}
  ],
  "total_records": 2,
  "time_range": "6h",
  "location_filter": "Airport Road"
}`

func TestFetchObservations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/traffic-data", r.URL.Path)
		assert.Equal(t, "Airport Road", r.URL.Query().Get("location"))
		assert.Equal(t, "6h", r.URL.Query().Get("time_range"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(trafficBody))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL+"/", 0)
	obs, err := c.FetchObservations(context.Background(), domain.Filter{Location: "Airport Road", TimeRange: domain.TimeRange6h})
	require.NoError(t, err)
	require.Len(t, obs, 2)

	assert.Equal(t, "t-1", obs[0].ID)
	assert.Equal(t, time.Date(2026, 3, 2, 8, 15, 0, 250_000_000, time.UTC), obs[0].Timestamp)
	assert.Equal(t, 320, obs[0].VehicleCount)
	assert.Equal(t, domain.CongestionHigh, obs[0].CongestionLevel)
	assert.True(t, obs[0].EventNearby)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), obs[1].Timestamp)
	assert.NoError(t, domain.ValidateObservations(obs))
}

func TestFetchForecasts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/predictions", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req predictionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, predictionRequest{Location: "all", TimeRange: "24h", HoursAhead: 6}, req)

		_, _ = w.Write([]byte(`{"predictions":[
			{"timestamp":"2026-03-02T10:00:00","predicted_volume":410,"confidence":0.82,
			 "factors":{"weather":0.2,"events":0.1,"historical":0.5,"seasonal":0.2},
			 "feature_importance":{"hour":0.3}}
		],"model_info":{"type":"ensemble"}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 0)
	fc, err := c.FetchForecasts(context.Background(), domain.DefaultFilter())
	require.NoError(t, err)
	require.Len(t, fc, 1)
	assert.Equal(t, 410, fc[0].PredictedVolume)
	assert.InDelta(t, 0.82, fc[0].Confidence, 1e-9)
	assert.InDelta(t, 0.5, fc[0].Factors.Historical, 1e-9)
	assert.Equal(t, time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), fc[0].Timestamp)
}

func TestFetch_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			_, _ = w.Write([]byte(`{"data":[]}`))
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 5*time.Second)
	obs, err := c.FetchObservations(context.Background(), domain.DefaultFilter())
	require.NoError(t, err)
	assert.Empty(t, obs)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetch_ClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "unknown location", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 5*time.Second)
	_, err := c.FetchObservations(context.Background(), domain.DefaultFilter())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "unknown location")
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_NoRetryWhenDisabled(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 0)
	_, err := c.FetchForecasts(context.Background(), domain.DefaultFilter())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "predictions request")
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data": [`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, time.Second)
	_, err := c.FetchObservations(context.Background(), domain.DefaultFilter())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestFetch_BadTimestamp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"id":"x","timestamp":"yesterday"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 0)
	_, err := c.FetchObservations(context.Background(), domain.DefaultFilter())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "observation 0")
}

func TestFetch_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestClient(srv.URL, time.Minute)
	_, err := c.FetchObservations(ctx, domain.DefaultFilter())
	require.ErrorIs(t, err, context.Canceled)
}

func TestRetryable(t *testing.T) {
	assert.True(t, retryable(http.StatusTooManyRequests))
	assert.True(t, retryable(http.StatusInternalServerError))
	assert.True(t, retryable(http.StatusGatewayTimeout))
	assert.False(t, retryable(http.StatusNotFound))
	assert.False(t, retryable(http.StatusUnauthorized))
}
