package http_test

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/traffic-dashboard/internal/adapter/http"
	"github.com/couchcryptid/traffic-dashboard/internal/aggregate"
	"github.com/couchcryptid/traffic-dashboard/internal/domain"
	"github.com/couchcryptid/traffic-dashboard/internal/observability"
	"github.com/couchcryptid/traffic-dashboard/internal/store"
)

var epoch = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// fakeController applies filters straight to the store and records refreshes.
type fakeController struct {
	st        *store.Store
	refreshes int
	err       error
}

func (f *fakeController) UpdateFilter(change func(*domain.Filter)) (domain.Filter, error) {
	current := f.st.Snapshot().Filter()
	if f.err != nil {
		return current, f.err
	}
	next := current
	change(&next)
	if err := domain.ValidateFilter(next); err != nil {
		return current, err
	}
	f.st.Dispatch(store.ChangeFilter{Filter: next})
	return next, nil
}

func (f *fakeController) Refresh() { f.refreshes++ }

func newTestServer(t *testing.T) (*httpadapter.Server, *store.Store, *fakeController) {
	t.Helper()
	st := store.New(domain.DefaultFilter(), clockwork.NewFakeClockAt(epoch))
	ctrl := &fakeController{st: st}
	cache := httpadapter.NewSummaryCache(aggregate.DefaultOptions(), 4, observability.NewMetricsForTesting())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return httpadapter.NewServer(":0", st, ctrl, cache, logger), st, ctrl
}

func loadObservations(st *store.Store, vehicles ...int) {
	obs := make([]domain.Observation, len(vehicles))
	for i, v := range vehicles {
		obs[i] = domain.Observation{
			ID:               "obs-" + string(rune('a'+i)),
			Timestamp:        epoch.Add(time.Duration(i) * time.Minute),
			Location:         "Airport Road",
			VehicleCount:     v,
			AverageSpeed:     40,
			CongestionLevel:  domain.CongestionMedium,
			WeatherCondition: "clear",
			RoadType:         "urban",
		}
	}
	gen := st.Generation(domain.KindObservations) + 1
	st.Dispatch(store.SetLoading{Kind: domain.KindObservations, Generation: gen})
	st.Dispatch(store.ApplyObservations{Generation: gen, Observations: obs})
}

func serve(srv *httpadapter.Server, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	srv.ServeHTTP(rec, httptest.NewRequest(method, path, r))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := serve(srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReflectsFirstLoad(t *testing.T) {
	srv, st, _ := newTestServer(t)

	rec := serve(srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	loadObservations(st, 100)
	rec = serve(srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := serve(srv, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestSnapshotEndpoint(t *testing.T) {
	srv, st, _ := newTestServer(t)
	loadObservations(st, 100, 200)

	rec := serve(srv, http.MethodGet, "/api/snapshot", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body store.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Observations, 2)
	assert.Equal(t, store.StatusReady, body.Status)
	assert.Equal(t, domain.AllLocations, body.SelectedLocation)
	assert.Equal(t, st.Snapshot().Version, body.Version)
}

func TestSummaryEndpoint_FollowsVersion(t *testing.T) {
	srv, st, _ := newTestServer(t)
	loadObservations(st, 100, 200)

	var first aggregate.Summary
	rec := serve(srv, http.MethodGet, "/api/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.Equal(t, 300, first.TotalVehicles)

	loadObservations(st, 50)
	var second aggregate.Summary
	rec = serve(srv, http.MethodGet, "/api/summary", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.Equal(t, 50, second.TotalVehicles)
	assert.Greater(t, second.Version, first.Version)
}

func TestFilterEndpoint(t *testing.T) {
	srv, st, _ := newTestServer(t)

	rec := serve(srv, http.MethodPut, "/api/filter", `{"location":"Airport Road"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var body domain.Filter
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, domain.Filter{Location: "Airport Road", TimeRange: domain.TimeRange24h}, body)
	assert.Equal(t, "Airport Road", st.Snapshot().SelectedLocation)

	rec = serve(srv, http.MethodPut, "/api/filter", `{"time_range":"1h"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, domain.Filter{Location: "Airport Road", TimeRange: domain.TimeRange1h}, st.Snapshot().Filter())
}

func TestFilterEndpoint_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"location":`},
		{"unknown field", `{"city":"Springfield"}`},
		{"invalid time range", `{"time_range":"2w"}`},
		{"empty location", `{"location":""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, st, _ := newTestServer(t)
			rec := serve(srv, http.MethodPut, "/api/filter", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
			assert.Equal(t, domain.DefaultFilter(), st.Snapshot().Filter())
		})
	}
}

func TestFilterEndpoint_ControllerFailure(t *testing.T) {
	srv, _, ctrl := newTestServer(t)
	ctrl.err = errors.New("boom")

	rec := serve(srv, http.MethodPut, "/api/filter", `{"location":"Airport Road"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRefreshEndpoint(t *testing.T) {
	srv, _, ctrl := newTestServer(t)

	rec := serve(srv, http.MethodPost, "/api/refresh", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, ctrl.refreshes)

	rec = serve(srv, http.MethodGet, "/api/refresh", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
