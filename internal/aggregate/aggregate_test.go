package aggregate

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/traffic-dashboard/internal/domain"
)

var base = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func reading(id, loc string, vehicles int, speed float64, level domain.CongestionLevel, at time.Time) domain.Observation {
	return domain.Observation{
		ID:               id,
		Timestamp:        at,
		Location:         loc,
		VehicleCount:     vehicles,
		AverageSpeed:     speed,
		CongestionLevel:  level,
		WeatherCondition: "clear",
		RoadType:         "urban",
	}
}

func scenarioObservations() []domain.Observation {
	return []domain.Observation{
		reading("1", "Highway A1", 100, 40, domain.CongestionLow, base.Add(4*time.Hour)),
		reading("2", "Airport Road", 200, 50, domain.CongestionLow, base.Add(1*time.Hour)),
		reading("3", "Highway A1", 150, 30, domain.CongestionHigh, base.Add(3*time.Hour)),
		reading("4", "Industrial Zone", 300, 60, domain.CongestionCritical, base.Add(2*time.Hour)),
		reading("5", "Airport Road", 50, 45, domain.CongestionMedium, base.Add(5*time.Hour)),
	}
}

func TestTotalVehicleCount(t *testing.T) {
	obs := scenarioObservations()
	assert.Equal(t, 800, TotalVehicleCount(obs))
	assert.Equal(t, 0, TotalVehicleCount(nil))
}

func TestTotalVehicleCount_OrderInvariant(t *testing.T) {
	obs := scenarioObservations()
	rng := rand.New(rand.NewSource(7))
	for range 10 {
		rng.Shuffle(len(obs), func(i, j int) { obs[i], obs[j] = obs[j], obs[i] })
		assert.Equal(t, 800, TotalVehicleCount(obs))
	}
}

func TestAverageSpeed(t *testing.T) {
	assert.InDelta(t, 45.0, AverageSpeed(scenarioObservations()), 1e-9)
}

func TestAverageSpeed_EmptyIsZero(t *testing.T) {
	assert.Zero(t, AverageSpeed(nil))
	assert.Zero(t, AverageSpeed([]domain.Observation{}))
}

func TestCountByCongestionLevel(t *testing.T) {
	got := CountByCongestionLevel(scenarioObservations())
	want := map[domain.CongestionLevel]int{
		domain.CongestionLow:      2,
		domain.CongestionMedium:   1,
		domain.CongestionHigh:     1,
		domain.CongestionCritical: 1,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CountByCongestionLevel mismatch (-want +got):\n%s", diff)
	}
}

func TestCountByCongestionLevel_AlwaysFourKeys(t *testing.T) {
	tests := []struct {
		name string
		obs  []domain.Observation
	}{
		{name: "empty", obs: nil},
		{name: "single level", obs: []domain.Observation{
			reading("1", "Airport Road", 10, 10, domain.CongestionHigh, base),
			reading("2", "Airport Road", 10, 10, domain.CongestionHigh, base),
		}},
		{name: "scenario", obs: scenarioObservations()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CountByCongestionLevel(tt.obs)
			require.Len(t, got, 4)
			total := 0
			for _, level := range domain.CongestionLevels {
				n, ok := got[level]
				assert.True(t, ok, "missing level %s", level)
				total += n
			}
			assert.Equal(t, len(tt.obs), total)
		})
	}
}

func TestVolumeByLocation_FirstSeenOrder(t *testing.T) {
	want := []LocationVolume{
		{Location: "Highway A1", Volume: 250},
		{Location: "Airport Road", Volume: 250},
		{Location: "Industrial Zone", Volume: 300},
	}
	assert.Equal(t, want, VolumeByLocation(scenarioObservations()))
	assert.Empty(t, VolumeByLocation(nil))
}

func TestActiveLocationCount(t *testing.T) {
	assert.Equal(t, 3, ActiveLocationCount(scenarioObservations()))
	assert.Equal(t, 0, ActiveLocationCount(nil))
}

func TestRecentWindow(t *testing.T) {
	obs := scenarioObservations()
	got := RecentWindow(obs, 3)

	ids := make([]string, len(got))
	for i, o := range got {
		ids[i] = o.ID
	}
	assert.Equal(t, []string{"3", "1", "5"}, ids)
	assert.Equal(t, "1", obs[0].ID, "input must not be reordered")
}

func TestRecentWindow_StableTies(t *testing.T) {
	obs := []domain.Observation{
		reading("a", "Airport Road", 1, 1, domain.CongestionLow, base.Add(time.Hour)),
		reading("b", "Airport Road", 1, 1, domain.CongestionLow, base),
		reading("c", "Airport Road", 1, 1, domain.CongestionLow, base.Add(time.Hour)),
		reading("d", "Airport Road", 1, 1, domain.CongestionLow, base),
	}
	got := RecentWindow(obs, 4)
	ids := make([]string, len(got))
	for i, o := range got {
		ids[i] = o.ID
	}
	assert.Equal(t, []string{"b", "d", "a", "c"}, ids)
}

func TestRecentWindow_Bounds(t *testing.T) {
	obs := scenarioObservations()
	assert.Len(t, RecentWindow(obs, 100), len(obs))
	assert.Empty(t, RecentWindow(obs, 0))
	assert.Empty(t, RecentWindow(obs, -1))
	assert.NotNil(t, RecentWindow(nil, 3))
}

func TestRecentWindow_Idempotent(t *testing.T) {
	once := RecentWindow(scenarioObservations(), 3)
	twice := RecentWindow(once, 3)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("RecentWindow not idempotent (-once +twice):\n%s", diff)
	}
}

func forecasts(confidences ...float64) []domain.Forecast {
	out := make([]domain.Forecast, len(confidences))
	for i, c := range confidences {
		out[i] = domain.Forecast{
			Timestamp:       base.Add(time.Duration(i) * time.Hour),
			PredictedVolume: 100 * (i + 1),
			Confidence:      c,
		}
	}
	return out
}

func TestAverageConfidence(t *testing.T) {
	assert.InDelta(t, 0.8, AverageConfidence(forecasts(0.7, 0.8, 0.9)), 1e-9)
}

func TestAverageConfidence_EmptyIsZero(t *testing.T) {
	assert.Zero(t, AverageConfidence(nil))
}

func TestPeakPredictedVolume(t *testing.T) {
	fc := forecasts(0.7, 0.8, 0.9)
	fc[1].PredictedVolume = 950
	peak, err := PeakPredictedVolume(fc)
	require.NoError(t, err)
	assert.Equal(t, 950, peak)
}

func TestPeakPredictedVolume_EmptyFails(t *testing.T) {
	_, err := PeakPredictedVolume(nil)
	require.ErrorIs(t, err, domain.ErrEmptyInput)

	_, err = PeakPredictedVolume([]domain.Forecast{})
	require.ErrorIs(t, err, domain.ErrEmptyInput)
}
