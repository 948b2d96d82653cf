package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/traffic-dashboard/internal/domain"
)

func TestCriticalAndCongestionEventCount(t *testing.T) {
	obs := scenarioObservations()
	assert.Equal(t, 1, CriticalCount(obs))
	assert.Equal(t, 2, CongestionEventCount(obs))
	assert.Zero(t, CriticalCount(nil))
}

func TestPeakHours(t *testing.T) {
	obs := []domain.Observation{
		reading("1", "Airport Road", 300, 40, domain.CongestionLow, base.Add(8*time.Hour)),
		reading("2", "Airport Road", 500, 40, domain.CongestionLow, base.Add(8*time.Hour+30*time.Minute)),
		reading("3", "Airport Road", 200, 40, domain.CongestionLow, base.Add(12*time.Hour)),
		reading("4", "Airport Road", 100, 40, domain.CongestionLow, base.Add(3*time.Hour)),
	}

	got := PeakHours(obs, 2, nil)
	want := []HourVolume{
		{Hour: 8, AverageVolume: 400, Peak: true},
		{Hour: 12, AverageVolume: 200, Peak: false},
	}
	assert.Equal(t, want, got)
	assert.Empty(t, PeakHours(nil, 3, nil))
	assert.Empty(t, PeakHours(obs, 0, nil))
}

func TestPeakHours_TimeZone(t *testing.T) {
	zone := time.FixedZone("UTC-5", -5*60*60)
	obs := []domain.Observation{
		reading("1", "Airport Road", 300, 40, domain.CongestionLow, base.Add(13*time.Hour)),
	}
	got := PeakHours(obs, 1, zone)
	require.Len(t, got, 1)
	assert.Equal(t, 8, got[0].Hour)
}

func TestWeatherImpact(t *testing.T) {
	obs := []domain.Observation{
		reading("1", "Airport Road", 100, 40, domain.CongestionLow, base),
		reading("2", "Airport Road", 100, 40, domain.CongestionLow, base),
		reading("3", "Airport Road", 300, 40, domain.CongestionLow, base),
	}
	obs[1].WeatherCondition = "rainy"

	got := WeatherImpact(obs)
	require.Len(t, got, 2)
	assert.Equal(t, "clear", got[0].Condition)
	assert.Equal(t, 2, got[0].Samples)
	assert.InDelta(t, 200, got[0].AverageVolume, 1e-9)
	assert.InDelta(t, 4.0/3.0, got[0].Impact, 1e-9)
	assert.Equal(t, "rainy", got[1].Condition)
	assert.InDelta(t, 2.0/3.0, got[1].Impact, 1e-9)

	assert.Empty(t, WeatherImpact(nil))
}

func TestLowConfidence(t *testing.T) {
	got := LowConfidence(forecasts(0.7, 0.75, 0.9), 0.75)
	require.Len(t, got, 1)
	assert.InDelta(t, 0.7, got[0].Confidence, 1e-9)
}

func TestCongestionAlerts(t *testing.T) {
	obs := []domain.Observation{
		reading("1", "Airport Road", 1, 1, domain.CongestionHigh, base),
		reading("2", "Airport Road", 1, 1, domain.CongestionLow, base),
		reading("3", "Industrial Zone", 1, 1, domain.CongestionCritical, base),
		reading("4", "Industrial Zone", 1, 1, domain.CongestionCritical, base),
		reading("5", "Industrial Zone", 1, 1, domain.CongestionLow, base),
		reading("6", "Residential Area", 1, 1, domain.CongestionLow, base),
	}

	tests := []struct {
		name      string
		threshold float64
		want      []string
	}{
		{name: "half", threshold: 50, want: []string{"Airport Road", "Industrial Zone"}},
		{name: "two thirds", threshold: 60, want: []string{"Industrial Zone"}},
		{name: "zero never flags clean locations", threshold: 0, want: []string{"Airport Road", "Industrial Zone"}},
		{name: "unreachable", threshold: 90, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := CongestionAlerts(obs, tt.threshold, domain.CongestionHigh)
			got := make([]string, len(alerts))
			for i, a := range alerts {
				got[i] = a.Location
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCongestionAlerts_Percent(t *testing.T) {
	obs := []domain.Observation{
		reading("1", "Industrial Zone", 1, 1, domain.CongestionCritical, base),
		reading("2", "Industrial Zone", 1, 1, domain.CongestionHigh, base),
		reading("3", "Industrial Zone", 1, 1, domain.CongestionLow, base),
		reading("4", "Industrial Zone", 1, 1, domain.CongestionMedium, base),
	}
	alerts := CongestionAlerts(obs, 50, domain.CongestionHigh)
	require.Len(t, alerts, 1)
	assert.Equal(t, CongestionAlert{Location: "Industrial Zone", Congested: 2, Total: 4, Percent: 50}, alerts[0])

	critical := CongestionAlerts(obs, 20, domain.CongestionCritical)
	require.Len(t, critical, 1)
	assert.Equal(t, 1, critical[0].Congested)
	assert.InDelta(t, 25.0, critical[0].Percent, 1e-9)

	assert.Empty(t, CongestionAlerts(obs, 50, domain.CongestionCritical))
}
