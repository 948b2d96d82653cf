package aggregate

import (
	"time"

	"github.com/couchcryptid/traffic-dashboard/internal/domain"
	"github.com/couchcryptid/traffic-dashboard/internal/store"
)

// Options tunes Summarize.
type Options struct {
	RecentWindow        int            // observations in the recent feed
	PeakHours           int            // hours listed in the peak table
	AlertThresholdPct   float64        // congestion share that raises an alert
	CriticalOnly        bool           // alert on critical readings only
	ConfidenceThreshold float64        // forecasts below this are low confidence
	Location            *time.Location // zone for hour-of-day bucketing
	Sensors             SensorCounts   // sensor fleet status shown alongside the metrics
}

// SensorCounts is the configured sensor fleet status.
type SensorCounts struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
}

// DefaultOptions matches the dashboard's default settings.
func DefaultOptions() Options {
	return Options{
		RecentWindow:        24,
		PeakHours:           5,
		AlertThresholdPct:   80,
		ConfidenceThreshold: 0.75,
		Location:            time.UTC,
	}
}

func (o Options) alertLevel() domain.CongestionLevel {
	if o.CriticalOnly {
		return domain.CongestionCritical
	}
	return domain.CongestionHigh
}

// Summary bundles every metric the dashboard displays for one snapshot.
type Summary struct {
	Version          uint64                         `json:"version"`
	Filter           domain.Filter                  `json:"filter"`
	Status           store.Status                   `json:"status"`
	Error            string                         `json:"error,omitempty"`
	UpdatedAt        time.Time                      `json:"updated_at"`
	TotalVehicles    int                            `json:"total_vehicles"`
	AverageSpeed     float64                        `json:"average_speed"`
	ActiveLocations  int                            `json:"active_locations"`
	CriticalCount    int                            `json:"critical_count"`
	CongestionEvents int                            `json:"congestion_events"`
	Congestion       map[domain.CongestionLevel]int `json:"congestion"`
	VolumeByLocation []LocationVolume               `json:"volume_by_location"`
	Recent           []domain.Observation           `json:"recent"`
	PeakHours        []HourVolume                   `json:"peak_hours"`
	WeatherImpact    []WeatherEffect                `json:"weather_impact"`
	Alerts           []CongestionAlert              `json:"alerts"`

	AverageConfidence   float64 `json:"average_confidence"`
	PeakPredictedVolume *int    `json:"peak_predicted_volume,omitempty"` // nil without forecasts
	LowConfidenceCount  int     `json:"low_confidence_count"`
	ForecastCount       int     `json:"forecast_count"`

	Sensors SensorCounts `json:"sensors"`
}

// Summarize computes the full dashboard view of snap.
func Summarize(snap store.Snapshot, opts Options) Summary {
	obs, fc := snap.Observations, snap.Forecasts
	sum := Summary{
		Version:           snap.Version,
		Filter:            snap.Filter(),
		Status:            snap.Status,
		Error:             snap.Error,
		UpdatedAt:         snap.UpdatedAt,
		TotalVehicles:     TotalVehicleCount(obs),
		AverageSpeed:      AverageSpeed(obs),
		ActiveLocations:   ActiveLocationCount(obs),
		CriticalCount:     CriticalCount(obs),
		CongestionEvents:  CongestionEventCount(obs),
		Congestion:        CountByCongestionLevel(obs),
		VolumeByLocation:  VolumeByLocation(obs),
		Recent:            RecentWindow(obs, opts.RecentWindow),
		PeakHours:         PeakHours(obs, opts.PeakHours, opts.Location),
		WeatherImpact:     WeatherImpact(obs),
		Alerts:            CongestionAlerts(obs, opts.AlertThresholdPct, opts.alertLevel()),
		AverageConfidence: AverageConfidence(fc),
		ForecastCount:     len(fc),
		Sensors:           opts.Sensors,
	}
	sum.LowConfidenceCount = len(LowConfidence(fc, opts.ConfidenceThreshold))
	if peak, err := PeakPredictedVolume(fc); err == nil {
		sum.PeakPredictedVolume = &peak
	}
	return sum
}
