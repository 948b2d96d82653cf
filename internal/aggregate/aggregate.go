// Package aggregate derives dashboard metrics from observation and forecast
// sequences. Every function is pure: inputs are never modified and the same
// input always produces the same output.
//
// Empty input is handled per function. Means (AverageSpeed,
// AverageConfidence) are 0 for an empty sequence, while PeakPredictedVolume
// returns domain.ErrEmptyInput because a maximum of nothing has no value.
package aggregate

import (
	"fmt"
	"slices"

	"github.com/couchcryptid/traffic-dashboard/internal/domain"
)

// LocationVolume is the summed vehicle count at one location.
type LocationVolume struct {
	Location string `json:"location"`
	Volume   int    `json:"volume"`
}

// TotalVehicleCount sums vehicle counts.
func TotalVehicleCount(obs []domain.Observation) int {
	total := 0
	for i := range obs {
		total += obs[i].VehicleCount
	}
	return total
}

// AverageSpeed is the arithmetic mean of average speeds, or 0 for no observations.
func AverageSpeed(obs []domain.Observation) float64 {
	if len(obs) == 0 {
		return 0
	}
	var sum float64
	for i := range obs {
		sum += obs[i].AverageSpeed
	}
	return sum / float64(len(obs))
}

// CountByCongestionLevel counts observations per level. All four levels are
// always present; readings with an unknown level are not counted.
func CountByCongestionLevel(obs []domain.Observation) map[domain.CongestionLevel]int {
	counts := make(map[domain.CongestionLevel]int, len(domain.CongestionLevels))
	for _, level := range domain.CongestionLevels {
		counts[level] = 0
	}
	for i := range obs {
		if level := obs[i].CongestionLevel; level.Valid() {
			counts[level]++
		}
	}
	return counts
}

// VolumeByLocation sums vehicle counts per location in first-seen order.
// Locations without observations are omitted.
func VolumeByLocation(obs []domain.Observation) []LocationVolume {
	out := []LocationVolume{}
	index := make(map[string]int)
	for i := range obs {
		loc := obs[i].Location
		pos, ok := index[loc]
		if !ok {
			pos = len(out)
			index[loc] = pos
			out = append(out, LocationVolume{Location: loc})
		}
		out[pos].Volume += obs[i].VehicleCount
	}
	return out
}

// ActiveLocationCount is the number of distinct locations present.
func ActiveLocationCount(obs []domain.Observation) int {
	seen := make(map[string]struct{})
	for i := range obs {
		seen[obs[i].Location] = struct{}{}
	}
	return len(seen)
}

// RecentWindow returns the n most recent observations in ascending timestamp
// order. Ties keep their input order. The result is a new slice.
func RecentWindow(obs []domain.Observation, n int) []domain.Observation {
	if n <= 0 {
		return []domain.Observation{}
	}
	sorted := slices.Clone(obs)
	slices.SortStableFunc(sorted, func(a, b domain.Observation) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	if len(sorted) > n {
		sorted = sorted[len(sorted)-n:]
	}
	if sorted == nil {
		return []domain.Observation{}
	}
	return sorted
}

// AverageConfidence is the mean forecast confidence, or 0 for no forecasts.
func AverageConfidence(forecasts []domain.Forecast) float64 {
	if len(forecasts) == 0 {
		return 0
	}
	var sum float64
	for i := range forecasts {
		sum += forecasts[i].Confidence
	}
	return sum / float64(len(forecasts))
}

// PeakPredictedVolume is the largest predicted volume. It fails with
// domain.ErrEmptyInput when there are no forecasts.
func PeakPredictedVolume(forecasts []domain.Forecast) (int, error) {
	if len(forecasts) == 0 {
		return 0, fmt.Errorf("peak predicted volume: %w", domain.ErrEmptyInput)
	}
	peak := forecasts[0].PredictedVolume
	for i := 1; i < len(forecasts); i++ {
		peak = max(peak, forecasts[i].PredictedVolume)
	}
	return peak, nil
}
