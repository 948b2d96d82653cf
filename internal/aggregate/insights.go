package aggregate

import (
	"cmp"
	"slices"
	"time"

	"github.com/couchcryptid/traffic-dashboard/internal/domain"
)

// peakFactor marks an hour as a peak when its mean volume exceeds the mean of
// all hourly means by this factor.
const peakFactor = 1.2

// HourVolume is the mean vehicle count observed in one hour of the day.
type HourVolume struct {
	Hour          int     `json:"hour"`
	AverageVolume float64 `json:"average_volume"`
	Peak          bool    `json:"peak"`
}

// WeatherEffect compares the mean volume under one weather condition with the
// mean across conditions.
type WeatherEffect struct {
	Condition     string  `json:"condition"`
	AverageVolume float64 `json:"average_volume"`
	Impact        float64 `json:"impact"`
	Samples       int     `json:"samples"`
}

// CongestionAlert flags a location whose share of congested readings reached
// the alert threshold.
type CongestionAlert struct {
	Location  string  `json:"location"`
	Congested int     `json:"congested"`
	Total     int     `json:"total"`
	Percent   float64 `json:"percent"`
}

// CriticalCount counts critical observations.
func CriticalCount(obs []domain.Observation) int {
	n := 0
	for i := range obs {
		if obs[i].CongestionLevel == domain.CongestionCritical {
			n++
		}
	}
	return n
}

// CongestionEventCount counts high and critical observations.
func CongestionEventCount(obs []domain.Observation) int {
	n := 0
	for i := range obs {
		if congested(obs[i].CongestionLevel) {
			n++
		}
	}
	return n
}

// PeakHours returns up to n hours ordered by mean vehicle count, busiest
// first. Hours are taken in loc (UTC when nil).
func PeakHours(obs []domain.Observation, n int, loc *time.Location) []HourVolume {
	if n <= 0 || len(obs) == 0 {
		return []HourVolume{}
	}
	if loc == nil {
		loc = time.UTC
	}

	var sums, counts [24]int
	for i := range obs {
		h := obs[i].Timestamp.In(loc).Hour()
		sums[h] += obs[i].VehicleCount
		counts[h]++
	}

	hours := make([]HourVolume, 0, 24)
	var meanOfMeans float64
	for h := range 24 {
		if counts[h] == 0 {
			continue
		}
		avg := float64(sums[h]) / float64(counts[h])
		hours = append(hours, HourVolume{Hour: h, AverageVolume: avg})
		meanOfMeans += avg
	}
	meanOfMeans /= float64(len(hours))

	for i := range hours {
		hours[i].Peak = hours[i].AverageVolume > meanOfMeans*peakFactor
	}
	slices.SortStableFunc(hours, func(a, b HourVolume) int {
		return cmp.Compare(b.AverageVolume, a.AverageVolume)
	})
	if len(hours) > n {
		hours = hours[:n]
	}
	return hours
}

// WeatherImpact reports mean volume per weather condition in first-seen
// order. Impact is the condition mean divided by the mean of condition means.
func WeatherImpact(obs []domain.Observation) []WeatherEffect {
	out := []WeatherEffect{}
	sums := []int{}
	index := make(map[string]int)
	for i := range obs {
		cond := obs[i].WeatherCondition
		pos, ok := index[cond]
		if !ok {
			pos = len(out)
			index[cond] = pos
			out = append(out, WeatherEffect{Condition: cond})
			sums = append(sums, 0)
		}
		sums[pos] += obs[i].VehicleCount
		out[pos].Samples++
	}
	if len(out) == 0 {
		return out
	}

	var overall float64
	for i := range out {
		out[i].AverageVolume = float64(sums[i]) / float64(out[i].Samples)
		overall += out[i].AverageVolume
	}
	overall /= float64(len(out))
	for i := range out {
		if overall > 0 {
			out[i].Impact = out[i].AverageVolume / overall
		}
	}
	return out
}

// LowConfidence returns the forecasts whose confidence is below threshold.
func LowConfidence(forecasts []domain.Forecast, threshold float64) []domain.Forecast {
	out := []domain.Forecast{}
	for i := range forecasts {
		if forecasts[i].Confidence < threshold {
			out = append(out, forecasts[i])
		}
	}
	return out
}

// CongestionAlerts returns, in first-seen location order, every location
// where readings at minLevel or above make up at least thresholdPct percent
// of its observations. A location with no such readings never alerts.
func CongestionAlerts(obs []domain.Observation, thresholdPct float64, minLevel domain.CongestionLevel) []CongestionAlert {
	all := []CongestionAlert{}
	index := make(map[string]int)
	for i := range obs {
		loc := obs[i].Location
		pos, ok := index[loc]
		if !ok {
			pos = len(all)
			index[loc] = pos
			all = append(all, CongestionAlert{Location: loc})
		}
		all[pos].Total++
		if obs[i].CongestionLevel.Rank() >= minLevel.Rank() {
			all[pos].Congested++
		}
	}

	out := []CongestionAlert{}
	for _, a := range all {
		if a.Congested == 0 {
			continue
		}
		a.Percent = 100 * float64(a.Congested) / float64(a.Total)
		if a.Percent >= thresholdPct {
			out = append(out, a)
		}
	}
	return out
}

func congested(level domain.CongestionLevel) bool {
	return level.Rank() >= domain.CongestionHigh.Rank()
}
