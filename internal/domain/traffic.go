package domain

import (
	"fmt"
	"slices"
	"time"
)

// AllLocations is the location filter value that selects every location.
const AllLocations = "all"

// Locations is the catalogue of monitored locations.
var Locations = []string{
	"Highway A1",
	"Downtown Main St",
	"Airport Road",
	"Industrial Zone",
	"Residential Area",
}

// WeatherConditions and RoadTypes are the categorical values produced by the mock source.
var (
	WeatherConditions = []string{"Clear", "Rainy", "Foggy", "Cloudy", "Snowy"}
	RoadTypes         = []string{"Highway", "Urban", "Suburban", "Rural"}
)

// CongestionLevel is the ordered congestion classification of an observation.
type CongestionLevel string

const (
	CongestionLow      CongestionLevel = "low"
	CongestionMedium   CongestionLevel = "medium"
	CongestionHigh     CongestionLevel = "high"
	CongestionCritical CongestionLevel = "critical"
)

// CongestionLevels lists every level in ascending order.
var CongestionLevels = []CongestionLevel{CongestionLow, CongestionMedium, CongestionHigh, CongestionCritical}

// Rank returns the position of the level in the low..critical ordering, or -1
// for an unknown level.
func (l CongestionLevel) Rank() int {
	return slices.Index(CongestionLevels, l)
}

// Valid reports whether l is one of the four known levels.
func (l CongestionLevel) Valid() bool {
	return l.Rank() >= 0
}

// TimeRange is the dashboard's history window filter.
type TimeRange string

const (
	TimeRange1h  TimeRange = "1h"
	TimeRange6h  TimeRange = "6h"
	TimeRange24h TimeRange = "24h"
	TimeRange7d  TimeRange = "7d"
	TimeRange30d TimeRange = "30d"
)

var timeRangeDurations = map[TimeRange]time.Duration{
	TimeRange1h:  time.Hour,
	TimeRange6h:  6 * time.Hour,
	TimeRange24h: 24 * time.Hour,
	TimeRange7d:  7 * 24 * time.Hour,
	TimeRange30d: 30 * 24 * time.Hour,
}

// ParseTimeRange validates a time range string.
func ParseTimeRange(s string) (TimeRange, error) {
	tr := TimeRange(s)
	if _, ok := timeRangeDurations[tr]; !ok {
		return "", &ValidationError{Index: -1, Field: "time_range", Err: fmt.Errorf("unknown time range %q", s)}
	}
	return tr, nil
}

// Duration returns the length of the window. Unknown ranges return 24h.
func (r TimeRange) Duration() time.Duration {
	if d, ok := timeRangeDurations[r]; ok {
		return d
	}
	return 24 * time.Hour
}

// Kind identifies one of the two refreshed data sets.
type Kind int

const (
	KindObservations Kind = iota
	KindForecasts
)

// Kinds lists both data kinds in refresh order.
var Kinds = []Kind{KindObservations, KindForecasts}

func (k Kind) String() string {
	switch k {
	case KindObservations:
		return "observations"
	case KindForecasts:
		return "forecasts"
	default:
		return "unknown"
	}
}

// Filter is the active dashboard selection.
type Filter struct {
	Location  string    `json:"location"`
	TimeRange TimeRange `json:"time_range"`
}

// DefaultFilter selects every location over the last 24 hours.
func DefaultFilter() Filter {
	return Filter{Location: AllLocations, TimeRange: TimeRange24h}
}

// Key returns a stable "location|timeRange" identifier for the filter.
func (f Filter) Key() string {
	return f.Location + "|" + string(f.TimeRange)
}

// Observation is one traffic reading at a location.
type Observation struct {
	ID               string          `json:"id" validate:"required"`
	Timestamp        time.Time       `json:"timestamp" validate:"required"`
	Location         string          `json:"location" validate:"required"`
	VehicleCount     int             `json:"vehicle_count" validate:"gte=0"`
	AverageSpeed     float64         `json:"average_speed" validate:"gte=0"`
	CongestionLevel  CongestionLevel `json:"congestion_level" validate:"oneof=low medium high critical"`
	WeatherCondition string          `json:"weather_condition" validate:"required"`
	Temperature      float64         `json:"temperature"`
	Visibility       float64         `json:"visibility" validate:"gte=0"`
	RoadType         string          `json:"road_type" validate:"required"`
	EventNearby      bool            `json:"event_nearby"`
}

// Factors holds the weights of the drivers behind a forecast.
type Factors struct {
	Weather    float64 `json:"weather" validate:"gte=0"`
	Events     float64 `json:"events" validate:"gte=0"`
	Historical float64 `json:"historical" validate:"gte=0"`
	Seasonal   float64 `json:"seasonal" validate:"gte=0"`
}

// Forecast is one predicted future interval.
type Forecast struct {
	Timestamp       time.Time `json:"timestamp" validate:"required"`
	PredictedVolume int       `json:"predicted_volume" validate:"gte=0"`
	Confidence      float64   `json:"confidence" validate:"gte=0,lte=1"`
	Factors         Factors   `json:"factors"`
}
