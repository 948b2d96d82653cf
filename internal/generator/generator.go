// Package generator produces synthetic observation and forecast records. It
// stands in for a real traffic backend: every field is drawn independently
// from a fixed bounded distribution, and the randomness source is seedable so
// callers can reproduce a data set exactly.
package generator

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/jaswdr/faker"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/traffic-dashboard/internal/domain"
)

// Generator draws records from a seeded random source. It is safe for
// concurrent use.
type Generator struct {
	mu        sync.Mutex
	fake      faker.Faker
	rng       *rand.Rand
	clock     clockwork.Clock
	predictor Predictor
}

// New creates a Generator. A zero seed seeds from the current time; a nil
// clock falls back to the domain clock.
func New(seed int64, clock clockwork.Clock) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if clock == nil {
		clock = domain.Clock()
	}
	return &Generator{
		fake:      faker.NewWithSeed(rand.NewSource(seed)),
		rng:       rand.New(rand.NewSource(seed)),
		clock:     clock,
		predictor: DefaultPredictor(),
	}
}

// GenerateObservations returns count observations spread over the last 24
// hours across every catalogue location.
func (g *Generator) GenerateObservations(count int) []domain.Observation {
	return g.GenerateObservationsFor(domain.DefaultFilter(), count)
}

// GenerateObservationsFor returns count observations matching the filter:
// a selected location pins every record to it, and timestamps are uniform
// over the filter's time range ending now.
//
// Distributions:
//
//	vehicle_count    integer U[50, 550)
//	average_speed    integer U[20, 80) km/h
//	congestion_level uniform over low, medium, high, critical
//	temperature      integer U[5, 35) °C
//	visibility       integer U[1, 11) km
//	event_nearby     true with p = 0.3
func (g *Generator) GenerateObservationsFor(filter domain.Filter, count int) []domain.Observation {
	if count < 0 {
		count = 0
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now().UTC()
	window := int64(filter.TimeRange.Duration())

	obs := make([]domain.Observation, count)
	for i := range obs {
		location := filter.Location
		if location == "" || location == domain.AllLocations {
			location = g.fake.RandomStringElement(domain.Locations)
		}
		obs[i] = domain.Observation{
			ID:               fmt.Sprintf("traffic-%016x", g.rng.Uint64()),
			Timestamp:        now.Add(-time.Duration(g.rng.Int63n(window))),
			Location:         location,
			VehicleCount:     50 + g.rng.Intn(500),
			AverageSpeed:     float64(20 + g.rng.Intn(60)),
			CongestionLevel:  domain.CongestionLevels[g.rng.Intn(len(domain.CongestionLevels))],
			WeatherCondition: g.fake.RandomStringElement(domain.WeatherConditions),
			Temperature:      float64(5 + g.rng.Intn(30)),
			Visibility:       float64(1 + g.rng.Intn(10)),
			RoadType:         g.fake.RandomStringElement(domain.RoadTypes),
			EventNearby:      g.rng.Float64() > 0.7,
		}
	}
	return obs
}

// GenerateForecasts returns horizon hourly forecasts starting now.
//
//	predicted_volume  integer U[100, 500)
//	confidence        U[0.7, 1.0)
//	factors           weather U[0.1,0.4) events U[0.05,0.25)
//	                  historical U[0.3,0.7) seasonal U[0.1,0.3)
func (g *Generator) GenerateForecasts(horizon int) []domain.Forecast {
	if horizon < 0 {
		horizon = 0
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now().UTC()
	forecasts := make([]domain.Forecast, horizon)
	for i := range forecasts {
		forecasts[i] = domain.Forecast{
			Timestamp:       now.Add(time.Duration(i) * time.Hour),
			PredictedVolume: 100 + g.rng.Intn(400),
			Confidence:      g.uniform(0.7, 1.0),
			Factors:         g.factors(),
		}
	}
	return forecasts
}

// GenerateParametricForecasts returns horizon hourly forecasts whose volume
// and confidence come from the Predictor instead of a flat distribution. The
// filter's location decides the road type fed to the model.
func (g *Generator) GenerateParametricForecasts(filter domain.Filter, horizon int) []domain.Forecast {
	if horizon < 0 {
		horizon = 0
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now().UTC()
	road := roadTypeFor(filter.Location)
	forecasts := make([]domain.Forecast, horizon)
	for i := range forecasts {
		ts := now.Add(time.Duration(i) * time.Hour)
		p := g.predictor.PredictVolume(Features{
			Hour:        ts.Hour(),
			Weekday:     ts.Weekday(),
			Temperature: 20,
			Weather:     "clear",
			RoadType:    road,
		}, g.rng.NormFloat64())
		forecasts[i] = domain.Forecast{
			Timestamp:       ts,
			PredictedVolume: p.Volume,
			Confidence:      p.Confidence,
			Factors:         g.factors(),
		}
	}
	return forecasts
}

func (g *Generator) factors() domain.Factors {
	return domain.Factors{
		Weather:    g.uniform(0.1, 0.4),
		Events:     g.uniform(0.05, 0.25),
		Historical: g.uniform(0.3, 0.7),
		Seasonal:   g.uniform(0.1, 0.3),
	}
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func roadTypeFor(location string) string {
	if strings.Contains(location, "Highway") {
		return "highway"
	}
	return "urban"
}
