package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/traffic-dashboard/internal/domain"
)

// ForecastModel selects how the Source synthesizes forecasts.
type ForecastModel string

const (
	ModelUniform    ForecastModel = "uniform"
	ModelParametric ForecastModel = "parametric"
)

// ParseForecastModel validates a forecast model name.
func ParseForecastModel(s string) (ForecastModel, error) {
	switch m := ForecastModel(s); m {
	case ModelUniform, ModelParametric:
		return m, nil
	default:
		return "", fmt.Errorf("unknown forecast model %q", s)
	}
}

// SourceConfig tunes the mock backend.
type SourceConfig struct {
	ObservationCount   int
	ForecastHorizon    int
	ObservationLatency time.Duration
	ForecastLatency    time.Duration
	Model              ForecastModel
}

// Source serves generated records through the same fetch interface a real
// backend client implements, including a simulated network delay.
type Source struct {
	gen   *Generator
	clock clockwork.Clock
	cfg   SourceConfig
}

// NewSource wraps a Generator. A nil clock falls back to the domain clock.
func NewSource(gen *Generator, clock clockwork.Clock, cfg SourceConfig) *Source {
	if clock == nil {
		clock = domain.Clock()
	}
	if cfg.Model == "" {
		cfg.Model = ModelUniform
	}
	return &Source{gen: gen, clock: clock, cfg: cfg}
}

// FetchObservations waits out the observation latency and returns a fresh set
// matching the filter.
func (s *Source) FetchObservations(ctx context.Context, filter domain.Filter) ([]domain.Observation, error) {
	if err := s.wait(ctx, s.cfg.ObservationLatency); err != nil {
		return nil, err
	}
	return s.gen.GenerateObservationsFor(filter, s.cfg.ObservationCount), nil
}

// FetchForecasts waits out the forecast latency and returns a fresh series.
func (s *Source) FetchForecasts(ctx context.Context, filter domain.Filter) ([]domain.Forecast, error) {
	if err := s.wait(ctx, s.cfg.ForecastLatency); err != nil {
		return nil, err
	}
	if s.cfg.Model == ModelParametric {
		return s.gen.GenerateParametricForecasts(filter, s.cfg.ForecastHorizon), nil
	}
	return s.gen.GenerateForecasts(s.cfg.ForecastHorizon), nil
}

func (s *Source) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.clock.After(d):
		return nil
	}
}
