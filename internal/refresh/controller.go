// Package refresh drives the store's refresh cycles: it fetches observations
// and forecasts for the active filter, validates them, and resolves each
// cycle back into the store. Only the latest requested cycle per data kind
// may change the store.
package refresh

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/traffic-dashboard/internal/domain"
	"github.com/couchcryptid/traffic-dashboard/internal/observability"
	"github.com/couchcryptid/traffic-dashboard/internal/store"
)

// ObservationSource fetches observations for a filter.
type ObservationSource interface {
	FetchObservations(ctx context.Context, filter domain.Filter) ([]domain.Observation, error)
}

// ForecastSource fetches forecasts for a filter.
type ForecastSource interface {
	FetchForecasts(ctx context.Context, filter domain.Filter) ([]domain.Forecast, error)
}

// Config tunes the controller. A zero FetchTimeout disables the per-fetch
// deadline; a zero Interval disables auto-refresh in Run.
type Config struct {
	FetchTimeout time.Duration
	Interval     time.Duration
}

const (
	outcomeSuccess = "success"
	outcomeError   = "error"
	outcomeInvalid = "invalid"
	outcomeStale   = "stale"
)

// Controller starts refresh cycles and resolves them into a Store.
type Controller struct {
	store        *store.Store
	observations ObservationSource
	forecasts    ForecastSource
	cfg          Config
	clock        clockwork.Clock
	logger       *slog.Logger
	metrics      *observability.Metrics

	mu          sync.Mutex // serializes filter changes and generation allocation
	generations [2]uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Controller. A nil clock falls back to the domain clock.
func New(st *store.Store, obs ObservationSource, fc ForecastSource, cfg Config, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Controller {
	if clock == nil {
		clock = domain.Clock()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		store:        st,
		observations: obs,
		forecasts:    fc,
		cfg:          cfg,
		clock:        clock,
		logger:       logger,
		metrics:      metrics,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Refresh starts a new cycle for both data kinds using the filter active at
// the time of the call. It returns immediately; results land in the store.
func (c *Controller) Refresh() {
	c.mu.Lock()
	filter := c.store.Snapshot().Filter()
	gens, ok := c.beginLocked(filter)
	c.mu.Unlock()

	if ok {
		c.launch(gens, filter)
	}
}

// SetSelectedLocation changes the location filter and refreshes when it
// changed. An empty location is rejected with a *domain.ValidationError.
func (c *Controller) SetSelectedLocation(location string) error {
	_, err := c.UpdateFilter(func(f *domain.Filter) { f.Location = location })
	return err
}

// SetTimeRange changes the time range filter and refreshes when it changed.
func (c *Controller) SetTimeRange(r domain.TimeRange) error {
	_, err := c.UpdateFilter(func(f *domain.Filter) { f.TimeRange = r })
	return err
}

// SetFilter replaces both filter values at once and refreshes when either
// changed.
func (c *Controller) SetFilter(filter domain.Filter) error {
	_, err := c.UpdateFilter(func(f *domain.Filter) { *f = filter })
	return err
}

// UpdateFilter applies change to the current filter and returns the result.
// Reading, validating and storing the filter happen under one lock, and the
// new filter and the start of its refresh are one store transition. An
// invalid result leaves the filter untouched and returns the current one.
func (c *Controller) UpdateFilter(change func(*domain.Filter)) (domain.Filter, error) {
	c.mu.Lock()
	current := c.store.Snapshot().Filter()
	next := current
	change(&next)
	if err := domain.ValidateFilter(next); err != nil {
		c.mu.Unlock()
		return current, err
	}
	if next == current {
		c.mu.Unlock()
		return current, nil
	}
	gens, ok := c.beginLocked(next)
	c.mu.Unlock()

	c.logger.Info("filter changed", "location", next.Location, "time_range", string(next.TimeRange))
	if ok {
		c.launch(gens, next)
	}
	return next, nil
}

// Run performs the initial refresh and then refreshes on every tick of the
// configured interval until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	c.metrics.ControllerRunning.Set(1)
	defer c.metrics.ControllerRunning.Set(0)

	c.logger.Info("refresh controller started", "interval", c.cfg.Interval, "fetch_timeout", c.cfg.FetchTimeout)
	c.Refresh()

	if c.cfg.Interval <= 0 {
		<-ctx.Done()
		c.logger.Info("refresh controller stopping", "reason", ctx.Err())
		return nil
	}

	ticker := c.clock.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("refresh controller stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			c.Refresh()
		}
	}
}

// Wait blocks until every in-flight fetch has resolved.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close cancels in-flight fetches and waits for them to return.
func (c *Controller) Close() error {
	c.mu.Lock()
	c.cancel()
	c.mu.Unlock()
	c.wg.Wait()
	return nil
}

// beginLocked stores filter and allocates a new generation for both kinds in
// a single dispatch. After Close it only stores the filter and reports false.
// c.mu must be held.
func (c *Controller) beginLocked(filter domain.Filter) ([2]uint64, bool) {
	var gens [2]uint64
	if c.ctx.Err() != nil {
		c.store.Dispatch(store.ChangeFilter{Filter: filter})
		return gens, false
	}
	for _, kind := range domain.Kinds {
		c.generations[kind]++
		gens[kind] = c.generations[kind]
	}
	c.store.Dispatch(store.ChangeFilter{Filter: filter, Generations: gens})
	c.wg.Add(len(domain.Kinds))
	return gens, true
}

// launch runs the fetches registered by beginLocked.
func (c *Controller) launch(gens [2]uint64, filter domain.Filter) {
	for _, kind := range domain.Kinds {
		c.metrics.RefreshRequests.WithLabelValues(kind.String()).Inc()
		c.logger.Debug("refresh started", "kind", kind.String(), "generation", gens[kind], "filter", filter.Key())
		go c.fetch(kind, gens[kind], filter)
	}
}

func (c *Controller) fetch(kind domain.Kind, gen uint64, filter domain.Filter) {
	defer c.wg.Done()
	start := c.clock.Now()

	ctx, cancel := c.fetchContext()
	action, err := c.load(ctx, kind, gen, filter)
	cancel()

	if c.ctx.Err() != nil {
		// Shutting down; leave the store as it is.
		return
	}

	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeError
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			outcome = outcomeInvalid
		}
		action = store.SetError{Kind: kind, Generation: gen, Message: err.Error()}
	}

	if !c.store.Dispatch(action) {
		outcome = outcomeStale
		c.logger.Debug("dropped superseded refresh", "kind", kind.String(), "generation", gen)
	} else if err != nil {
		c.logger.Warn("refresh failed", "kind", kind.String(), "generation", gen, "error", err)
	} else {
		c.logger.Info("refresh applied", "kind", kind.String(), "generation", gen, "filter", filter.Key())
	}

	c.metrics.RefreshOutcomes.WithLabelValues(kind.String(), outcome).Inc()
	c.metrics.RefreshDuration.WithLabelValues(kind.String()).Observe(c.clock.Since(start).Seconds())
	c.recordSnapshot()
}

// load fetches and validates one data kind. Transport failures are returned
// as *domain.FetchError and invalid records as *domain.ValidationError.
func (c *Controller) load(ctx context.Context, kind domain.Kind, gen uint64, filter domain.Filter) (store.Action, error) {
	switch kind {
	case domain.KindObservations:
		obs, err := c.observations.FetchObservations(ctx, filter)
		if err != nil {
			return nil, &domain.FetchError{Kind: kind, Err: err}
		}
		if err := domain.ValidateObservations(obs); err != nil {
			return nil, err
		}
		return store.ApplyObservations{Generation: gen, Observations: obs}, nil
	default:
		fc, err := c.forecasts.FetchForecasts(ctx, filter)
		if err != nil {
			return nil, &domain.FetchError{Kind: kind, Err: err}
		}
		if err := domain.ValidateForecasts(fc); err != nil {
			return nil, err
		}
		return store.ApplyForecasts{Generation: gen, Forecasts: fc}, nil
	}
}

func (c *Controller) fetchContext() (context.Context, context.CancelFunc) {
	if c.cfg.FetchTimeout <= 0 {
		return context.WithCancel(c.ctx)
	}
	return clockwork.WithTimeout(c.ctx, c.clock, c.cfg.FetchTimeout)
}

func (c *Controller) recordSnapshot() {
	snap := c.store.Snapshot()
	c.metrics.SnapshotVersion.Set(float64(snap.Version))
	c.metrics.HeldRecords.WithLabelValues(domain.KindObservations.String()).Set(float64(len(snap.Observations)))
	c.metrics.HeldRecords.WithLabelValues(domain.KindForecasts.String()).Set(float64(len(snap.Forecasts)))
}
