package store

import (
	"slices"

	"github.com/couchcryptid/traffic-dashboard/internal/domain"
)

// Action is a typed state transition. Actions are only applied through
// Store.Dispatch, one at a time.
type Action interface {
	// reduce applies the action to next and kinds, reporting whether anything changed.
	reduce(next *Snapshot, kinds *[2]kindState) bool
}

// SetLoading marks a refresh of Kind as in flight under Generation. A
// generation older than the latest one requested is ignored.
type SetLoading struct {
	Kind       domain.Kind
	Generation uint64
}

func (a SetLoading) reduce(_ *Snapshot, kinds *[2]kindState) bool {
	k := &kinds[a.Kind]
	if a.Generation < k.generation {
		return false
	}
	k.generation = a.Generation
	k.loading = true
	return true
}

// ApplyObservations replaces the observation set with the result of refresh
// Generation. Results of superseded refreshes are dropped.
type ApplyObservations struct {
	Generation   uint64
	Observations []domain.Observation
}

func (a ApplyObservations) reduce(next *Snapshot, kinds *[2]kindState) bool {
	k := &kinds[domain.KindObservations]
	if a.Generation != k.generation {
		return false
	}
	next.Observations = cloneOrEmpty(a.Observations)
	resolve(k)
	return true
}

// ApplyForecasts replaces the forecast set with the result of refresh
// Generation. Results of superseded refreshes are dropped.
type ApplyForecasts struct {
	Generation uint64
	Forecasts  []domain.Forecast
}

func (a ApplyForecasts) reduce(next *Snapshot, kinds *[2]kindState) bool {
	k := &kinds[domain.KindForecasts]
	if a.Generation != k.generation {
		return false
	}
	next.Forecasts = cloneOrEmpty(a.Forecasts)
	resolve(k)
	return true
}

// SetError records a failed refresh of Kind. The last good records of that
// kind are kept.
type SetError struct {
	Kind       domain.Kind
	Generation uint64
	Message    string
}

func (a SetError) reduce(_ *Snapshot, kinds *[2]kindState) bool {
	k := &kinds[a.Kind]
	if a.Generation != k.generation {
		return false
	}
	k.loading = false
	k.err = a.Message
	if k.err == "" {
		k.err = "failed to fetch " + a.Kind.String()
	}
	return true
}

// ChangeFilter replaces the whole filter and, for every non-zero entry in
// Generations, starts a refresh of that kind in the same transition. It is
// the only action that touches the filter. No
// snapshot ever pairs the new filter with a settled state holding data
// fetched for the old one.
type ChangeFilter struct {
	Filter      domain.Filter
	Generations [2]uint64
}

func (a ChangeFilter) reduce(next *Snapshot, kinds *[2]kindState) bool {
	changed := false
	if next.Filter() != a.Filter {
		next.SelectedLocation = a.Filter.Location
		next.TimeRange = a.Filter.TimeRange
		changed = true
	}
	for _, kind := range domain.Kinds {
		if a.Generations[kind] == 0 {
			continue
		}
		if (SetLoading{Kind: kind, Generation: a.Generations[kind]}).reduce(next, kinds) {
			changed = true
		}
	}
	return changed
}

func resolve(k *kindState) {
	k.loading = false
	k.err = ""
	k.loaded = true
}

func cloneOrEmpty[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return slices.Clone(in)
}
