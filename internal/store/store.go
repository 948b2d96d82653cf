// Package store holds the canonical traffic dataset. All state changes enter
// as typed actions through Dispatch, which applies them one at a time and
// publishes a new immutable Snapshot to readers and subscribers.
package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/traffic-dashboard/internal/domain"
)

var (
	// ErrSubscriberExists is returned when Subscribe is called with a duplicate id.
	ErrSubscriberExists = errors.New("subscriber id already exists")

	// ErrSubscriberNotFound is returned when Unsubscribe is called with an unknown id.
	ErrSubscriberNotFound = errors.New("subscriber id not found")
)

// SubscriberStats counts deliveries to one subscriber.
type SubscriberStats struct {
	Sent    uint64
	Dropped uint64
}

type subscriber struct {
	ch      chan<- Snapshot
	sent    atomic.Uint64
	dropped atomic.Uint64
}

// Store is the single owner of observations, forecasts, refresh status and
// filters. Reads are lock-free; mutations are serialized.
type Store struct {
	mu          sync.Mutex
	kinds       [2]kindState
	current     atomic.Pointer[Snapshot]
	subscribers map[string]*subscriber
	clock       clockwork.Clock
}

// New creates an idle store with the given initial filter. A nil clock falls
// back to the domain clock.
func New(filter domain.Filter, clock clockwork.Clock) *Store {
	if clock == nil {
		clock = domain.Clock()
	}
	s := &Store{
		subscribers: make(map[string]*subscriber),
		clock:       clock,
	}
	s.current.Store(&Snapshot{
		Observations:     []domain.Observation{},
		Forecasts:        []domain.Forecast{},
		Status:           StatusIdle,
		SelectedLocation: filter.Location,
		TimeRange:        filter.TimeRange,
		UpdatedAt:        clock.Now(),
	})
	return s
}

// Snapshot returns the current state. It never blocks on writers and never
// observes a partially applied action.
func (s *Store) Snapshot() Snapshot {
	return *s.current.Load()
}

// Dispatch applies an action and reports whether it changed the state. Stale
// refresh results are rejected here, inside the mutation step, so a late
// response can never overwrite a newer one.
func (s *Store) Dispatch(a Action) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := *s.current.Load()
	kinds := s.kinds
	if !a.reduce(&next, &kinds) {
		return false
	}

	s.kinds = kinds
	next.IsLoading = kinds[domain.KindObservations].loading || kinds[domain.KindForecasts].loading
	next.Error = joinErrors(kinds)
	next.Status = deriveStatus(kinds)
	next.Version++
	next.UpdatedAt = s.clock.Now()

	s.current.Store(&next)
	s.publish(next)
	return true
}

// Generation returns the latest refresh generation requested for kind.
func (s *Store) Generation(kind domain.Kind) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kinds[kind].generation
}

// CheckReadiness returns nil once at least one observation refresh has
// succeeded.
func (s *Store) CheckReadiness(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.kinds[domain.KindObservations].loaded {
		return errors.New("no traffic data loaded yet")
	}
	return nil
}

// Subscribe registers a channel that receives the current snapshot
// immediately and every later one. Delivery never blocks: when the channel is
// full the snapshot is dropped for that subscriber, who can always catch up
// by reading Snapshot.
func (s *Store) Subscribe(id string, ch chan<- Snapshot) error {
	if ch == nil {
		return errors.New("subscriber channel cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subscribers[id]; exists {
		return ErrSubscriberExists
	}
	sub := &subscriber{ch: ch}
	s.subscribers[id] = sub
	deliver(sub, *s.current.Load())
	return nil
}

// Unsubscribe removes a subscriber by id.
func (s *Store) Unsubscribe(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subscribers[id]; !exists {
		return ErrSubscriberNotFound
	}
	delete(s.subscribers, id)
	return nil
}

// Stats returns per-subscriber delivery counters.
func (s *Store) Stats() map[string]SubscriberStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := make(map[string]SubscriberStats, len(s.subscribers))
	for id, sub := range s.subscribers {
		stats[id] = SubscriberStats{Sent: sub.sent.Load(), Dropped: sub.dropped.Load()}
	}
	return stats
}

// publish must be called with s.mu held so subscribers see versions in order.
func (s *Store) publish(snap Snapshot) {
	for _, sub := range s.subscribers {
		deliver(sub, snap)
	}
}

func deliver(sub *subscriber, snap Snapshot) {
	select {
	case sub.ch <- snap:
		sub.sent.Add(1)
	default:
		sub.dropped.Add(1)
	}
}

func deriveStatus(kinds [2]kindState) Status {
	var loaded, failed bool
	for _, k := range kinds {
		if k.loading {
			return StatusLoading
		}
		failed = failed || k.err != ""
		loaded = loaded || k.loaded
	}
	switch {
	case failed:
		return StatusError
	case loaded:
		return StatusReady
	default:
		return StatusIdle
	}
}

func joinErrors(kinds [2]kindState) string {
	var msgs []string
	for _, k := range kinds {
		if k.err != "" {
			msgs = append(msgs, k.err)
		}
	}
	return strings.Join(msgs, "; ")
}
