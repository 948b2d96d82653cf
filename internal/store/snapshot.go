package store

import (
	"time"

	"github.com/couchcryptid/traffic-dashboard/internal/domain"
)

// Status is the store's position in the refresh state machine.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// Snapshot is the full state of the store at one version. Snapshots are
// immutable: the slices are shared between readers and must not be modified.
type Snapshot struct {
	Observations     []domain.Observation `json:"observations"`
	Forecasts        []domain.Forecast    `json:"forecasts"`
	Status           Status               `json:"status"`
	IsLoading        bool                 `json:"is_loading"`
	Error            string               `json:"error,omitempty"`
	SelectedLocation string               `json:"selected_location"`
	TimeRange        domain.TimeRange     `json:"time_range"`
	Version          uint64               `json:"version"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// Filter returns the snapshot's active filter.
func (s Snapshot) Filter() domain.Filter {
	return domain.Filter{Location: s.SelectedLocation, TimeRange: s.TimeRange}
}

// kindState tracks refresh bookkeeping for one data kind.
type kindState struct {
	generation uint64 // latest requested refresh
	loading    bool
	err        string
	loaded     bool // at least one successful apply
}
