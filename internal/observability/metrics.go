package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "traffic_dashboard"

// Metrics holds the Prometheus counters, histograms, and gauges for the dashboard core.
type Metrics struct {
	// Refresh metrics.
	RefreshRequests   *prometheus.CounterVec   // labels: kind={observations,forecasts}
	RefreshOutcomes   *prometheus.CounterVec   // labels: kind, outcome={success,error,invalid,stale}
	RefreshDuration   *prometheus.HistogramVec // labels: kind
	ControllerRunning prometheus.Gauge

	// Store metrics.
	SnapshotVersion prometheus.Gauge
	HeldRecords     *prometheus.GaugeVec // labels: kind

	SummaryCache *prometheus.CounterVec // labels: result={hit,miss}

	// Backend client metrics.
	BackendRequests *prometheus.CounterVec   // labels: endpoint={traffic,predictions}, outcome={success,retry,error}
	BackendDuration *prometheus.HistogramVec // labels: endpoint

	// Snapshot publishing.
	SnapshotsPublished prometheus.Counter
	PublishErrors      prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered Metrics so tests can build as
// many as they need.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RefreshRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_requests_total",
			Help:      "Refresh cycles started, by data kind.",
		}, []string{"kind"}),
		RefreshOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_outcomes_total",
			Help:      "Refresh cycles resolved, by data kind and outcome.",
		}, []string{"kind", "outcome"}),
		RefreshDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Time from refresh request to resolution.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"kind"}),
		ControllerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "controller_running",
			Help:      "1 while the auto-refresh loop is active, 0 otherwise.",
		}),
		SnapshotVersion: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_version",
			Help:      "Version of the latest store snapshot.",
		}),
		HeldRecords: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "held_records",
			Help:      "Records in the current snapshot, by data kind.",
		}, []string{"kind"}),
		SummaryCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summary_cache_total",
			Help:      "Summary cache lookups by result.",
		}, []string{"result"}),
		BackendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Backend API attempts by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		BackendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_duration_seconds",
			Help:      "Backend API attempt duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"endpoint"}),
		SnapshotsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_published_total",
			Help:      "Snapshot summaries written to Kafka.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed snapshot summary writes.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RefreshRequests,
		m.RefreshOutcomes,
		m.RefreshDuration,
		m.ControllerRunning,
		m.SnapshotVersion,
		m.HeldRecords,
		m.SummaryCache,
		m.BackendRequests,
		m.BackendDuration,
		m.SnapshotsPublished,
		m.PublishErrors,
	}
}
