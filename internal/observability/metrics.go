package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "incident_lookup"

// Metrics holds the Prometheus counters and histograms for the search service.
type Metrics struct {
	Searches       *prometheus.CounterVec // labels: status={success,empty,error,unavailable}
	SearchDuration prometheus.Histogram

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec   // labels: provider, outcome={success,not_found,error}
	GeocodeAPIDuration *prometheus.HistogramVec // labels: provider

	// Dataset metrics.
	DatasetRequests    *prometheus.CounterVec // labels: outcome={success,error}
	DatasetAPIDuration prometheus.Histogram
	DatasetRecords     prometheus.Counter
	ReportsDropped     prometheus.Counter
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Searches,
		m.SearchDuration,
		m.GeocodeRequests,
		m.GeocodeAPIDuration,
		m.DatasetRequests,
		m.DatasetAPIDuration,
		m.DatasetRecords,
		m.ReportsDropped,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Completed searches by result status.",
		}, []string{"status"}),
		SearchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "End-to-end duration of a search including both upstream calls.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Geocoding provider request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider"}),
		DatasetRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_requests_total",
			Help:      "Incident dataset requests by outcome.",
		}, []string{"outcome"}),
		DatasetAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dataset_api_duration_seconds",
			Help:      "Incident dataset request duration in seconds.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 45, 60},
		}),
		DatasetRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_records_total",
			Help:      "Raw incident records returned by the dataset.",
		}),
		ReportsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_dropped_total",
			Help:      "Records discarded for missing, redacted or invalid coordinates.",
		}),
	}
}
