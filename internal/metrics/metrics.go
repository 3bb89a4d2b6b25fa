// Package metrics provides Prometheus metrics for catalog imports and part creation
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Row outcomes.
const (
	RowAdded     = "added"
	RowDuplicate = "duplicate"
	RowInvalid   = "invalid"
	RowFailed    = "failed"
)

// Part creation sources.
const (
	SourceImport = "import"
	SourceManual = "manual"
)

var (
	// Import metrics
	ImportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partflow_imports_total",
			Help: "Total number of catalog imports by final status",
		},
		[]string{"status"},
	)

	ImportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "partflow_import_duration_seconds",
			Help:    "Time taken to import a catalog file",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 600},
		},
	)

	ImportRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partflow_import_rows_total",
			Help: "Catalog rows processed by outcome",
		},
		[]string{"outcome"},
	)

	ImportsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "partflow_imports_active",
			Help: "Number of imports currently holding a slot",
		},
	)

	// Catalog metrics
	PartsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partflow_parts_created_total",
			Help: "Total number of parts created",
		},
		[]string{"source"},
	)

	RouteTemplatesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "partflow_route_templates_created_total",
			Help: "Route templates created on first sight of a stage sequence",
		},
	)

	StagesCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "partflow_route_stages_completed_total",
			Help: "Route steps recorded as completed for a part",
		},
	)

	// Notification metrics
	NotificationsFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "partflow_notifications_failed_total",
			Help: "Notifications that could not be published",
		},
	)

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partflow_http_requests_total",
			Help: "HTTP requests by route pattern and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "partflow_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordImport records the outcome of a finished import.
func RecordImport(status string, duration time.Duration) {
	ImportsTotal.WithLabelValues(status).Inc()
	ImportDuration.Observe(duration.Seconds())
}

// RecordRow counts one processed catalog row.
func RecordRow(outcome string) {
	ImportRows.WithLabelValues(outcome).Inc()
}

// RecordRows counts n rows with the same outcome.
func RecordRows(outcome string, n int) {
	if n > 0 {
		ImportRows.WithLabelValues(outcome).Add(float64(n))
	}
}

// RecordHTTPRequest records one served request. route is the router pattern,
// not the raw path, to keep label cardinality bounded.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
