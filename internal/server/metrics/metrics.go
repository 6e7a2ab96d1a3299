// Package metrics provides the Prometheus metrics of the habits server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gophhabits"

var (
	// HTTPRequestsTotal counts served API requests.
	// Labels: method, route (echo path template), status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// MarksTotal counts mark operations.
	// Labels: kind (completion, absence), result (created, existing)
	MarksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "habits",
			Name:      "marks_total",
			Help:      "Total number of completion and absence marks",
		},
		[]string{"kind", "result"},
	)

	// StatsDuration tracks how long statistics take to compute.
	// Labels: scope (habit, list)
	StatsDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "stats",
			Name:      "compute_duration_seconds",
			Help:      "Duration of statistics computation in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"scope"},
	)

	// HabitsTotal is the number of habits seen by the last listing.
	HabitsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "habits",
			Name:      "total",
			Help:      "Number of habits in the store at the last listing",
		},
	)

	// BackupsTotal counts snapshot uploads.
	// Labels: result (success, error)
	BackupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backup",
			Name:      "uploads_total",
			Help:      "Total number of snapshot uploads",
		},
		[]string{"result"},
	)
)

// Mark result label values.
const (
	MarkCreated  = "created"
	MarkExisting = "existing"
)

// ObserveMark records a completion or absence mark.
func ObserveMark(kind string, existed bool) {
	result := MarkCreated
	if existed {
		result = MarkExisting
	}
	MarksTotal.WithLabelValues(kind, result).Inc()
}

// ObserveBackup records a snapshot upload attempt.
func ObserveBackup(err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	BackupsTotal.WithLabelValues(result).Inc()
}
