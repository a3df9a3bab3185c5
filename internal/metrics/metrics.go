// Package metrics holds Prometheus instruments that are used across the
// backend.  All collectors are registered with the global registry, so
// cmd/web only needs promhttp.Handler() to expose them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests served, by method, route pattern, and status.",
		}, []string{"method", "route", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Time spent serving HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"})

	PanicsRecoveredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "http_panics_recovered_total",
			Help: "Handler faults turned into 500 responses.",
		})

	TablesMaterializedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "schema_tables_materialized_total",
			Help: "Entity tables ensured during application assembly.",
		})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		PanicsRecoveredTotal,
		TablesMaterializedTotal,
	)
}
