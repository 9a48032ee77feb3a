// Package metrics provides Prometheus metrics shared across packages.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric exported by the relay.
const Namespace = "incidentrelay"

var (
	// HTTPRequestDuration tracks ops HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Ops HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "route", "status_code"},
	)

	// StorePoolConnections tracks the PostgreSQL store connection pool.
	StorePoolConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "store",
			Name:      "pool_connections",
			Help:      "Number of store database connections by state",
		},
		[]string{"state"},
	)
)
