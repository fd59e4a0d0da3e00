// Package metrics exposes the Prometheus collectors of the dispatch layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var factory = promauto.With(prometheus.DefaultRegisterer)

var (
	// RequestsTotal counts resource invocations by dotted path and outcome
	// ("success", "error", "cancelled").
	RequestsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "resource_requests_total",
		Help: "Total resource invocations by path and status.",
	}, []string{"path", "status"})

	// RequestDuration observes wall-clock invocation latency.
	RequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "resource_request_duration_seconds",
		Help:    "Resource invocation latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})

	// CacheEvents counts cache interactions ("hit", "miss", "refresh",
	// "error") per resource identity.
	CacheEvents = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "resource_cache_events_total",
		Help: "Cache hits, misses, refreshes and backend errors per resource.",
	}, []string{"resource", "event"})

	// BulkInflight tracks currently running bulk dispatch workers.
	BulkInflight = factory.NewGauge(prometheus.GaugeOpts{
		Name: "resource_bulk_inflight",
		Help: "Number of in-flight bulk dispatch invocations.",
	})
)
