// Package observability provides Prometheus metrics and OpenTelemetry tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lattice_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lattice_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// CacheRequests counts relationship cache lookups by key kind and result (hit/miss).
	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lattice_cache_requests_total",
		Help: "Relationship cache lookups by kind and result",
	}, []string{"kind", "result"})

	// CacheErrors counts cache operations that failed and fell back to the store.
	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lattice_cache_errors_total",
		Help: "Relationship cache operations that failed",
	}, []string{"operation"})

	// FeedAssemblyLatency records how long a feed page took, split by cache result.
	FeedAssemblyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lattice_feed_assembly_seconds",
		Help:    "Feed page assembly latency in seconds",
		Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"cache"})

	// FollowTransitions counts follow-edge state changes.
	FollowTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lattice_follow_transitions_total",
		Help: "Follow edge transitions by kind",
	}, []string{"transition"})

	// NotificationsPublished counts realtime events published, by type and outcome.
	NotificationsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lattice_notifications_published_total",
		Help: "Realtime notifications published by event type and outcome",
	}, []string{"event_type", "outcome"})

	// WebSocketConnectionsTotal is the gauge of open notification sockets.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lattice_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts outbound messages dropped for slow or closed clients.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lattice_websocket_backpressure_drops_total",
		Help: "Outbound websocket messages dropped by reason",
	}, []string{"reason"})
)

// CacheResult maps a hit flag to the label used by the feed metrics.
func CacheResult(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}

// DatabaseMetrics records query latency for one table.
type DatabaseMetrics struct {
	table string
}

// NewDatabaseMetrics returns a new DatabaseMetrics instance.
func NewDatabaseMetrics(table string) *DatabaseMetrics {
	return &DatabaseMetrics{table: table}
}

// ObserveQuery records the latency of a database query.
func (m *DatabaseMetrics) ObserveQuery(operation string, start time.Time) {
	DatabaseQueryLatency.WithLabelValues(operation, m.table).Observe(time.Since(start).Seconds())
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func (m *DatabaseMetrics) TrackQuery(operation string) func() {
	start := time.Now()
	return func() {
		m.ObserveQuery(operation, start)
	}
}
