// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// MessagesTotal tracks messages appended to the store.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Total messages appended to the message store",
		},
		[]string{"sender", "status"},
	)

	// SendsTotal tracks send-pipeline outcomes.
	SendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_sends_total",
			Help: "Send pipeline outcomes",
		},
		[]string{"outcome"},
	)

	// SendDuration tracks backend round-trip time for sends.
	SendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_send_duration_seconds",
			Help:    "Backend round-trip duration for message sends",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
		[]string{"model", "outcome"},
	)

	// StaleResponsesDropped counts backend replies discarded because
	// their conversation was no longer active.
	StaleResponsesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_stale_responses_dropped_total",
			Help: "Backend responses dropped after a conversation switch",
		},
	)

	// BackendHealthy reports the last health-check result.
	BackendHealthy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_backend_healthy",
			Help: "Whether the last backend health check succeeded",
		},
	)

	// ConversationsTotal tracks conversations created.
	ConversationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_conversations_total",
			Help: "Total conversations created",
		},
	)

	// TreeRebuildDuration tracks tree derivation time.
	TreeRebuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chat_tree_rebuild_duration_seconds",
			Help:    "Time to re-derive the conversation tree",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
		},
	)

	// CacheWritesTotal tracks snapshot writes to the durable cache.
	CacheWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_cache_writes_total",
			Help: "Snapshot writes to the local durable cache",
		},
		[]string{"status"},
	)

	// SSEConnectionsActive tracks active SSE connections.
	SSEConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordSend records a send-pipeline outcome.
func RecordSend(model, outcome string, duration float64) {
	SendsTotal.WithLabelValues(outcome).Inc()
	SendDuration.WithLabelValues(model, outcome).Observe(duration)
}

// SetBackendHealthy records the latest health-check result.
func SetBackendHealthy(healthy bool) {
	if healthy {
		BackendHealthy.Set(1)
	} else {
		BackendHealthy.Set(0)
	}
}

// IncrementSSEConnections increments the active SSE connection count.
func IncrementSSEConnections() {
	SSEConnectionsActive.Inc()
}

// DecrementSSEConnections decrements the active SSE connection count.
func DecrementSSEConnections() {
	SSEConnectionsActive.Dec()
}
