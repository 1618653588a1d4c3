// Package observability provides logging, metrics, and tracing.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AccessRequestTransitions counts ledger transitions by resulting status
	// and path ("auto", "human", "submit").
	AccessRequestTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "girder_access_request_transitions_total",
		Help: "Total number of access request state transitions",
	}, []string{"status", "path"})

	// AccessRequestConflicts counts submissions rejected by the open-record
	// uniqueness constraint.
	AccessRequestConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "girder_access_request_conflicts_total",
		Help: "Total number of access request submissions rejected as conflicts",
	})

	// NotificationSends counts notification gateway results by template and outcome.
	NotificationSends = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "girder_notification_sends_total",
		Help: "Total number of notification gateway sends by template and outcome",
	}, []string{"template", "outcome"})

	// EventsPublished counts events published on the in-process bus by kind.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "girder_events_published_total",
		Help: "Total number of events published on the in-process bus",
	}, []string{"kind"})

	// WebSocketConnections is the gauge of active UI-refresh WebSocket connections.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "girder_websocket_connections",
		Help: "Number of active WebSocket connections",
	})

	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "girder_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})
)
