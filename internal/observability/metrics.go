package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// Chat session metrics
	ChatSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_sessions_active",
			Help: "Number of active chat sessions",
		},
	)

	MergeRecomputations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_merge_recomputations_total",
			Help: "Total number of timeline merge recomputations",
		},
		[]string{"room_id"},
	)

	LiveMessagesIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_live_messages_ingested_total",
			Help: "Total number of live messages appended to session buffers",
		},
		[]string{"room_id"},
	)

	PersistenceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_persistence_failures_total",
			Help: "Total number of durable writes that failed after a broadcast",
		},
		[]string{"room_id"},
	)

	// Broadcast channel metrics
	BroadcastSubscriptionsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "broadcast_subscriptions_active",
			Help: "Number of active broadcast subscriptions",
		},
		[]string{"room_id"},
	)

	BroadcastPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_messages_published_total",
			Help: "Total number of messages published to the broadcast channel",
		},
		[]string{"room_id", "backend"},
	)

	BroadcastDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_messages_delivered_total",
			Help: "Total number of messages delivered to subscribers",
		},
		[]string{"room_id", "backend"},
	)

	BroadcastDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_messages_dropped_total",
			Help: "Total number of deliveries dropped on full subscriber buffers",
		},
		[]string{"room_id", "backend"},
	)

	// WebSocket gateway metrics
	WebSocketConnectionsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Number of active WebSocket connections",
		},
		[]string{"room_id"},
	)

	// Database metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5},
		},
		[]string{"operation", "table"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_open",
			Help: "Number of open database connections",
		},
	)
)
