package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RoomsActive = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "shuttle_tracker", Name: "rooms_active", Help: "Rooms with at least one member"})

	EventsRelayed = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "shuttle_tracker", Name: "events_relayed_total", Help: "Relay events handled, by event name"},
		[]string{"event"},
	)
	EventsRejected = promauto.NewCounter(prometheus.CounterOpts{Namespace: "shuttle_tracker", Name: "events_rejected_total", Help: "Frames rejected by boundary validation"})

	PushFailures   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "shuttle_tracker", Name: "push_failures_total", Help: "Per-recipient push notification failures"})
	StreamFailures = promauto.NewCounter(prometheus.CounterOpts{Namespace: "shuttle_tracker", Name: "stream_publish_failures_total", Help: "Failed location-stream publishes"})

	WSConnects    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "shuttle_tracker", Name: "ws_connects_total", Help: "WebSocket sessions opened"})
	WSDisconnects = promauto.NewCounter(prometheus.CounterOpts{Namespace: "shuttle_tracker", Name: "ws_disconnects_total", Help: "WebSocket sessions closed"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "shuttle_tracker", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "shuttle_tracker",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
