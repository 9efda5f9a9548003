package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WebSocket session metrics
var (
	// SessionsActive tracks sessions currently held by the registry
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "filenest_ws_sessions_active",
			Help: "Number of WebSocket sessions currently registered",
		},
	)

	// SessionsTotal counts accepted sessions
	SessionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "filenest_ws_sessions_total",
			Help: "Total WebSocket sessions registered",
		},
	)

	// SessionsRejected counts upgrades refused by the connection limit
	SessionsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "filenest_ws_sessions_rejected_total",
			Help: "Total WebSocket sessions rejected because the connection limit was reached",
		},
	)

	// SendFailures counts per-recipient delivery failures by reason (closed, buffer_full)
	SendFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filenest_ws_send_failures_total",
			Help: "Per-session send failures by reason; each failure evicts the session",
		},
		[]string{"reason"},
	)

	// EchoesTotal counts echo replies queued
	EchoesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "filenest_ws_echoes_total",
			Help: "Total echo replies queued to sessions",
		},
	)
)

// Broadcaster metrics
var (
	// BroadcastTicksTotal counts ticks by outcome (sent, snapshot_error, encode_error)
	BroadcastTicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filenest_broadcast_ticks_total",
			Help: "Broadcaster ticks by outcome",
		},
		[]string{"outcome"},
	)

	// BroadcastDeliveries counts successful per-session stats_update deliveries
	BroadcastDeliveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "filenest_broadcast_deliveries_total",
			Help: "Total messages enqueued to sessions by fan-out",
		},
	)

	// BroadcastDuration tracks how long one fan-out takes
	BroadcastDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "filenest_broadcast_duration_seconds",
			Help:    "Duration of one registry fan-out",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		},
	)
)

// Host probe metrics
var (
	// HostProbeFailures counts failed host samples
	HostProbeFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "filenest_host_probe_failures_total",
			Help: "Total host probe failures",
		},
	)
)

// HTTP metrics
var (
	// HTTPRequestsTotal counts REST requests by route pattern and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filenest_http_requests_total",
			Help: "Total HTTP requests by route and status code",
		},
		[]string{"route", "status"},
	)

	// HTTPRequestDuration tracks REST latency by route pattern
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filenest_http_request_duration_seconds",
			Help:    "HTTP request duration by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)
