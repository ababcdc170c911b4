// Package metrics holds the Prometheus collectors for the sync client and the
// reference backend.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Sync client ────────────────────────────────────────────────────────────

// PushEvents counts push events received by a session, by event kind.
var PushEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "salun",
	Subsystem: "session",
	Name:      "events_total",
	Help:      "Push events received, by event kind.",
}, []string{"event"})

// Reconnects counts reconnection attempts after a transient failure.
var Reconnects = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "salun",
	Subsystem: "session",
	Name:      "reconnect_attempts_total",
	Help:      "Reconnection attempts after a dropped push connection.",
})

// SessionsExhausted counts sessions that gave up after the reconnect cap.
var SessionsExhausted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "salun",
	Subsystem: "session",
	Name:      "exhausted_total",
	Help:      "Sessions permanently disconnected after the reconnect cap.",
})

// StaleReplaces counts full refreshes rejected by the staleness guard.
var StaleReplaces = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "salun",
	Subsystem: "store",
	Name:      "stale_replaces_total",
	Help:      "Replace mutations rejected as older than the collection state.",
}, []string{"collection"})

// RequestDuration tracks REST round trips made by the client.
var RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "salun",
	Subsystem: "remote",
	Name:      "request_duration_seconds",
	Help:      "REST request latency by method and outcome.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "outcome"})

// ─── Reference backend ──────────────────────────────────────────────────────

// HTTPRequests counts backend requests by route and status.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "salun",
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "Backend HTTP requests by route and status code.",
}, []string{"method", "route", "status"})

// HubClients tracks connected push sockets.
var HubClients = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "salun",
	Subsystem: "hub",
	Name:      "clients",
	Help:      "Currently connected push sockets.",
})

// HubEmitted counts events emitted by the hub.
var HubEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "salun",
	Subsystem: "hub",
	Name:      "emitted_total",
	Help:      "Push events emitted, by event kind.",
}, []string{"event"})

// PointsAwarded counts points credited by scans and manual adjustments.
var PointsAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "salun",
	Subsystem: "points",
	Name:      "awarded_total",
	Help:      "Points credited, by source action.",
}, []string{"action"})
