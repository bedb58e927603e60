// KeepWatching - Media Tracking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/keepwatching

// Package metrics provides Prometheus instrumentation for the client:
// REST adapter throughput and latency, circuit breaker state, websocket
// bridge connectivity, and entity store refresh outcomes. Exposed on the
// daemon's ops endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// REST adapter metrics

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "keepwatching_api_request_duration_seconds",
			Help:    "Duration of KeepWatching API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keepwatching_api_requests_total",
			Help: "Total KeepWatching API requests by method and outcome",
		},
		[]string{"method", "outcome"}, // outcome: "success", "error", "transport_error"
	)

	// Circuit breaker metrics

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "keepwatching_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keepwatching_circuit_breaker_transitions_total",
			Help: "Total circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keepwatching_circuit_breaker_requests_total",
			Help: "Total requests through the circuit breaker by result",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	// Realtime bridge metrics

	RealtimeConnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "keepwatching_realtime_connects_total",
			Help: "Total successful websocket connections",
		},
	)

	RealtimeReconnectAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "keepwatching_realtime_reconnect_attempts_total",
			Help: "Total websocket reconnection attempts",
		},
	)

	RealtimeEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keepwatching_realtime_events_total",
			Help: "Total inbound realtime events by name",
		},
		[]string{"event"},
	)

	// Entity store metrics

	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keepwatching_store_operations_total",
			Help: "Total entity store operations by store and outcome",
		},
		[]string{"store", "operation", "outcome"},
	)

	// Snapshot cache metrics

	CacheOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keepwatching_cache_operations_total",
			Help: "Total snapshot cache operations by kind and outcome",
		},
		[]string{"operation", "outcome"}, // operation: "get", "set", "delete", "purge"
	)
)
