// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

// Package metrics exposes Prometheus instrumentation for the API, the host
// command runners, and the stream-bot.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API metrics
	apiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "homestead_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	apiActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "homestead_api_active_requests",
			Help: "Number of API requests currently being served",
		},
	)

	// Host command metrics
	hostCommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "homestead_host_command_duration_seconds",
			Help:    "Duration of systemctl/virsh/docker invocations in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"command", "success"},
	)

	// WebSocket metrics
	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "homestead_websocket_clients",
			Help: "Number of connected overlay and dashboard clients",
		},
	)

	// Stream-bot metrics
	SongRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homestead_song_requests_total",
			Help: "Total song requests by outcome",
		},
		[]string{"outcome"}, // "queued", "rejected_full", "rejected_user_limit"
	)

	AlertsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homestead_alerts_dispatched_total",
			Help: "Total overlay alerts dispatched by kind",
		},
		[]string{"kind"},
	)

	// DynDNS metrics
	DynDNSChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homestead_dyndns_checks_total",
			Help: "Total dynamic DNS checks by result",
		},
		[]string{"result"}, // "unchanged", "updated", "deferred", "error"
	)

	// Event bus metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homestead_events_published_total",
			Help: "Total events published to the bus by topic",
		},
		[]string{"topic"},
	)

	// Deployment metrics
	DeploymentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homestead_deployments_total",
			Help: "Total deployments by final status",
		},
		[]string{"status"},
	)
)

// RecordAPIRequest records one served API request.
func RecordAPIRequest(method, path, status string, duration time.Duration) {
	apiRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(start bool) {
	if start {
		apiActiveRequests.Inc()
	} else {
		apiActiveRequests.Dec()
	}
}

// RecordHostCommand records one systemctl/virsh/docker invocation.
func RecordHostCommand(command string, success bool, duration time.Duration) {
	label := "false"
	if success {
		label = "true"
	}
	hostCommandDuration.WithLabelValues(command, label).Observe(duration.Seconds())
}
