// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// scoreBuckets splits [0,100] into deciles.
var scoreBuckets = prometheus.LinearBuckets(10, 10, 10)

var (
	// Login Metrics
	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessionguard_logins_total",
			Help: "Total number of login attempts by outcome",
		},
		[]string{"outcome"}, // "success", "invalid_credentials", "inactive", "error"
	)

	LoginDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sessionguard_login_duration_seconds",
			Help:    "Duration of the full login evaluation in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	CompositeRiskScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sessionguard_composite_risk_score",
			Help:    "Distribution of per-login composite risk scores",
			Buckets: scoreBuckets,
		},
	)

	SubScore = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sessionguard_risk_subscore",
			Help:    "Distribution of per-login risk sub-scores",
			Buckets: scoreBuckets,
		},
		[]string{"component"}, // "device", "location", "behavioral", "session"
	)

	// Device Metrics
	DeviceResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessionguard_device_resolutions_total",
			Help: "Total number of device resolutions",
		},
		[]string{"result"}, // "new", "known"
	)

	DevicesTrusted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessionguard_devices_trusted_total",
			Help: "Total number of explicit device trust actions",
		},
	)

	// Session Metrics
	SessionsOpened = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessionguard_sessions_opened_total",
			Help: "Total number of sessions created",
		},
	)

	SessionsEnded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessionguard_sessions_ended_total",
			Help: "Total number of sessions ended by reason",
		},
		[]string{"reason"}, // "logout", "evicted", "terminated", "swept"
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sessionguard_sweep_duration_seconds",
			Help:    "Duration of inactivity sweeps in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	SweepLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sessionguard_sweep_last_success_timestamp",
			Help: "Unix timestamp of the last successful sweep",
		},
	)

	// Alert Metrics
	AlertsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessionguard_alerts_created_total",
			Help: "Total number of risk alerts created",
		},
		[]string{"alert_type", "severity"},
	)

	AlertsResolved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessionguard_alerts_resolved_total",
			Help: "Total number of risk alerts resolved",
		},
	)

	// Event Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessionguard_events_published_total",
			Help: "Total number of events published",
		},
		[]string{"topic", "status"}, // status: "ok", "error"
	)

	WebhookDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessionguard_webhook_deliveries_total",
			Help: "Total number of webhook deliveries",
		},
		[]string{"status"}, // "ok", "error", "rate_limited", "circuit_open"
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sessionguard_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	WSConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sessionguard_websocket_connections_active",
			Help: "Current number of active WebSocket connections",
		},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessionguard_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sessionguard_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sessionguard_api_active_requests",
			Help: "Current number of in-flight API requests",
		},
	)

	// Store Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sessionguard_db_query_duration_seconds",
			Help:    "Duration of store queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessionguard_db_query_errors_total",
			Help: "Total number of store query errors",
		},
		[]string{"operation", "table"},
	)
)

// RecordLogin records a login attempt outcome and, for successes, its duration.
func RecordLogin(outcome string, duration time.Duration) {
	LoginsTotal.WithLabelValues(outcome).Inc()
	if outcome == "success" {
		LoginDuration.Observe(duration.Seconds())
	}
}

// RecordRiskScores records the sub-scores and composite of one evaluation.
func RecordRiskScores(device, location, behavioral, session, composite float64) {
	SubScore.WithLabelValues("device").Observe(device)
	SubScore.WithLabelValues("location").Observe(location)
	SubScore.WithLabelValues("behavioral").Observe(behavioral)
	SubScore.WithLabelValues("session").Observe(session)
	CompositeRiskScore.Observe(composite)
}

// RecordDeviceResolution records whether a login matched a known device.
func RecordDeviceResolution(isNew bool) {
	if isNew {
		DeviceResolutions.WithLabelValues("new").Inc()
		return
	}
	DeviceResolutions.WithLabelValues("known").Inc()
}

// RecordSessionEnded records n sessions ended for reason.
func RecordSessionEnded(reason string, n int) {
	if n <= 0 {
		return
	}
	SessionsEnded.WithLabelValues(reason).Add(float64(n))
}

// RecordSweep records an inactivity sweep.
func RecordSweep(duration time.Duration, swept int, err error) {
	SweepDuration.Observe(duration.Seconds())
	if err != nil {
		return
	}
	RecordSessionEnded("swept", swept)
	SweepLastSuccess.Set(float64(time.Now().Unix()))
}

// RecordAlert records a created alert.
func RecordAlert(alertType, severity string) {
	AlertsCreated.WithLabelValues(alertType, severity).Inc()
}

// RecordEventPublish records one publication attempt on topic.
func RecordEventPublish(topic string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	EventsPublished.WithLabelValues(topic, status).Inc()
}

// RecordWebhookDelivery records one webhook delivery outcome.
func RecordWebhookDelivery(status string) {
	WebhookDeliveries.WithLabelValues(status).Inc()
}

// SetCircuitBreakerState sets the gauge for a named breaker.
func SetCircuitBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordDBQuery records a store query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}
