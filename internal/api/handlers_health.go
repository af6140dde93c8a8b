// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package api

import (
	"context"
	"net/http"
	"time"
)

// healthCheckTimeout bounds each dependency probe.
const healthCheckTimeout = 2 * time.Second

// Health status values.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// ComponentHealth is the result of one HealthCheck.
type ComponentHealth struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status     string                     `json:"status"`
	Version    string                     `json:"version,omitempty"`
	Uptime     float64                    `json:"uptime_seconds"`
	Components map[string]ComponentHealth `json:"components"`
}

// Health handles GET /health. A failed critical check answers 503.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:     StatusHealthy,
		Version:    h.version,
		Uptime:     time.Since(h.startTime).Seconds(),
		Components: make(map[string]ComponentHealth, len(h.checks)),
	}

	for _, c := range h.checks {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		start := time.Now()
		err := c.Check(ctx)
		cancel()

		ch := ComponentHealth{Status: StatusHealthy, LatencyMs: time.Since(start).Milliseconds()}
		if err != nil {
			ch.Status = StatusUnhealthy
			ch.Error = err.Error()
			switch {
			case c.Critical:
				status.Status = StatusUnhealthy
			case status.Status == StatusHealthy:
				status.Status = StatusDegraded
			}
		}
		status.Components[c.Name] = ch
	}

	if status.Status == StatusUnhealthy {
		rw := NewResponseWriter(w, r)
		rw.ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "service unhealthy", status)
		return
	}
	WriteSuccess(w, r, status)
}
