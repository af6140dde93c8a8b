// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/tomtom215/sessionguard/internal/activity"
	"github.com/tomtom215/sessionguard/internal/auth"
	"github.com/tomtom215/sessionguard/internal/authz"
	"github.com/tomtom215/sessionguard/internal/device"
	"github.com/tomtom215/sessionguard/internal/login"
	"github.com/tomtom215/sessionguard/internal/risk"
	"github.com/tomtom215/sessionguard/internal/session"
)

// HealthCheck is one dependency probed by GET /health.
type HealthCheck struct {
	Name string
	// Critical checks make the service unhealthy (503) when they fail;
	// others only degrade it.
	Critical bool
	Check    func(ctx context.Context) error
}

// StreamServer upgrades a request to the per-user alert stream.
type StreamServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, userID string) error
}

// Deps are the services behind the handlers. Stream and Checks are optional.
type Deps struct {
	Login    *login.Service
	Devices  *device.Resolver
	Ledger   *session.Ledger
	Alerts   *risk.Generator
	Activity *activity.Service
	Enforcer *authz.Enforcer
	Stream   StreamServer
	Checks   []HealthCheck
	Version  string
}

// Handler serves the API routes.
type Handler struct {
	login     *login.Service
	devices   *device.Resolver
	ledger    *session.Ledger
	alerts    *risk.Generator
	activity  *activity.Service
	enforcer  *authz.Enforcer
	stream    StreamServer
	checks    []HealthCheck
	version   string
	startTime time.Time
}

// NewHandler creates a Handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		login:     deps.Login,
		devices:   deps.Devices,
		ledger:    deps.Ledger,
		alerts:    deps.Alerts,
		activity:  deps.Activity,
		enforcer:  deps.Enforcer,
		stream:    deps.Stream,
		checks:    deps.Checks,
		version:   deps.Version,
		startTime: time.Now(),
	}
}

// claims returns the authenticated caller. Routes using it sit behind
// RequireAuth, so a missing value is a wiring error.
func claims(r *http.Request) *auth.Claims {
	c, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		panic("api: handler reached without authentication")
	}
	return c
}

// clientIP returns the remote address without port. chi's RealIP may have
// already replaced RemoteAddr with a bare forwarded address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// isAdmin reports whether the caller may act on any user's alerts.
func (h *Handler) isAdmin(c *auth.Claims) bool {
	ok, err := h.enforcer.Enforce(c.Role, authz.ObjAlerts, authz.ActResolveAny)
	return err == nil && ok
}
