// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/sessionguard/internal/auth"
	"github.com/tomtom215/sessionguard/internal/authz"
	"github.com/tomtom215/sessionguard/internal/middleware"
)

// Router wires the handlers, authentication and authorization into chi.
type Router struct {
	handler       *Handler
	auth          *auth.Middleware
	authz         *authz.Middleware
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a Router. The auth and authz middleware should use
// WriteServiceError as their error writer.
func NewRouter(handler *Handler, authMW *auth.Middleware, authzMW *authz.Middleware, chiMW *ChiMiddleware) *Router {
	if chiMW == nil {
		chiMW = NewChiMiddleware(nil)
	}
	return &Router{
		handler:       handler,
		auth:          authMW,
		authz:         authzMW,
		chiMiddleware: chiMW,
	}
}

// SetupChi builds the HTTP handler.
func (router *Router) SetupChi() http.Handler {
	h := router.handler
	allow := router.authz.Authorize

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(middleware.PrometheusMetrics)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).Error(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.SecurityHeaders)

		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(router.chiMiddleware.RateLimitLogin())
				r.Post("/register", h.Register)
				r.Post("/login", h.Login)
			})
			r.With(router.chiMiddleware.RateLimit()).Post("/verify", h.Verify)
			r.With(router.chiMiddleware.RateLimit(), router.auth.RequireAuth).Post("/logout", h.Logout)
		})

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit())
			r.Use(router.auth.RequireAuth)

			r.With(allow(authz.ObjProfile, authz.ActRead)).Get("/users/me", h.Me)

			r.Route("/devices", func(r chi.Router) {
				r.With(allow(authz.ObjDevices, authz.ActRead)).Get("/", h.ListDevices)
				r.With(allow(authz.ObjDevices, authz.ActWrite)).Post("/{id}/trust", h.TrustDevice)
				r.With(allow(authz.ObjDevices, authz.ActWrite)).Delete("/{id}", h.RemoveDevice)
			})

			r.Route("/sessions", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(allow(authz.ObjSessions, authz.ActRead))
					r.Get("/active", h.ActiveSessions)
					r.Get("/history", h.SessionHistory)
					r.Get("/concurrent-check", h.ConcurrentCheck)
				})
				r.With(allow(authz.ObjSessions, authz.ActWrite)).Delete("/{id}", h.TerminateSession)
			})

			r.Route("/risk", func(r chi.Router) {
				r.With(allow(authz.ObjRisk, authz.ActRead)).Get("/score", h.RiskScore)
				r.With(allow(authz.ObjAlerts, authz.ActRead)).Get("/alerts", h.ListAlerts)
				r.With(allow(authz.ObjAlerts, authz.ActWrite)).Post("/alerts/{id}/resolve", h.ResolveAlert)
			})

			r.Route("/activity", func(r chi.Router) {
				r.With(allow(authz.ObjActivity, authz.ActWrite)).Post("/track", h.TrackActivity)
				r.With(allow(authz.ObjActivity, authz.ActRead)).Get("/history", h.ActivityHistory)
			})

			r.With(allow(authz.ObjStream, authz.ActRead)).Get("/ws/alerts", h.AlertStream)

			r.Route("/admin", func(r chi.Router) {
				r.With(allow(authz.ObjSessions, authz.ActSweep)).Post("/sessions/sweep", h.SweepSessions)
				r.With(allow(authz.ObjUsers, authz.ActWrite)).Put("/users/{id}/status", h.SetAccountStatus)
			})
		})
	})

	return r
}
