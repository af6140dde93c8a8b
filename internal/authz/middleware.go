// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package authz

import (
	"errors"
	"net/http"

	"github.com/tomtom215/sessionguard/internal/auth"
	"github.com/tomtom215/sessionguard/internal/logging"
)

// ErrForbidden is passed to the error writer when a role lacks a permission.
var ErrForbidden = errors.New("forbidden: insufficient permissions")

// Middleware enforces permissions on authenticated requests.
type Middleware struct {
	enforcer *Enforcer
	onError  auth.ErrorWriter
}

// NewMiddleware creates the authorization middleware.
func NewMiddleware(enforcer *Enforcer, onError auth.ErrorWriter) *Middleware {
	if onError == nil {
		onError = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusForbidden)
		}
	}
	return &Middleware{enforcer: enforcer, onError: onError}
}

// Authorize requires the caller's role to hold action on object. It must
// run after auth.Middleware.RequireAuth.
func (m *Middleware) Authorize(object, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := auth.ClaimsFromContext(r.Context())
			if !ok {
				m.onError(w, r, ErrForbidden)
				return
			}

			allowed, err := m.enforcer.Enforce(claims.Role, object, action)
			if err != nil {
				logging.Ctx(r.Context()).Error().Err(err).Msg("Authorization error")
				m.onError(w, r, err)
				return
			}
			if !allowed {
				logging.Ctx(r.Context()).Warn().
					Str("role", claims.Role).
					Str("object", object).
					Str("action", action).
					Msg("Permission denied")
				m.onError(w, r, ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
