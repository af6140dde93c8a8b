// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/tomtom215/sessionguard/internal/logging"
	"github.com/tomtom215/sessionguard/internal/models"
)

type contextKey string

const claimsContextKey contextKey = "claims"

// SessionChecker reports whether a session is still active.
type SessionChecker interface {
	IsSessionActive(ctx context.Context, sessionID string) (bool, error)
}

// ErrorWriter writes an error response. The api package passes its
// envelope writer so auth failures use the same body shape.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Middleware authenticates requests with bearer tokens.
type Middleware struct {
	tokens   *TokenManager
	sessions SessionChecker
	onError  ErrorWriter
}

// NewMiddleware creates the authentication middleware. sessions may be nil
// to skip the session liveness check.
func NewMiddleware(tokens *TokenManager, sessions SessionChecker, onError ErrorWriter) *Middleware {
	if onError == nil {
		onError = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusUnauthorized)
		}
	}
	return &Middleware{tokens: tokens, sessions: sessions, onError: onError}
}

// Authenticate validates a raw token and its session.
func (m *Middleware) Authenticate(ctx context.Context, token string) (*Claims, error) {
	claims, err := m.tokens.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	if m.sessions != nil {
		active, err := m.sessions.IsSessionActive(ctx, claims.SessionID)
		if err != nil {
			return nil, err
		}
		if !active {
			return nil, models.Unauthorized("session is no longer active")
		}
	}
	return claims, nil
}

// RequireAuth rejects requests without a valid token for an active session.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := BearerToken(r)
		if err != nil {
			m.onError(w, r, err)
			return
		}

		claims, err := m.Authenticate(r.Context(), token)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Msg("Token rejected")
			m.onError(w, r, err)
			return
		}

		ctx := ContextWithClaims(r.Context(), claims)
		ctx = logging.ContextWithUserID(ctx, claims.UserID())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// BearerToken extracts the token from the Authorization header. Browsers
// cannot set headers on websocket upgrades, so a "token" query parameter
// is accepted for GET requests.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		if t := r.URL.Query().Get("token"); t != "" && r.Method == http.MethodGet {
			return t, nil
		}
		return "", models.Unauthorized("missing bearer token")
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", models.Unauthorized("invalid authorization header")
	}
	return strings.TrimSpace(token), nil
}

// ContextWithClaims stores claims on ctx.
func ContextWithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, c)
}

// ClaimsFromContext returns the claims stored by RequireAuth.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsContextKey).(*Claims)
	return c, ok
}
