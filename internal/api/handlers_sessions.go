// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/sessionguard/internal/models"
)

// ActiveSessions handles GET /api/v1/sessions/active.
func (h *Handler) ActiveSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.ledger.Active(r.Context(), claims(r).UserID())
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).List(sessions, len(sessions))
}

// SessionHistory handles GET /api/v1/sessions/history?limit=.
func (h *Handler) SessionHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	sessions, err := h.ledger.History(r.Context(), claims(r).UserID(), limit)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).List(sessions, len(sessions))
}

// ConcurrentCheck handles GET /api/v1/sessions/concurrent-check.
func (h *Handler) ConcurrentCheck(w http.ResponseWriter, r *http.Request) {
	check, err := h.ledger.ConcurrentCount(r.Context(), claims(r).UserID())
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, check)
}

// TerminateSession handles DELETE /api/v1/sessions/{id}. Sessions of
// other users are reported as not found.
func (h *Handler) TerminateSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c := claims(r)

	s, err := h.ledger.Get(r.Context(), id)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	if s.UserID != c.UserID() {
		WriteServiceError(w, r, models.NotFound("session", id))
		return
	}

	reason := "user_terminated"
	if id == c.SessionID {
		reason = "logout"
	}
	ended, err := h.ledger.Terminate(r.Context(), id, reason)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, ended)
}

// SweepSessions handles POST /api/v1/admin/sessions/sweep.
func (h *Handler) SweepSessions(w http.ResponseWriter, r *http.Request) {
	n, err := h.ledger.Sweep(r.Context())
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, map[string]int{"terminated": n})
}
