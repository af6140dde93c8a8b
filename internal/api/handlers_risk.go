// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RiskScore handles GET /api/v1/risk/score. The score is recomputed and
// stored on every call.
func (h *Handler) RiskScore(w http.ResponseWriter, r *http.Request) {
	userID := claims(r).UserID()
	score, err := h.login.RiskScore(r.Context(), userID)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, map[string]interface{}{
		"user_id":    userID,
		"risk_score": score,
	})
}

// ListAlerts handles GET /api/v1/risk/alerts?unresolved=true.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	unresolved, err := queryBool(r, "unresolved")
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	alerts, err := h.alerts.List(r.Context(), claims(r).UserID(), unresolved)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).List(alerts, len(alerts))
}

// ResolveAlert handles POST /api/v1/risk/alerts/{id}/resolve. Owners may
// resolve their alerts; roles holding alerts:resolve_any may resolve any.
func (h *Handler) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	c := claims(r)
	alert, err := h.alerts.Resolve(r.Context(), chi.URLParam(r, "id"), c.UserID(), h.isAdmin(c))
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, alert)
}
