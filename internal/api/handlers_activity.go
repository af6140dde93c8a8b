// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package api

import (
	"net/http"

	"github.com/tomtom215/sessionguard/internal/activity"
	"github.com/tomtom215/sessionguard/internal/logging"
	"github.com/tomtom215/sessionguard/internal/models"
)

// TrackActivity handles POST /api/v1/activity/track. The caller's session
// is touched as a side effect.
func (h *Handler) TrackActivity(w http.ResponseWriter, r *http.Request) {
	var req TrackActivityRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		WriteServiceError(w, r, err)
		return
	}
	c := claims(r)

	entry, err := h.activity.Track(r.Context(), activity.TrackRequest{
		UserID:       c.UserID(),
		SessionID:    c.SessionID,
		ActivityType: models.ActivityType(req.ActivityType),
		ResourceID:   req.ResourceID,
		Metadata:     req.Metadata,
		IPAddress:    clientIP(r),
	})
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}

	if err := h.ledger.Touch(r.Context(), c.SessionID); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Str("session_id", c.SessionID).Msg("Failed to touch session")
	}
	NewResponseWriter(w, r).Created(entry)
}

// ActivityHistory handles GET /api/v1/activity/history?limit=.
func (h *Handler) ActivityHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", activity.DefaultHistoryLimit)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	logs, err := h.activity.History(r.Context(), claims(r).UserID(), limit)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).List(logs, len(logs))
}
