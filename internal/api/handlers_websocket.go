// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package api

import (
	"net/http"

	"github.com/tomtom215/sessionguard/internal/logging"
)

// AlertStream handles GET /api/v1/ws/alerts. The connection receives the
// caller's alerts and eviction notices until it closes.
func (h *Handler) AlertStream(w http.ResponseWriter, r *http.Request) {
	if h.stream == nil {
		NewResponseWriter(w, r).ServiceUnavailable("alert stream is not enabled")
		return
	}
	// The upgrader has already written an HTTP error when this fails.
	if err := h.stream.ServeWS(w, r, claims(r).UserID()); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("WebSocket upgrade failed")
	}
}
