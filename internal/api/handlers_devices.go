// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ListDevices handles GET /api/v1/devices.
func (h *Handler) ListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.devices.List(r.Context(), claims(r).UserID())
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).List(devices, len(devices))
}

// TrustDevice handles POST /api/v1/devices/{id}/trust.
func (h *Handler) TrustDevice(w http.ResponseWriter, r *http.Request) {
	d, err := h.devices.Trust(r.Context(), chi.URLParam(r, "id"), claims(r).UserID())
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, d)
}

// RemoveDevice handles DELETE /api/v1/devices/{id}.
func (h *Handler) RemoveDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.devices.Remove(r.Context(), id, claims(r).UserID()); err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, map[string]string{"id": id, "message": "Device removed"})
}
