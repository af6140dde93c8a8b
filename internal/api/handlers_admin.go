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

// SetAccountStatus handles PUT /api/v1/admin/users/{id}/status.
func (h *Handler) SetAccountStatus(w http.ResponseWriter, r *http.Request) {
	var req AccountStatusRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		WriteServiceError(w, r, err)
		return
	}

	user, err := h.login.SetAccountStatus(r.Context(), chi.URLParam(r, "id"), models.AccountStatus(req.Status))
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, user)
}
