// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package api

import (
	"net/http"

	"github.com/tomtom215/sessionguard/internal/auth"
	"github.com/tomtom215/sessionguard/internal/login"
	"github.com/tomtom215/sessionguard/internal/models"
)

// Register handles POST /api/v1/auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req login.RegisterRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		WriteServiceError(w, r, err)
		return
	}

	user, err := h.login.Register(r.Context(), req)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(user)
}

// Login handles POST /api/v1/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req login.Request
	if err := decodeAndValidate(w, r, &req); err != nil {
		WriteServiceError(w, r, err)
		return
	}
	req.IPAddress = clientIP(r)

	res, err := h.login.Login(r.Context(), req)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, res)
}

// Logout handles POST /api/v1/auth/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.login.Logout(r.Context(), claims(r)); err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, map[string]string{"message": "Logged out"})
}

// Verify handles POST /api/v1/auth/verify. The token comes from the
// Authorization header or the JSON body.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	token, err := auth.BearerToken(r)
	if err != nil {
		var req VerifyRequest
		if derr := decodeAndValidate(w, r, &req); derr != nil || req.Token == "" {
			WriteServiceError(w, r, models.Unauthorized("token is required"))
			return
		}
		token = req.Token
	}

	v, err := h.login.Verify(r.Context(), token)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, map[string]interface{}{
		"valid":      true,
		"user":       v.User,
		"session":    v.Session,
		"expires_at": v.Claims.ExpiresAt.Time,
	})
}

// Me handles GET /api/v1/users/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.login.Me(r.Context(), claims(r).UserID())
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, user)
}
