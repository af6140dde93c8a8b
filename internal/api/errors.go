// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/sessionguard/internal/authz"
	"github.com/tomtom215/sessionguard/internal/logging"
	"github.com/tomtom215/sessionguard/internal/models"
	"github.com/tomtom215/sessionguard/internal/validation"
)

// WriteServiceError maps err to a status by its kind. It satisfies
// auth.ErrorWriter so the auth and authz middleware share the envelope.
func WriteServiceError(w http.ResponseWriter, r *http.Request, err error) {
	rw := NewResponseWriter(w, r)

	var verr *validation.RequestValidationError
	if errors.As(err, &verr) {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	switch {
	case errors.Is(err, models.ErrNotFound):
		rw.NotFound(err.Error())
	case errors.Is(err, models.ErrConflict):
		rw.Conflict(err.Error())
	case errors.Is(err, models.ErrInvalidInput):
		rw.BadRequest(err.Error())
	case errors.Is(err, models.ErrUnauthorized):
		rw.Unauthorized(err.Error())
	case errors.Is(err, models.ErrAccountInactive):
		rw.Error(http.StatusForbidden, ErrCodeAccountInactive, err.Error())
	case errors.Is(err, authz.ErrForbidden):
		rw.Forbidden("insufficient permissions")
	default:
		logging.Ctx(r.Context()).Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("Request failed")
		rw.InternalError("an internal error occurred")
	}
}
