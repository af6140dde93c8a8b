// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/tomtom215/sessionguard/internal/models"
	"github.com/tomtom215/sessionguard/internal/validation"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 64 << 10

// VerifyRequest carries a token to check. An Authorization header may be
// used instead.
type VerifyRequest struct {
	Token string `json:"token"`
}

// TrackActivityRequest is the body of POST /activity/track.
type TrackActivityRequest struct {
	ActivityType string         `json:"activity_type" validate:"required,activity_type"`
	ResourceID   string         `json:"resource_id,omitempty" validate:"max=256"`
	Metadata     map[string]any `json:"metadata,omitempty" validate:"max=32"`
}

// AccountStatusRequest is the body of PUT /admin/users/{id}/status.
type AccountStatusRequest struct {
	Status string `json:"status" validate:"required,account_status"`
}

// decodeAndValidate reads a JSON body into v and validates it. Unknown
// fields are rejected.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return models.InvalidInput(fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
		case errors.Is(err, io.EOF):
			return models.InvalidInput("request body is required")
		default:
			return models.InvalidInput("invalid JSON body: " + err.Error())
		}
	}

	if verr := validation.ValidateStruct(v); verr != nil {
		return verr
	}
	return nil
}

// queryInt returns the integer query parameter key, or def when absent.
// A malformed or negative value is InvalidInput.
func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, models.InvalidInput(fmt.Sprintf("%s must be a non-negative integer", key))
	}
	return n, nil
}

// queryBool returns the boolean query parameter key, false when absent.
func queryBool(r *http.Request, key string) (bool, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, models.InvalidInput(fmt.Sprintf("%s must be true or false", key))
	}
	return b, nil
}
