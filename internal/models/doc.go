// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

/*
Package models defines the data structures shared across Sessionguard.

Key Components:

  - User: account with subscription tier limits and account status
  - Device: a fingerprinted device with a trust score
  - Session: one login, optionally geolocated
  - RiskAlert: a persisted finding with type and severity
  - ActivityLog: an append-only user activity record

The package also defines the error kinds every store and service returns
(ErrNotFound, ErrConflict, ErrInvalidInput, ...) so that the API layer can
map them to HTTP status codes without importing storage packages.
*/
package models
