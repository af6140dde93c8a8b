// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

// Package validation validates API request bodies with go-playground/validator v10.
//
// A single validator instance is built on first use and shared; it caches
// struct metadata and is safe for concurrent use. Field names in errors are
// the JSON names of the fields, so a client sees "device_fingerprint.user_agent"
// rather than the Go field path.
//
// Custom tags:
//
//	activity_type  value is a known models.ActivityType
//	tier           value is a known subscription tier (empty allowed with omitempty)
//	account_status value is a known models.AccountStatus
//
// Example:
//
//	var req login.Request
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    ...
//	}
package validation
