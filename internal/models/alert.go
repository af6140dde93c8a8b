// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package models

import (
	"time"

	"github.com/goccy/go-json"
)

// AlertType classifies a risk alert.
type AlertType string

const (
	AlertImpossibleTravel   AlertType = "IMPOSSIBLE_TRAVEL"
	AlertConcurrentSessions AlertType = "CONCURRENT_SESSIONS"
	AlertSuspiciousDevice   AlertType = "SUSPICIOUS_DEVICE"
	AlertUnusualBehavior    AlertType = "UNUSUAL_BEHAVIOR"
	AlertHighRiskScore      AlertType = "HIGH_RISK_SCORE"
	AlertMultipleLocations  AlertType = "MULTIPLE_LOCATIONS"
	AlertRapidDeviceSwitch  AlertType = "RAPID_DEVICE_SWITCHING"
)

// Valid reports whether t is a known alert type.
func (t AlertType) Valid() bool {
	switch t {
	case AlertImpossibleTravel, AlertConcurrentSessions, AlertSuspiciousDevice,
		AlertUnusualBehavior, AlertHighRiskScore, AlertMultipleLocations, AlertRapidDeviceSwitch:
		return true
	}
	return false
}

// Severity is the severity of a risk alert.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Weight is the contribution of one unresolved alert to the account risk score.
func (s Severity) Weight() float64 {
	switch s {
	case SeverityCritical:
		return 25
	case SeverityHigh:
		return 15
	case SeverityMedium:
		return 8
	case SeverityLow:
		return 3
	}
	return 0
}

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	return s.Weight() > 0
}

// RiskAlert is a persisted risk finding. A resolved alert has ResolvedAt set.
type RiskAlert struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	AlertType   AlertType       `json:"alert_type"`
	Severity    Severity        `json:"severity"`
	Description string          `json:"description"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	IsResolved  bool            `json:"is_resolved"`
	ResolvedAt  *time.Time      `json:"resolved_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
