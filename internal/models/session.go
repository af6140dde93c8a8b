// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package models

import (
	"math"
	"time"
)

// CoordinateEpsilon is the threshold under which a coordinate counts as zero.
// (0, 0) is the sentinel for "geolocation unavailable".
const CoordinateEpsilon = 1e-7

// IsUnknownLocation returns true for the (0, 0) sentinel.
func IsUnknownLocation(lat, lon float64) bool {
	return math.Abs(lat) < CoordinateEpsilon && math.Abs(lon) < CoordinateEpsilon
}

// Location is where a session was started from. Any field may be absent.
type Location struct {
	Latitude    *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude   *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
	City        string   `json:"city,omitempty" validate:"max=128"`
	Country     string   `json:"country,omitempty" validate:"max=128"`
	CountryCode string   `json:"country_code,omitempty" validate:"max=8"`
}

// HasCoordinates reports whether both coordinates are present and not the sentinel.
func (l *Location) HasCoordinates() bool {
	if l == nil || l.Latitude == nil || l.Longitude == nil {
		return false
	}
	return !IsUnknownLocation(*l.Latitude, *l.Longitude)
}

// CountryName returns the country or "" when l is nil.
func (l *Location) CountryName() string {
	if l == nil {
		return ""
	}
	return l.Country
}

// Session is one login of a user on a device.
// An inactive session always has EndedAt set.
type Session struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	DeviceID       string     `json:"device_id"`
	IPAddress      string     `json:"ip_address"`
	UserAgent      string     `json:"user_agent"`
	Location       *Location  `json:"location,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	IsActive       bool       `json:"is_active"`
	LastActivityAt time.Time  `json:"last_activity_at"`
	RiskScore      float64    `json:"risk_score"`
}

// Country returns the session's country or "".
func (s *Session) Country() string {
	return s.Location.CountryName()
}
