// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package models

import (
	"strconv"
	"time"
)

// DeviceType is the coarse class of a device, derived from its user agent.
type DeviceType string

const (
	DeviceWeb     DeviceType = "WEB"
	DeviceMobile  DeviceType = "MOBILE"
	DeviceTablet  DeviceType = "TABLET"
	DeviceDesktop DeviceType = "DESKTOP"
)

// Fingerprint is the set of client attributes a device identity is derived from.
// Empty strings and a zero HardwareConcurrency mean the attribute is absent.
type Fingerprint struct {
	UserAgent           string `json:"user_agent" validate:"required,max=1024"`
	ScreenResolution    string `json:"screen_resolution,omitempty" validate:"max=64"`
	Timezone            string `json:"timezone,omitempty" validate:"max=64"`
	Language            string `json:"language,omitempty" validate:"max=64"`
	Platform            string `json:"platform,omitempty" validate:"max=64"`
	HardwareConcurrency int    `json:"hardware_concurrency,omitempty" validate:"min=0,max=1024"`
	Canvas              string `json:"canvas,omitempty" validate:"max=4096"`
	WebGL               string `json:"webgl,omitempty" validate:"max=4096"`
}

// Attributes returns the present attributes keyed by their JSON names.
func (f *Fingerprint) Attributes() map[string]any {
	out := make(map[string]any, 8)
	put := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	put("user_agent", f.UserAgent)
	put("screen_resolution", f.ScreenResolution)
	put("timezone", f.Timezone)
	put("language", f.Language)
	put("platform", f.Platform)
	if f.HardwareConcurrency > 0 {
		out["hardware_concurrency"] = f.HardwareConcurrency
	}
	put("canvas", f.Canvas)
	put("webgl", f.WebGL)
	return out
}

// CanonicalFields returns the fingerprint fields in hashing order.
func (f *Fingerprint) CanonicalFields() []string {
	hc := ""
	if f.HardwareConcurrency > 0 {
		hc = strconv.Itoa(f.HardwareConcurrency)
	}
	return []string{
		f.UserAgent,
		f.ScreenResolution,
		f.Timezone,
		f.Language,
		f.Platform,
		hc,
		f.Canvas,
		f.WebGL,
	}
}

// Device is a known device of one user. (UserID, FingerprintHash) is unique.
type Device struct {
	ID              string         `json:"id"`
	UserID          string         `json:"user_id"`
	FingerprintHash string         `json:"fingerprint_hash"`
	DeviceName      string         `json:"device_name"`
	DeviceType      DeviceType     `json:"device_type"`
	TrustScore      float64        `json:"trust_score"`
	IsTrusted       bool           `json:"is_trusted"`
	FirstSeenAt     time.Time      `json:"first_seen_at"`
	LastSeenAt      time.Time      `json:"last_seen_at"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// DeviceSummary is the device view returned from a login.
type DeviceSummary struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Type       DeviceType `json:"type"`
	IsTrusted  bool       `json:"is_trusted"`
	IsNew      bool       `json:"is_new"`
	TrustScore float64    `json:"trust_score"`
}
