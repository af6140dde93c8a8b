// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package device

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strings"

	"github.com/tomtom215/sessionguard/internal/models"
)

// Trust score constants.
const (
	InitialTrustScore = 50.0
	TrustIncrement    = 5.0
	TrustedFloor      = 90.0
	MaxTrustScore     = 100.0
)

// fingerprintDelimiter joins the canonical fields before hashing.
// Changing it invalidates every stored device.
const fingerprintDelimiter = "|"

// Hash returns the hex SHA-256 of the fingerprint's canonical fields.
func Hash(fp *models.Fingerprint) string {
	sum := sha256.Sum256([]byte(strings.Join(fp.CanonicalFields(), fingerprintDelimiter)))
	return hex.EncodeToString(sum[:])
}

// Classify derives the device type from a user agent.
func Classify(userAgent string) models.DeviceType {
	ua := strings.ToLower(userAgent)

	switch {
	case strings.Contains(ua, "mobile"), strings.Contains(ua, "android"), strings.Contains(ua, "iphone"):
		return models.DeviceMobile
	case strings.Contains(ua, "tablet"), strings.Contains(ua, "ipad"):
		return models.DeviceTablet
	case strings.Contains(ua, "electron"):
		return models.DeviceDesktop
	default:
		return models.DeviceWeb
	}
}

// Name builds the display name "<platform> <TYPE>".
func Name(fp *models.Fingerprint) string {
	platform := fp.Platform
	if platform == "" {
		platform = "Unknown"
	}
	return platform + " " + string(Classify(fp.UserAgent))
}

// RaiseTrust is the trust update applied on every repeat login.
func RaiseTrust(t float64) float64 {
	return clampTrust(math.Min(t+TrustIncrement, MaxTrustScore))
}

// ExplicitTrust is the trust update applied by the trust action. It never lowers t.
func ExplicitTrust(t float64) float64 {
	return clampTrust(math.Max(t, TrustedFloor))
}

func clampTrust(t float64) float64 {
	return math.Max(0, math.Min(t, MaxTrustScore))
}
