// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package risk

import (
	"fmt"
	"time"
)

// Config holds the evaluator thresholds.
type Config struct {
	// ImpossibleTravelSpeedKmh is the implied speed above which travel between
	// two logins is considered impossible.
	ImpossibleTravelSpeedKmh float64
	// SuspiciousTravelSpeedKmh is the implied speed above which travel is
	// possible only by air.
	SuspiciousTravelSpeedKmh float64
	// HighRiskThreshold is the composite score that raises a HIGH alert.
	HighRiskThreshold float64
	// CriticalRiskThreshold is the composite score that raises a CRITICAL alert.
	CriticalRiskThreshold float64
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		ImpossibleTravelSpeedKmh: 800,
		SuspiciousTravelSpeedKmh: 500,
		HighRiskThreshold:        60,
		CriticalRiskThreshold:    80,
	}
}

// Validate checks threshold ordering.
func (c Config) Validate() error {
	if c.SuspiciousTravelSpeedKmh <= 0 || c.ImpossibleTravelSpeedKmh <= 0 {
		return fmt.Errorf("travel speed thresholds must be positive")
	}
	if c.SuspiciousTravelSpeedKmh > c.ImpossibleTravelSpeedKmh {
		return fmt.Errorf("suspicious travel speed (%.0f) exceeds impossible travel speed (%.0f)",
			c.SuspiciousTravelSpeedKmh, c.ImpossibleTravelSpeedKmh)
	}
	if c.HighRiskThreshold <= 0 || c.HighRiskThreshold > c.CriticalRiskThreshold || c.CriticalRiskThreshold > 100 {
		return fmt.Errorf("risk thresholds must satisfy 0 < high (%.0f) <= critical (%.0f) <= 100",
			c.HighRiskThreshold, c.CriticalRiskThreshold)
	}
	return nil
}

// Scoring windows and limits.
const (
	newDeviceAge          = 24 * time.Hour
	deviceSwitchWindow    = 24 * time.Hour
	countryWindow         = 7 * 24 * time.Hour
	aggregateWindow       = 7 * 24 * time.Hour
	maxComparedSessions   = 5
	unknownLocationRisk   = 20.0
	unusualHourDifference = 8.0
	maxScore              = 100.0
)

// Sub-score weights of the composite.
const (
	weightDevice     = 0.30
	weightLocation   = 0.25
	weightBehavioral = 0.25
	weightSession    = 0.20
)
