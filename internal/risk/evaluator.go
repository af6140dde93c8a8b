// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package risk

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/tomtom215/sessionguard/internal/models"
)

// Input is everything one evaluation looks at. Prior is the user's active
// session set read before the new session was created; it is not modified.
type Input struct {
	User    *models.User
	Device  *models.Device
	Session *models.Session
	Prior   []models.Session
	// Now is the evaluation time. Zero means Session.StartedAt.
	Now time.Time
}

// Scores are the sub-scores and composite of one login.
type Scores struct {
	Device     float64 `json:"device_risk"`
	Location   float64 `json:"location_risk"`
	Behavioral float64 `json:"behavioral_risk"`
	Session    float64 `json:"session_risk"`
	Composite  float64 `json:"total_risk_score"`
}

// Finding is a threshold crossed by an evaluation. The Generator turns
// each finding into one persisted alert.
type Finding struct {
	Type        models.AlertType
	Severity    models.Severity
	Description string
	Warning     string
	Metadata    map[string]any
}

// Assessment is the result of Evaluate. Findings are in a fixed order:
// composite, device, location, session.
type Assessment struct {
	Scores Scores
	// ImpossibleTravel reports whether some compared pair exceeded the
	// impossible-travel speed.
	ImpossibleTravel bool
	Findings         []Finding
}

// Warnings returns the user-facing warning of every finding, in order.
func (a *Assessment) Warnings() []string {
	out := make([]string, 0, len(a.Findings))
	for _, f := range a.Findings {
		out = append(out, f.Warning)
	}
	return out
}

// Evaluator scores logins. It performs no I/O and is safe for concurrent use.
type Evaluator struct {
	cfg Config
}

// NewEvaluator creates an Evaluator with the given thresholds.
func NewEvaluator(cfg Config) *Evaluator {
	return &Evaluator{cfg: cfg}
}

// Config returns the evaluator thresholds.
func (e *Evaluator) Config() Config {
	return e.cfg
}

// Evaluate scores one login.
func (e *Evaluator) Evaluate(in Input) *Assessment {
	now := in.Now
	if now.IsZero() {
		now = in.Session.StartedAt
	}

	location, impossible := e.locationRisk(in.Session, in.Prior, now)
	a := &Assessment{
		Scores: Scores{
			Device:     DeviceRisk(in.Device, now),
			Location:   location,
			Behavioral: BehavioralRisk(in.Prior, now),
			Session:    SessionRisk(in.User, in.Session, in.Prior),
		},
		ImpossibleTravel: impossible,
	}
	a.Scores.Composite = Composite(a.Scores.Device, a.Scores.Location, a.Scores.Behavioral, a.Scores.Session)
	a.Findings = e.findings(in, a)

	return a
}

// Composite blends the four sub-scores and rounds to two decimals.
func Composite(device, location, behavioral, session float64) float64 {
	return roundTo2Decimals(device*weightDevice +
		location*weightLocation +
		behavioral*weightBehavioral +
		session*weightSession)
}

// DeviceRisk scores the device's age, trust score and trusted flag.
func DeviceRisk(d *models.Device, now time.Time) float64 {
	var risk float64

	if now.Sub(d.FirstSeenAt) < newDeviceAge {
		risk += 40
	}

	switch {
	case d.TrustScore < 30:
		risk += 50
	case d.TrustScore < 50:
		risk += 30
	case d.TrustScore < 70:
		risk += 15
	}

	if !d.IsTrusted {
		risk += 20
	}

	return clamp(risk)
}

// LocationRisk scores implied travel speed against recent sessions and the
// number of countries seen in the last seven days.
func (e *Evaluator) LocationRisk(current *models.Session, prior []models.Session, now time.Time) float64 {
	risk, _ := e.locationRisk(current, prior, now)
	return risk
}

func (e *Evaluator) locationRisk(current *models.Session, prior []models.Session, now time.Time) (float64, bool) {
	if !current.Location.HasCoordinates() {
		return unknownLocationRisk, false
	}

	recent := recentLocated(prior)
	curLat, curLon := *current.Location.Latitude, *current.Location.Longitude

	var risk float64
	var impossible bool
	for i := range recent {
		p := &recent[i]
		hours := current.StartedAt.Sub(p.StartedAt).Hours()
		if hours <= 0 {
			continue
		}

		speed := HaversineKm(*p.Location.Latitude, *p.Location.Longitude, curLat, curLon) / hours
		if speed > e.cfg.ImpossibleTravelSpeedKmh {
			risk += 80
			impossible = true
			break
		}
		if speed > e.cfg.SuspiciousTravelSpeedKmh {
			risk += 40
		}
	}

	countries := make(map[string]struct{})
	if c := current.Country(); c != "" {
		countries[c] = struct{}{}
	}
	cutoff := now.Add(-countryWindow)
	for i := range recent {
		if recent[i].StartedAt.After(cutoff) {
			if c := recent[i].Country(); c != "" {
				countries[c] = struct{}{}
			}
		}
	}
	if len(countries) > 3 {
		risk += 30
	}

	return clamp(risk), impossible
}

// recentLocated returns up to five prior sessions with coordinates, newest first.
func recentLocated(prior []models.Session) []models.Session {
	located := make([]models.Session, 0, len(prior))
	for i := range prior {
		if prior[i].Location.HasCoordinates() {
			located = append(located, prior[i])
		}
	}
	sort.SliceStable(located, func(i, j int) bool {
		return located[i].StartedAt.After(located[j].StartedAt)
	})
	if len(located) > maxComparedSessions {
		located = located[:maxComparedSessions]
	}
	return located
}

// BehavioralRisk scores device switching in the last 24 hours and logins
// far from the user's usual hour (UTC).
func BehavioralRisk(prior []models.Session, now time.Time) float64 {
	var risk float64

	cutoff := now.Add(-deviceSwitchWindow)
	devices := make(map[string]struct{})
	for i := range prior {
		if prior[i].StartedAt.After(cutoff) {
			devices[prior[i].DeviceID] = struct{}{}
		}
	}
	switch {
	case len(devices) > 5:
		risk += 60
	case len(devices) > 3:
		risk += 30
	}

	if len(prior) > 0 {
		var sum float64
		for i := range prior {
			sum += float64(prior[i].StartedAt.UTC().Hour())
		}
		mean := sum / float64(len(prior))
		if math.Abs(float64(now.UTC().Hour())-mean) > unusualHourDifference {
			risk += 20
		}
	}

	return clamp(risk)
}

// SessionRisk scores the concurrency cap and the number of countries with
// an active session, the new one included.
func SessionRisk(u *models.User, current *models.Session, prior []models.Session) float64 {
	var risk float64

	count := len(prior)
	limit := u.SessionCap()
	if count >= limit {
		risk += 50
	}
	if count > limit+2 {
		risk += 30
	}

	countries := make(map[string]struct{})
	if c := current.Country(); c != "" {
		countries[c] = struct{}{}
	}
	for i := range prior {
		if c := prior[i].Country(); c != "" {
			countries[c] = struct{}{}
		}
	}
	switch {
	case len(countries) > 2:
		risk += 40
	case len(countries) == 2:
		risk += 20
	}

	return clamp(risk)
}

func (e *Evaluator) findings(in Input, a *Assessment) []Finding {
	s := a.Scores
	var out []Finding

	switch {
	case s.Composite >= e.cfg.CriticalRiskThreshold:
		out = append(out, Finding{
			Type:        models.AlertHighRiskScore,
			Severity:    models.SeverityCritical,
			Description: fmt.Sprintf("Critical risk score: %.2f", s.Composite),
			Warning:     "Critical risk detected. Account may be suspended.",
			Metadata: map[string]any{
				"totalRiskScore": s.Composite,
				"deviceRisk":     s.Device,
				"locationRisk":   s.Location,
				"behavioralRisk": s.Behavioral,
				"sessionRisk":    s.Session,
			},
		})
	case s.Composite >= e.cfg.HighRiskThreshold:
		out = append(out, Finding{
			Type:        models.AlertHighRiskScore,
			Severity:    models.SeverityHigh,
			Description: fmt.Sprintf("High risk score: %.2f", s.Composite),
			Warning:     "High risk detected. Please verify your identity.",
			Metadata:    map[string]any{"totalRiskScore": s.Composite},
		})
	}

	if s.Device > 70 && !in.Device.IsTrusted {
		out = append(out, Finding{
			Type:        models.AlertSuspiciousDevice,
			Severity:    models.SeverityHigh,
			Description: "Login from suspicious or unknown device",
			Warning:     "Suspicious device detected.",
			Metadata:    map[string]any{"deviceId": in.Device.ID, "deviceRisk": s.Device},
		})
	}

	// A single impossible hop scores exactly 80, so the hop itself also
	// raises the alert.
	if s.Location > 80 || a.ImpossibleTravel {
		out = append(out, Finding{
			Type:        models.AlertImpossibleTravel,
			Severity:    models.SeverityCritical,
			Description: "Physical travel between locations is impossible in given timeframe",
			Warning:     "Impossible travel detected.",
			Metadata:    map[string]any{"locationRisk": s.Location, "sessionId": in.Session.ID},
		})
	}

	if s.Session > 60 {
		out = append(out, Finding{
			Type:        models.AlertConcurrentSessions,
			Severity:    models.SeverityMedium,
			Description: "Account accessed from multiple locations simultaneously",
			Warning:     "Multiple concurrent sessions detected.",
			Metadata:    map[string]any{"activeSessions": len(in.Prior) + 1},
		})
	}

	return out
}
