// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package risk

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/sessionguard/internal/models"
)

var evalNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func loc(lat, lon float64, country string) *models.Location {
	return &models.Location{Latitude: &lat, Longitude: &lon, Country: country}
}

func sessionAt(id string, start time.Time, l *models.Location) models.Session {
	return models.Session{ID: id, UserID: "u1", DeviceID: "dev-" + id, StartedAt: start, IsActive: true, Location: l}
}

func trustedDevice() *models.Device {
	return &models.Device{
		ID:          "d1",
		TrustScore:  100,
		IsTrusted:   true,
		FirstSeenAt: evalNow.Add(-30 * 24 * time.Hour),
	}
}

func TestHaversineKm(t *testing.T) {
	t.Parallel()

	d := HaversineKm(40.7128, -74.006, 35.6762, 139.6503)
	assert.GreaterOrEqual(t, d, 10850.0)
	assert.LessOrEqual(t, d, 10900.0)

	assert.InDelta(t, 0, HaversineKm(51.5, -0.12, 51.5, -0.12), 1e-9)
	assert.InDelta(t, HaversineKm(10, 20, 30, 40), HaversineKm(30, 40, 10, 20), 1e-9)
}

func TestEvaluate_ImpossibleTravelNewYorkToTokyo(t *testing.T) {
	t.Parallel()

	e := NewEvaluator(DefaultConfig())
	prior := []models.Session{
		sessionAt("nyc", evalNow.Add(-45*time.Minute), loc(40.7128, -74.006, "United States")),
	}
	current := sessionAt("tokyo", evalNow, loc(35.6762, 139.6503, "Japan"))

	a := e.Evaluate(Input{
		User:    &models.User{ID: "u1", MaxConcurrentSessions: 3},
		Device:  trustedDevice(),
		Session: &current,
		Prior:   prior,
		Now:     evalNow,
	})

	assert.Equal(t, 0.0, a.Scores.Device)
	assert.Equal(t, 80.0, a.Scores.Location)
	assert.Equal(t, 0.0, a.Scores.Behavioral)
	assert.Equal(t, 20.0, a.Scores.Session, "two countries")
	assert.Equal(t, 24.0, a.Scores.Composite)
	assert.True(t, a.ImpossibleTravel)

	require.Len(t, a.Findings, 1)
	f := a.Findings[0]
	assert.Equal(t, models.AlertImpossibleTravel, f.Type)
	assert.Equal(t, models.SeverityCritical, f.Severity)
	assert.Equal(t, "tokyo", f.Metadata["sessionId"])
	assert.Equal(t, []string{"Impossible travel detected."}, a.Warnings())
}

func TestEvaluate_DefaultsNowToSessionStart(t *testing.T) {
	t.Parallel()

	e := NewEvaluator(DefaultConfig())
	current := sessionAt("s", evalNow, nil)
	d := trustedDevice()
	d.FirstSeenAt = evalNow.Add(-time.Hour)

	a := e.Evaluate(Input{User: &models.User{MaxConcurrentSessions: 1}, Device: d, Session: &current})
	assert.Equal(t, 40.0, a.Scores.Device, "device first seen an hour before the session is new")
}

func TestDeviceRisk(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		age     time.Duration
		trust   float64
		trusted bool
		want    float64
	}{
		{"brand new untrusted", 0, 50, false, 75},
		{"new with very low trust clamps", time.Minute, 20, false, 100},
		{"old trusted", 48 * time.Hour, 95, true, 0},
		{"old untrusted low trust", 48 * time.Hour, 45, false, 50},
		{"just under a day", 23*time.Hour + 59*time.Minute, 70, true, 40},
		{"exactly a day", 24 * time.Hour, 69, true, 15},
		{"trust 30 is not below 30", 48 * time.Hour, 30, true, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &models.Device{TrustScore: tt.trust, IsTrusted: tt.trusted, FirstSeenAt: evalNow.Add(-tt.age)}
			assert.Equal(t, tt.want, DeviceRisk(d, evalNow))
		})
	}
}

func TestLocationRisk_UnknownLocation(t *testing.T) {
	t.Parallel()

	e := NewEvaluator(DefaultConfig())

	noLoc := sessionAt("a", evalNow, nil)
	assert.Equal(t, 20.0, e.LocationRisk(&noLoc, nil, evalNow))

	sentinel := sessionAt("b", evalNow, loc(0, 0, "Nowhere"))
	assert.Equal(t, 20.0, e.LocationRisk(&sentinel, nil, evalNow))

	cityOnly := sessionAt("c", evalNow, &models.Location{City: "Berlin", Country: "Germany"})
	assert.Equal(t, 20.0, e.LocationRisk(&cityOnly, nil, evalNow))
}

// Along the equator one degree of longitude is EarthRadiusKm*pi/180 km,
// about 111.2 km, so 5.4 degrees per hour is about 600 km/h.
func TestLocationRisk_SuspiciousSpeedsAccumulate(t *testing.T) {
	t.Parallel()

	e := NewEvaluator(DefaultConfig())
	current := sessionAt("cur", evalNow, loc(0, 20, "X"))
	prior := []models.Session{
		sessionAt("p1", evalNow.Add(-time.Hour), loc(0, 14.6, "X")),
		sessionAt("p2", evalNow.Add(-2*time.Hour), loc(0, 9.2, "X")),
	}

	risk, impossible := e.locationRisk(&current, prior, evalNow)
	assert.Equal(t, 80.0, risk)
	assert.False(t, impossible)
}

func TestLocationRisk_FirstImpossibleHitStops(t *testing.T) {
	t.Parallel()

	e := NewEvaluator(DefaultConfig())
	current := sessionAt("cur", evalNow, loc(0, 20, "X"))
	prior := []models.Session{
		// Older suspicious pair listed first; comparison is newest first.
		sessionAt("old", evalNow.Add(-2*time.Hour), loc(0, 9.2, "X")),
		sessionAt("new", evalNow.Add(-time.Hour), loc(0, 110, "X")),
	}

	risk, impossible := e.locationRisk(&current, prior, evalNow)
	assert.Equal(t, 80.0, risk)
	assert.True(t, impossible)
}

func TestLocationRisk_SuspiciousThenImpossibleClamps(t *testing.T) {
	t.Parallel()

	e := NewEvaluator(DefaultConfig())
	current := sessionAt("cur", evalNow, loc(0, 20, "X"))
	prior := []models.Session{
		sessionAt("suspicious", evalNow.Add(-time.Hour), loc(0, 14.6, "X")),
		sessionAt("impossible", evalNow.Add(-2*time.Hour), loc(0, 120, "X")),
	}

	assert.Equal(t, 100.0, e.LocationRisk(&current, prior, evalNow))
}

func TestLocationRisk_SkipsNonPositiveElapsed(t *testing.T) {
	t.Parallel()

	e := NewEvaluator(DefaultConfig())
	current := sessionAt("cur", evalNow, loc(0, 20, "X"))
	prior := []models.Session{
		sessionAt("same-instant", evalNow, loc(0, 120, "X")),
		sessionAt("future", evalNow.Add(time.Minute), loc(0, 120, "X")),
	}

	assert.Equal(t, 0.0, e.LocationRisk(&current, prior, evalNow))
}

func TestLocationRisk_OnlyFiveMostRecentCompared(t *testing.T) {
	t.Parallel()

	e := NewEvaluator(DefaultConfig())
	current := sessionAt("cur", evalNow, loc(0, 20, "X"))

	var prior []models.Session
	for i := 1; i <= 5; i++ {
		prior = append(prior, sessionAt(fmt.Sprint(i), evalNow.Add(-time.Duration(i)*time.Hour), loc(0, 20, "X")))
	}
	// Sixth most recent would be impossible travel.
	prior = append(prior, sessionAt("6", evalNow.Add(-6*time.Hour), loc(0, -160, "X")))

	assert.Equal(t, 0.0, e.LocationRisk(&current, prior, evalNow))
}

func TestLocationRisk_ManyCountries(t *testing.T) {
	t.Parallel()

	e := NewEvaluator(DefaultConfig())
	current := sessionAt("cur", evalNow, loc(48.85, 2.35, "France"))

	prior := []models.Session{
		sessionAt("a", evalNow.Add(-24*time.Hour), loc(48.85, 2.35, "Germany")),
		sessionAt("b", evalNow.Add(-48*time.Hour), loc(48.85, 2.35, "Spain")),
		sessionAt("c", evalNow.Add(-72*time.Hour), loc(48.85, 2.35, "Italy")),
	}
	assert.Equal(t, 30.0, e.LocationRisk(&current, prior, evalNow))

	// One of the countries falls outside the seven day window.
	prior[2].StartedAt = evalNow.Add(-8 * 24 * time.Hour)
	assert.Equal(t, 0.0, e.LocationRisk(&current, prior, evalNow))

	// Sessions without coordinates do not count.
	prior[2] = sessionAt("c", evalNow.Add(-time.Hour), &models.Location{Country: "Italy"})
	assert.Equal(t, 0.0, e.LocationRisk(&current, prior, evalNow))
}

func TestBehavioralRisk(t *testing.T) {
	t.Parallel()

	at := func(hour int) time.Time {
		return time.Date(2026, 3, 1, hour, 0, 0, 0, time.UTC)
	}

	devices := func(n int, start time.Time) []models.Session {
		out := make([]models.Session, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, sessionAt(fmt.Sprint(i), start, nil))
		}
		return out
	}

	assert.Equal(t, 0.0, BehavioralRisk(nil, evalNow), "no prior sessions")
	assert.Equal(t, 0.0, BehavioralRisk(devices(3, at(9)), evalNow))
	assert.Equal(t, 30.0, BehavioralRisk(devices(4, at(9)), evalNow))
	assert.Equal(t, 60.0, BehavioralRisk(devices(6, at(9)), evalNow))

	// Devices older than 24 hours are not counted.
	old := devices(6, evalNow.Add(-25*time.Hour))
	assert.Equal(t, 0.0, BehavioralRisk(old, evalNow))

	// Usual hour 02:00, now 14:00.
	late := []models.Session{sessionAt("x", at(2), nil), sessionAt("y", at(2), nil)}
	assert.Equal(t, 20.0, BehavioralRisk(late, at(14)))
	assert.Equal(t, 0.0, BehavioralRisk(late, at(10)), "difference of exactly 8 is not unusual")

	assert.Equal(t, 80.0, BehavioralRisk(devices(6, at(0)), at(10)))
}

func TestSessionRisk(t *testing.T) {
	t.Parallel()

	u := &models.User{MaxConcurrentSessions: 1}
	current := sessionAt("cur", evalNow, &models.Location{Country: "France"})

	prior := func(countries ...string) []models.Session {
		out := make([]models.Session, 0, len(countries))
		for i, c := range countries {
			out = append(out, sessionAt(fmt.Sprint(i), evalNow.Add(-time.Hour), &models.Location{Country: c}))
		}
		return out
	}

	assert.Equal(t, 0.0, SessionRisk(u, &current, nil))
	assert.Equal(t, 50.0, SessionRisk(u, &current, prior("France")))
	assert.Equal(t, 70.0, SessionRisk(u, &current, prior("Spain")))
	assert.Equal(t, 90.0, SessionRisk(u, &current, prior("Spain", "Italy")))
	assert.Equal(t, 80.0, SessionRisk(u, &current, prior("France", "France", "France", "France")))
	assert.Equal(t, 100.0, SessionRisk(u, &current, prior("Spain", "Italy", "France", "France")))

	roomy := &models.User{MaxConcurrentSessions: 5}
	assert.Equal(t, 0.0, SessionRisk(roomy, &current, prior("France", "France")))
}

func TestComposite(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 100.0, Composite(100, 100, 100, 100))
	assert.Equal(t, 0.0, Composite(0, 0, 0, 0))
	assert.Equal(t, 27.5, Composite(75, 20, 0, 0))
	assert.Equal(t, 33.33, Composite(33.333, 33.333, 33.333, 33.333))

	// Non-decreasing in each argument.
	for v := 0.0; v < 100; v += 10 {
		assert.LessOrEqual(t, Composite(v, 50, 50, 50), Composite(v+10, 50, 50, 50))
		assert.LessOrEqual(t, Composite(50, v, 50, 50), Composite(50, v+10, 50, 50))
		assert.LessOrEqual(t, Composite(50, 50, v, 50), Composite(50, 50, v+10, 50))
		assert.LessOrEqual(t, Composite(50, 50, 50, v), Composite(50, 50, 50, v+10))
	}
}

func TestFindings_Thresholds(t *testing.T) {
	t.Parallel()

	e := NewEvaluator(DefaultConfig())
	current := sessionAt("s1", evalNow, nil)
	untrusted := &models.Device{ID: "d1"}
	trusted := &models.Device{ID: "d2", IsTrusted: true}

	tests := []struct {
		name       string
		scores     Scores
		device     *models.Device
		impossible bool
		want       []models.AlertType
		severities []models.Severity
	}{
		{"quiet", Scores{Composite: 59.99}, untrusted, false, nil, nil},
		{"high", Scores{Composite: 60}, untrusted, false,
			[]models.AlertType{models.AlertHighRiskScore}, []models.Severity{models.SeverityHigh}},
		{"critical", Scores{Composite: 80}, untrusted, false,
			[]models.AlertType{models.AlertHighRiskScore}, []models.Severity{models.SeverityCritical}},
		{"suspicious device", Scores{Device: 71}, untrusted, false,
			[]models.AlertType{models.AlertSuspiciousDevice}, []models.Severity{models.SeverityHigh}},
		{"trusted device is never suspicious", Scores{Device: 100}, trusted, false, nil, nil},
		{"device at 70", Scores{Device: 70}, untrusted, false, nil, nil},
		{"location above 80", Scores{Location: 81}, untrusted, false,
			[]models.AlertType{models.AlertImpossibleTravel}, []models.Severity{models.SeverityCritical}},
		{"two suspicious hops", Scores{Location: 80}, untrusted, false, nil, nil},
		{"one impossible hop", Scores{Location: 80}, untrusted, true,
			[]models.AlertType{models.AlertImpossibleTravel}, []models.Severity{models.SeverityCritical}},
		{"sessions above 60", Scores{Session: 70}, untrusted, false,
			[]models.AlertType{models.AlertConcurrentSessions}, []models.Severity{models.SeverityMedium}},
		{"sessions at 60", Scores{Session: 60}, untrusted, false, nil, nil},
		{"everything", Scores{Device: 100, Location: 100, Behavioral: 80, Session: 100, Composite: 95}, untrusted, true,
			[]models.AlertType{models.AlertHighRiskScore, models.AlertSuspiciousDevice, models.AlertImpossibleTravel, models.AlertConcurrentSessions},
			[]models.Severity{models.SeverityCritical, models.SeverityHigh, models.SeverityCritical, models.SeverityMedium}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := Input{Device: tt.device, Session: &current, Prior: make([]models.Session, 2)}
			got := e.findings(in, &Assessment{Scores: tt.scores, ImpossibleTravel: tt.impossible})

			require.Len(t, got, len(tt.want))
			for i := range got {
				assert.Equal(t, tt.want[i], got[i].Type)
				assert.Equal(t, tt.severities[i], got[i].Severity)
				assert.NotEmpty(t, got[i].Warning)
			}
		})
	}
}

func TestFindings_DescriptionsAndMetadata(t *testing.T) {
	t.Parallel()

	e := NewEvaluator(DefaultConfig())
	current := sessionAt("s1", evalNow, nil)
	in := Input{Device: &models.Device{ID: "d1"}, Session: &current, Prior: make([]models.Session, 3)}

	got := e.findings(in, &Assessment{Scores: Scores{Device: 90, Session: 80, Composite: 85.456}})
	require.Len(t, got, 3)

	assert.Equal(t, "Critical risk score: 85.46", got[0].Description)
	assert.Equal(t, "Critical risk detected. Account may be suspended.", got[0].Warning)
	assert.Len(t, got[0].Metadata, 5)

	assert.Equal(t, "Login from suspicious or unknown device", got[1].Description)
	assert.Equal(t, "d1", got[1].Metadata["deviceId"])

	assert.Equal(t, "Account accessed from multiple locations simultaneously", got[2].Description)
	assert.Equal(t, 4, got[2].Metadata["activeSessions"])

	high := e.findings(in, &Assessment{Scores: Scores{Composite: 61.5}})
	require.Len(t, high, 1)
	assert.Equal(t, "High risk score: 61.50", high[0].Description)
	assert.Equal(t, "High risk detected. Please verify your identity.", high[0].Warning)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.SuspiciousTravelSpeedKmh = 900
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.HighRiskThreshold = 90
	assert.Error(t, cfg.Validate())
}
