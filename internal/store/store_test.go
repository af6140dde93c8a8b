// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/sessionguard/internal/models"
)

// backend is the union of the interfaces both stores implement.
type backend interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	UpdateRiskScore(ctx context.Context, id string, score float64) error

	FindDeviceByFingerprint(ctx context.Context, userID, hash string) (*models.Device, error)
	CreateDevice(ctx context.Context, d *models.Device) error
	UpdateDevice(ctx context.Context, d *models.Device) error
	GetDevice(ctx context.Context, id string) (*models.Device, error)
	ListDevices(ctx context.Context, userID string) ([]models.Device, error)
	DeleteDevice(ctx context.Context, id, userID string) (bool, error)

	CreateSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	ListActiveSessions(ctx context.Context, userID string) ([]models.Session, error)
	ListRecentSessions(ctx context.Context, userID string, limit int) ([]models.Session, error)
	EndSession(ctx context.Context, id string, at time.Time) (bool, error)
	TouchSession(ctx context.Context, id string, at time.Time) (bool, error)
	SetSessionRiskScore(ctx context.Context, id string, score float64) error
	CountActiveSessions(ctx context.Context, userID string) (int, error)
	EndInactiveSessions(ctx context.Context, cutoff, at time.Time) ([]models.Session, error)

	CreateAlert(ctx context.Context, a *models.RiskAlert) error
	GetAlert(ctx context.Context, id string) (*models.RiskAlert, error)
	ListAlerts(ctx context.Context, userID string, unresolvedOnly bool) ([]models.RiskAlert, error)
	ListUnresolvedAlertsSince(ctx context.Context, userID string, since time.Time) ([]models.RiskAlert, error)
	ResolveAlert(ctx context.Context, id string, at time.Time) (bool, error)
}

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func setupDuckDB(t *testing.T) *DuckDBStore {
	t.Helper()

	db, err := sql.Open("duckdb", "")
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() { db.Close() })

	s := NewDuckDBStore(db)
	require.NoError(t, s.InitSchema(context.Background()), "failed to init schema")
	return s
}

func forEachBackend(t *testing.T, fn func(t *testing.T, s backend)) {
	t.Helper()

	t.Run("memory", func(t *testing.T) {
		t.Parallel()
		fn(t, NewMemoryStore())
	})
	t.Run("duckdb", func(t *testing.T) {
		t.Parallel()
		fn(t, setupDuckDB(t))
	})
}

func ptr(v float64) *float64 { return &v }

func TestUsers(t *testing.T) {
	t.Parallel()

	forEachBackend(t, func(t *testing.T, s backend) {
		ctx := context.Background()
		u := &models.User{
			ID:                    "u1",
			Email:                 "alice@example.com",
			PasswordHash:          "hash",
			Role:                  models.RoleUser,
			SubscriptionTier:      models.TierBasic,
			AccountStatus:         models.AccountActive,
			MaxConcurrentSessions: 2,
			MaxDevicesAllowed:     3,
			CreatedAt:             base,
			UpdatedAt:             base,
		}
		require.NoError(t, s.CreateUser(ctx, u))

		dup := *u
		dup.ID = "u2"
		err := s.CreateUser(ctx, &dup)
		assert.True(t, errors.Is(err, models.ErrConflict), "duplicate email should conflict, got %v", err)

		got, err := s.GetUserByEmail(ctx, "ALICE@example.com")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "u1", got.ID)
		assert.Equal(t, models.TierBasic, got.SubscriptionTier)
		assert.Nil(t, got.LastLoginAt)

		require.NoError(t, s.UpdateLastLogin(ctx, "u1", base.Add(time.Hour)))
		require.NoError(t, s.UpdateRiskScore(ctx, "u1", 33))

		got, err = s.GetUser(ctx, "u1")
		require.NoError(t, err)
		require.NotNil(t, got.LastLoginAt)
		assert.True(t, got.LastLoginAt.Equal(base.Add(time.Hour)))
		assert.Equal(t, 33.0, got.RiskScore)

		missing, err := s.GetUser(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, missing)

		assert.True(t, errors.Is(s.UpdateRiskScore(ctx, "nope", 1), models.ErrNotFound))
	})
}

func TestDevices(t *testing.T) {
	t.Parallel()

	forEachBackend(t, func(t *testing.T, s backend) {
		ctx := context.Background()
		d := &models.Device{
			ID:              "d1",
			UserID:          "u1",
			FingerprintHash: "h1",
			DeviceName:      "Linux WEB",
			DeviceType:      models.DeviceWeb,
			TrustScore:      50,
			FirstSeenAt:     base,
			LastSeenAt:      base,
			Metadata:        map[string]any{"platform": "Linux"},
		}
		require.NoError(t, s.CreateDevice(ctx, d))

		dup := *d
		dup.ID = "d2"
		assert.True(t, errors.Is(s.CreateDevice(ctx, &dup), models.ErrConflict))

		found, err := s.FindDeviceByFingerprint(ctx, "u1", "h1")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "Linux", found.Metadata["platform"])

		other, err := s.FindDeviceByFingerprint(ctx, "u2", "h1")
		require.NoError(t, err)
		assert.Nil(t, other, "fingerprints are scoped per user")

		found.TrustScore = 55
		found.LastSeenAt = base.Add(time.Hour)
		found.Metadata["language"] = "en"
		require.NoError(t, s.UpdateDevice(ctx, found))

		second := &models.Device{
			ID: "d3", UserID: "u1", FingerprintHash: "h3", DeviceName: "iOS MOBILE",
			DeviceType: models.DeviceMobile, TrustScore: 50, FirstSeenAt: base, LastSeenAt: base.Add(2 * time.Hour),
		}
		require.NoError(t, s.CreateDevice(ctx, second))

		list, err := s.ListDevices(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "d3", list[0].ID, "most recently seen first")
		assert.Equal(t, 55.0, list[1].TrustScore)
		assert.Equal(t, "en", list[1].Metadata["language"])

		ok, err := s.DeleteDevice(ctx, "d1", "u2")
		require.NoError(t, err)
		assert.False(t, ok, "non-owner cannot delete")

		ok, err = s.DeleteDevice(ctx, "d1", "u1")
		require.NoError(t, err)
		assert.True(t, ok)

		gone, err := s.GetDevice(ctx, "d1")
		require.NoError(t, err)
		assert.Nil(t, gone)
	})
}

func TestSessions(t *testing.T) {
	t.Parallel()

	forEachBackend(t, func(t *testing.T, s backend) {
		ctx := context.Background()
		mk := func(id string, started time.Time, loc *models.Location) *models.Session {
			return &models.Session{
				ID: id, UserID: "u1", DeviceID: "d1", IPAddress: "203.0.113.7", UserAgent: "ua",
				Location: loc, StartedAt: started, IsActive: true, LastActivityAt: started,
			}
		}

		nyc := &models.Location{Latitude: ptr(40.7128), Longitude: ptr(-74.006), City: "New York", Country: "US"}
		require.NoError(t, s.CreateSession(ctx, mk("s2", base.Add(time.Hour), nil)))
		require.NoError(t, s.CreateSession(ctx, mk("s1", base, nyc)))
		require.NoError(t, s.CreateSession(ctx, mk("s3", base.Add(2*time.Hour), &models.Location{Country: "DE"})))

		active, err := s.ListActiveSessions(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, active, 3)
		assert.Equal(t, []string{"s1", "s2", "s3"}, []string{active[0].ID, active[1].ID, active[2].ID})
		require.NotNil(t, active[0].Location)
		assert.True(t, active[0].Location.HasCoordinates())
		assert.Nil(t, active[1].Location)
		require.NotNil(t, active[2].Location)
		assert.False(t, active[2].Location.HasCoordinates())
		assert.Equal(t, "DE", active[2].Country())

		ended, err := s.EndSession(ctx, "s1", base.Add(3*time.Hour))
		require.NoError(t, err)
		assert.True(t, ended)

		ended, err = s.EndSession(ctx, "s1", base.Add(4*time.Hour))
		require.NoError(t, err)
		assert.False(t, ended, "second end is a no-op")

		got, err := s.GetSession(ctx, "s1")
		require.NoError(t, err)
		require.NotNil(t, got.EndedAt)
		assert.True(t, got.EndedAt.Equal(base.Add(3*time.Hour)), "first endedAt is kept")
		assert.False(t, got.IsActive)

		touched, err := s.TouchSession(ctx, "s1", base.Add(5*time.Hour))
		require.NoError(t, err)
		assert.False(t, touched, "inactive sessions are not touched")

		n, err := s.CountActiveSessions(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		require.NoError(t, s.SetSessionRiskScore(ctx, "s2", 42.5))
		assert.True(t, errors.Is(s.SetSessionRiskScore(ctx, "nope", 1), models.ErrNotFound))

		recent, err := s.ListRecentSessions(ctx, "u1", 2)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.Equal(t, "s3", recent[0].ID)
		assert.Equal(t, 42.5, recent[1].RiskScore)

		touched, err = s.TouchSession(ctx, "s3", base.Add(30*time.Hour))
		require.NoError(t, err)
		assert.True(t, touched)

		swept, err := s.EndInactiveSessions(ctx, base.Add(25*time.Hour), base.Add(31*time.Hour))
		require.NoError(t, err)
		require.Len(t, swept, 1)
		assert.Equal(t, "s2", swept[0].ID)
		assert.False(t, swept[0].IsActive)

		n, err = s.CountActiveSessions(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

func TestAlerts(t *testing.T) {
	t.Parallel()

	forEachBackend(t, func(t *testing.T, s backend) {
		ctx := context.Background()
		mk := func(id string, created time.Time, sev models.Severity) *models.RiskAlert {
			return &models.RiskAlert{
				ID: id, UserID: "u1", AlertType: models.AlertHighRiskScore, Severity: sev,
				Description: "High risk score: 61.00", Metadata: []byte(`{"totalRiskScore":61}`), CreatedAt: created,
			}
		}

		require.NoError(t, s.CreateAlert(ctx, mk("a1", base.Add(-10*24*time.Hour), models.SeverityCritical)))
		require.NoError(t, s.CreateAlert(ctx, mk("a2", base.Add(-time.Hour), models.SeverityHigh)))
		require.NoError(t, s.CreateAlert(ctx, mk("a3", base, models.SeverityMedium)))

		all, err := s.ListAlerts(ctx, "u1", false)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "a3", all[0].ID, "newest first")
		assert.JSONEq(t, `{"totalRiskScore":61}`, string(all[0].Metadata))

		ok, err := s.ResolveAlert(ctx, "a3", base.Add(time.Minute))
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.ResolveAlert(ctx, "a3", base.Add(time.Hour))
		require.NoError(t, err)
		assert.False(t, ok)

		a3, err := s.GetAlert(ctx, "a3")
		require.NoError(t, err)
		require.NotNil(t, a3.ResolvedAt)
		assert.True(t, a3.ResolvedAt.Equal(base.Add(time.Minute)))

		open, err := s.ListAlerts(ctx, "u1", true)
		require.NoError(t, err)
		assert.Len(t, open, 2)

		recent, err := s.ListUnresolvedAlertsSince(ctx, "u1", base.Add(-7*24*time.Hour))
		require.NoError(t, err)
		require.Len(t, recent, 1)
		assert.Equal(t, "a2", recent[0].ID)

		missing, err := s.GetAlert(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})
}
