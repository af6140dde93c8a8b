// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/sessionguard/internal/models"
)

const sessionSelectColumns = `id, user_id, device_id, ip_address, user_agent,
	latitude, longitude, city, country, country_code,
	started_at, ended_at, is_active, last_activity_at, risk_score`

func scanSession(scanner rowScanner, s *models.Session) error {
	var lat, lon sql.NullFloat64
	var city, country, countryCode sql.NullString
	var endedAt sql.NullTime

	if err := scanner.Scan(
		&s.ID,
		&s.UserID,
		&s.DeviceID,
		&s.IPAddress,
		&s.UserAgent,
		&lat,
		&lon,
		&city,
		&country,
		&countryCode,
		&s.StartedAt,
		&endedAt,
		&s.IsActive,
		&s.LastActivityAt,
		&s.RiskScore,
	); err != nil {
		return err
	}

	if endedAt.Valid {
		t := endedAt.Time
		s.EndedAt = &t
	}

	if lat.Valid || lon.Valid || city.Valid || country.Valid || countryCode.Valid {
		loc := &models.Location{
			City:        city.String,
			Country:     country.String,
			CountryCode: countryCode.String,
		}
		if lat.Valid {
			v := lat.Float64
			loc.Latitude = &v
		}
		if lon.Valid {
			v := lon.Float64
			loc.Longitude = &v
		}
		s.Location = loc
	}
	return nil
}

func scanSessions(rows *sql.Rows) ([]models.Session, error) {
	sessions := make([]models.Session, 0)
	for rows.Next() {
		var s models.Session
		if err := scanSession(rows, &s); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// CreateSession inserts sess.
func (s *DuckDBStore) CreateSession(ctx context.Context, sess *models.Session) (err error) {
	defer recordQuery("INSERT", "sessions", time.Now(), &err)

	var lat, lon, city, country, countryCode interface{}
	if loc := sess.Location; loc != nil {
		lat = nullFloat(loc.Latitude)
		lon = nullFloat(loc.Longitude)
		city = nullString(loc.City)
		country = nullString(loc.Country)
		countryCode = nullString(loc.CountryCode)
	}

	query := `INSERT INTO sessions (id, user_id, device_id, ip_address, user_agent,
		latitude, longitude, city, country, country_code,
		started_at, ended_at, is_active, last_activity_at, risk_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		sess.ID,
		sess.UserID,
		sess.DeviceID,
		sess.IPAddress,
		sess.UserAgent,
		lat,
		lon,
		city,
		country,
		countryCode,
		sess.StartedAt.UTC(),
		nullTime(sess.EndedAt),
		sess.IsActive,
		sess.LastActivityAt.UTC(),
		sess.RiskScore,
	)
	if err != nil {
		if isConstraintError(err) {
			return models.Conflict("session", "session id already exists")
		}
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// GetSession returns the session or nil.
func (s *DuckDBStore) GetSession(ctx context.Context, id string) (_ *models.Session, err error) {
	defer recordQuery("SELECT", "sessions", time.Now(), &err)

	sess := &models.Session{}
	err = scanSession(s.db.QueryRowContext(ctx, `SELECT `+sessionSelectColumns+` FROM sessions WHERE id = ?`, id), sess)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return sess, nil
}

// ListActiveSessions returns the user's active sessions, oldest first.
func (s *DuckDBStore) ListActiveSessions(ctx context.Context, userID string) (_ []models.Session, err error) {
	defer recordQuery("SELECT", "sessions", time.Now(), &err)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionSelectColumns+` FROM sessions
		WHERE user_id = ? AND is_active = true
		ORDER BY started_at ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}
	defer rows.Close()

	return scanSessions(rows)
}

// ListRecentSessions returns up to limit sessions of the user, newest first.
func (s *DuckDBStore) ListRecentSessions(ctx context.Context, userID string, limit int) (_ []models.Session, err error) {
	defer recordQuery("SELECT", "sessions", time.Now(), &err)

	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionSelectColumns+` FROM sessions
		WHERE user_id = ?
		ORDER BY started_at DESC, id DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	return scanSessions(rows)
}

// EndSession deactivates an active session. It reports false when the
// session is missing or already inactive.
func (s *DuckDBStore) EndSession(ctx context.Context, id string, at time.Time) (_ bool, err error) {
	defer recordQuery("UPDATE", "sessions", time.Now(), &err)

	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET is_active = false, ended_at = ? WHERE id = ? AND is_active = true`,
		at.UTC(), id)
	if err != nil {
		return false, fmt.Errorf("failed to end session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to end session: %w", err)
	}
	return n > 0, nil
}

// TouchSession refreshes lastActivityAt of an active session.
func (s *DuckDBStore) TouchSession(ctx context.Context, id string, at time.Time) (_ bool, err error) {
	defer recordQuery("UPDATE", "sessions", time.Now(), &err)

	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET last_activity_at = ? WHERE id = ? AND is_active = true`, at.UTC(), id)
	if err != nil {
		return false, fmt.Errorf("failed to touch session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to touch session: %w", err)
	}
	return n > 0, nil
}

// SetSessionRiskScore stores the per-login composite score.
func (s *DuckDBStore) SetSessionRiskScore(ctx context.Context, id string, score float64) (err error) {
	defer recordQuery("UPDATE", "sessions", time.Now(), &err)

	res, err := s.db.ExecContext(ctx, `UPDATE sessions SET risk_score = ? WHERE id = ?`, score, id)
	if err != nil {
		return fmt.Errorf("failed to set session risk score: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.NotFound("session", id)
	}
	return nil
}

// CountActiveSessions counts the user's active sessions.
func (s *DuckDBStore) CountActiveSessions(ctx context.Context, userID string) (_ int, err error) {
	defer recordQuery("SELECT", "sessions", time.Now(), &err)

	var n int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE user_id = ? AND is_active = true`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count active sessions: %w", err)
	}
	return n, nil
}

// EndInactiveSessions deactivates every active session idle since before
// cutoff and returns them.
func (s *DuckDBStore) EndInactiveSessions(ctx context.Context, cutoff, at time.Time) (_ []models.Session, err error) {
	defer recordQuery("UPDATE", "sessions", time.Now(), &err)

	rows, err := s.db.QueryContext(ctx,
		`UPDATE sessions SET is_active = false, ended_at = ?
		WHERE is_active = true AND last_activity_at < ?
		RETURNING `+sessionSelectColumns,
		at.UTC(), cutoff.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to end inactive sessions: %w", err)
	}
	defer rows.Close()

	return scanSessions(rows)
}
