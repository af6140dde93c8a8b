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

const alertSelectColumns = `id, user_id, alert_type, severity, description, metadata,
	is_resolved, resolved_at, created_at`

func scanAlert(scanner rowScanner, a *models.RiskAlert) error {
	var alertType, severity string
	var metadata sql.NullString
	var resolvedAt sql.NullTime

	if err := scanner.Scan(
		&a.ID,
		&a.UserID,
		&alertType,
		&severity,
		&a.Description,
		&metadata,
		&a.IsResolved,
		&resolvedAt,
		&a.CreatedAt,
	); err != nil {
		return err
	}

	a.AlertType = models.AlertType(alertType)
	a.Severity = models.Severity(severity)
	if metadata.Valid && metadata.String != "" {
		a.Metadata = []byte(metadata.String)
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		a.ResolvedAt = &t
	}
	return nil
}

func scanAlerts(rows *sql.Rows) ([]models.RiskAlert, error) {
	alerts := make([]models.RiskAlert, 0)
	for rows.Next() {
		var a models.RiskAlert
		if err := scanAlert(rows, &a); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// CreateAlert inserts a.
func (s *DuckDBStore) CreateAlert(ctx context.Context, a *models.RiskAlert) (err error) {
	defer recordQuery("INSERT", "risk_alerts", time.Now(), &err)

	// Metadata goes in as a string; the driver rejects json.RawMessage.
	var metadata interface{}
	if len(a.Metadata) > 0 {
		metadata = string(a.Metadata)
	}

	query := `INSERT INTO risk_alerts (id, user_id, alert_type, severity, description, metadata,
		is_resolved, resolved_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		a.ID,
		a.UserID,
		string(a.AlertType),
		string(a.Severity),
		a.Description,
		metadata,
		a.IsResolved,
		nullTime(a.ResolvedAt),
		a.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// GetAlert returns the alert or nil.
func (s *DuckDBStore) GetAlert(ctx context.Context, id string) (_ *models.RiskAlert, err error) {
	defer recordQuery("SELECT", "risk_alerts", time.Now(), &err)

	a := &models.RiskAlert{}
	err = scanAlert(s.db.QueryRowContext(ctx, `SELECT `+alertSelectColumns+` FROM risk_alerts WHERE id = ?`, id), a)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return a, nil
}

// ListAlerts returns the user's alerts, newest first.
func (s *DuckDBStore) ListAlerts(ctx context.Context, userID string, unresolvedOnly bool) (_ []models.RiskAlert, err error) {
	defer recordQuery("SELECT", "risk_alerts", time.Now(), &err)

	query := `SELECT ` + alertSelectColumns + ` FROM risk_alerts WHERE user_id = ?`
	if unresolvedOnly {
		query += ` AND is_resolved = false`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

// ListUnresolvedAlertsSince returns the user's unresolved alerts created at or after since.
func (s *DuckDBStore) ListUnresolvedAlertsSince(ctx context.Context, userID string, since time.Time) (_ []models.RiskAlert, err error) {
	defer recordQuery("SELECT", "risk_alerts", time.Now(), &err)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+alertSelectColumns+` FROM risk_alerts
		WHERE user_id = ? AND is_resolved = false AND created_at >= ?
		ORDER BY created_at DESC, id DESC`, userID, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list unresolved alerts: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

// ResolveAlert resolves an unresolved alert. It reports false when the
// alert is missing or already resolved.
func (s *DuckDBStore) ResolveAlert(ctx context.Context, id string, at time.Time) (_ bool, err error) {
	defer recordQuery("UPDATE", "risk_alerts", time.Now(), &err)

	res, err := s.db.ExecContext(ctx,
		`UPDATE risk_alerts SET is_resolved = true, resolved_at = ? WHERE id = ? AND is_resolved = false`,
		at.UTC(), id)
	if err != nil {
		return false, fmt.Errorf("failed to resolve alert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to resolve alert: %w", err)
	}
	return n > 0, nil
}
