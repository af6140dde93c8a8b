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
	"strings"
	"time"

	"github.com/tomtom215/sessionguard/internal/metrics"
	"github.com/tomtom215/sessionguard/internal/models"
)

const userSelectColumns = `id, email, password_hash, role, subscription_tier, account_status,
	max_concurrent_sessions, max_devices_allowed, risk_score, last_login_at, created_at, updated_at`

func scanUser(scanner rowScanner, u *models.User) error {
	var lastLogin sql.NullTime
	var tier, status string

	if err := scanner.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&tier,
		&status,
		&u.MaxConcurrentSessions,
		&u.MaxDevicesAllowed,
		&u.RiskScore,
		&lastLogin,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return err
	}

	u.SubscriptionTier = models.SubscriptionTier(tier)
	u.AccountStatus = models.AccountStatus(status)
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	return nil
}

// CreateUser inserts u. Conflict when the email is taken.
func (s *DuckDBStore) CreateUser(ctx context.Context, u *models.User) (err error) {
	defer recordQuery("INSERT", "users", time.Now(), &err)

	query := `INSERT INTO users (id, email, password_hash, role, subscription_tier, account_status,
		max_concurrent_sessions, max_devices_allowed, risk_score, last_login_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		u.ID,
		strings.ToLower(u.Email),
		u.PasswordHash,
		u.Role,
		string(u.SubscriptionTier),
		string(u.AccountStatus),
		u.MaxConcurrentSessions,
		u.MaxDevicesAllowed,
		u.RiskScore,
		nullTime(u.LastLoginAt),
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if isConstraintError(err) {
			return models.Conflict("user", "email already registered")
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUser returns the user or nil.
func (s *DuckDBStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.getUserWhere(ctx, "id = ?", id)
}

// GetUserByEmail returns the user or nil. Emails are stored lowercased.
func (s *DuckDBStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUserWhere(ctx, "email = ?", strings.ToLower(email))
}

func (s *DuckDBStore) getUserWhere(ctx context.Context, where string, arg string) (_ *models.User, err error) {
	defer recordQuery("SELECT", "users", time.Now(), &err)

	u := &models.User{}
	//nolint:gosec // where is one of two constant predicates
	err = scanUser(s.db.QueryRowContext(ctx, "SELECT "+userSelectColumns+" FROM users WHERE "+where, arg), u)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// UpdateLastLogin sets lastLoginAt.
func (s *DuckDBStore) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return s.updateUser(ctx, id, "last_login_at = ?, updated_at = ?", at, at)
}

// UpdateRiskScore sets the aggregate account risk score.
func (s *DuckDBStore) UpdateRiskScore(ctx context.Context, id string, score float64) error {
	return s.updateUser(ctx, id, "risk_score = ?", score)
}

// UpdateAccountStatus sets the account status.
func (s *DuckDBStore) UpdateAccountStatus(ctx context.Context, id string, status models.AccountStatus, at time.Time) error {
	return s.updateUser(ctx, id, "account_status = ?, updated_at = ?", string(status), at)
}

func (s *DuckDBStore) updateUser(ctx context.Context, id, set string, args ...interface{}) (err error) {
	defer recordQuery("UPDATE", "users", time.Now(), &err)

	//nolint:gosec // set is a constant assignment list
	res, err := s.db.ExecContext(ctx, "UPDATE users SET "+set+" WHERE id = ?", append(args, id)...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.NotFound("user", id)
	}
	return nil
}

// recordQuery feeds the store metrics. Not-found results are not failures.
func recordQuery(operation, table string, start time.Time, errp *error) {
	err := *errp
	if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrConflict) {
		err = nil
	}
	metrics.RecordDBQuery(operation, table, time.Since(start), err)
}
