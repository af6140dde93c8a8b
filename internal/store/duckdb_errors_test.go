// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/sessionguard/internal/models"
)

var errDriver = errors.New("driver: bad connection")

func newMockStore(t *testing.T) (*DuckDBStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewDuckDBStore(db), mock
}

func TestDuckDBStore_PropagatesQueryErrors(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT (.+) FROM sessions").WillReturnError(errDriver)
	_, err := s.ListActiveSessions(ctx, "u1")
	assert.ErrorIs(t, err, errDriver)

	mock.ExpectExec("UPDATE sessions SET is_active = false").WillReturnError(errDriver)
	_, err = s.EndSession(ctx, "s1", time.Now())
	assert.ErrorIs(t, err, errDriver)

	mock.ExpectExec("INSERT INTO risk_alerts").WillReturnError(errDriver)
	err = s.CreateAlert(ctx, &models.RiskAlert{ID: "a1", CreatedAt: time.Now()})
	assert.ErrorIs(t, err, errDriver)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDuckDBStore_ConstraintErrorBecomesConflict(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(errors.New(`Constraint Error: Duplicate key "email: a@b.c" violates unique constraint`))

	err := s.CreateUser(context.Background(), &models.User{ID: "u1", Email: "a@b.c"})
	assert.ErrorIs(t, err, models.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDuckDBStore_UpdateMissingRowIsNotFound(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE devices").WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.UpdateDevice(context.Background(), &models.Device{ID: "d1"})
	assert.ErrorIs(t, err, models.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
