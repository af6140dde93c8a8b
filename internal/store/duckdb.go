// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // DuckDB driver

	"github.com/tomtom215/sessionguard/internal/config"
	"github.com/tomtom215/sessionguard/internal/logging"
)

// DuckDBStore implements the user, device, session and alert stores on DuckDB.
type DuckDBStore struct {
	db *sql.DB
}

// NewDuckDBStore wraps an open connection. Call InitSchema before use.
func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{db: db}
}

// OpenDuckDB opens the database described by cfg and initializes the schema.
func OpenDuckDB(ctx context.Context, cfg *config.DatabaseConfig) (*DuckDBStore, error) {
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	path := cfg.Path
	if path != "" && path != ":memory:" {
		dir := filepath.Dir(path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	}

	params := []string{
		"access_mode=read_write",
		fmt.Sprintf("threads=%d", threads),
		"autoinstall_known_extensions=false",
		"autoload_known_extensions=false",
	}
	if cfg.MaxMemory != "" {
		params = append(params, "max_memory="+cfg.MaxMemory)
	}

	db, err := sql.Open("duckdb", path+"?"+strings.Join(params, "&"))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := NewDuckDBStore(db)
	if err := s.InitSchema(ctx); err != nil {
		closeQuietly(db)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	logging.Info().Str("path", path).Int("threads", threads).Msg("DuckDB store ready")
	return s, nil
}

// InitSchema creates the tables if they don't exist.
func (s *DuckDBStore) InitSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'user',
			subscription_tier TEXT NOT NULL DEFAULT 'free',
			account_status TEXT NOT NULL DEFAULT 'ACTIVE',
			max_concurrent_sessions INTEGER NOT NULL DEFAULT 1,
			max_devices_allowed INTEGER NOT NULL DEFAULT 2,
			risk_score DOUBLE NOT NULL DEFAULT 0,
			last_login_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS devices (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			fingerprint_hash TEXT NOT NULL,
			device_name TEXT NOT NULL,
			device_type TEXT NOT NULL,
			trust_score DOUBLE NOT NULL DEFAULT 50,
			is_trusted BOOLEAN NOT NULL DEFAULT false,
			first_seen_at TIMESTAMP NOT NULL,
			last_seen_at TIMESTAMP NOT NULL,
			metadata TEXT,
			UNIQUE (user_id, fingerprint_hash)
		)`,

		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			device_id TEXT NOT NULL,
			ip_address TEXT NOT NULL DEFAULT '',
			user_agent TEXT NOT NULL DEFAULT '',
			latitude DOUBLE,
			longitude DOUBLE,
			city TEXT,
			country TEXT,
			country_code TEXT,
			started_at TIMESTAMP NOT NULL,
			ended_at TIMESTAMP,
			is_active BOOLEAN NOT NULL DEFAULT true,
			last_activity_at TIMESTAMP NOT NULL,
			risk_score DOUBLE NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS risk_alerts (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			alert_type TEXT NOT NULL,
			severity TEXT NOT NULL,
			description TEXT NOT NULL,
			metadata TEXT,
			is_resolved BOOLEAN NOT NULL DEFAULT false,
			resolved_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL
		)`,

		// Only immutable columns are indexed; DuckDB rewrites index entries on update.
		`CREATE INDEX IF NOT EXISTS idx_devices_user_id ON devices(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_user_id ON risk_alerts(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_created_at ON risk_alerts(created_at)`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	// Flush the WAL so a crash right after startup does not replay DDL.
	if _, err := s.db.ExecContext(ctx, "CHECKPOINT"); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint after schema initialization")
	}

	return nil
}

// Ping checks the connection.
func (s *DuckDBStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying connection.
func (s *DuckDBStore) Close() error {
	return s.db.Close()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func closeQuietly(db *sql.DB) {
	if err := db.Close(); err != nil {
		logging.Warn().Err(err).Msg("Failed to close database")
	}
}

// nullTime converts an optional timestamp to a driver value.
func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// nullFloat converts an optional float to a driver value.
func nullFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

func isConstraintError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "Constraint Error") || strings.Contains(msg, "Duplicate key")
}
