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

	"github.com/goccy/go-json"

	"github.com/tomtom215/sessionguard/internal/models"
)

const deviceSelectColumns = `id, user_id, fingerprint_hash, device_name, device_type,
	trust_score, is_trusted, first_seen_at, last_seen_at, metadata`

func scanDevice(scanner rowScanner, d *models.Device) error {
	var deviceType string
	var metadata sql.NullString

	if err := scanner.Scan(
		&d.ID,
		&d.UserID,
		&d.FingerprintHash,
		&d.DeviceName,
		&deviceType,
		&d.TrustScore,
		&d.IsTrusted,
		&d.FirstSeenAt,
		&d.LastSeenAt,
		&metadata,
	); err != nil {
		return err
	}

	d.DeviceType = models.DeviceType(deviceType)
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &d.Metadata); err != nil {
			return fmt.Errorf("failed to decode device metadata: %w", err)
		}
	}
	return nil
}

func scanDevices(rows *sql.Rows) ([]models.Device, error) {
	devices := make([]models.Device, 0)
	for rows.Next() {
		var d models.Device
		if err := scanDevice(rows, &d); err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

func encodeMetadata(md map[string]any) (interface{}, error) {
	if len(md) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(md)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	return string(b), nil
}

// FindDeviceByFingerprint returns the user's device with hash or nil.
func (s *DuckDBStore) FindDeviceByFingerprint(ctx context.Context, userID, hash string) (_ *models.Device, err error) {
	defer recordQuery("SELECT", "devices", time.Now(), &err)

	query := `SELECT ` + deviceSelectColumns + ` FROM devices WHERE user_id = ? AND fingerprint_hash = ?`

	d := &models.Device{}
	err = scanDevice(s.db.QueryRowContext(ctx, query, userID, hash), d)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find device: %w", err)
	}
	return d, nil
}

// CreateDevice inserts d. Conflict when the (user, fingerprint) pair exists.
func (s *DuckDBStore) CreateDevice(ctx context.Context, d *models.Device) (err error) {
	defer recordQuery("INSERT", "devices", time.Now(), &err)

	metadata, err := encodeMetadata(d.Metadata)
	if err != nil {
		return err
	}

	query := `INSERT INTO devices (id, user_id, fingerprint_hash, device_name, device_type,
		trust_score, is_trusted, first_seen_at, last_seen_at, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		d.ID,
		d.UserID,
		d.FingerprintHash,
		d.DeviceName,
		string(d.DeviceType),
		d.TrustScore,
		d.IsTrusted,
		d.FirstSeenAt.UTC(),
		d.LastSeenAt.UTC(),
		metadata,
	)
	if err != nil {
		if isConstraintError(err) {
			return models.Conflict("device", "fingerprint already registered")
		}
		return fmt.Errorf("failed to insert device: %w", err)
	}
	return nil
}

// UpdateDevice writes the mutable device fields.
func (s *DuckDBStore) UpdateDevice(ctx context.Context, d *models.Device) (err error) {
	defer recordQuery("UPDATE", "devices", time.Now(), &err)

	metadata, err := encodeMetadata(d.Metadata)
	if err != nil {
		return err
	}

	query := `UPDATE devices
		SET device_name = ?, device_type = ?, trust_score = ?, is_trusted = ?, last_seen_at = ?, metadata = ?
		WHERE id = ?`

	res, err := s.db.ExecContext(ctx, query,
		d.DeviceName,
		string(d.DeviceType),
		d.TrustScore,
		d.IsTrusted,
		d.LastSeenAt.UTC(),
		metadata,
		d.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update device: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.NotFound("device", d.ID)
	}
	return nil
}

// GetDevice returns the device or nil.
func (s *DuckDBStore) GetDevice(ctx context.Context, id string) (_ *models.Device, err error) {
	defer recordQuery("SELECT", "devices", time.Now(), &err)

	d := &models.Device{}
	err = scanDevice(s.db.QueryRowContext(ctx, `SELECT `+deviceSelectColumns+` FROM devices WHERE id = ?`, id), d)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	return d, nil
}

// ListDevices returns the user's devices, most recently seen first.
func (s *DuckDBStore) ListDevices(ctx context.Context, userID string) (_ []models.Device, err error) {
	defer recordQuery("SELECT", "devices", time.Now(), &err)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+deviceSelectColumns+` FROM devices WHERE user_id = ? ORDER BY last_seen_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()

	return scanDevices(rows)
}

// DeleteDevice removes the device when owned by userID.
func (s *DuckDBStore) DeleteDevice(ctx context.Context, id, userID string) (_ bool, err error) {
	defer recordQuery("DELETE", "devices", time.Now(), &err)

	res, err := s.db.ExecContext(ctx, `DELETE FROM devices WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete device: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete device: %w", err)
	}
	return n > 0, nil
}
