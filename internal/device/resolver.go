// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

// Package device resolves client fingerprints to per-user device records
// and maintains their trust scores.
package device

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/sessionguard/internal/keylock"
	"github.com/tomtom215/sessionguard/internal/logging"
	"github.com/tomtom215/sessionguard/internal/metrics"
	"github.com/tomtom215/sessionguard/internal/models"
)

// Store persists devices. (UserID, FingerprintHash) is unique.
type Store interface {
	// FindDeviceByFingerprint returns nil, nil when no device matches.
	FindDeviceByFingerprint(ctx context.Context, userID, hash string) (*models.Device, error)
	CreateDevice(ctx context.Context, d *models.Device) error
	UpdateDevice(ctx context.Context, d *models.Device) error
	// GetDevice returns nil, nil when the device does not exist.
	GetDevice(ctx context.Context, id string) (*models.Device, error)
	// ListDevices returns the user's devices, most recently seen first.
	ListDevices(ctx context.Context, userID string) ([]models.Device, error)
	// DeleteDevice removes the device only when owned by userID.
	DeleteDevice(ctx context.Context, id, userID string) (bool, error)
}

// Resolution is the outcome of resolving a fingerprint.
type Resolution struct {
	Device *models.Device
	IsNew  bool
}

// Summary returns the login-facing view of the resolved device.
func (r *Resolution) Summary() models.DeviceSummary {
	return models.DeviceSummary{
		ID:         r.Device.ID,
		Name:       r.Device.DeviceName,
		Type:       r.Device.DeviceType,
		IsTrusted:  r.Device.IsTrusted,
		IsNew:      r.IsNew,
		TrustScore: r.Device.TrustScore,
	}
}

// Resolver finds or creates devices and evolves their trust.
// Mutations of one (user, fingerprint) pair are serialized.
type Resolver struct {
	store    Store
	locks    *keylock.Locker
	security *logging.SecurityLogger
	now      func() time.Time
}

// NewResolver creates a Resolver over store.
func NewResolver(store Store) *Resolver {
	return &Resolver{
		store:    store,
		locks:    keylock.New(),
		security: logging.NewSecurityLogger(),
		now:      time.Now,
	}
}

// SetClock overrides the time source. Intended for tests.
func (r *Resolver) SetClock(now func() time.Time) {
	r.now = now
}

// Resolve returns the user's device for fp, creating it on first sight.
// A known device gets lastSeenAt refreshed, its metadata merged and its
// trust raised by one increment.
func (r *Resolver) Resolve(ctx context.Context, userID string, fp *models.Fingerprint) (*Resolution, error) {
	hash := Hash(fp)

	unlock := r.locks.Lock(userID + ":" + hash)
	defer unlock()

	now := r.now().UTC()

	existing, err := r.store.FindDeviceByFingerprint(ctx, userID, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to look up device: %w", err)
	}

	if existing != nil {
		existing.LastSeenAt = now
		if existing.Metadata == nil {
			existing.Metadata = make(map[string]any)
		}
		for k, v := range fp.Attributes() {
			existing.Metadata[k] = v
		}
		existing.TrustScore = RaiseTrust(existing.TrustScore)

		if err := r.store.UpdateDevice(ctx, existing); err != nil {
			return nil, fmt.Errorf("failed to update device: %w", err)
		}
		metrics.RecordDeviceResolution(false)
		return &Resolution{Device: existing}, nil
	}

	d := &models.Device{
		ID:              uuid.New().String(),
		UserID:          userID,
		FingerprintHash: hash,
		DeviceName:      Name(fp),
		DeviceType:      Classify(fp.UserAgent),
		TrustScore:      InitialTrustScore,
		IsTrusted:       false,
		FirstSeenAt:     now,
		LastSeenAt:      now,
		Metadata:        fp.Attributes(),
	}
	if err := r.store.CreateDevice(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to create device: %w", err)
	}

	logging.Ctx(ctx).Debug().
		Str("device_id", d.ID).
		Str("device_type", string(d.DeviceType)).
		Msg("New device registered")
	metrics.RecordDeviceResolution(true)

	return &Resolution{Device: d, IsNew: true}, nil
}

// Trust marks the user's device as trusted. NotFound when the device is
// unknown or owned by someone else.
func (r *Resolver) Trust(ctx context.Context, deviceID, userID string) (*models.Device, error) {
	d, err := r.owned(ctx, deviceID, userID)
	if err != nil {
		return nil, err
	}

	unlock := r.locks.Lock(userID + ":" + d.FingerprintHash)
	defer unlock()

	// Re-read under the lock so a concurrent Resolve increment is not lost.
	d, err = r.owned(ctx, deviceID, userID)
	if err != nil {
		return nil, err
	}

	d.IsTrusted = true
	d.TrustScore = ExplicitTrust(d.TrustScore)
	if err := r.store.UpdateDevice(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to update device: %w", err)
	}

	metrics.DevicesTrusted.Inc()
	r.security.LogEvent(&logging.SecurityEvent{
		Event:    logging.EventDeviceTrusted,
		UserID:   userID,
		DeviceID: deviceID,
		Success:  true,
	})
	return d, nil
}

// Remove deletes the user's device. NotFound when absent or not owned.
func (r *Resolver) Remove(ctx context.Context, deviceID, userID string) error {
	ok, err := r.store.DeleteDevice(ctx, deviceID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}
	if !ok {
		return models.NotFound("device", deviceID)
	}

	r.security.LogEvent(&logging.SecurityEvent{
		Event:    logging.EventDeviceRemoved,
		UserID:   userID,
		DeviceID: deviceID,
		Success:  true,
	})
	return nil
}

// List returns the user's devices, most recently seen first.
func (r *Resolver) List(ctx context.Context, userID string) ([]models.Device, error) {
	devices, err := r.store.ListDevices(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return devices, nil
}

func (r *Resolver) owned(ctx context.Context, deviceID, userID string) (*models.Device, error) {
	d, err := r.store.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	if d == nil || d.UserID != userID {
		return nil, models.NotFound("device", deviceID)
	}
	return d, nil
}
