// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/sessionguard/internal/models"
)

// MemoryStore keeps every record in maps guarded by one RWMutex.
// Returned records are copies; mutating them does not affect the store.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]models.User
	devices  map[string]models.Device
	sessions map[string]models.Session
	alerts   map[string]models.RiskAlert
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]models.User),
		devices:  make(map[string]models.Device),
		sessions: make(map[string]models.Session),
		alerts:   make(map[string]models.RiskAlert),
	}
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// ---- users ----

// CreateUser inserts u. Conflict when the email is taken.
func (m *MemoryStore) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return models.Conflict("user", "email already registered")
		}
	}
	m.users[u.ID] = *u
	return nil
}

// GetUser returns the user or nil.
func (m *MemoryStore) GetUser(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// GetUserByEmail returns the user or nil. Emails compare case-insensitively.
func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

// UpdateLastLogin sets lastLoginAt.
func (m *MemoryStore) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return models.NotFound("user", id)
	}
	u.LastLoginAt = &at
	u.UpdatedAt = at
	m.users[id] = u
	return nil
}

// UpdateRiskScore sets the aggregate account risk score.
func (m *MemoryStore) UpdateRiskScore(_ context.Context, id string, score float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return models.NotFound("user", id)
	}
	u.RiskScore = score
	m.users[id] = u
	return nil
}

// UpdateAccountStatus sets the account status.
func (m *MemoryStore) UpdateAccountStatus(_ context.Context, id string, status models.AccountStatus, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return models.NotFound("user", id)
	}
	u.AccountStatus = status
	u.UpdatedAt = at
	m.users[id] = u
	return nil
}

// ---- devices ----

// FindDeviceByFingerprint returns the user's device with hash or nil.
func (m *MemoryStore) FindDeviceByFingerprint(_ context.Context, userID, hash string) (*models.Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, d := range m.devices {
		if d.UserID == userID && d.FingerprintHash == hash {
			return copyDevice(d), nil
		}
	}
	return nil, nil
}

// CreateDevice inserts d. Conflict when the (user, fingerprint) pair exists.
func (m *MemoryStore) CreateDevice(_ context.Context, d *models.Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.devices {
		if existing.UserID == d.UserID && existing.FingerprintHash == d.FingerprintHash {
			return models.Conflict("device", "fingerprint already registered")
		}
	}
	m.devices[d.ID] = *copyDevice(*d)
	return nil
}

// UpdateDevice replaces the stored device.
func (m *MemoryStore) UpdateDevice(_ context.Context, d *models.Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.devices[d.ID]; !ok {
		return models.NotFound("device", d.ID)
	}
	m.devices[d.ID] = *copyDevice(*d)
	return nil
}

// GetDevice returns the device or nil.
func (m *MemoryStore) GetDevice(_ context.Context, id string) (*models.Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.devices[id]
	if !ok {
		return nil, nil
	}
	return copyDevice(d), nil
}

// ListDevices returns the user's devices, most recently seen first.
func (m *MemoryStore) ListDevices(_ context.Context, userID string) ([]models.Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Device, 0)
	for _, d := range m.devices {
		if d.UserID == userID {
			out = append(out, *copyDevice(d))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastSeenAt.After(out[j].LastSeenAt)
	})
	return out, nil
}

// DeleteDevice removes the device when owned by userID.
func (m *MemoryStore) DeleteDevice(_ context.Context, id, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.devices[id]
	if !ok || d.UserID != userID {
		return false, nil
	}
	delete(m.devices, id)
	return true, nil
}

func copyDevice(d models.Device) *models.Device {
	if d.Metadata != nil {
		md := make(map[string]any, len(d.Metadata))
		for k, v := range d.Metadata {
			md[k] = v
		}
		d.Metadata = md
	}
	return &d
}

// ---- sessions ----

// CreateSession inserts s.
func (m *MemoryStore) CreateSession(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[s.ID]; ok {
		return models.Conflict("session", "session id already exists")
	}
	m.sessions[s.ID] = *copySession(*s)
	return nil
}

// GetSession returns the session or nil.
func (m *MemoryStore) GetSession(_ context.Context, id string) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return copySession(s), nil
}

// ListActiveSessions returns the user's active sessions, oldest first.
func (m *MemoryStore) ListActiveSessions(_ context.Context, userID string) ([]models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Session, 0)
	for _, s := range m.sessions {
		if s.UserID == userID && s.IsActive {
			out = append(out, *copySession(s))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out, nil
}

// ListRecentSessions returns up to limit sessions of the user, newest first.
func (m *MemoryStore) ListRecentSessions(_ context.Context, userID string, limit int) ([]models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Session, 0)
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, *copySession(s))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// EndSession deactivates an active session. It reports false when the
// session is missing or already inactive.
func (m *MemoryStore) EndSession(_ context.Context, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || !s.IsActive {
		return false, nil
	}
	s.IsActive = false
	s.EndedAt = &at
	m.sessions[id] = s
	return true, nil
}

// TouchSession refreshes lastActivityAt of an active session.
func (m *MemoryStore) TouchSession(_ context.Context, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || !s.IsActive {
		return false, nil
	}
	s.LastActivityAt = at
	m.sessions[id] = s
	return true, nil
}

// SetSessionRiskScore stores the per-login composite score.
func (m *MemoryStore) SetSessionRiskScore(_ context.Context, id string, score float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return models.NotFound("session", id)
	}
	s.RiskScore = score
	m.sessions[id] = s
	return nil
}

// CountActiveSessions counts the user's active sessions.
func (m *MemoryStore) CountActiveSessions(_ context.Context, userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, s := range m.sessions {
		if s.UserID == userID && s.IsActive {
			n++
		}
	}
	return n, nil
}

// EndInactiveSessions deactivates every active session idle since before
// cutoff and returns them.
func (m *MemoryStore) EndInactiveSessions(_ context.Context, cutoff, at time.Time) ([]models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ended []models.Session
	for id, s := range m.sessions {
		if s.IsActive && s.LastActivityAt.Before(cutoff) {
			s.IsActive = false
			end := at
			s.EndedAt = &end
			m.sessions[id] = s
			ended = append(ended, *copySession(s))
		}
	}
	return ended, nil
}

func copySession(s models.Session) *models.Session {
	if s.Location != nil {
		loc := *s.Location
		s.Location = &loc
	}
	return &s
}

// ---- alerts ----

// CreateAlert inserts a.
func (m *MemoryStore) CreateAlert(_ context.Context, a *models.RiskAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.alerts[a.ID] = *a
	return nil
}

// GetAlert returns the alert or nil.
func (m *MemoryStore) GetAlert(_ context.Context, id string) (*models.RiskAlert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.alerts[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

// ListAlerts returns the user's alerts, newest first.
func (m *MemoryStore) ListAlerts(_ context.Context, userID string, unresolvedOnly bool) ([]models.RiskAlert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.RiskAlert, 0)
	for _, a := range m.alerts {
		if a.UserID != userID || (unresolvedOnly && a.IsResolved) {
			continue
		}
		out = append(out, a)
	}
	sortAlertsNewestFirst(out)
	return out, nil
}

// ListUnresolvedAlertsSince returns the user's unresolved alerts created at or after since.
func (m *MemoryStore) ListUnresolvedAlertsSince(_ context.Context, userID string, since time.Time) ([]models.RiskAlert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.RiskAlert, 0)
	for _, a := range m.alerts {
		if a.UserID == userID && !a.IsResolved && !a.CreatedAt.Before(since) {
			out = append(out, a)
		}
	}
	sortAlertsNewestFirst(out)
	return out, nil
}

// ResolveAlert resolves an unresolved alert. It reports false when the
// alert is missing or already resolved.
func (m *MemoryStore) ResolveAlert(_ context.Context, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.alerts[id]
	if !ok || a.IsResolved {
		return false, nil
	}
	a.IsResolved = true
	a.ResolvedAt = &at
	m.alerts[id] = a
	return true, nil
}

func sortAlertsNewestFirst(alerts []models.RiskAlert) {
	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].CreatedAt.Equal(alerts[j].CreatedAt) {
			return alerts[i].ID > alerts[j].ID
		}
		return alerts[i].CreatedAt.After(alerts[j].CreatedAt)
	})
}
