// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

// Package session tracks active and historical sessions per account,
// enforces the concurrency cap and sweeps idle sessions.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/sessionguard/internal/keylock"
	"github.com/tomtom215/sessionguard/internal/logging"
	"github.com/tomtom215/sessionguard/internal/metrics"
	"github.com/tomtom215/sessionguard/internal/models"
)

// Store persists sessions.
type Store interface {
	CreateSession(ctx context.Context, s *models.Session) error
	// GetSession returns nil, nil when the session does not exist.
	GetSession(ctx context.Context, id string) (*models.Session, error)
	// ListActiveSessions returns the user's active sessions ordered by startedAt ascending.
	ListActiveSessions(ctx context.Context, userID string) ([]models.Session, error)
	// ListRecentSessions returns up to limit sessions, newest first.
	ListRecentSessions(ctx context.Context, userID string, limit int) ([]models.Session, error)
	// EndSession reports whether an active session was deactivated.
	EndSession(ctx context.Context, id string, at time.Time) (bool, error)
	// TouchSession reports whether an active session was refreshed.
	TouchSession(ctx context.Context, id string, at time.Time) (bool, error)
	SetSessionRiskScore(ctx context.Context, id string, score float64) error
	CountActiveSessions(ctx context.Context, userID string) (int, error)
	// EndInactiveSessions deactivates active sessions idle since before cutoff.
	EndInactiveSessions(ctx context.Context, cutoff, at time.Time) ([]models.Session, error)
}

// Config holds ledger settings.
type Config struct {
	InactivityThreshold time.Duration
	HistoryLimit        int
}

// DefaultConfig returns a 24h inactivity threshold and a history of 20.
func DefaultConfig() Config {
	return Config{
		InactivityThreshold: 24 * time.Hour,
		HistoryLimit:        20,
	}
}

// ConcurrentThreshold is the active count above which the concurrent
// check reports multiple sessions.
const ConcurrentThreshold = 2

// OpenRequest carries the request attributes of a new session.
type OpenRequest struct {
	DeviceID  string
	IPAddress string
	UserAgent string
	Location  *models.Location
}

// OpenResult is the outcome of Open.
type OpenResult struct {
	// Session is the newly created session.
	Session *models.Session
	// Prior is the active set read before eviction, oldest first.
	Prior []models.Session
	// Evicted is the session deactivated to make room, if any.
	Evicted *models.Session
	// CapReached reports whether len(Prior) reached the user's cap.
	CapReached bool
}

// ConcurrentCheck is the result of ConcurrentCount.
type ConcurrentCheck struct {
	ActiveSessions int    `json:"active_sessions"`
	IsConcurrent   bool   `json:"is_concurrent"`
	Message        string `json:"message"`
}

// Ledger is the session ledger. Open is serialized per user.
type Ledger struct {
	store    Store
	index    Index
	cfg      Config
	locks    *keylock.Locker
	security *logging.SecurityLogger
	now      func() time.Time
}

// NewLedger creates a Ledger. A nil index disables the Redis mirror.
func NewLedger(store Store, index Index, cfg Config) *Ledger {
	if index == nil {
		index = NopIndex{}
	}
	if cfg.InactivityThreshold <= 0 {
		cfg.InactivityThreshold = DefaultConfig().InactivityThreshold
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultConfig().HistoryLimit
	}
	return &Ledger{
		store:    store,
		index:    index,
		cfg:      cfg,
		locks:    keylock.New(),
		security: logging.NewSecurityLogger(),
		now:      time.Now,
	}
}

// SetClock overrides the time source. Intended for tests.
func (l *Ledger) SetClock(now func() time.Time) {
	l.now = now
}

// Open records a login: it reads the active set, evicts the oldest session
// when the cap is reached and creates the new session. At most one session
// is evicted per call.
func (l *Ledger) Open(ctx context.Context, user *models.User, req OpenRequest) (*OpenResult, error) {
	unlock := l.locks.Lock(user.ID)
	defer unlock()

	prior, err := l.store.ListActiveSessions(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}

	now := l.now().UTC()
	res := &OpenResult{Prior: prior}

	if len(prior) >= user.SessionCap() {
		res.CapReached = true
		oldest := prior[0]
		ended, err := l.store.EndSession(ctx, oldest.ID, now)
		if err != nil {
			return nil, fmt.Errorf("failed to evict session: %w", err)
		}
		// A sweep or logout outside the user lock may have ended it first.
		if ended {
			oldest.IsActive = false
			oldest.EndedAt = &now
			res.Evicted = &oldest

			l.unindex(ctx, user.ID, oldest.ID)
			metrics.RecordSessionEnded("evicted", 1)
			l.security.LogEvent(&logging.SecurityEvent{
				Event:     logging.EventSessionEvicted,
				UserID:    user.ID,
				SessionID: oldest.ID,
				DeviceID:  oldest.DeviceID,
				Success:   true,
				Details: map[string]string{
					"active_sessions": fmt.Sprint(len(prior)),
					"session_cap":     fmt.Sprint(user.SessionCap()),
				},
			})
		}
	}

	s := &models.Session{
		ID:             uuid.New().String(),
		UserID:         user.ID,
		DeviceID:       req.DeviceID,
		IPAddress:      req.IPAddress,
		UserAgent:      req.UserAgent,
		Location:       req.Location,
		StartedAt:      now,
		IsActive:       true,
		LastActivityAt: now,
	}
	if err := l.store.CreateSession(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	res.Session = s

	if err := l.index.Add(ctx, user.ID, s.ID); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("session_id", s.ID).Msg("Failed to index session")
	}
	metrics.SessionsOpened.Inc()

	return res, nil
}

// Terminate deactivates a session. Terminating an inactive session is a
// no-op success; an unknown session is NotFound.
func (l *Ledger) Terminate(ctx context.Context, id, reason string) (*models.Session, error) {
	s, err := l.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.IsActive {
		return s, nil
	}

	now := l.now().UTC()
	ended, err := l.store.EndSession(ctx, id, now)
	if err != nil {
		return nil, fmt.Errorf("failed to end session: %w", err)
	}
	if ended {
		s.IsActive = false
		s.EndedAt = &now
		l.unindex(ctx, s.UserID, id)
		metrics.RecordSessionEnded(reason, 1)
		return s, nil
	}

	// Lost a race with another terminator or the sweep; report the stored state.
	return l.Get(ctx, id)
}

// Get returns a session or NotFound.
func (l *Ledger) Get(ctx context.Context, id string) (*models.Session, error) {
	s, err := l.store.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if s == nil {
		return nil, models.NotFound("session", id)
	}
	return s, nil
}

// Active returns the user's active sessions, newest first.
func (l *Ledger) Active(ctx context.Context, userID string) ([]models.Session, error) {
	sessions, err := l.store.ListActiveSessions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}
	for i, j := 0, len(sessions)-1; i < j; i, j = i+1, j-1 {
		sessions[i], sessions[j] = sessions[j], sessions[i]
	}
	return sessions, nil
}

// History returns the user's most recent sessions. limit <= 0 uses the configured default.
func (l *Ledger) History(ctx context.Context, userID string, limit int) ([]models.Session, error) {
	if limit <= 0 {
		limit = l.cfg.HistoryLimit
	}
	sessions, err := l.store.ListRecentSessions(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list session history: %w", err)
	}
	return sessions, nil
}

// Touch refreshes the activity timestamp of an active session.
func (l *Ledger) Touch(ctx context.Context, id string) error {
	ok, err := l.store.TouchSession(ctx, id, l.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	if !ok {
		return models.NotFound("active session", id)
	}
	return nil
}

// RecordRiskScore stores the composite score of the login that opened id.
func (l *Ledger) RecordRiskScore(ctx context.Context, id string, score float64) error {
	if err := l.store.SetSessionRiskScore(ctx, id, score); err != nil {
		return fmt.Errorf("failed to record session risk score: %w", err)
	}
	return nil
}

// ConcurrentCount reports the user's active session count. The Redis
// index answers when available; the store is the fallback.
func (l *Ledger) ConcurrentCount(ctx context.Context, userID string) (*ConcurrentCheck, error) {
	n, err := l.index.Count(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrIndexDisabled) {
			logging.Ctx(ctx).Warn().Err(err).Msg("Session index unavailable, counting in store")
		}
		count, err := l.store.CountActiveSessions(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to count active sessions: %w", err)
		}
		n = int64(count)
	}

	check := &ConcurrentCheck{ActiveSessions: int(n), Message: "Normal usage"}
	if n > ConcurrentThreshold {
		check.IsConcurrent = true
		check.Message = "Multiple concurrent sessions detected"
	}
	return check, nil
}

// Sweep deactivates every active session idle for longer than the
// inactivity threshold and returns how many were ended.
func (l *Ledger) Sweep(ctx context.Context) (int, error) {
	start := time.Now()
	now := l.now().UTC()

	swept, err := l.store.EndInactiveSessions(ctx, now.Add(-l.cfg.InactivityThreshold), now)
	metrics.RecordSweep(time.Since(start), len(swept), err)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep sessions: %w", err)
	}

	for i := range swept {
		l.unindex(ctx, swept[i].UserID, swept[i].ID)
	}

	if len(swept) > 0 {
		l.security.LogEvent(&logging.SecurityEvent{
			Event:   logging.EventSessionsSwept,
			Success: true,
			Details: map[string]string{"count": fmt.Sprint(len(swept))},
		})
	}
	return len(swept), nil
}

func (l *Ledger) unindex(ctx context.Context, userID, sessionID string) {
	if err := l.index.Remove(ctx, userID, sessionID); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("session_id", sessionID).Msg("Failed to unindex session")
	}
}
