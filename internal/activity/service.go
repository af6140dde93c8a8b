// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

// Package activity records user actions in an append-only log.
package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/sessionguard/internal/models"
)

// History limits.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// Store persists activity entries.
type Store interface {
	Append(ctx context.Context, l *models.ActivityLog) error
	// ListRecent returns up to limit entries, newest first.
	ListRecent(ctx context.Context, userID string, limit int) ([]models.ActivityLog, error)
}

// TrackRequest describes one action.
type TrackRequest struct {
	UserID       string
	SessionID    string
	ActivityType models.ActivityType
	ResourceID   string
	Metadata     map[string]any
	IPAddress    string
}

// Service tracks and lists activity.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a Service over store.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// SetClock overrides the time source. Intended for tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Track appends one entry. Unknown activity types are InvalidInput.
func (s *Service) Track(ctx context.Context, req TrackRequest) (*models.ActivityLog, error) {
	if !req.ActivityType.Valid() {
		return nil, models.InvalidInput(fmt.Sprintf("unknown activity type %q", req.ActivityType))
	}
	if req.UserID == "" {
		return nil, models.InvalidInput("user id is required")
	}

	l := &models.ActivityLog{
		ID:           uuid.New().String(),
		UserID:       req.UserID,
		SessionID:    req.SessionID,
		ActivityType: req.ActivityType,
		ResourceID:   req.ResourceID,
		Metadata:     req.Metadata,
		IPAddress:    req.IPAddress,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.Append(ctx, l); err != nil {
		return nil, fmt.Errorf("failed to track activity: %w", err)
	}
	return l, nil
}

// History returns the user's most recent entries. limit <= 0 uses
// DefaultHistoryLimit; larger values are capped at MaxHistoryLimit.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]models.ActivityLog, error) {
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}

	logs, err := s.store.ListRecent(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	return logs, nil
}
