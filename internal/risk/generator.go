// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/sessionguard/internal/logging"
	"github.com/tomtom215/sessionguard/internal/metrics"
	"github.com/tomtom215/sessionguard/internal/models"
)

// AlertStore persists risk alerts.
type AlertStore interface {
	CreateAlert(ctx context.Context, a *models.RiskAlert) error
	// GetAlert returns nil, nil when the alert does not exist.
	GetAlert(ctx context.Context, id string) (*models.RiskAlert, error)
	// ListAlerts returns the user's alerts, newest first.
	ListAlerts(ctx context.Context, userID string, unresolvedOnly bool) ([]models.RiskAlert, error)
	ListUnresolvedAlertsSince(ctx context.Context, userID string, since time.Time) ([]models.RiskAlert, error)
	// ResolveAlert reports whether an unresolved alert was resolved.
	ResolveAlert(ctx context.Context, id string, at time.Time) (bool, error)
}

// Publisher receives every alert after it has been persisted.
type Publisher interface {
	PublishAlert(ctx context.Context, a *models.RiskAlert) error
}

// Publishers fans an alert out to several publishers. Every publisher is
// called; the first error is returned.
type Publishers []Publisher

// PublishAlert implements Publisher.
func (ps Publishers) PublishAlert(ctx context.Context, a *models.RiskAlert) error {
	var first error
	for _, p := range ps {
		if err := p.PublishAlert(ctx, a); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Generator persists findings as alerts and manages their lifecycle.
type Generator struct {
	store     AlertStore
	publisher Publisher
	security  *logging.SecurityLogger
	now       func() time.Time
}

// NewGenerator creates a Generator. publisher may be nil.
func NewGenerator(store AlertStore, publisher Publisher) *Generator {
	if publisher == nil {
		publisher = Publishers(nil)
	}
	return &Generator{
		store:     store,
		publisher: publisher,
		security:  logging.NewSecurityLogger(),
		now:       time.Now,
	}
}

// SetClock overrides the time source. Intended for tests.
func (g *Generator) SetClock(now func() time.Time) {
	g.now = now
}

// Raise persists one alert per finding, in order. Publication failures are
// logged and do not fail the call.
func (g *Generator) Raise(ctx context.Context, userID string, findings []Finding) ([]models.RiskAlert, error) {
	alerts := make([]models.RiskAlert, 0, len(findings))

	for i := range findings {
		f := &findings[i]

		meta, err := json.Marshal(f.Metadata)
		if err != nil {
			return alerts, fmt.Errorf("failed to encode alert metadata: %w", err)
		}

		a := models.RiskAlert{
			ID:          uuid.New().String(),
			UserID:      userID,
			AlertType:   f.Type,
			Severity:    f.Severity,
			Description: f.Description,
			Metadata:    meta,
			CreatedAt:   g.now().UTC(),
		}
		if err := g.store.CreateAlert(ctx, &a); err != nil {
			return alerts, fmt.Errorf("failed to create alert: %w", err)
		}
		alerts = append(alerts, a)

		metrics.RecordAlert(string(a.AlertType), string(a.Severity))
		g.security.LogEvent(&logging.SecurityEvent{
			Event:   logging.EventAlertRaised,
			UserID:  userID,
			Success: true,
			Details: map[string]string{
				"alert_id":   a.ID,
				"alert_type": string(a.AlertType),
				"severity":   string(a.Severity),
			},
		})

		if err := g.publisher.PublishAlert(ctx, &a); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("alert_id", a.ID).Msg("Failed to publish alert")
		}
	}

	return alerts, nil
}

// List returns the user's alerts, newest first.
func (g *Generator) List(ctx context.Context, userID string, unresolvedOnly bool) ([]models.RiskAlert, error) {
	alerts, err := g.store.ListAlerts(ctx, userID, unresolvedOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alerts, nil
}

// Resolve marks an alert resolved. Only the owner or an admin may resolve
// it; anyone else gets NotFound. Resolving twice keeps the first resolvedAt.
func (g *Generator) Resolve(ctx context.Context, alertID, userID string, admin bool) (*models.RiskAlert, error) {
	a, err := g.get(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if a.UserID != userID && !admin {
		return nil, models.NotFound("alert", alertID)
	}
	if a.IsResolved {
		return a, nil
	}

	now := g.now().UTC()
	ok, err := g.store.ResolveAlert(ctx, alertID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve alert: %w", err)
	}
	if !ok {
		return g.get(ctx, alertID)
	}

	a.IsResolved = true
	a.ResolvedAt = &now

	metrics.AlertsResolved.Inc()
	g.security.LogEvent(&logging.SecurityEvent{
		Event:   logging.EventAlertResolved,
		UserID:  a.UserID,
		Success: true,
		Details: map[string]string{"alert_id": a.ID, "resolved_by": userID},
	})
	return a, nil
}

func (g *Generator) get(ctx context.Context, id string) (*models.RiskAlert, error) {
	a, err := g.store.GetAlert(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	if a == nil {
		return nil, models.NotFound("alert", id)
	}
	return a, nil
}
