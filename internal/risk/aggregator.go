// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/sessionguard/internal/models"
)

// UnresolvedAlertLister is the read side the Aggregator needs.
type UnresolvedAlertLister interface {
	ListUnresolvedAlertsSince(ctx context.Context, userID string, since time.Time) ([]models.RiskAlert, error)
}

// Aggregator computes the account-level risk score.
type Aggregator struct {
	alerts UnresolvedAlertLister
	now    func() time.Time
}

// NewAggregator creates an Aggregator.
func NewAggregator(alerts UnresolvedAlertLister) *Aggregator {
	return &Aggregator{alerts: alerts, now: time.Now}
}

// SetClock overrides the time source. Intended for tests.
func (a *Aggregator) SetClock(now func() time.Time) {
	a.now = now
}

// Score returns the account risk of userID over the trailing seven days.
func (a *Aggregator) Score(ctx context.Context, userID string) (float64, error) {
	since := a.now().UTC().Add(-aggregateWindow)
	alerts, err := a.alerts.ListUnresolvedAlertsSince(ctx, userID, since)
	if err != nil {
		return 0, fmt.Errorf("failed to list unresolved alerts: %w", err)
	}
	return AggregateScore(alerts), nil
}

// AggregateScore sums the severity weights of unresolved alerts, capped at 100.
// Resolved alerts contribute nothing.
func AggregateScore(alerts []models.RiskAlert) float64 {
	var score float64
	for i := range alerts {
		if alerts[i].IsResolved {
			continue
		}
		score += alerts[i].Severity.Weight()
	}
	return clamp(score)
}
