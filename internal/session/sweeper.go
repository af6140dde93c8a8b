// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package session

import (
	"context"
	"time"

	"github.com/tomtom215/sessionguard/internal/logging"
)

// Sweeper runs Ledger.Sweep on a fixed interval until its context ends.
type Sweeper struct {
	ledger   *Ledger
	interval time.Duration
}

// NewSweeper creates a Sweeper. A non-positive interval defaults to 15 minutes.
func NewSweeper(ledger *Ledger, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Sweeper{ledger: ledger, interval: interval}
}

// RunWithContext sweeps once immediately and then on every tick.
// It returns ctx.Err() when the context is canceled.
func (s *Sweeper) RunWithContext(ctx context.Context) error {
	logger := logging.WithComponent("session-sweeper")
	logger.Info().Dur("interval", s.interval).Msg("Session sweeper started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.sweepOnce(ctx)

		select {
		case <-ctx.Done():
			logger.Info().Msg("Session sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	n, err := s.ledger.Sweep(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logging.Error().Err(err).Msg("Session sweep failed")
		}
		return
	}
	if n > 0 {
		logging.Info().Int("sessions", n).Msg("Inactive sessions swept")
	}
}
