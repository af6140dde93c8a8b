// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/sessionguard/internal/logging"
	"github.com/tomtom215/sessionguard/internal/models"
)

// AlertHandler receives created alerts.
type AlertHandler interface {
	HandleAlert(ctx context.Context, a *models.RiskAlert) error
}

// EvictionHandler receives session evictions.
type EvictionHandler interface {
	HandleSessionEvicted(ctx context.Context, e *SessionEvicted) error
}

// Consumer dispatches bus events to handlers. Handler errors are logged
// and the message is acked; delivery is at most once.
type Consumer struct {
	bus       *Bus
	alerts    []AlertHandler
	evictions []EvictionHandler
}

// NewConsumer creates a Consumer. Handlers implementing EvictionHandler
// also receive session evictions.
func NewConsumer(bus *Bus, handlers ...AlertHandler) *Consumer {
	c := &Consumer{bus: bus, alerts: handlers}
	for _, h := range handlers {
		if eh, ok := h.(EvictionHandler); ok {
			c.evictions = append(c.evictions, eh)
		}
	}
	return c
}

// RunWithContext consumes until ctx is canceled.
func (c *Consumer) RunWithContext(ctx context.Context) error {
	alerts, err := c.bus.Subscribe(ctx, TopicAlertCreated)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", TopicAlertCreated, err)
	}
	evictions, err := c.bus.Subscribe(ctx, TopicSessionEvicted)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", TopicSessionEvicted, err)
	}

	logger := logging.WithComponent("events")
	logger.Info().Str("backend", c.bus.Backend()).Msg("Event consumer started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-alerts:
			if !ok {
				return ctx.Err()
			}
			c.handleAlert(ctx, msg)
		case msg, ok := <-evictions:
			if !ok {
				return ctx.Err()
			}
			c.handleEviction(ctx, msg)
		}
	}
}

func (c *Consumer) handleAlert(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	a, err := DecodeAlert(msg)
	if err != nil {
		logging.Warn().Err(err).Msg("Dropping malformed alert event")
		return
	}
	for _, h := range c.alerts {
		if err := h.HandleAlert(ctx, a); err != nil {
			logging.Warn().Err(err).
				Str("alert_id", a.ID).
				Str("handler", fmt.Sprintf("%T", h)).
				Msg("Alert handler failed")
		}
	}
}

func (c *Consumer) handleEviction(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	e, err := DecodeSessionEvicted(msg)
	if err != nil {
		logging.Warn().Err(err).Msg("Dropping malformed eviction event")
		return
	}
	for _, h := range c.evictions {
		if err := h.HandleSessionEvicted(ctx, e); err != nil {
			logging.Warn().Err(err).
				Str("session_id", e.SessionID).
				Str("handler", fmt.Sprintf("%T", h)).
				Msg("Eviction handler failed")
		}
	}
}
