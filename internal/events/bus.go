// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/sessionguard/internal/config"
	"github.com/tomtom215/sessionguard/internal/metrics"
	"github.com/tomtom215/sessionguard/internal/models"
)

// ErrBusClosed is returned by operations on a closed Bus.
var ErrBusClosed = errors.New("event bus is closed")

// Bus publishes and subscribes to domain events.
type Bus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	breaker    *gobreaker.CircuitBreaker[interface{}]
	logger     watermill.LoggerAdapter
	backend    string
	shared     bool

	mu     sync.RWMutex
	closed bool
}

// NewBus creates a NATS-backed bus when cfg.NATSURL is set and an
// in-process bus otherwise.
func NewBus(cfg *config.EventsConfig, logger watermill.LoggerAdapter) (*Bus, error) {
	if cfg.NATSURL != "" {
		return NewNATSBus(cfg, logger)
	}
	return NewInProcessBus(cfg, logger), nil
}

// NewInProcessBus creates a bus on a Watermill GoChannel. Messages
// published while nobody is subscribed are dropped.
func NewInProcessBus(cfg *config.EventsConfig, logger watermill.LoggerAdapter) *Bus {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	ch := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: cfg.OutputBuffer,
	}, logger)
	b := newBus(ch, ch, cfg, logger, "gochannel")
	b.shared = true
	return b
}

func newBus(pub message.Publisher, sub message.Subscriber, cfg *config.EventsConfig, logger watermill.LoggerAdapter, backend string) *Bus {
	return &Bus{
		publisher:  pub,
		subscriber: sub,
		breaker: NewCircuitBreaker(BreakerConfig{
			Name:             "events-" + backend,
			FailureThreshold: cfg.BreakerFailureThreshold,
			Timeout:          cfg.BreakerTimeout,
		}),
		logger:  logger,
		backend: backend,
	}
}

// Backend names the transport: "gochannel" or "nats".
func (b *Bus) Backend() string {
	return b.backend
}

// Publish sends msg to topic through the circuit breaker.
func (b *Bus) Publish(_ context.Context, topic string, msg *message.Message) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}

	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, b.publisher.Publish(topic, msg)
	})
	metrics.RecordEventPublish(topic, err)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// PublishAlert publishes an alerts.created event.
func (b *Bus) PublishAlert(ctx context.Context, a *models.RiskAlert) error {
	msg, err := newMessage(TopicAlertCreated, a.UserID, a)
	if err != nil {
		return err
	}
	msg.Metadata.Set("severity", string(a.Severity))
	return b.Publish(ctx, TopicAlertCreated, msg)
}

// PublishSessionEvicted publishes a sessions.evicted event.
func (b *Bus) PublishSessionEvicted(ctx context.Context, evicted *models.Session, newSessionID string) error {
	at := time.Now().UTC()
	if evicted.EndedAt != nil {
		at = *evicted.EndedAt
	}
	msg, err := newMessage(TopicSessionEvicted, evicted.UserID, &SessionEvicted{
		UserID:       evicted.UserID,
		SessionID:    evicted.ID,
		DeviceID:     evicted.DeviceID,
		NewSessionID: newSessionID,
		EvictedAt:    at,
	})
	if err != nil {
		return err
	}
	return b.Publish(ctx, TopicSessionEvicted, msg)
}

// Subscribe returns the messages of topic until ctx is canceled or the
// bus is closed. Every message must be acked or nacked.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrBusClosed
	}
	return b.subscriber.Subscribe(ctx, topic)
}

// Close shuts down the publisher and subscriber. It is safe to call twice.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	err := b.publisher.Close()
	if !b.shared {
		err = errors.Join(err, b.subscriber.Close())
	}
	return err
}
