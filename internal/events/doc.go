// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

/*
Package events publishes domain events on a Watermill bus.

Two events are produced:

  - alerts.created: a risk alert was persisted (payload: models.RiskAlert)
  - sessions.evicted: a login evicted the oldest session at the cap

The bus runs in-process on a Watermill GoChannel by default. When
events.nats_url is configured the same API publishes to and subscribes
from a NATS server through watermill-nats, so other processes can
consume the events.

Publishing goes through a gobreaker circuit breaker. Publish failures
are returned to the caller, which logs them; a failed publish never
undoes the state change that produced the event.

Consumers fan decoded alerts out to AlertHandlers (the websocket hub and
the webhook notifier):

	bus, _ := events.NewBus(&cfg.Events, watermill.NewSlogLogger(logging.NewSlogLogger()))
	consumer := events.NewAlertConsumer(bus, hub, notifier)
	tree.AddMessagingService(services.NewRunnerService("alert-consumer", consumer))
*/
package events
