// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

/*
Package websocket streams risk alerts to the browser sessions of the
affected user.

A Hub owns every connected Client. Each client belongs to exactly one
user, and messages are routed by user ID, so a user only sees their own
alerts and evictions. The hub implements events.AlertHandler and
events.EvictionHandler and is fed by the event consumer.

Each client runs two goroutines:
  - readPump: reads client messages, answers "ping" with "pong"
  - writePump: writes queued messages and keeps the connection alive

Message types:

  - risk_alert: a new alert for the user (data: models.RiskAlert)
  - session_evicted: one of the user's sessions was evicted at the cap
  - ping / pong: application-level keepalive

A client whose send buffer is full is dropped rather than blocking the hub.
*/
package websocket
