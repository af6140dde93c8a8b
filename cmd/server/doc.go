// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

// Command server runs the sessionguard API.
//
// Startup order:
//
//  1. Configuration (Koanf v2: defaults, optional config.yaml, environment)
//  2. Logging (zerolog)
//  3. Stores: DuckDB or in-memory relational store, BadgerDB activity log,
//     optional Redis active-session index
//  4. Event bus (in-process Watermill GoChannel, or NATS when EVENTS_NATS_URL is set)
//  5. Domain services: device resolver, session ledger, risk evaluator,
//     alert generator, account aggregator, login
//  6. HTTP API, websocket hub and background loops under a suture tree
//
// SIGINT and SIGTERM cancel the tree; the HTTP server drains for
// SERVER_SHUTDOWN_TIMEOUT before the stores are closed.
//
// Minimal development run:
//
//	export SECURITY_JWT_SECRET=$(openssl rand -base64 48)
//	export DATABASE_DRIVER=memory ACTIVITY_IN_MEMORY=true
//	./sessionguard
package main
