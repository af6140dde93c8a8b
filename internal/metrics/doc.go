// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

/*
Package metrics provides Prometheus instrumentation for Sessionguard.

# Overview

The package provides metrics for:
  - login outcomes and per-login risk scores
  - device resolutions, session evictions and inactivity sweeps
  - risk alerts by type and severity
  - event publication, webhook delivery and WebSocket clients
  - HTTP request latency and store query timing

Metrics are registered on the default registry through promauto and are
exposed at /metrics:

	curl http://localhost:3858/metrics
*/
package metrics
