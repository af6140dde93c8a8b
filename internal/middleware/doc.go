// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

/*
Package middleware provides the HTTP middleware shared by every route.

Middleware in this package uses the chi signature func(http.Handler) http.Handler
and is applied in this order by the API router:

	RequestID        assigns X-Request-ID and seeds the logging context
	SecurityHeaders  nosniff, frame denial, referrer policy, HSTS behind TLS
	PrometheusMetrics records count, latency and in-flight requests

PrometheusMetrics labels requests with the chi route pattern rather than
the raw path, so /api/v1/devices/{id} is one series regardless of the id.
*/
package middleware
