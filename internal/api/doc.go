// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

/*
Package api provides the HTTP interface of sessionguard on a chi router.

# Response envelope

Every JSON response uses the same shape:

	{
	  "success": true,
	  "data": {...},
	  "error": {"code": "NOT_FOUND", "message": "...", "request_id": "..."},
	  "meta": {"request_id": "...", "timestamp": "...", "duration_ms": 3}
	}

Service errors are mapped by kind: models.ErrNotFound to 404,
models.ErrConflict to 409, models.ErrInvalidInput and validation failures
to 400, models.ErrUnauthorized to 401, models.ErrAccountInactive and
authz.ErrForbidden to 403. Anything else is a 500 with a generic message.

# Routes

	GET    /health
	GET    /metrics
	POST   /api/v1/auth/register           public, login rate limit
	POST   /api/v1/auth/login              public, login rate limit
	POST   /api/v1/auth/verify             public
	POST   /api/v1/auth/logout
	GET    /api/v1/users/me
	GET    /api/v1/devices
	POST   /api/v1/devices/{id}/trust
	DELETE /api/v1/devices/{id}
	GET    /api/v1/sessions/active
	GET    /api/v1/sessions/history
	GET    /api/v1/sessions/concurrent-check
	DELETE /api/v1/sessions/{id}
	GET    /api/v1/risk/score
	GET    /api/v1/risk/alerts
	POST   /api/v1/risk/alerts/{id}/resolve
	POST   /api/v1/activity/track
	GET    /api/v1/activity/history
	GET    /api/v1/ws/alerts               websocket, token may be a query parameter
	POST   /api/v1/admin/sessions/sweep    admin
	PUT    /api/v1/admin/users/{id}/status admin

Authenticated routes run auth.Middleware.RequireAuth and then
authz.Middleware.Authorize with the resource and action of the route.
*/
package api
