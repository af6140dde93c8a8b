// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

/*
Package auth issues and checks the credentials of Sessionguard users.

Passwords are stored as bcrypt hashes. A successful login mints an
HS256 JWT whose claims bind the token to the session it opened:

	sub   user ID
	email user email
	role  "user" or "admin"
	sid   session ID

RequireAuth validates the bearer token and, when a SessionChecker is
configured, rejects tokens whose session has been terminated, evicted
or swept. A token therefore dies with its session even before it
expires.
*/
package auth
