// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package logging

import (
	"sort"

	"github.com/rs/zerolog"
)

// Security event names.
const (
	EventLoginSuccess   = "login_success"
	EventLoginFailed    = "login_failed"
	EventLogout         = "logout"
	EventSessionEvicted = "session_evicted"
	EventSessionsSwept  = "sessions_swept"
	EventDeviceTrusted  = "device_trusted"
	EventDeviceRemoved  = "device_removed"
	EventAlertRaised    = "alert_raised"
	EventAlertResolved  = "alert_resolved"
)

// SecurityEvent is a security-relevant event for audit logging.
type SecurityEvent struct {
	Event     string
	UserID    string
	SessionID string
	DeviceID  string
	IPAddress string
	UserAgent string
	Success   bool
	Error     string
	Details   map[string]string
}

// SecurityLogger writes SecurityEvents under the "security" component.
type SecurityLogger struct {
	logger zerolog.Logger
}

// NewSecurityLogger creates a security logger on the global logger.
func NewSecurityLogger() *SecurityLogger {
	return &SecurityLogger{logger: WithComponent("security")}
}

// NewSecurityLoggerWithLogger creates a security logger on a custom logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewSecurityLoggerWithLogger(logger zerolog.Logger) *SecurityLogger {
	return &SecurityLogger{logger: logger.With().Str("component", "security").Logger()}
}

// LogEvent writes one event line.
func (l *SecurityLogger) LogEvent(event *SecurityEvent) {
	e := l.logger.Info()
	if !event.Success {
		e = l.logger.Warn()
	}
	e = e.Str("event_type", event.Event).Bool("success", event.Success)

	if event.UserID != "" {
		e = e.Str("user_id", event.UserID)
	}
	if event.SessionID != "" {
		e = e.Str("session_id", event.SessionID)
	}
	if event.DeviceID != "" {
		e = e.Str("device_id", event.DeviceID)
	}
	if event.IPAddress != "" {
		e = e.Str("ip", event.IPAddress)
	}
	if event.UserAgent != "" {
		e = e.Str("user_agent", truncateString(event.UserAgent, 120))
	}
	if event.Error != "" {
		e = e.Str("error", event.Error)
	}

	keys := make([]string, 0, len(event.Details))
	for k := range event.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		e = e.Str(k, event.Details[k])
	}

	e.Msg("security event")
}

func truncateString(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
