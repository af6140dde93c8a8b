// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package models

import "time"

// ActivityType is the kind of a tracked user action.
type ActivityType string

const (
	ActivityLogin          ActivityType = "login"
	ActivityLogout         ActivityType = "logout"
	ActivityCourseView     ActivityType = "course_view"
	ActivityVideoWatch     ActivityType = "video_watch"
	ActivityQuizAttempt    ActivityType = "quiz_attempt"
	ActivityDownload       ActivityType = "download"
	ActivityProfileUpdate  ActivityType = "profile_update"
	ActivitySettingsChange ActivityType = "settings_change"
)

// ActivityTypes lists every accepted activity type.
var ActivityTypes = []ActivityType{
	ActivityLogin, ActivityLogout, ActivityCourseView, ActivityVideoWatch,
	ActivityQuizAttempt, ActivityDownload, ActivityProfileUpdate, ActivitySettingsChange,
}

// Valid reports whether t is a known activity type.
func (t ActivityType) Valid() bool {
	for _, v := range ActivityTypes {
		if v == t {
			return true
		}
	}
	return false
}

// ActivityLog is one tracked action. Logs are never updated.
type ActivityLog struct {
	ID           string         `json:"id"`
	UserID       string         `json:"user_id"`
	SessionID    string         `json:"session_id,omitempty"`
	ActivityType ActivityType   `json:"activity_type"`
	ResourceID   string         `json:"resource_id,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	IPAddress    string         `json:"ip_address,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}
