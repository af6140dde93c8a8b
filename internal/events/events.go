// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package events

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/sessionguard/internal/models"
)

// Topics.
const (
	TopicAlertCreated   = "alerts.created"
	TopicSessionEvicted = "sessions.evicted"
)

// Metadata keys set on every message.
const (
	MetadataUserID    = "user_id"
	MetadataEventType = "event_type"
)

// SessionEvicted is published when a login deactivated the oldest active
// session to stay within the user's concurrent session cap.
type SessionEvicted struct {
	UserID       string    `json:"user_id"`
	SessionID    string    `json:"session_id"`
	DeviceID     string    `json:"device_id"`
	NewSessionID string    `json:"new_session_id"`
	EvictedAt    time.Time `json:"evicted_at"`
}

func newMessage(eventType, userID string, payload any) (*message.Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	msg := message.NewMessage(uuid.New().String(), data)
	msg.Metadata.Set(MetadataUserID, userID)
	msg.Metadata.Set(MetadataEventType, eventType)
	return msg, nil
}

// DecodeAlert decodes an alerts.created payload.
func DecodeAlert(msg *message.Message) (*models.RiskAlert, error) {
	var a models.RiskAlert
	if err := json.Unmarshal(msg.Payload, &a); err != nil {
		return nil, fmt.Errorf("unmarshal alert %s: %w", msg.UUID, err)
	}
	if a.ID == "" || a.UserID == "" {
		return nil, fmt.Errorf("alert message %s is missing id or user_id", msg.UUID)
	}
	return &a, nil
}

// DecodeSessionEvicted decodes a sessions.evicted payload.
func DecodeSessionEvicted(msg *message.Message) (*SessionEvicted, error) {
	var e SessionEvicted
	if err := json.Unmarshal(msg.Payload, &e); err != nil {
		return nil, fmt.Errorf("unmarshal eviction %s: %w", msg.UUID, err)
	}
	return &e, nil
}
