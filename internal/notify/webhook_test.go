// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package notify

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/sessionguard/internal/config"
	"github.com/tomtom215/sessionguard/internal/models"
	"github.com/tomtom215/sessionguard/internal/testinfra"
)

func webhookConfig(url string) *config.EventsConfig {
	return &config.EventsConfig{
		WebhookURL:              url,
		WebhookTimeout:          2 * time.Second,
		WebhookRateLimit:        1000,
		WebhookBurst:            10,
		BreakerFailureThreshold: 2,
		BreakerTimeout:          time.Minute,
	}
}

func alert() *models.RiskAlert {
	return &models.RiskAlert{
		ID:          "alert-1",
		UserID:      "user-1",
		AlertType:   models.AlertHighRiskScore,
		Severity:    models.SeverityHigh,
		Description: "High risk score: 65.00",
	}
}

func TestWebhookNotifier_Send(t *testing.T) {
	t.Parallel()

	srv := testinfra.NewMockWebhookServer(t)
	n := NewWebhookNotifier(webhookConfig(srv.URL()))
	n.SetHeader("Authorization", "Bearer hook-token")
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return fixed }

	if err := n.Send(context.Background(), alert()); err != nil {
		t.Fatalf("Send: %v", err)
	}

	caps := srv.GetCaptures()
	if len(caps) != 1 {
		t.Fatalf("expected 1 request, got %d", len(caps))
	}
	c := caps[0]
	if c.Method != http.MethodPost {
		t.Errorf("method = %s, want POST", c.Method)
	}
	if c.Headers.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", c.Headers.Get("Content-Type"))
	}
	if c.Headers.Get("Authorization") != "Bearer hook-token" {
		t.Errorf("Authorization = %q", c.Headers.Get("Authorization"))
	}

	var p WebhookPayload
	if err := json.Unmarshal(c.Body, &p); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if p.Alert == nil || p.Alert.ID != "alert-1" || p.EventType != "risk_alert" || p.Source != "sessionguard" {
		t.Errorf("unexpected payload: %+v", p)
	}
	if !p.Timestamp.Equal(fixed) {
		t.Errorf("timestamp = %v, want %v", p.Timestamp, fixed)
	}
}

func TestWebhookNotifier_ErrorStatusOpensBreaker(t *testing.T) {
	t.Parallel()

	srv := testinfra.NewMockWebhookServer(t)
	srv.SetStatus(http.StatusBadGateway)
	n := NewWebhookNotifier(webhookConfig(srv.URL()))

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := n.Send(ctx, alert()); err == nil {
			t.Fatalf("send %d: expected error for 502", i)
		}
	}

	err := n.Send(ctx, alert())
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open breaker, got %v", err)
	}
	if got := len(srv.GetCaptures()); got != 2 {
		t.Errorf("server received %d requests, want 2", got)
	}
}

func TestWebhookNotifier_Disabled(t *testing.T) {
	t.Parallel()

	n := NewWebhookNotifier(webhookConfig(""))
	if n.Enabled() {
		t.Fatal("notifier without URL should be disabled")
	}
	if err := n.HandleAlert(context.Background(), alert()); err != nil {
		t.Errorf("HandleAlert on disabled notifier: %v", err)
	}
	if err := n.Send(context.Background(), alert()); !errors.Is(err, ErrDisabled) {
		t.Errorf("expected ErrDisabled, got %v", err)
	}
}

func TestWebhookNotifier_RateLimitHonorsContext(t *testing.T) {
	t.Parallel()

	srv := testinfra.NewMockWebhookServer(t)
	cfg := webhookConfig(srv.URL())
	cfg.WebhookRateLimit = 0.001
	cfg.WebhookBurst = 1
	n := NewWebhookNotifier(cfg)

	if err := n.Send(context.Background(), alert()); err != nil {
		t.Fatalf("first Send: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := n.Send(ctx, alert()); err == nil {
		t.Fatal("expected rate limit error")
	}
	if got := len(srv.GetCaptures()); got != 1 {
		t.Errorf("server received %d requests, want 1", got)
	}
}
