// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

// Package notify delivers risk alerts to external endpoints.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/sessionguard/internal/config"
	"github.com/tomtom215/sessionguard/internal/events"
	"github.com/tomtom215/sessionguard/internal/metrics"
	"github.com/tomtom215/sessionguard/internal/models"
)

// ErrDisabled is returned by Send when no webhook URL is configured.
var ErrDisabled = errors.New("webhook notifier is disabled")

// WebhookPayload is the JSON body posted to the webhook endpoint.
type WebhookPayload struct {
	Alert     *models.RiskAlert `json:"alert"`
	EventType string            `json:"event_type"`
	Timestamp time.Time         `json:"timestamp"`
	Source    string            `json:"source"`
}

// WebhookNotifier posts alerts to a webhook. Deliveries are rate limited
// and pass through a circuit breaker; a 4xx or 5xx answer is a failure.
type WebhookNotifier struct {
	url     string
	headers map[string]string
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[interface{}]
	now     func() time.Time
}

// NewWebhookNotifier creates a notifier from the events configuration.
func NewWebhookNotifier(cfg *config.EventsConfig) *WebhookNotifier {
	timeout := cfg.WebhookTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limit := rate.Limit(cfg.WebhookRateLimit)
	if cfg.WebhookRateLimit <= 0 {
		limit = rate.Inf
	}
	burst := cfg.WebhookBurst
	if burst <= 0 {
		burst = 1
	}

	return &WebhookNotifier{
		url:     cfg.WebhookURL,
		headers: map[string]string{},
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, burst),
		breaker: events.NewCircuitBreaker(events.BreakerConfig{
			Name:             "webhook",
			FailureThreshold: cfg.BreakerFailureThreshold,
			Timeout:          cfg.BreakerTimeout,
		}),
		now: time.Now,
	}
}

// SetHeader adds a header to every delivery, e.g. Authorization.
func (n *WebhookNotifier) SetHeader(key, value string) {
	n.headers[key] = value
}

// Enabled reports whether a webhook URL is configured.
func (n *WebhookNotifier) Enabled() bool {
	return n.url != ""
}

// HandleAlert implements events.AlertHandler. A disabled notifier
// silently ignores alerts.
func (n *WebhookNotifier) HandleAlert(ctx context.Context, a *models.RiskAlert) error {
	if !n.Enabled() {
		return nil
	}
	return n.Send(ctx, a)
}

// Send delivers one alert, waiting for the rate limiter first.
func (n *WebhookNotifier) Send(ctx context.Context, a *models.RiskAlert) error {
	if !n.Enabled() {
		return ErrDisabled
	}
	if err := n.limiter.Wait(ctx); err != nil {
		metrics.RecordWebhookDelivery("rate_limited")
		return fmt.Errorf("webhook rate limit: %w", err)
	}

	body, err := json.Marshal(&WebhookPayload{
		Alert:     a,
		EventType: "risk_alert",
		Timestamp: n.now().UTC(),
		Source:    "sessionguard",
	})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	_, err = n.breaker.Execute(func() (interface{}, error) {
		return nil, n.post(ctx, body)
	})
	switch {
	case err == nil:
		metrics.RecordWebhookDelivery("success")
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordWebhookDelivery("circuit_open")
	default:
		metrics.RecordWebhookDelivery("failure")
	}
	return err
}

func (n *WebhookNotifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "sessionguard-webhook")
	for k, v := range n.headers {
		req.Header.Set(k, v)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
