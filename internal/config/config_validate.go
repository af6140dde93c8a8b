// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// minJWTSecretLength is the minimum HS256 secret length.
const minJWTSecretLength = 32

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateActivity(); err != nil {
		return err
	}
	if err := c.validateRedis(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.validateRisk(); err != nil {
		return err
	}
	if err := c.validateSession(); err != nil {
		return err
	}
	if err := c.validateEvents(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	switch c.Server.Environment {
	case "development", "production":
	default:
		return fmt.Errorf("ENVIRONMENT must be development or production, got %q", c.Server.Environment)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case DriverDuckDB, DriverMemory:
	default:
		return fmt.Errorf("DB_DRIVER must be %s or %s, got %q", DriverDuckDB, DriverMemory, c.Database.Driver)
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must be >= 0, got %d", c.Database.Threads)
	}
	return nil
}

func (c *Config) validateActivity() error {
	if !c.Activity.InMemory && c.Activity.Path == "" {
		return fmt.Errorf("ACTIVITY_PATH is required unless ACTIVITY_IN_MEMORY=true")
	}
	if c.Activity.Retention < 0 {
		return fmt.Errorf("ACTIVITY_RETENTION must be >= 0")
	}
	return nil
}

func (c *Config) validateRedis() error {
	if !c.Redis.Enabled {
		return nil
	}
	if c.Redis.Addr == "" {
		return fmt.Errorf("REDIS_ADDR is required when REDIS_ENABLED=true")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("REDIS_DB must be >= 0, got %d", c.Redis.DB)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	s := &c.Security

	if len(s.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength)
	}
	if s.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	// bcrypt accepts costs 4 through 31.
	if s.BcryptCost < 4 || s.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", s.BcryptCost)
	}
	if s.PasswordMinLength < 8 {
		return fmt.Errorf("PASSWORD_MIN_LENGTH must be at least 8, got %d", s.PasswordMinLength)
	}
	if !s.RateLimitDisabled {
		if s.RateLimitReqs <= 0 || s.LoginRateLimitReqs <= 0 {
			return fmt.Errorf("rate limits must be positive unless DISABLE_RATE_LIMIT=true")
		}
		if s.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
		}
	}
	if c.Server.IsProduction() {
		for _, o := range s.CORSOrigins {
			if o == "*" {
				return fmt.Errorf("CORS_ORIGINS must not contain * in production")
			}
		}
	}
	return nil
}

func (c *Config) validateRisk() error {
	r := &c.Risk
	if r.SuspiciousTravelSpeedKmh <= 0 || r.ImpossibleTravelSpeedKmh <= r.SuspiciousTravelSpeedKmh {
		return fmt.Errorf("travel speeds must satisfy 0 < SUSPICIOUS_TRAVEL_SPEED_KMH (%.0f) < IMPOSSIBLE_TRAVEL_SPEED_KMH (%.0f)",
			r.SuspiciousTravelSpeedKmh, r.ImpossibleTravelSpeedKmh)
	}
	if r.HighRiskThreshold <= 0 || r.HighRiskThreshold > r.CriticalRiskThreshold || r.CriticalRiskThreshold > 100 {
		return fmt.Errorf("risk thresholds must satisfy 0 < HIGH_RISK_THRESHOLD (%.0f) <= CRITICAL_RISK_THRESHOLD (%.0f) <= 100",
			r.HighRiskThreshold, r.CriticalRiskThreshold)
	}
	return nil
}

func (c *Config) validateSession() error {
	if c.Session.InactivityThreshold <= 0 {
		return fmt.Errorf("SESSION_INACTIVITY_THRESHOLD must be positive")
	}
	if c.Session.SweepInterval <= 0 {
		return fmt.Errorf("SESSION_SWEEP_INTERVAL must be positive")
	}
	if c.Session.HistoryLimit <= 0 {
		return fmt.Errorf("SESSION_HISTORY_LIMIT must be positive")
	}
	return nil
}

func (c *Config) validateEvents() error {
	e := &c.Events
	if e.NATSURL != "" {
		if err := validateURL("NATS_URL", e.NATSURL, "nats", "tls"); err != nil {
			return err
		}
	}
	if e.WebhookURL != "" {
		if err := validateURL("WEBHOOK_URL", e.WebhookURL, "http", "https"); err != nil {
			return err
		}
		if e.WebhookRateLimit <= 0 || e.WebhookBurst <= 0 {
			return fmt.Errorf("WEBHOOK_RATE_LIMIT and WEBHOOK_BURST must be positive")
		}
	}
	if e.BreakerFailureThreshold == 0 {
		return fmt.Errorf("BREAKER_FAILURE_THRESHOLD must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

func validateURL(name, raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", name, err)
	}
	if u.Host == "" {
		return fmt.Errorf("%s must include a host", name)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("%s must use one of the schemes %s, got %q", name, strings.Join(schemes, ", "), u.Scheme)
}
