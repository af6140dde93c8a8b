// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// TestDefaultConfig verifies that defaultConfig() returns proper defaults
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Driver != DriverDuckDB {
		t.Errorf("Database.Driver = %q, want duckdb", cfg.Database.Driver)
	}
	if cfg.Risk.ImpossibleTravelSpeedKmh != 800 || cfg.Risk.SuspiciousTravelSpeedKmh != 500 {
		t.Errorf("unexpected travel speeds: %+v", cfg.Risk)
	}
	if cfg.Risk.HighRiskThreshold != 60 || cfg.Risk.CriticalRiskThreshold != 80 {
		t.Errorf("unexpected risk thresholds: %+v", cfg.Risk)
	}
	if cfg.Session.InactivityThreshold != 24*time.Hour {
		t.Errorf("Session.InactivityThreshold = %v, want 24h", cfg.Session.InactivityThreshold)
	}
	if cfg.Session.HistoryLimit != 20 {
		t.Errorf("Session.HistoryLimit = %d, want 20", cfg.Session.HistoryLimit)
	}
	if cfg.Security.PasswordMinLength != 8 {
		t.Errorf("Security.PasswordMinLength = %d, want 8", cfg.Security.PasswordMinLength)
	}
	if cfg.Redis.Enabled {
		t.Error("Redis should be disabled by default")
	}
}

// TestDefaultConfigNeedsSecret verifies the only required setting is the JWT secret.
func TestDefaultConfigNeedsSecret(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("expected JWT_SECRET error, got %v", err)
	}

	cfg.Security.JWTSecret = testSecret
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults with secret should validate: %v", err)
	}
}

func TestLoadWithKoanf_EnvOverrides(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("IMPOSSIBLE_TRAVEL_SPEED_KMH", "900")
	t.Setenv("SESSION_INACTIVITY_THRESHOLD", "12h")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("UNRELATED_VARIABLE", "ignored")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Database.Driver != DriverMemory {
		t.Errorf("Database.Driver = %q, want memory", cfg.Database.Driver)
	}
	if !cfg.Redis.Enabled || cfg.Redis.Addr != "redis:6379" {
		t.Errorf("unexpected redis config: %+v", cfg.Redis)
	}
	if cfg.Risk.ImpossibleTravelSpeedKmh != 900 {
		t.Errorf("ImpossibleTravelSpeedKmh = %v, want 900", cfg.Risk.ImpossibleTravelSpeedKmh)
	}
	if cfg.Session.InactivityThreshold != 12*time.Hour {
		t.Errorf("InactivityThreshold = %v, want 12h", cfg.Session.InactivityThreshold)
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.Security.CORSOrigins)
	}
}

func TestLoadWithKoanf_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 7000
risk:
  high_risk_threshold: 50
session:
  history_limit: 30
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("SESSION_HISTORY_LIMIT", "40")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf failed: %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("Server.Port = %d, want 7000 from file", cfg.Server.Port)
	}
	if cfg.Risk.HighRiskThreshold != 50 {
		t.Errorf("HighRiskThreshold = %v, want 50 from file", cfg.Risk.HighRiskThreshold)
	}
	if cfg.Session.HistoryLimit != 40 {
		t.Errorf("HistoryLimit = %d, want 40 from env", cfg.Session.HistoryLimit)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Risk.CriticalRiskThreshold != 80 {
		t.Errorf("CriticalRiskThreshold = %v, want default 80", cfg.Risk.CriticalRiskThreshold)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := map[string]string{
		"HTTP_PORT":   "server.port",
		"JWT_SECRET":  "security.jwt_secret",
		"nats_url":    "events.nats_url",
		"WEBHOOK_URL": "events.webhook_url",
		"PATH":        "",
		"HOME":        "",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "HTTP_PORT"},
		{"bad environment", func(c *Config) { c.Server.Environment = "staging" }, "ENVIRONMENT"},
		{"bad driver", func(c *Config) { c.Database.Driver = "postgres" }, "DB_DRIVER"},
		{"activity path", func(c *Config) { c.Activity.Path = "" }, "ACTIVITY_PATH"},
		{"activity in memory", func(c *Config) { c.Activity.Path = ""; c.Activity.InMemory = true }, ""},
		{"redis addr", func(c *Config) { c.Redis.Enabled = true; c.Redis.Addr = "" }, "REDIS_ADDR"},
		{"bcrypt cost", func(c *Config) { c.Security.BcryptCost = 3 }, "BCRYPT_COST"},
		{"short passwords", func(c *Config) { c.Security.PasswordMinLength = 6 }, "PASSWORD_MIN_LENGTH"},
		{"wildcard cors in production", func(c *Config) { c.Server.Environment = "production" }, "CORS_ORIGINS"},
		{"speeds inverted", func(c *Config) { c.Risk.SuspiciousTravelSpeedKmh = 1000 }, "travel speeds"},
		{"thresholds inverted", func(c *Config) { c.Risk.HighRiskThreshold = 90 }, "risk thresholds"},
		{"sweep interval", func(c *Config) { c.Session.SweepInterval = 0 }, "SESSION_SWEEP_INTERVAL"},
		{"nats scheme", func(c *Config) { c.Events.NATSURL = "http://nats:4222" }, "NATS_URL"},
		{"nats ok", func(c *Config) { c.Events.NATSURL = "nats://nats:4222" }, ""},
		{"webhook scheme", func(c *Config) { c.Events.WebhookURL = "ftp://hooks" }, "WEBHOOK_URL"},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "LOG_LEVEL"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Security.JWTSecret = testSecret
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestServerAddr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 8080}
	if s.Addr() != "127.0.0.1:8080" {
		t.Errorf("Addr() = %q", s.Addr())
	}
}
