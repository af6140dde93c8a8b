// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/sessionguard/config.yaml",
	"/etc/sessionguard/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Database: DatabaseConfig{
			Driver:    DriverDuckDB,
			Path:      "/data/sessionguard.duckdb",
			MaxMemory: "1GB",
			Threads:   0, // 0 = use runtime.NumCPU()
		},
		Activity: ActivityConfig{
			Path:        "/data/activity",
			InMemory:    false,
			SyncWrites:  false,
			Compression: true,
			Retention:   90 * 24 * time.Hour,
			GCInterval:  10 * time.Minute,
		},
		Redis: RedisConfig{
			Enabled:      false,
			Addr:         "127.0.0.1:6379",
			DB:           0,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Security: SecurityConfig{
			JWTSecret:          "",
			TokenTTL:           24 * time.Hour,
			BcryptCost:         12,
			PasswordMinLength:  8,
			RateLimitReqs:      100,
			RateLimitWindow:    time.Minute,
			RateLimitDisabled:  false,
			LoginRateLimitReqs: 10,
			CORSOrigins:        []string{"*"},
		},
		Risk: RiskConfig{
			ImpossibleTravelSpeedKmh: 800,
			SuspiciousTravelSpeedKmh: 500,
			HighRiskThreshold:        60,
			CriticalRiskThreshold:    80,
		},
		Session: SessionConfig{
			InactivityThreshold: 24 * time.Hour,
			SweepInterval:       15 * time.Minute,
			HistoryLimit:        20,
		},
		Events: EventsConfig{
			NATSURL:                 "",
			OutputBuffer:            256,
			WebhookURL:              "",
			WebhookTimeout:          10 * time.Second,
			WebhookRateLimit:        5,
			WebhookBurst:            10,
			BreakerFailureThreshold: 5,
			BreakerTimeout:          30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars arrive as strings; YAML values are already slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps flat environment variable names (lowercased) to config paths.
var envMappings = map[string]string{
	// Server
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_idle_timeout":     "server.idle_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"environment":           "server.environment",

	// Database
	"db_driver":         "database.driver",
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	// Activity log
	"activity_path":        "activity.path",
	"activity_in_memory":   "activity.in_memory",
	"activity_sync_writes": "activity.sync_writes",
	"activity_compression": "activity.compression",
	"activity_retention":   "activity.retention",
	"activity_gc_interval": "activity.gc_interval",

	// Redis
	"redis_enabled":       "redis.enabled",
	"redis_addr":          "redis.addr",
	"redis_password":      "redis.password",
	"redis_db":            "redis.db",
	"redis_dial_timeout":  "redis.dial_timeout",
	"redis_read_timeout":  "redis.read_timeout",
	"redis_write_timeout": "redis.write_timeout",

	// Security
	"jwt_secret":          "security.jwt_secret",
	"token_ttl":           "security.token_ttl",
	"bcrypt_cost":         "security.bcrypt_cost",
	"password_min_length": "security.password_min_length",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"login_rate_limit":    "security.login_rate_limit_reqs",
	"cors_origins":        "security.cors_origins",
	"casbin_model_path":   "security.casbin.model_path",
	"casbin_policy_path":  "security.casbin.policy_path",

	// Risk
	"impossible_travel_speed_kmh": "risk.impossible_travel_speed_kmh",
	"suspicious_travel_speed_kmh": "risk.suspicious_travel_speed_kmh",
	"high_risk_threshold":         "risk.high_risk_threshold",
	"critical_risk_threshold":     "risk.critical_risk_threshold",

	// Session
	"session_inactivity_threshold": "session.inactivity_threshold",
	"session_sweep_interval":       "session.sweep_interval",
	"session_history_limit":        "session.history_limit",

	// Events
	"nats_url":                  "events.nats_url",
	"events_output_buffer":      "events.output_buffer",
	"webhook_url":               "events.webhook_url",
	"webhook_timeout":           "events.webhook_timeout",
	"webhook_rate_limit":        "events.webhook_rate_limit",
	"webhook_burst":             "events.webhook_burst",
	"breaker_failure_threshold": "events.breaker_failure_threshold",
	"breaker_timeout":           "events.breaker_timeout",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
// Unmapped keys return "" so koanf skips them.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
