// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Activity ActivityConfig `koanf:"activity"`
	Redis    RedisConfig    `koanf:"redis"`
	Security SecurityConfig `koanf:"security"`
	Risk     RiskConfig     `koanf:"risk"`
	Session  SessionConfig  `koanf:"session"`
	Events   EventsConfig   `koanf:"events"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// Environment is "development" or "production". Production enables
	// stricter security validation.
	Environment string `koanf:"environment"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// IsProduction reports whether the server runs in production mode.
func (s ServerConfig) IsProduction() bool {
	return s.Environment == "production"
}

// Database drivers.
const (
	DriverDuckDB = "duckdb"
	DriverMemory = "memory"
)

// DatabaseConfig holds relational store settings.
type DatabaseConfig struct {
	// Driver selects the store: "duckdb" or "memory".
	Driver string `koanf:"driver"`
	// Path of the DuckDB file. Empty opens an in-memory DuckDB database.
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	// Threads is the DuckDB worker count. 0 uses runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// ActivityConfig holds the BadgerDB activity log settings.
type ActivityConfig struct {
	Path        string        `koanf:"path"`
	InMemory    bool          `koanf:"in_memory"`
	SyncWrites  bool          `koanf:"sync_writes"`
	Compression bool          `koanf:"compression"`
	Retention   time.Duration `koanf:"retention"`
	GCInterval  time.Duration `koanf:"gc_interval"`
}

// RedisConfig holds the active-session index settings.
type RedisConfig struct {
	Enabled      bool          `koanf:"enabled"`
	Addr         string        `koanf:"addr"`
	Password     string        `koanf:"password"`
	DB           int           `koanf:"db"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

// SecurityConfig holds authentication and request limiting settings.
type SecurityConfig struct {
	JWTSecret         string        `koanf:"jwt_secret"`
	TokenTTL          time.Duration `koanf:"token_ttl"`
	BcryptCost        int           `koanf:"bcrypt_cost"`
	PasswordMinLength int           `koanf:"password_min_length"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	// LoginRateLimitReqs limits login and register attempts per IP per window.
	LoginRateLimitReqs int          `koanf:"login_rate_limit_reqs"`
	CORSOrigins        []string     `koanf:"cors_origins"`
	Casbin             CasbinConfig `koanf:"casbin"`
}

// CasbinConfig points at optional external model and policy files.
// Empty paths use the embedded defaults.
type CasbinConfig struct {
	ModelPath  string `koanf:"model_path"`
	PolicyPath string `koanf:"policy_path"`
}

// RiskConfig holds the risk evaluator thresholds.
type RiskConfig struct {
	ImpossibleTravelSpeedKmh float64 `koanf:"impossible_travel_speed_kmh"`
	SuspiciousTravelSpeedKmh float64 `koanf:"suspicious_travel_speed_kmh"`
	HighRiskThreshold        float64 `koanf:"high_risk_threshold"`
	CriticalRiskThreshold    float64 `koanf:"critical_risk_threshold"`
}

// SessionConfig holds session ledger settings.
type SessionConfig struct {
	InactivityThreshold time.Duration `koanf:"inactivity_threshold"`
	SweepInterval       time.Duration `koanf:"sweep_interval"`
	HistoryLimit        int           `koanf:"history_limit"`
}

// EventsConfig holds event bus and alert delivery settings.
type EventsConfig struct {
	// NATSURL selects a NATS-backed bus. Empty uses an in-process bus.
	NATSURL      string `koanf:"nats_url"`
	OutputBuffer int64  `koanf:"output_buffer"`

	WebhookURL       string        `koanf:"webhook_url"`
	WebhookTimeout   time.Duration `koanf:"webhook_timeout"`
	WebhookRateLimit float64       `koanf:"webhook_rate_limit"`
	WebhookBurst     int           `koanf:"webhook_burst"`

	BreakerFailureThreshold uint32        `koanf:"breaker_failure_threshold"`
	BreakerTimeout          time.Duration `koanf:"breaker_timeout"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}
