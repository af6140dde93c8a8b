// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

/*
Package config loads and validates the service configuration.

Configuration is layered with Koanf v2, later layers overriding earlier ones:

 1. Defaults built into defaultConfig
 2. An optional YAML file (CONFIG_PATH, or config.yaml / config.yml in the
    working directory, or /etc/sessionguard/config.yaml)
 3. Environment variables

Environment variables use flat legacy names that are mapped explicitly
to config paths, for example:

	HTTP_PORT                  -> server.port
	DB_DRIVER                  -> database.driver
	DUCKDB_PATH                -> database.path
	ACTIVITY_PATH              -> activity.path
	REDIS_ENABLED              -> redis.enabled
	REDIS_ADDR                 -> redis.addr
	JWT_SECRET                 -> security.jwt_secret
	CORS_ORIGINS               -> security.cors_origins (comma separated)
	IMPOSSIBLE_TRAVEL_SPEED_KMH -> risk.impossible_travel_speed_kmh
	SESSION_INACTIVITY_THRESHOLD -> session.inactivity_threshold
	NATS_URL                   -> events.nats_url
	WEBHOOK_URL                -> events.webhook_url
	LOG_LEVEL                  -> logging.level

Unmapped variables are ignored.

Example:

	cfg, err := config.LoadWithKoanf()
	if err != nil {
	    logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
*/
package config
