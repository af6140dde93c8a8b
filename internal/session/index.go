// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tomtom215/sessionguard/internal/config"
	"github.com/tomtom215/sessionguard/internal/logging"
)

// ErrIndexDisabled is returned by NopIndex.Count.
var ErrIndexDisabled = errors.New("session index disabled")

// Index mirrors each user's active session IDs outside the store.
// The store stays authoritative; index failures are logged, not returned
// to the login path.
type Index interface {
	Add(ctx context.Context, userID, sessionID string) error
	Remove(ctx context.Context, userID, sessionID string) error
	Count(ctx context.Context, userID string) (int64, error)
}

// NopIndex is used when Redis is not configured.
type NopIndex struct{}

// Add does nothing.
func (NopIndex) Add(context.Context, string, string) error { return nil }

// Remove does nothing.
func (NopIndex) Remove(context.Context, string, string) error { return nil }

// Count always fails with ErrIndexDisabled.
func (NopIndex) Count(context.Context, string) (int64, error) { return 0, ErrIndexDisabled }

// RedisIndex keeps a set per user under "user:{id}:sessions".
type RedisIndex struct {
	rdb *redis.Client
}

// NewRedisIndex wraps an existing client.
func NewRedisIndex(rdb *redis.Client) *RedisIndex {
	return &RedisIndex{rdb: rdb}
}

// ConnectRedis dials Redis per cfg and verifies the connection.
func ConnectRedis(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logging.Info().Str("addr", cfg.Addr).Msg("Redis connected")
	return rdb, nil
}

func sessionsKey(userID string) string {
	return "user:" + userID + ":sessions"
}

// Add records sessionID as active for userID.
func (r *RedisIndex) Add(ctx context.Context, userID, sessionID string) error {
	return r.rdb.SAdd(ctx, sessionsKey(userID), sessionID).Err()
}

// Remove drops sessionID from userID's active set.
func (r *RedisIndex) Remove(ctx context.Context, userID, sessionID string) error {
	return r.rdb.SRem(ctx, sessionsKey(userID), sessionID).Err()
}

// Count returns the size of userID's active set.
func (r *RedisIndex) Count(ctx context.Context, userID string) (int64, error) {
	return r.rdb.SCard(ctx, sessionsKey(userID)).Result()
}

// Members returns userID's active session IDs.
func (r *RedisIndex) Members(ctx context.Context, userID string) ([]string, error) {
	return r.rdb.SMembers(ctx, sessionsKey(userID)).Result()
}
