// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/sessionguard/internal/models"
)

// bcrypt ignores input beyond 72 bytes.
const maxPasswordBytes = 72

// Defaults used when the security config leaves a value unset.
const (
	DefaultBcryptCost        = 12
	DefaultPasswordMinLength = 8
)

// ValidatePassword checks the length rules for a new password.
func ValidatePassword(password string, minLength int) error {
	if len(password) < minLength {
		return models.InvalidInput(fmt.Sprintf("password must be at least %d characters", minLength))
	}
	if len(password) > maxPasswordBytes {
		return models.InvalidInput(fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes))
	}
	return nil
}

// HashPassword hashes password with bcrypt at cost.
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// dummyHash is compared against for unknown users; both paths cost one
// bcrypt comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("sessionguard-timing-equalizer"), bcrypt.DefaultCost)

// CheckPasswordOrDummy is CheckPassword that still spends a bcrypt
// comparison when hash is empty.
func CheckPasswordOrDummy(hash, password string) bool {
	if hash == "" {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return false
	}
	return CheckPassword(hash, password)
}
