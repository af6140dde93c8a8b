// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package models

import (
	"strings"
	"time"
)

// Role constants. These align with the Casbin policy in internal/authz/policy.csv.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// IsValidRole checks if a role name is valid.
func IsValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

// SubscriptionTier selects the device and session limits of an account.
type SubscriptionTier string

const (
	TierFree       SubscriptionTier = "free"
	TierBasic      SubscriptionTier = "basic"
	TierPremium    SubscriptionTier = "premium"
	TierEnterprise SubscriptionTier = "enterprise"
)

// TierLimits are the per-tier caps applied at registration.
type TierLimits struct {
	MaxDevices  int
	MaxSessions int
}

var tierLimits = map[SubscriptionTier]TierLimits{
	TierFree:       {MaxDevices: 2, MaxSessions: 1},
	TierBasic:      {MaxDevices: 3, MaxSessions: 2},
	TierPremium:    {MaxDevices: 5, MaxSessions: 3},
	TierEnterprise: {MaxDevices: 10, MaxSessions: 5},
}

// ParseTier normalizes a tier name. Unknown or empty names yield free.
func ParseTier(s string) SubscriptionTier {
	t := SubscriptionTier(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := tierLimits[t]; ok {
		return t
	}
	return TierFree
}

// Limits returns the caps for the tier.
func (t SubscriptionTier) Limits() TierLimits {
	if l, ok := tierLimits[t]; ok {
		return l
	}
	return tierLimits[TierFree]
}

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	AccountActive              AccountStatus = "ACTIVE"
	AccountSuspended           AccountStatus = "SUSPENDED"
	AccountLocked              AccountStatus = "LOCKED"
	AccountPendingVerification AccountStatus = "PENDING_VERIFICATION"
)

// Valid reports whether s is a known account status.
func (s AccountStatus) Valid() bool {
	switch s {
	case AccountActive, AccountSuspended, AccountLocked, AccountPendingVerification:
		return true
	}
	return false
}

// User is an account.
type User struct {
	ID                    string           `json:"id"`
	Email                 string           `json:"email"`
	PasswordHash          string           `json:"-"`
	Role                  string           `json:"role"`
	SubscriptionTier      SubscriptionTier `json:"subscription_tier"`
	AccountStatus         AccountStatus    `json:"account_status"`
	MaxConcurrentSessions int              `json:"max_concurrent_sessions"`
	MaxDevicesAllowed     int              `json:"max_devices_allowed"`
	RiskScore             float64          `json:"risk_score"`
	LastLoginAt           *time.Time       `json:"last_login_at,omitempty"`
	CreatedAt             time.Time        `json:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at"`
}

// IsActive reports whether the account may log in.
func (u *User) IsActive() bool {
	return u.AccountStatus == AccountActive
}

// SessionCap returns the concurrent session cap, never below 1.
func (u *User) SessionCap() int {
	if u.MaxConcurrentSessions < 1 {
		return 1
	}
	return u.MaxConcurrentSessions
}
