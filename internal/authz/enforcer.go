// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package authz

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"

	"github.com/tomtom215/sessionguard/internal/config"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// Objects and actions used by the API.
const (
	ObjProfile  = "profile"
	ObjDevices  = "devices"
	ObjSessions = "sessions"
	ObjRisk     = "risk"
	ObjAlerts   = "alerts"
	ObjActivity = "activity"
	ObjStream   = "stream"
	ObjUsers    = "users"

	ActRead       = "read"
	ActWrite      = "write"
	ActSweep      = "sweep"
	ActResolveAny = "resolve_any"
)

const defaultCacheTTL = 5 * time.Minute

// Enforcer wraps a synced Casbin enforcer with a decision cache.
type Enforcer struct {
	enforcer *casbin.SyncedEnforcer
	cache    *decisionCache
	fromFile bool
}

// NewEnforcer loads the model and policy from cfg paths when the files
// exist and from the embedded defaults otherwise.
func NewEnforcer(cfg *config.CasbinConfig) (*Enforcer, error) {
	var (
		m   model.Model
		err error
	)
	if cfg != nil && fileExists(cfg.ModelPath) {
		m, err = model.NewModelFromFile(cfg.ModelPath)
	} else {
		m, err = model.NewModelFromString(embeddedModel)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	var (
		enforcer *casbin.SyncedEnforcer
		fromFile bool
	)
	if cfg != nil && fileExists(cfg.PolicyPath) {
		enforcer, err = casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(cfg.PolicyPath))
		fromFile = true
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
		if err == nil {
			err = loadEmbeddedPolicy(enforcer, embeddedPolicy)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	return &Enforcer{
		enforcer: enforcer,
		cache:    newDecisionCache(defaultCacheTTL),
		fromFile: fromFile,
	}, nil
}

// loadEmbeddedPolicy adds the p and g lines of a policy CSV.
func loadEmbeddedPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		switch {
		case parts[0] == "p" && len(parts) == 4:
			if _, err := enforcer.AddPolicy(parts[1], parts[2], parts[3]); err != nil {
				return fmt.Errorf("failed to add policy %v: %w", parts[1:], err)
			}
		case parts[0] == "g" && len(parts) == 3:
			if _, err := enforcer.AddGroupingPolicy(parts[1], parts[2]); err != nil {
				return fmt.Errorf("failed to add grouping policy %v: %w", parts[1:], err)
			}
		default:
			return fmt.Errorf("malformed policy line %q", line)
		}
	}
	return nil
}

// Enforce reports whether role may perform action on object.
func (e *Enforcer) Enforce(role, object, action string) (bool, error) {
	if allowed, ok := e.cache.get(role, object, action); ok {
		return allowed, nil
	}

	allowed, err := e.enforcer.Enforce(role, object, action)
	if err != nil {
		return false, fmt.Errorf("enforcement failed: %w", err)
	}
	e.cache.set(role, object, action, allowed)
	return allowed, nil
}

// Reload re-reads a file policy and drops cached decisions. It is a no-op
// for the embedded policy.
func (e *Enforcer) Reload() error {
	if !e.fromFile {
		return nil
	}
	if err := e.enforcer.LoadPolicy(); err != nil {
		return fmt.Errorf("failed to reload policy: %w", err)
	}
	e.cache.clear()
	return nil
}

// Policy returns all p rules.
func (e *Enforcer) Policy() [][]string {
	//nolint:errcheck // GetPolicy only fails on a nil model
	policies, _ := e.enforcer.GetPolicy()
	return policies
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
