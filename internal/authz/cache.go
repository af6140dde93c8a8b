// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package authz

import (
	"sync"
	"time"
)

type decisionKey struct {
	role, object, action string
}

type decision struct {
	allowed   bool
	expiresAt time.Time
}

// decisionCache memoizes enforcement results. Expired entries are
// replaced on the next lookup.
type decisionCache struct {
	ttl   time.Duration
	now   func() time.Time
	mu    sync.RWMutex
	items map[decisionKey]decision
}

func newDecisionCache(ttl time.Duration) *decisionCache {
	return &decisionCache{
		ttl:   ttl,
		now:   time.Now,
		items: make(map[decisionKey]decision),
	}
}

func (c *decisionCache) get(role, object, action string) (allowed, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	d, found := c.items[decisionKey{role, object, action}]
	if !found || c.now().After(d.expiresAt) {
		return false, false
	}
	return d.allowed, true
}

func (c *decisionCache) set(role, object, action string, allowed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[decisionKey{role, object, action}] = decision{allowed: allowed, expiresAt: c.now().Add(c.ttl)}
}

func (c *decisionCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[decisionKey]decision)
}
