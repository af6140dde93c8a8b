// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package activity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/goccy/go-json"

	"github.com/tomtom215/sessionguard/internal/config"
	"github.com/tomtom215/sessionguard/internal/logging"
	"github.com/tomtom215/sessionguard/internal/models"
)

// activityKeyPrefix namespaces activity entries. Keys are
// activity:<user>:<zero-padded unix nanos>:<id> so a reverse prefix scan
// yields a user's entries newest first.
const activityKeyPrefix = "activity:"

// BadgerStore is an append-only activity log in BadgerDB.
type BadgerStore struct {
	db        *badger.DB
	retention time.Duration
}

// OpenBadger opens the activity database described by cfg.
func OpenBadger(cfg *config.ActivityConfig) (*badger.DB, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
		opts.SyncWrites = cfg.SyncWrites
	}
	if cfg.Compression {
		opts.Compression = options.Snappy
	}

	// Reduce logging verbosity
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}
	return db, nil
}

// NewBadgerStore creates a store over db. Entries expire after retention;
// zero keeps them forever.
func NewBadgerStore(db *badger.DB, retention time.Duration) *BadgerStore {
	return &BadgerStore{db: db, retention: retention}
}

func userPrefix(userID string) []byte {
	return []byte(activityKeyPrefix + userID + ":")
}

func activityKey(l *models.ActivityLog) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d:%s", activityKeyPrefix, l.UserID, l.CreatedAt.UnixNano(), l.ID))
}

// Append stores l.
func (s *BadgerStore) Append(_ context.Context, l *models.ActivityLog) error {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("marshal activity: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(activityKey(l), data)
		if s.retention > 0 {
			e = e.WithTTL(s.retention)
		}
		if err := txn.SetEntry(e); err != nil {
			return fmt.Errorf("set activity: %w", err)
		}
		return nil
	})
}

// ListRecent returns up to limit of the user's entries, newest first.
func (s *BadgerStore) ListRecent(_ context.Context, userID string, limit int) ([]models.ActivityLog, error) {
	out := make([]models.ActivityLog, 0, limit)
	prefix := userPrefix(userID)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		// In reverse mode Seek lands on the last key <= the seek key.
		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix) && len(out) < limit; it.Next() {
			var l models.ActivityLog
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &l)
			}); err != nil {
				return fmt.Errorf("decode activity: %w", err)
			}
			out = append(out, l)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RunGC triggers BadgerDB value log garbage collection.
func (s *BadgerStore) RunGC() error {
	for {
		err := s.db.RunValueLogGC(0.5)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
	}
}

// GCRunner runs value log GC on an interval. It satisfies the supervisor's
// RunWithContext contract.
type GCRunner struct {
	store    *BadgerStore
	interval time.Duration
}

// NewGCRunner creates a GCRunner. Non-positive intervals default to 10 minutes.
func NewGCRunner(store *BadgerStore, interval time.Duration) *GCRunner {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &GCRunner{store: store, interval: interval}
}

// RunWithContext runs GC until ctx is canceled.
func (g *GCRunner) RunWithContext(ctx context.Context) error {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := g.store.RunGC(); err != nil {
				logging.Warn().Err(err).Msg("Activity log GC failed")
			}
		}
	}
}
