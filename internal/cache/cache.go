// KeepWatching - Media Tracking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/keepwatching

// Package cache is the local snapshot store backed by BadgerDB.
//
// It mirrors a small set of server records (account, profiles, preferences)
// as denormalized JSON snapshots keyed by fixed strings. The cache is a pure
// read-through seed: stores load it eagerly at construction for a
// faster-than-network first render, and the following network fetch always
// supersedes it. It is never the system of record, carries no expiry, and is
// purged entirely on logout and account deletion.
package cache

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/keepwatching/internal/metrics"
)

// Fixed snapshot keys.
const (
	KeyAccount     = "account"
	KeyProfiles    = "profiles"
	KeyPreferences = "preferences"
)

// snapshotKeyPrefix namespaces snapshot entries in the key space.
const snapshotKeyPrefix = "snapshot:"

// ErrSnapshotNotFound is returned by Get when no snapshot exists for a key.
var ErrSnapshotNotFound = errors.New("cache: snapshot not found")

// Store is a snapshot store over a badger database.
type Store struct {
	db *badger.DB
}

// Open opens (creating if needed) a snapshot store in dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open snapshot cache: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a store without disk persistence. Used by tests and
// ephemeral runs.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory snapshot cache: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Set stores value as the JSON snapshot for key.
func (s *Store) Set(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		metrics.CacheOperations.WithLabelValues("set", "error").Inc()
		return fmt.Errorf("marshal snapshot %q: %w", key, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(snapshotKeyPrefix+key), data)
	})
	if err != nil {
		metrics.CacheOperations.WithLabelValues("set", "error").Inc()
		return fmt.Errorf("set snapshot %q: %w", key, err)
	}

	metrics.CacheOperations.WithLabelValues("set", "success").Inc()
	return nil
}

// Get unmarshals the snapshot for key into out.
// Returns ErrSnapshotNotFound when the key has no snapshot.
func (s *Store) Get(key string, out any) error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(snapshotKeyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrSnapshotNotFound
		}
		if err != nil {
			return fmt.Errorf("get snapshot %q: %w", key, err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})

	switch {
	case err == nil:
		metrics.CacheOperations.WithLabelValues("get", "hit").Inc()
	case errors.Is(err, ErrSnapshotNotFound):
		metrics.CacheOperations.WithLabelValues("get", "miss").Inc()
	default:
		metrics.CacheOperations.WithLabelValues("get", "error").Inc()
	}
	return err
}

// Delete removes the snapshot for key. Deleting a missing key is not an error.
func (s *Store) Delete(key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(snapshotKeyPrefix + key))
	})
	if err != nil {
		metrics.CacheOperations.WithLabelValues("delete", "error").Inc()
		return fmt.Errorf("delete snapshot %q: %w", key, err)
	}
	metrics.CacheOperations.WithLabelValues("delete", "success").Inc()
	return nil
}

// Purge removes every snapshot. Called on logout and account deletion so no
// cached entity outlives its owning session.
func (s *Store) Purge() error {
	err := s.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(snapshotKeyPrefix)})
		defer it.Close()

		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		metrics.CacheOperations.WithLabelValues("purge", "error").Inc()
		return fmt.Errorf("purge snapshots: %w", err)
	}
	metrics.CacheOperations.WithLabelValues("purge", "success").Inc()
	return nil
}
