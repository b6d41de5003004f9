// Homestead - Homelab Operations and Streaming Control
// Copyright 2026 Homestead contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/homelab-ops/homestead

package alerts

import (
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"
)

// Key layout: alert:<unix-nano>:<id> so keys sort chronologically and a
// reverse iteration yields the most recent alerts first.
const alertKeyPrefix = "alert:"

// alertTTL bounds how long replayable alerts are retained.
const alertTTL = 7 * 24 * time.Hour

// Store persists alerts in BadgerDB for overlay replay across reconnects
// and server restarts.
type Store struct {
	db *badger.DB
}

// OpenStore opens (or creates) a Badger-backed alert store at path.
func OpenStore(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).
		WithLogger(nil).
		WithIndexCacheSize(16 << 20)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open alert store: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStore wraps an already-open Badger database. Used by tests.
func NewStore(db *badger.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save persists an alert with a retention TTL.
func (s *Store) Save(alert *Alert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	key := []byte(fmt.Sprintf("%s%020d:%s", alertKeyPrefix, alert.Timestamp.UnixNano(), alert.ID))
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key, data).WithTTL(alertTTL)
		return txn.SetEntry(entry)
	})
}

// Recent returns up to limit alerts, newest first.
func (s *Store) Recent(limit int) ([]*Alert, error) {
	if limit <= 0 {
		return nil, nil
	}

	var alerts []*Alert
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(alertKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration needs a seek key past the prefix range.
		seek := append([]byte(alertKeyPrefix), 0xff)
		for it.Seek(seek); it.ValidForPrefix([]byte(alertKeyPrefix)) && len(alerts) < limit; it.Next() {
			var alert Alert
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &alert)
			})
			if err != nil {
				return fmt.Errorf("decode alert: %w", err)
			}
			alerts = append(alerts, &alert)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return alerts, nil
}
