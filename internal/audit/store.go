// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package audit keeps the history of unlock decisions in BadgerDB.
package audit

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/relabs-tech/gesture_lock/internal/lock"
)

var keyPrefix = []byte("attempt/")

// Store is an append-only log of decisions keyed by time.
type Store struct {
	mu  sync.Mutex
	db  *badger.DB
	seq uint32
}

// Summary counts the stored decisions.
type Summary struct {
	Total    int `json:"total"`
	Unlocked int `json:"unlocked"`
	Denied   int `json:"denied"`
}

// Open opens or creates the database directory at path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).
		WithCompression(options.ZSTD).
		WithNumVersionsToKeep(1).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	log.Printf("audit: database opened at %s", path)
	return &Store{db: db}, nil
}

// decisionKey is the prefix, the big-endian unix-nano timestamp and a
// sequence number that separates decisions within the same nanosecond.
func decisionKey(d lock.Decision, seq uint32) []byte {
	key := make([]byte, len(keyPrefix)+8+4)
	n := copy(key, keyPrefix)
	binary.BigEndian.PutUint64(key[n:], uint64(d.At.UnixNano()))
	binary.BigEndian.PutUint32(key[n+8:], seq)
	return key
}

// Record appends d.
func (s *Store) Record(d lock.Decision) error {
	val, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("audit: encode decision: %w", err)
	}

	s.mu.Lock()
	s.seq++
	key := decisionKey(d, s.seq)
	s.mu.Unlock()

	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, val)
	}); err != nil {
		return fmt.Errorf("audit: write decision: %w", err)
	}
	return nil
}

// Recent returns up to limit decisions, newest first. A non-positive limit
// returns all of them.
func (s *Store) Recent(limit int) ([]lock.Decision, error) {
	var out []lock.Decision
	err := s.scan(func(d lock.Decision) bool {
		out = append(out, d)
		return limit <= 0 || len(out) < limit
	})
	return out, err
}

// Summary counts every stored decision.
func (s *Store) Summary() (Summary, error) {
	var sum Summary
	err := s.scan(func(d lock.Decision) bool {
		sum.Total++
		if d.Unlocked {
			sum.Unlocked++
		} else {
			sum.Denied++
		}
		return true
	})
	return sum, err
}

// scan walks decisions newest first until fn returns false.
func (s *Store) scan(fn func(lock.Decision) bool) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = keyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte(nil), keyPrefix...), 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF)
		for it.Seek(seek); it.ValidForPrefix(keyPrefix); it.Next() {
			var d lock.Decision
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &d)
			}); err != nil {
				return fmt.Errorf("audit: decode %x: %w", it.Item().Key(), err)
			}
			if !fn(d) {
				return nil
			}
		}
		return nil
	})
}

// OnTransition is a no-op; only decisions are audited.
func (s *Store) OnTransition(from, to lock.State) {}

// OnDecision records d, logging failures instead of returning them.
func (s *Store) OnDecision(d lock.Decision) {
	if err := s.Record(d); err != nil {
		log.Printf("audit: %v", err)
	}
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return errors.New("audit: store not open")
	}
	return s.db.Close()
}
