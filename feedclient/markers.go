// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package feedclient

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.etcd.io/bbolt"
)

// Markers remembers which option this client voted for in each poll.
// It only guards the local user against double submits; the server does
// not check it.
type Markers interface {
	Voted(pollID string) (optionID string, ok bool, err error)
	// MarkIfAbsent records optionID unless the poll already has a marker,
	// in which case it returns the earlier option and marked is false.
	MarkIfAbsent(pollID, optionID string) (prev string, marked bool, err error)
	Clear(pollID string) error
}

// MemoryMarkers keeps markers for the life of the process.
type MemoryMarkers struct {
	mu sync.Mutex
	m  map[string]string
}

func NewMemoryMarkers() *MemoryMarkers {
	return &MemoryMarkers{m: make(map[string]string)}
}

func (m *MemoryMarkers) Voted(pollID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	opt, ok := m.m[pollID]
	return opt, ok, nil
}

func (m *MemoryMarkers) MarkIfAbsent(pollID, optionID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.m[pollID]; ok {
		return prev, false, nil
	}
	m.m[pollID] = optionID
	return "", true, nil
}

func (m *MemoryMarkers) Clear(pollID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.m, pollID)
	return nil
}

const votedBucket = "voted"

// BoltMarkers keeps markers in a BoltDB file so they survive restarts.
type BoltMarkers struct {
	db *bbolt.DB
}

// OpenBoltMarkers opens (or creates) the marker file at path.
func OpenBoltMarkers(path string) (*BoltMarkers, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("marker path is required")
	}

	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open marker db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(votedBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create marker bucket: %w", err)
	}

	return &BoltMarkers{db: db}, nil
}

func (b *BoltMarkers) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func (b *BoltMarkers) Voted(pollID string) (string, bool, error) {
	var opt string
	var ok bool
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(votedBucket))
		if bucket == nil {
			return fmt.Errorf("marker bucket is missing")
		}
		if v := bucket.Get([]byte(pollID)); v != nil {
			opt, ok = string(v), true
		}
		return nil
	})
	return opt, ok, err
}

// MarkIfAbsent checks and writes in one update transaction, so two
// processes sharing the file cannot both claim the poll.
func (b *BoltMarkers) MarkIfAbsent(pollID, optionID string) (string, bool, error) {
	var prev string
	var marked bool
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(votedBucket))
		if bucket == nil {
			return fmt.Errorf("marker bucket is missing")
		}
		if v := bucket.Get([]byte(pollID)); v != nil {
			prev = string(v)
			return nil
		}
		marked = true
		return bucket.Put([]byte(pollID), []byte(optionID))
	})
	if err != nil {
		return "", false, err
	}
	return prev, marked, nil
}

func (b *BoltMarkers) Clear(pollID string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(votedBucket))
		if bucket == nil {
			return fmt.Errorf("marker bucket is missing")
		}
		return bucket.Delete([]byte(pollID))
	})
}
