package session

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryStore is a bounded in-process Store. Entries expire after ttl and the least
// recently used session is evicted when the store is full.
type MemoryStore struct {
	cache *expirable.LRU[string, *Snapshot]
}

// NewMemoryStore creates a store holding up to maxEntries sessions. A zero ttl means
// entries never expire.
func NewMemoryStore(maxEntries int, ttl time.Duration) (*MemoryStore, error) {
	if maxEntries <= 0 {
		return nil, errors.New("max entries must be positive")
	}
	return &MemoryStore{cache: expirable.NewLRU[string, *Snapshot](maxEntries, nil, ttl)}, nil
}

// Put stores a copy of snap for the session.
func (m *MemoryStore) Put(_ context.Context, sessionID string, snap *Snapshot) error {
	if sessionID == "" {
		return errors.New("session id is required")
	}
	if snap == nil {
		return errors.New("snapshot is required")
	}
	m.cache.Add(sessionID, snap.clone())
	return nil
}

// Get returns a copy of the session's snapshot.
func (m *MemoryStore) Get(_ context.Context, sessionID string) (*Snapshot, error) {
	snap, ok := m.cache.Get(sessionID)
	if !ok {
		return nil, nil
	}
	return snap.clone(), nil
}

// Len returns the number of live sessions.
func (m *MemoryStore) Len() int {
	return m.cache.Len()
}

// Close drops every entry.
func (m *MemoryStore) Close() error {
	m.cache.Purge()
	return nil
}
