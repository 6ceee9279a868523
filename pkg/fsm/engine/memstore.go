package engine

import (
	"context"
	"fmt"
	"maps"
	"sync"
)

// MemoryStore keeps persisted state values in memory, keyed by entity type,
// primary key and column. For tests and prototypes; production hosts back
// Store with their own persistence.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]string)}
}

func (s *MemoryStore) ReadState(_ context.Context, subject Subject, column string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[stateKey(subject.EntityType(), subject.PrimaryKey(), column)], nil
}

func (s *MemoryStore) WriteState(_ context.Context, subject Subject, column, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[stateKey(subject.EntityType(), subject.PrimaryKey(), column)] = value
	return nil
}

// Seed sets a persisted value directly, bypassing the engine. Test helper.
func (s *MemoryStore) Seed(entityType, id, column, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[stateKey(entityType, id, column)] = value
}

// Get reads a persisted value directly. Test helper.
func (s *MemoryStore) Get(entityType, id, column string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[stateKey(entityType, id, column)]
}

func (s *MemoryStore) snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.states)
}

func (s *MemoryStore) restore(snap map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = snap
}

func stateKey(entityType, id, column string) string {
	return fmt.Sprintf("%s:%s:%s", entityType, id, column)
}

// MemoryTransactor gives a MemoryStore transactional semantics by snapshot
// and restore: when fn returns an error, every write made inside the window
// is undone.
type MemoryTransactor struct {
	store *MemoryStore
}

func NewMemoryTransactor(store *MemoryStore) *MemoryTransactor {
	return &MemoryTransactor{store: store}
}

func (t *MemoryTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	snap := t.store.snapshot()
	if err := fn(ctx); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}
