package audit

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps audit records in memory. Intended for tests and
// single-process setups; production deployments use PGStore.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Record(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *MemoryStore) Timeline(_ context.Context, q TimelineQuery) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for _, rec := range s.records {
		if rec.SubjectType != q.SubjectType || rec.SubjectID != q.SubjectID || rec.Column != q.Column {
			continue
		}
		if q.From != nil && rec.CreatedAt.Before(*q.From) {
			continue
		}
		if q.To != nil && rec.CreatedAt.After(*q.To) {
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Len reports the number of stored records. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// All returns a copy of every stored record in insertion order. Test helper.
func (s *MemoryStore) All() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Record(nil), s.records...)
}
