package evidence

import (
	"context"
	"sync"
)

// Store holds at most one record per node. Upsert always replaces.
type Store interface {
	Get(ctx context.Context, nodeID string) (Record, bool)
	All(ctx context.Context) map[string]Record
	Upsert(ctx context.Context, record Record)
}

// InMemoryStore is a last-write-wins map guarded by a RWMutex.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]Record)}
}

// Get returns the node's record, or ok=false when none is on file.
func (s *InMemoryStore) Get(_ context.Context, nodeID string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[nodeID]
	if !ok {
		return Record{}, false
	}
	return rec.Clone(), true
}

// All returns a point-in-time copy of every record.
func (s *InMemoryStore) All(_ context.Context) map[string]Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Record, len(s.records))
	for id, rec := range s.records {
		out[id] = rec.Clone()
	}
	return out
}

// Upsert stores record under record.NodeID, replacing any previous one.
func (s *InMemoryStore) Upsert(_ context.Context, record Record) {
	stored := record.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.NodeID] = stored
}
