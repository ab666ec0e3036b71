package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps records in memory. Used when Supabase is not configured
// and by tests.
type MemoryStore struct {
	mu      sync.Mutex
	records []Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, rec Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()
	return nil
}

// ListByUser implements Store. Most recent first.
func (s *MemoryStore) ListByUser(_ context.Context, userID, sessionID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Record
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		r := s.records[i]
		if r.UserID != userID {
			continue
		}
		if sessionID != "" && r.SessionID != sessionID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// AggregateByUser implements Store.
func (s *MemoryStore) AggregateByUser(_ context.Context, userID string) (Aggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var mine []Record
	for _, r := range s.records {
		if r.UserID == userID {
			mine = append(mine, r)
		}
	}
	return aggregate(mine), nil
}
