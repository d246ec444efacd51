package audit

import (
	"context"
	"sync"

	id "keygate/pkg/domain"
)

// MemoryStore keeps activity logs in memory for tests/dev, newest last.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewMemoryStore constructs an empty in-memory audit store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

// ListByApplication returns the most recent entries for an application,
// newest first, capped at limit (0 = no cap).
func (s *MemoryStore) ListByApplication(_ context.Context, appID id.AppID, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]Entry, 0)
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].AppID != appID {
			continue
		}
		entries = append(entries, s.entries[i])
		if limit > 0 && len(entries) >= limit {
			break
		}
	}
	return entries, nil
}
