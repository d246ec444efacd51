package blacklist

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	id "keygate/pkg/domain"
	"keygate/pkg/sentinel"
)

// MemoryStore stores denylist rules in memory for tests/dev.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*Entry
}

// NewMemoryStore constructs an empty in-memory blacklist store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[uuid.UUID]*Entry)}
}

func (s *MemoryStore) Create(_ context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.entries[e.ID] = &cp
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, entryID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entryID]; !ok {
		return fmt.Errorf("blacklist entry not found: %w", sentinel.ErrNotFound)
	}
	delete(s.entries, entryID)
	return nil
}

func (s *MemoryStore) ListByApplication(_ context.Context, appID id.AppID) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]*Entry, 0)
	for _, e := range s.entries {
		if e.AppID == appID {
			cp := *e
			entries = append(entries, &cp)
		}
	}
	return entries, nil
}

func (s *MemoryStore) Matches(_ context.Context, appID id.AppID, entryType EntryType, value string) (bool, error) {
	if value == "" {
		return false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.AppID == appID && e.Type == entryType && e.Value == value {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) DeleteByApplication(_ context.Context, appID id.AppID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for entryID, e := range s.entries {
		if e.AppID == appID {
			delete(s.entries, entryID)
		}
	}
	return nil
}
