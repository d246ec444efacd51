package webhook

import (
	"context"
	"fmt"
	"sync"

	id "keygate/pkg/domain"
	"keygate/pkg/sentinel"
)

// MemoryStore stores webhooks in memory for tests/dev.
type MemoryStore struct {
	mu    sync.RWMutex
	hooks map[id.WebhookID]*Hook
}

// NewMemoryStore constructs an empty in-memory webhook store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{hooks: make(map[id.WebhookID]*Hook)}
}

func (s *MemoryStore) Create(_ context.Context, h *Hook) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *h
	cp.Events = append([]id.Event(nil), h.Events...)
	s.hooks[h.ID] = &cp
	return nil
}

func (s *MemoryStore) ByID(_ context.Context, hookID id.WebhookID) (*Hook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.hooks[hookID]
	if !ok {
		return nil, fmt.Errorf("webhook not found: %w", sentinel.ErrNotFound)
	}
	cp := *h
	return &cp, nil
}

func (s *MemoryStore) Update(_ context.Context, h *Hook) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hooks[h.ID]; !ok {
		return fmt.Errorf("webhook not found: %w", sentinel.ErrNotFound)
	}
	cp := *h
	cp.Events = append([]id.Event(nil), h.Events...)
	s.hooks[h.ID] = &cp
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, hookID id.WebhookID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hooks[hookID]; !ok {
		return fmt.Errorf("webhook not found: %w", sentinel.ErrNotFound)
	}
	delete(s.hooks, hookID)
	return nil
}

func (s *MemoryStore) ListByApplication(_ context.Context, appID id.AppID) ([]*Hook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hooks := make([]*Hook, 0)
	for _, h := range s.hooks {
		if h.AppID == appID {
			cp := *h
			hooks = append(hooks, &cp)
		}
	}
	return hooks, nil
}

func (s *MemoryStore) ListActiveForEvent(_ context.Context, appID id.AppID, event id.Event) ([]*Hook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hooks := make([]*Hook, 0)
	for _, h := range s.hooks {
		if h.AppID == appID && h.Active && h.Subscribed(event) {
			cp := *h
			hooks = append(hooks, &cp)
		}
	}
	return hooks, nil
}

func (s *MemoryStore) DeleteByApplication(_ context.Context, appID id.AppID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for hookID, h := range s.hooks {
		if h.AppID == appID {
			delete(s.hooks, hookID)
		}
	}
	return nil
}
