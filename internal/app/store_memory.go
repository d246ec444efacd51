package app

import (
	"context"
	"fmt"
	"sync"

	id "keygate/pkg/domain"
	"keygate/pkg/sentinel"
)

// MemoryStore stores applications in memory for tests/dev.
type MemoryStore struct {
	mu       sync.RWMutex
	apps     map[id.AppID]*Application
	byAPIKey map[string]id.AppID
}

// NewMemoryStore constructs an empty in-memory application store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		apps:     make(map[id.AppID]*Application),
		byAPIKey: make(map[string]id.AppID),
	}
}

func (s *MemoryStore) Create(_ context.Context, a *Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byAPIKey[a.APIKey]; ok {
		return fmt.Errorf("api key already in use: %w", sentinel.ErrConflict)
	}
	if _, ok := s.apps[a.ID]; ok {
		return fmt.Errorf("application already exists: %w", sentinel.ErrConflict)
	}
	cp := *a
	s.apps[a.ID] = &cp
	s.byAPIKey[a.APIKey] = a.ID
	return nil
}

func (s *MemoryStore) ByID(_ context.Context, appID id.AppID) (*Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.apps[appID]
	if !ok {
		return nil, fmt.Errorf("application not found: %w", sentinel.ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) ByAPIKey(_ context.Context, apiKey string) (*Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	appID, ok := s.byAPIKey[apiKey]
	if !ok {
		return nil, fmt.Errorf("application not found: %w", sentinel.ErrNotFound)
	}
	cp := *s.apps[appID]
	return &cp, nil
}

// Update persists changes to an application. The API key is immutable: the
// stored key always wins over whatever the caller passed in.
func (s *MemoryStore) Update(_ context.Context, a *Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.apps[a.ID]
	if !ok {
		return fmt.Errorf("application not found: %w", sentinel.ErrNotFound)
	}
	cp := *a
	cp.APIKey = existing.APIKey
	s.apps[a.ID] = &cp
	return nil
}

func (s *MemoryStore) UpdateAPIKey(_ context.Context, appID id.AppID, apiKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.apps[appID]
	if !ok {
		return fmt.Errorf("application not found: %w", sentinel.ErrNotFound)
	}
	if holder, taken := s.byAPIKey[apiKey]; taken && holder != appID {
		return fmt.Errorf("api key already in use: %w", sentinel.ErrConflict)
	}
	delete(s.byAPIKey, a.APIKey)
	a.APIKey = apiKey
	s.byAPIKey[apiKey] = appID
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, appID id.AppID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.apps[appID]
	if !ok {
		return fmt.Errorf("application not found: %w", sentinel.ErrNotFound)
	}
	delete(s.byAPIKey, a.APIKey)
	delete(s.apps, appID)
	return nil
}

func (s *MemoryStore) ListByTenant(_ context.Context, tenantID id.TenantID) ([]*Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	apps := make([]*Application, 0)
	for _, a := range s.apps {
		if a.TenantID == tenantID {
			cp := *a
			apps = append(apps, &cp)
		}
	}
	return apps, nil
}
