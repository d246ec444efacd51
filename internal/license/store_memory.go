package license

import (
	"context"
	"fmt"
	"sync"

	id "keygate/pkg/domain"
	"keygate/pkg/sentinel"
)

// MemoryStore stores license keys in memory for tests/dev. The store mutex
// is the exclusivity boundary for seat accounting: ConsumeSeat checks and
// increments under one critical section.
type MemoryStore struct {
	mu    sync.RWMutex
	keys  map[id.LicenseID]*Key
	byKey map[string]id.LicenseID
}

// NewMemoryStore constructs an empty in-memory license store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		keys:  make(map[id.LicenseID]*Key),
		byKey: make(map[string]id.LicenseID),
	}
}

func (s *MemoryStore) Create(_ context.Context, k *Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byKey[k.Key]; ok {
		return fmt.Errorf("license key already exists: %w", sentinel.ErrConflict)
	}
	cp := *k
	s.keys[k.ID] = &cp
	s.byKey[k.Key] = k.ID
	return nil
}

func (s *MemoryStore) ByID(_ context.Context, licenseID id.LicenseID) (*Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.keys[licenseID]
	if !ok {
		return nil, fmt.Errorf("license key not found: %w", sentinel.ErrNotFound)
	}
	cp := *k
	return &cp, nil
}

func (s *MemoryStore) ByKey(_ context.Context, key string) (*Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	licenseID, ok := s.byKey[key]
	if !ok {
		return nil, fmt.Errorf("license key not found: %w", sentinel.ErrNotFound)
	}
	cp := *s.keys[licenseID]
	return &cp, nil
}

// Update persists tenant edits. The seat counter is owned by
// ConsumeSeat/ReleaseSeat and never overwritten here.
func (s *MemoryStore) Update(_ context.Context, k *Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.keys[k.ID]
	if !ok {
		return fmt.Errorf("license key not found: %w", sentinel.ErrNotFound)
	}
	cp := *k
	cp.CurrentUsers = existing.CurrentUsers
	delete(s.byKey, existing.Key)
	s.keys[k.ID] = &cp
	s.byKey[cp.Key] = k.ID
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, licenseID id.LicenseID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.keys[licenseID]
	if !ok {
		return fmt.Errorf("license key not found: %w", sentinel.ErrNotFound)
	}
	delete(s.byKey, k.Key)
	delete(s.keys, licenseID)
	return nil
}

func (s *MemoryStore) ListByApplication(_ context.Context, appID id.AppID) ([]*Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]*Key, 0)
	for _, k := range s.keys {
		if k.AppID == appID {
			cp := *k
			keys = append(keys, &cp)
		}
	}
	return keys, nil
}

// ConsumeSeat atomically increments the seat counter iff a seat is free.
func (s *MemoryStore) ConsumeSeat(_ context.Context, licenseID id.LicenseID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.keys[licenseID]
	if !ok {
		return false, fmt.Errorf("license key not found: %w", sentinel.ErrNotFound)
	}
	if k.CurrentUsers >= k.MaxUsers {
		return false, nil
	}
	k.CurrentUsers++
	return true, nil
}

// ReleaseSeat atomically decrements the seat counter, floored at zero.
func (s *MemoryStore) ReleaseSeat(_ context.Context, licenseID id.LicenseID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.keys[licenseID]
	if !ok {
		return false, fmt.Errorf("license key not found: %w", sentinel.ErrNotFound)
	}
	if k.CurrentUsers <= 0 {
		return false, nil
	}
	k.CurrentUsers--
	return true, nil
}

func (s *MemoryStore) DeleteByApplication(_ context.Context, appID id.AppID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for licenseID, k := range s.keys {
		if k.AppID == appID {
			delete(s.byKey, k.Key)
			delete(s.keys, licenseID)
		}
	}
	return nil
}
