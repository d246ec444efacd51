package user

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	id "keygate/pkg/domain"
	"keygate/pkg/sentinel"
)

// MemoryStore stores users in memory for tests/dev.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[id.UserID]*User
	byUsername map[usernameKey]id.UserID
}

type usernameKey struct {
	appID    id.AppID
	username string
}

// NewMemoryStore constructs an empty in-memory user store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[id.UserID]*User),
		byUsername: make(map[usernameKey]id.UserID),
	}
}

func key(appID id.AppID, username string) usernameKey {
	return usernameKey{appID: appID, username: strings.ToLower(username)}
}

func (s *MemoryStore) Create(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(u.AppID, u.Username)
	if _, ok := s.byUsername[k]; ok {
		return fmt.Errorf("username already taken: %w", sentinel.ErrConflict)
	}
	cp := *u
	s.users[u.ID] = &cp
	s.byUsername[k] = u.ID
	return nil
}

func (s *MemoryStore) ByID(_ context.Context, userID id.UserID) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) ByUsername(_ context.Context, appID id.AppID, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.byUsername[key(appID, username)]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	cp := *s.users[userID]
	return &cp, nil
}

func (s *MemoryStore) ByEmail(_ context.Context, appID id.AppID, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.AppID == appID && strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

func (s *MemoryStore) Update(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[u.ID]
	if !ok {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	newKey := key(u.AppID, u.Username)
	oldKey := key(existing.AppID, existing.Username)
	if newKey != oldKey {
		if _, taken := s.byUsername[newKey]; taken {
			return fmt.Errorf("username already taken: %w", sentinel.ErrConflict)
		}
		delete(s.byUsername, oldKey)
		s.byUsername[newKey] = u.ID
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	delete(s.byUsername, key(u.AppID, u.Username))
	delete(s.users, userID)
	return nil
}

func (s *MemoryStore) ListByApplication(_ context.Context, appID id.AppID) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]*User, 0)
	for _, u := range s.users {
		if u.AppID == appID {
			cp := *u
			users = append(users, &cp)
		}
	}
	return users, nil
}

func (s *MemoryStore) CountByApplication(_ context.Context, appID id.AppID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, u := range s.users {
		if u.AppID == appID {
			n++
		}
	}
	return n, nil
}

// BindHwidIfUnset sets the hwid iff currently unset, under one critical
// section, and returns the bound value.
func (s *MemoryStore) BindHwidIfUnset(_ context.Context, userID id.UserID, hwid string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return "", fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	if u.Hwid == "" {
		u.Hwid = hwid
	}
	return u.Hwid, nil
}

func (s *MemoryStore) RecordAttempt(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	u.LoginAttempts++
	return nil
}

func (s *MemoryStore) RecordLogin(_ context.Context, userID id.UserID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	t := at
	u.LastLogin = &t
	return nil
}

func (s *MemoryStore) DeleteByApplication(_ context.Context, appID id.AppID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, u := range s.users {
		if u.AppID == appID {
			delete(s.byUsername, key(u.AppID, u.Username))
			delete(s.users, userID)
		}
	}
	return nil
}
