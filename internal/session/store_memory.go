package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	id "keygate/pkg/domain"
	"keygate/pkg/sentinel"
)

// MemoryStore stores sessions in memory for tests/dev. The map insert under
// the store mutex is the check-and-insert boundary for token uniqueness.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session // keyed by token
}

// NewMemoryStore constructs an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (s *MemoryStore) Create(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.Token]; ok {
		return fmt.Errorf("session token collision: %w", sentinel.ErrConflict)
	}
	cp := *sess
	s.sessions[sess.Token] = &cp
	return nil
}

func (s *MemoryStore) ByToken(_ context.Context, token string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[token]
	if !ok {
		return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	cp := *sess
	return &cp, nil
}

func (s *MemoryStore) ListByApplication(_ context.Context, appID id.AppID) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessions := make([]*Session, 0)
	for _, sess := range s.sessions {
		if sess.AppID == appID {
			cp := *sess
			sessions = append(sessions, &cp)
		}
	}
	return sessions, nil
}

func (s *MemoryStore) Touch(_ context.Context, token string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok || sess.Expired(at) {
		// An expired session awaiting the sweep is already dead to clients,
		// matching the Redis backend where the key is simply gone.
		return false, nil
	}
	sess.LastActivity = at
	return true, nil
}

func (s *MemoryStore) Close(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[token]; !ok {
		return false, nil
	}
	delete(s.sessions, token)
	return true, nil
}

func (s *MemoryStore) DeleteByUser(_ context.Context, userID id.UserID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for token, sess := range s.sessions {
		if sess.UserID == userID {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) DeleteByApplication(_ context.Context, appID id.AppID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for token, sess := range s.sessions {
		if sess.AppID == appID {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) ExpiredTokens(_ context.Context, now time.Time, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tokens := make([]string, 0)
	for token, sess := range s.sessions {
		if sess.Expired(now) {
			tokens = append(tokens, token)
			if limit > 0 && len(tokens) >= limit {
				break
			}
		}
	}
	return tokens, nil
}
