package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	id "keygate/pkg/domain"
	"keygate/pkg/sentinel"
)

// RedisStore keeps sessions in Redis. Tokens are keys with a native TTL when
// the session has an expiry, so Redis does the expiry sweep itself and
// ExpiredTokens has nothing to report. An application-scoped set supports
// listing.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs a Redis-backed session store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func sessionKey(token string) string { return "session:" + token }

func appSessionsKey(appID id.AppID) string { return "app_sessions:" + uuid.UUID(appID).String() }

// Create inserts the session with SETNX so the token check-and-insert is one
// atomic command.
func (s *RedisStore) Create(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	var ttl time.Duration
	if sess.ExpiresAt != nil {
		ttl = time.Until(*sess.ExpiresAt)
		if ttl <= 0 {
			return fmt.Errorf("session already expired: %w", sentinel.ErrInvalidState)
		}
	}

	ok, err := s.client.SetNX(ctx, sessionKey(sess.Token), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	if !ok {
		return fmt.Errorf("session token collision: %w", sentinel.ErrConflict)
	}
	if err := s.client.SAdd(ctx, appSessionsKey(sess.AppID), sess.Token).Err(); err != nil {
		return fmt.Errorf("index session: %w", err)
	}
	return nil
}

func (s *RedisStore) ByToken(ctx context.Context, token string) (*Session, error) {
	data, err := s.client.Get(ctx, sessionKey(token)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

func (s *RedisStore) ListByApplication(ctx context.Context, appID id.AppID) ([]*Session, error) {
	tokens, err := s.client.SMembers(ctx, appSessionsKey(appID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list session tokens: %w", err)
	}

	sessions := make([]*Session, 0, len(tokens))
	stale := make([]any, 0)
	for _, token := range tokens {
		sess, err := s.ByToken(ctx, token)
		if err != nil {
			// Token expired natively; drop it from the index lazily.
			stale = append(stale, token)
			continue
		}
		sessions = append(sessions, sess)
	}
	if len(stale) > 0 {
		_ = s.client.SRem(ctx, appSessionsKey(appID), stale...).Err() //nolint:errcheck // lazy cleanup
	}
	return sessions, nil
}

func (s *RedisStore) Touch(ctx context.Context, token string, at time.Time) (bool, error) {
	sess, err := s.ByToken(ctx, token)
	if err != nil {
		return false, nil
	}
	sess.LastActivity = at
	data, err := json.Marshal(sess)
	if err != nil {
		return false, fmt.Errorf("encode session: %w", err)
	}
	// KEEPTTL preserves the remaining native expiry.
	if err := s.client.Set(ctx, sessionKey(token), data, redis.KeepTTL).Err(); err != nil {
		return false, fmt.Errorf("touch session: %w", err)
	}
	return true, nil
}

func (s *RedisStore) Close(ctx context.Context, token string) (bool, error) {
	sess, err := s.ByToken(ctx, token)
	if err != nil {
		return false, nil
	}
	if err := s.client.Del(ctx, sessionKey(token)).Err(); err != nil {
		return false, fmt.Errorf("close session: %w", err)
	}
	_ = s.client.SRem(ctx, appSessionsKey(sess.AppID), token).Err() //nolint:errcheck // index cleanup
	return true, nil
}

func (s *RedisStore) DeleteByUser(ctx context.Context, userID id.UserID) (int, error) {
	// Sessions are indexed by application, not user; scan the app indexes.
	removed := 0
	iter := s.client.Scan(ctx, 0, "app_sessions:*", 0).Iterator()
	for iter.Next(ctx) {
		appKey := iter.Val()
		tokens, err := s.client.SMembers(ctx, appKey).Result()
		if err != nil {
			return removed, fmt.Errorf("scan sessions: %w", err)
		}
		for _, token := range tokens {
			sess, err := s.ByToken(ctx, token)
			if err != nil {
				continue
			}
			if sess.UserID == userID {
				ok, err := s.Close(ctx, token)
				if err != nil {
					return removed, err
				}
				if ok {
					removed++
				}
			}
		}
	}
	return removed, iter.Err()
}

func (s *RedisStore) DeleteByApplication(ctx context.Context, appID id.AppID) (int, error) {
	tokens, err := s.client.SMembers(ctx, appSessionsKey(appID)).Result()
	if err != nil {
		return 0, fmt.Errorf("list session tokens: %w", err)
	}
	removed := 0
	for _, token := range tokens {
		n, err := s.client.Del(ctx, sessionKey(token)).Result()
		if err != nil {
			return removed, fmt.Errorf("delete session: %w", err)
		}
		removed += int(n)
	}
	if err := s.client.Del(ctx, appSessionsKey(appID)).Err(); err != nil {
		return removed, fmt.Errorf("drop session index: %w", err)
	}
	return removed, nil
}

// ExpiredTokens is a no-op for Redis: keys carry a native TTL.
func (s *RedisStore) ExpiredTokens(_ context.Context, _ time.Time, _ int) ([]string, error) {
	return nil, nil
}
