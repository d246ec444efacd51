package session

import (
	"context"
	"time"

	id "keygate/pkg/domain"
)

// Store is the persistence contract for active sessions.
//
// Error Contract:
// - ByToken returns sentinel.ErrNotFound (wrapped) when the token is unknown.
// - Create returns sentinel.ErrConflict (wrapped) when the token already
//   exists; the insert must be check-and-insert atomic so two sessions can
//   never share a token.
// - Touch and Close report "token unknown" via their bool result.
type Store interface {
	Create(ctx context.Context, s *Session) error
	ByToken(ctx context.Context, token string) (*Session, error)
	ListByApplication(ctx context.Context, appID id.AppID) ([]*Session, error)
	Touch(ctx context.Context, token string, at time.Time) (bool, error)
	Close(ctx context.Context, token string) (bool, error)
	// DeleteByUser and DeleteByApplication return how many sessions were
	// removed so the tracker can keep its open-session accounting balanced.
	DeleteByUser(ctx context.Context, userID id.UserID) (int, error)
	DeleteByApplication(ctx context.Context, appID id.AppID) (int, error)
	// ExpiredTokens returns up to limit tokens whose expiry has passed, for
	// the sweep worker. Backends that expire sessions natively may return
	// an empty slice.
	ExpiredTokens(ctx context.Context, now time.Time, limit int) ([]string, error)
}
