package user

import (
	"context"
	"time"

	id "keygate/pkg/domain"
)

// Store is the persistence contract for application users.
//
// Error Contract:
// - Lookup methods return sentinel.ErrNotFound (wrapped) when the user does not exist.
// - Create returns sentinel.ErrConflict (wrapped) when (application, username) is taken.
//
// BindHwidIfUnset is the atomicity boundary for first-use hardware binding:
// it sets the hwid iff it is currently unset and returns whichever value is
// bound afterwards, so two concurrent first logins observe exactly one winner.
type Store interface {
	Create(ctx context.Context, u *User) error
	ByID(ctx context.Context, userID id.UserID) (*User, error)
	ByUsername(ctx context.Context, appID id.AppID, username string) (*User, error)
	ByEmail(ctx context.Context, appID id.AppID, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, userID id.UserID) error
	ListByApplication(ctx context.Context, appID id.AppID) ([]*User, error)
	CountByApplication(ctx context.Context, appID id.AppID) (int, error)
	BindHwidIfUnset(ctx context.Context, userID id.UserID, hwid string) (string, error)
	RecordAttempt(ctx context.Context, userID id.UserID) error
	RecordLogin(ctx context.Context, userID id.UserID, at time.Time) error
	DeleteByApplication(ctx context.Context, appID id.AppID) error
}
