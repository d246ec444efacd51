package license

import (
	"context"

	id "keygate/pkg/domain"
)

// Store is the persistence contract for license keys.
//
// Error Contract:
// - Lookup methods return sentinel.ErrNotFound (wrapped) when the key does not exist.
// - ConsumeSeat and ReleaseSeat report success via their bool result, never by error;
//   an error indicates an infrastructure failure.
//
// ConsumeSeat must be a single atomic compare-and-increment: it increments
// current_users iff current_users < max_users at the moment of the increment.
// Two concurrent calls against a key with one remaining seat must yield
// exactly one true and one false.
type Store interface {
	Create(ctx context.Context, k *Key) error
	ByID(ctx context.Context, licenseID id.LicenseID) (*Key, error)
	ByKey(ctx context.Context, key string) (*Key, error)
	Update(ctx context.Context, k *Key) error
	Delete(ctx context.Context, licenseID id.LicenseID) error
	ListByApplication(ctx context.Context, appID id.AppID) ([]*Key, error)
	ConsumeSeat(ctx context.Context, licenseID id.LicenseID) (bool, error)
	ReleaseSeat(ctx context.Context, licenseID id.LicenseID) (bool, error)
	DeleteByApplication(ctx context.Context, appID id.AppID) error
}
