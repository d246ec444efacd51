package blacklist

import (
	"context"

	"github.com/google/uuid"

	id "keygate/pkg/domain"
)

// Store is the persistence contract for denylist rules. Entries are written
// by tenant admins only; the policy engine reads through Matches.
type Store interface {
	Create(ctx context.Context, e *Entry) error
	Delete(ctx context.Context, entryID uuid.UUID) error
	ListByApplication(ctx context.Context, appID id.AppID) ([]*Entry, error)
	Matches(ctx context.Context, appID id.AppID, entryType EntryType, value string) (bool, error)
	DeleteByApplication(ctx context.Context, appID id.AppID) error
}
