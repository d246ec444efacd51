package audit

import (
	"context"

	id "keygate/pkg/domain"
)

// Store is the append-only persistence contract for activity logs. Entries
// are never updated or deleted by the core; retention is operational.
type Store interface {
	Append(ctx context.Context, e Entry) error
	ListByApplication(ctx context.Context, appID id.AppID, limit int) ([]Entry, error)
}
