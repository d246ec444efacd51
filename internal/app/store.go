package app

import (
	"context"

	id "keygate/pkg/domain"
)

// Store is the persistence contract for applications.
//
// Error Contract:
// - Lookup methods return sentinel.ErrNotFound (wrapped) when the entity does not exist.
// - Create returns sentinel.ErrConflict (wrapped) on a duplicate API key.
// - Infrastructure failures are returned wrapped with context.
type Store interface {
	Create(ctx context.Context, a *Application) error
	ByID(ctx context.Context, appID id.AppID) (*Application, error)
	ByAPIKey(ctx context.Context, apiKey string) (*Application, error)
	Update(ctx context.Context, a *Application) error
	// UpdateAPIKey replaces the stored API key, the one field Update
	// refuses to touch. Returns sentinel.ErrConflict (wrapped) when the new
	// key collides with another application's.
	UpdateAPIKey(ctx context.Context, appID id.AppID, apiKey string) error
	Delete(ctx context.Context, appID id.AppID) error
	ListByTenant(ctx context.Context, tenantID id.TenantID) ([]*Application, error)
}
