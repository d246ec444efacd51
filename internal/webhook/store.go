package webhook

import (
	"context"

	id "keygate/pkg/domain"
)

// Store is the persistence contract for webhooks. Fully admin-managed; the
// dispatcher only reads through ListActiveForEvent.
type Store interface {
	Create(ctx context.Context, h *Hook) error
	ByID(ctx context.Context, hookID id.WebhookID) (*Hook, error)
	Update(ctx context.Context, h *Hook) error
	Delete(ctx context.Context, hookID id.WebhookID) error
	ListByApplication(ctx context.Context, appID id.AppID) ([]*Hook, error)
	ListActiveForEvent(ctx context.Context, appID id.AppID, event id.Event) ([]*Hook, error)
	DeleteByApplication(ctx context.Context, appID id.AppID) error
}
