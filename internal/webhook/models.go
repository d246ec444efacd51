// Package webhook fans audit events out to tenant-configured HTTP
// receivers. Delivery is strictly fire-and-forget: one attempt per hook,
// concurrent across hooks, failures logged and never surfaced.
package webhook

import (
	"time"

	id "keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
)

// Hook is a tenant-configured notification sink.
type Hook struct {
	ID        id.WebhookID `json:"id"`
	TenantID  id.TenantID  `json:"tenant_id"`
	AppID     id.AppID     `json:"application_id"`
	URL       string       `json:"url"`
	Secret    string       `json:"-"` // signing secret, never serialized
	Events    []id.Event   `json:"events"`
	Active    bool         `json:"active"`
	CreatedAt time.Time    `json:"created_at"`
}

// NewHook validates invariants and constructs a webhook.
func NewHook(hookID id.WebhookID, tenantID id.TenantID, appID id.AppID, url, secret string, events []id.Event, now time.Time) (*Hook, error) {
	if url == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "webhook URL cannot be empty")
	}
	if len(events) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "webhook must subscribe to at least one event")
	}
	if appID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "application ID is required")
	}
	return &Hook{
		ID:        hookID,
		TenantID:  tenantID,
		AppID:     appID,
		URL:       url,
		Secret:    secret,
		Events:    events,
		Active:    true,
		CreatedAt: now,
	}, nil
}

// Subscribed reports whether the hook listens for the given event.
func (h *Hook) Subscribed(event id.Event) bool {
	for _, e := range h.Events {
		if e == event {
			return true
		}
	}
	return false
}

// Payload is the generic notification body. Provider-specific formatters
// reshape it; the generic JSON encoding is the wire format for unrecognized
// hosts and the exact byte sequence the signature covers.
type Payload struct {
	Event         id.Event       `json:"event"`
	Timestamp     time.Time      `json:"timestamp"`
	ApplicationID string         `json:"application_id"`
	UserData      map[string]any `json:"user_data,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	Success       bool           `json:"success"`
	ErrorMessage  string         `json:"error_message,omitempty"`
}
