package admin

import (
	"context"

	"keygate/internal/webhook"
	id "keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
)

// CreateWebhookInput describes a new notification sink.
type CreateWebhookInput struct {
	TenantID id.TenantID
	AppID    id.AppID
	URL      string
	Secret   string
	Events   []id.Event
}

// CreateWebhook registers a notification sink for an application.
func (s *Service) CreateWebhook(ctx context.Context, in CreateWebhookInput) (*webhook.Hook, error) {
	if _, err := s.apps.ByID(ctx, in.AppID); err != nil {
		return nil, err
	}

	h, err := webhook.NewHook(id.NewWebhookID(), in.TenantID, in.AppID, in.URL, in.Secret, in.Events, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.webhooks.Create(ctx, h); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not create webhook")
	}

	s.logger.Info("webhook created",
		"webhook_id", h.ID.String(),
		"application_id", in.AppID.String(),
		"url", in.URL)
	return h, nil
}

// ListWebhooks returns all webhooks of an application.
func (s *Service) ListWebhooks(ctx context.Context, appID id.AppID) ([]*webhook.Hook, error) {
	return s.webhooks.ListByApplication(ctx, appID)
}

// UpdateWebhookInput holds the mutable webhook fields. Nil pointers leave
// the current value untouched; an empty non-nil Secret clears signing.
type UpdateWebhookInput struct {
	URL    *string
	Secret *string
	Events []id.Event
	Active *bool
}

// UpdateWebhook applies a partial update.
func (s *Service) UpdateWebhook(ctx context.Context, hookID id.WebhookID, in UpdateWebhookInput) (*webhook.Hook, error) {
	h, err := s.webhooks.ByID(ctx, hookID)
	if err != nil {
		return nil, err
	}

	if in.URL != nil {
		if *in.URL == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "webhook URL cannot be empty")
		}
		h.URL = *in.URL
	}
	if in.Secret != nil {
		h.Secret = *in.Secret
	}
	if in.Events != nil {
		if len(in.Events) == 0 {
			return nil, dErrors.New(dErrors.CodeValidation, "webhook must subscribe to at least one event")
		}
		h.Events = in.Events
	}
	if in.Active != nil {
		h.Active = *in.Active
	}

	if err := s.webhooks.Update(ctx, h); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not update webhook")
	}
	return h, nil
}

// DeleteWebhook removes a notification sink.
func (s *Service) DeleteWebhook(ctx context.Context, hookID id.WebhookID) error {
	return s.webhooks.Delete(ctx, hookID)
}
