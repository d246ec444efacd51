package admin

import (
	"context"

	"keygate/internal/app"
	id "keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
	"keygate/pkg/secrets"
)

// CreateApplicationInput carries the tenant's requested configuration.
type CreateApplicationInput struct {
	TenantID id.TenantID
	Name     string
	Settings app.Settings
	Messages app.Messages
}

// CreateApplication registers a new application and mints its API key. The
// plaintext key is returned exactly once; only the record is stored.
func (s *Service) CreateApplication(ctx context.Context, in CreateApplicationInput) (*app.Application, error) {
	apiKey, err := secrets.GenerateWithPrefix("app_")
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not generate API key")
	}

	a, err := app.New(id.NewAppID(), in.TenantID, in.Name, apiKey, in.Settings, s.now())
	if err != nil {
		return nil, err
	}
	a.Messages = in.Messages

	if err := s.apps.Create(ctx, a); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not create application")
	}

	s.logger.Info("application created",
		"application_id", a.ID.String(),
		"tenant_id", in.TenantID.String(),
		"name", a.Name)
	return a, nil
}

// Application fetches one application by id.
func (s *Service) Application(ctx context.Context, appID id.AppID) (*app.Application, error) {
	return s.apps.ByID(ctx, appID)
}

// ListApplications returns all applications a tenant owns.
func (s *Service) ListApplications(ctx context.Context, tenantID id.TenantID) ([]*app.Application, error) {
	return s.apps.ListByTenant(ctx, tenantID)
}

// UpdateApplicationInput holds the mutable application fields. Nil pointers
// leave the current value untouched.
type UpdateApplicationInput struct {
	Name     *string
	Active   *bool
	Settings *app.Settings
	Messages *app.Messages
}

// UpdateApplication applies a partial update. The API key is immutable; use
// RotateAPIKey to replace it.
func (s *Service) UpdateApplication(ctx context.Context, appID id.AppID, in UpdateApplicationInput) (*app.Application, error) {
	a, err := s.apps.ByID(ctx, appID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		if *in.Name == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "application name cannot be empty")
		}
		a.Name = *in.Name
	}
	if in.Active != nil {
		a.Active = *in.Active
	}
	if in.Settings != nil {
		a.Settings = *in.Settings
	}
	if in.Messages != nil {
		a.Messages = *in.Messages
	}
	a.UpdatedAt = s.now()

	if err := s.apps.Update(ctx, a); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not update application")
	}
	return a, nil
}

// RotateAPIKey mints a replacement API key, invalidating the old one
// immediately. The new plaintext key is returned exactly once.
func (s *Service) RotateAPIKey(ctx context.Context, appID id.AppID) (string, error) {
	apiKey, err := secrets.GenerateWithPrefix("app_")
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not generate API key")
	}

	if err := s.apps.UpdateAPIKey(ctx, appID, apiKey); err != nil {
		return "", err
	}

	s.logger.Info("application API key rotated", "application_id", appID.String())
	return apiKey, nil
}

// DeleteApplication removes an application and hard-deletes everything it
// owns: users, licenses, blacklist entries, webhooks, and live sessions.
// Activity logs survive, they snapshot what they need.
func (s *Service) DeleteApplication(ctx context.Context, appID id.AppID) error {
	if _, err := s.apps.ByID(ctx, appID); err != nil {
		return err
	}

	if err := s.sessions.CloseAllForApplication(ctx, appID); err != nil {
		return err
	}
	if err := s.users.DeleteByApplication(ctx, appID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not delete application users")
	}
	if err := s.licenses.DeleteByApplication(ctx, appID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not delete application licenses")
	}
	if err := s.blacklists.DeleteByApplication(ctx, appID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not delete application blacklist")
	}
	if err := s.webhooks.DeleteByApplication(ctx, appID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not delete application webhooks")
	}
	if err := s.apps.Delete(ctx, appID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not delete application")
	}

	s.logger.Info("application deleted", "application_id", appID.String())
	return nil
}
