package admin

import (
	"context"
	"time"

	"keygate/internal/license"
	id "keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
	"keygate/pkg/secrets"
)

// CreateLicenseInput describes a new license key.
type CreateLicenseInput struct {
	AppID     id.AppID
	MaxUsers  int
	ExpiresAt *time.Time
}

// CreateLicense mints a license key for an application. The key string is
// generated server-side and returned on the record.
func (s *Service) CreateLicense(ctx context.Context, in CreateLicenseInput) (*license.Key, error) {
	if _, err := s.apps.ByID(ctx, in.AppID); err != nil {
		return nil, err
	}

	raw, err := secrets.GenerateWithPrefix("lic_")
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not generate license key")
	}

	k, err := license.NewKey(id.NewLicenseID(), in.AppID, raw, in.MaxUsers, in.ExpiresAt, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.licenses.Create(ctx, k); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not create license")
	}

	s.logger.Info("license created",
		"license_id", k.ID.String(),
		"application_id", in.AppID.String(),
		"max_users", in.MaxUsers)
	return k, nil
}

// License fetches one license key by id.
func (s *Service) License(ctx context.Context, licenseID id.LicenseID) (*license.Key, error) {
	return s.licenses.ByID(ctx, licenseID)
}

// ListLicenses returns all license keys of an application.
func (s *Service) ListLicenses(ctx context.Context, appID id.AppID) ([]*license.Key, error) {
	return s.licenses.ListByApplication(ctx, appID)
}

// UpdateLicenseInput holds the mutable license fields. Nil pointers leave
// the current value untouched; ExpiresAt is applied whenever SetExpiry is
// true so it can also clear the expiry.
type UpdateLicenseInput struct {
	MaxUsers  *int
	Active    *bool
	SetExpiry bool
	ExpiresAt *time.Time
}

// UpdateLicense applies a partial update. The seat counter is owned by the
// atomic consume/release path and cannot be edited here.
func (s *Service) UpdateLicense(ctx context.Context, licenseID id.LicenseID, in UpdateLicenseInput) (*license.Key, error) {
	k, err := s.licenses.ByID(ctx, licenseID)
	if err != nil {
		return nil, err
	}

	if in.MaxUsers != nil {
		if *in.MaxUsers < 1 {
			return nil, dErrors.New(dErrors.CodeValidation, "max users must be at least 1")
		}
		k.MaxUsers = *in.MaxUsers
	}
	if in.Active != nil {
		k.Active = *in.Active
	}
	if in.SetExpiry {
		k.ExpiresAt = in.ExpiresAt
	}

	if err := s.licenses.Update(ctx, k); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not update license")
	}
	return k, nil
}

// DeleteLicense removes a license key. Users created through it keep their
// accounts; only the key and its seat pool disappear.
func (s *Service) DeleteLicense(ctx context.Context, licenseID id.LicenseID) error {
	if err := s.licenses.Delete(ctx, licenseID); err != nil {
		return err
	}
	s.logger.Info("license deleted", "license_id", licenseID.String())
	return nil
}
