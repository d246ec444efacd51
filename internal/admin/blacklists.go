package admin

import (
	"context"

	"github.com/google/uuid"

	"keygate/internal/blacklist"
	id "keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
)

// CreateBlacklistEntry adds a denylist rule to an application.
func (s *Service) CreateBlacklistEntry(ctx context.Context, appID id.AppID, entryType blacklist.EntryType, value, reason string) (*blacklist.Entry, error) {
	if _, err := s.apps.ByID(ctx, appID); err != nil {
		return nil, err
	}

	e, err := blacklist.NewEntry(appID, entryType, value, reason, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.blacklists.Create(ctx, e); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not create blacklist entry")
	}

	s.logger.Info("blacklist entry created",
		"application_id", appID.String(),
		"type", string(entryType))
	return e, nil
}

// ListBlacklist returns all denylist rules of an application.
func (s *Service) ListBlacklist(ctx context.Context, appID id.AppID) ([]*blacklist.Entry, error) {
	return s.blacklists.ListByApplication(ctx, appID)
}

// DeleteBlacklistEntry removes one denylist rule.
func (s *Service) DeleteBlacklistEntry(ctx context.Context, entryID uuid.UUID) error {
	return s.blacklists.Delete(ctx, entryID)
}
