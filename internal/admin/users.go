package admin

import (
	"context"
	"time"

	"keygate/internal/user"
	id "keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
)

// User fetches one end user by id.
func (s *Service) User(ctx context.Context, userID id.UserID) (*user.User, error) {
	return s.users.ByID(ctx, userID)
}

// ListUsers returns every end user of an application.
func (s *Service) ListUsers(ctx context.Context, appID id.AppID) ([]*user.User, error) {
	return s.users.ListByApplication(ctx, appID)
}

// PauseUser suspends an account. Paused users fail login with a dedicated
// reason until unpaused; existing sessions are terminated immediately so a
// pause takes effect mid-session.
func (s *Service) PauseUser(ctx context.Context, userID id.UserID) error {
	u, err := s.users.ByID(ctx, userID)
	if err != nil {
		return err
	}
	if u.Paused {
		return nil
	}
	u.Paused = true
	if err := s.users.Update(ctx, u); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not pause user")
	}
	if err := s.sessions.CloseAllForUser(ctx, userID); err != nil {
		return err
	}
	s.audit(ctx, u.AppID, &u.ID, u.Username, id.EventUserPaused)
	return nil
}

// UnpauseUser lifts a suspension.
func (s *Service) UnpauseUser(ctx context.Context, userID id.UserID) error {
	u, err := s.users.ByID(ctx, userID)
	if err != nil {
		return err
	}
	if !u.Paused {
		return nil
	}
	u.Paused = false
	if err := s.users.Update(ctx, u); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not unpause user")
	}
	s.audit(ctx, u.AppID, &u.ID, u.Username, id.EventUserUnpaused)
	return nil
}

// SetUserActive enables or disables an account. Disabling also drops the
// user's live sessions.
func (s *Service) SetUserActive(ctx context.Context, userID id.UserID, active bool) error {
	u, err := s.users.ByID(ctx, userID)
	if err != nil {
		return err
	}
	if u.Active == active {
		return nil
	}
	u.Active = active
	if err := s.users.Update(ctx, u); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not update user")
	}
	if !active {
		return s.sessions.CloseAllForUser(ctx, userID)
	}
	return nil
}

// SetUserExpiry replaces the account expiry timestamp. A nil value makes
// the account non-expiring.
func (s *Service) SetUserExpiry(ctx context.Context, userID id.UserID, expiresAt *time.Time) error {
	u, err := s.users.ByID(ctx, userID)
	if err != nil {
		return err
	}
	u.ExpiresAt = expiresAt
	if err := s.users.Update(ctx, u); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not update user expiry")
	}
	return nil
}

// ResetUserHwid clears the hardware binding so the next login binds afresh.
func (s *Service) ResetUserHwid(ctx context.Context, userID id.UserID) error {
	u, err := s.users.ByID(ctx, userID)
	if err != nil {
		return err
	}
	if u.Hwid == "" {
		return nil
	}
	u.Hwid = ""
	if err := s.users.Update(ctx, u); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not reset hwid")
	}
	s.audit(ctx, u.AppID, &u.ID, u.Username, id.EventHwidReset)
	return nil
}

// DeleteUser removes an account, terminates its sessions, and returns its
// license seat to the pool when one was held.
func (s *Service) DeleteUser(ctx context.Context, userID id.UserID) error {
	u, err := s.users.ByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.sessions.CloseAllForUser(ctx, userID); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not delete user")
	}
	if u.LicenseID != nil {
		if err := s.seats.ReleaseSeat(ctx, *u.LicenseID); err != nil {
			// The account is gone either way; a stuck seat is a tenant
			// support issue, not a failed deletion.
			s.logger.Error("seat release after user deletion failed",
				"user_id", userID.String(),
				"license_id", u.LicenseID.String(),
				"error", err)
		}
	}

	s.audit(ctx, u.AppID, &u.ID, u.Username, id.EventUserDeleted)
	return nil
}
