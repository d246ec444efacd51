package service

import (
	"context"
	"errors"
	"time"

	"keygate/internal/app"
	"keygate/internal/user"
	id "keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
	"keygate/pkg/sentinel"
)

// RegisterRequest is one account-creation attempt by an end user.
type RegisterRequest struct {
	APIKey     string
	Username   string
	Email      string
	Password   string
	LicenseKey string
	Client     id.ClientInfo
}

// RegisterOutcome is the tagged result of a registration attempt.
type RegisterOutcome struct {
	Created bool
	Reason  id.Reason
	Message string
	User    *user.User
}

// Register runs the account-creation pipeline: resolve the application,
// check the blacklist, enforce username uniqueness and capacity, validate
// and consume a license seat when the tenant requires one, then create the
// user. A failure after the seat was consumed releases it again so no seat
// is ever leaked (all-or-nothing).
func (s *Service) Register(ctx context.Context, req RegisterRequest) (RegisterOutcome, error) {
	a, reason, err := s.resolveApplication(ctx, req.APIKey)
	if err != nil {
		return RegisterOutcome{}, err
	}
	if reason != id.ReasonNone {
		return s.denyRegister(ctx, a, req, reason), nil
	}

	blacklisted, err := s.policy.CheckBlacklist(ctx, a.ID, req.Username, req.Email, req.Client)
	if err != nil {
		return RegisterOutcome{}, err
	}
	if blacklisted {
		return s.denyRegister(ctx, a, req, id.ReasonBlacklisted), nil
	}

	if _, err := s.users.ByUsername(ctx, a.ID, req.Username); err == nil {
		return s.denyRegister(ctx, a, req, id.ReasonUsernameTaken), nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return RegisterOutcome{}, dErrors.Wrap(err, dErrors.CodeInternal, "user lookup failed")
	}

	if a.Settings.MaxUsers > 0 {
		count, err := s.users.CountByApplication(ctx, a.ID)
		if err != nil {
			return RegisterOutcome{}, dErrors.Wrap(err, dErrors.CodeInternal, "user count failed")
		}
		if count >= a.Settings.MaxUsers {
			return s.denyRegister(ctx, a, req, id.ReasonMaxUsersReached), nil
		}
	}

	var licenseID *id.LicenseID
	if a.Settings.RequireLicense {
		key, reason, err := s.licenses.Validate(ctx, req.LicenseKey, a.ID)
		if err != nil {
			return RegisterOutcome{}, err
		}
		if reason != id.ReasonNone {
			return s.denyRegister(ctx, a, req, reason), nil
		}
		// Validate saw a free seat but the claim races with concurrent
		// registrations; the store's conditional increment decides.
		claimed, err := s.licenses.ConsumeSeat(ctx, key.ID)
		if err != nil {
			return RegisterOutcome{}, err
		}
		if !claimed {
			return s.denyRegister(ctx, a, req, id.ReasonSeatsExhausted), nil
		}
		kid := key.ID
		licenseID = &kid
		if s.metrics != nil {
			s.metrics.IncrementSeatsConsumed()
		}

		defer func() {
			// Compensating release: any exit that did not create the user
			// hands the seat back.
			if licenseID != nil {
				s.releaseSeat(ctx, *licenseID)
			}
		}()

		u, outcome, err := s.createUser(ctx, a, req, key.ID, key.ExpiresAt)
		if err != nil || u == nil {
			return outcome, err
		}
		licenseID = nil
		return outcome, nil
	}

	u, outcome, err := s.createUser(ctx, a, req, id.LicenseID{}, nil)
	if err != nil || u == nil {
		return outcome, err
	}
	return outcome, nil
}

// createUser hashes the password, builds the record, and persists it. A nil
// *user.User with a nil error means the registration was denied (the
// outcome carries the reason).
func (s *Service) createUser(ctx context.Context, a *app.Application, req RegisterRequest, licenseID id.LicenseID, expiresAt *time.Time) (*user.User, RegisterOutcome, error) {
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, RegisterOutcome{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not hash password")
	}

	u, err := user.New(id.NewUserID(), a.ID, req.Username, req.Email, hash, s.now())
	if err != nil {
		return nil, RegisterOutcome{}, err
	}
	if !licenseID.IsNil() {
		lid := licenseID
		u.LicenseID = &lid
		u.ExpiresAt = expiresAt
	}
	if a.Settings.RequireHwid && req.Client.Hwid != "" {
		u.Hwid = req.Client.Hwid
	}

	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Lost the uniqueness race to a concurrent registration.
			return nil, s.denyRegister(ctx, a, req, id.ReasonUsernameTaken), nil
		}
		return nil, RegisterOutcome{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not create user")
	}

	s.recordOutcome(ctx, a, snapshotOf(u.ID, u.Username), id.EventUserRegister, req.Client, id.ReasonNone, nil)
	if s.metrics != nil {
		s.metrics.IncrementRegistrations()
	}

	return u, RegisterOutcome{
		Created: true,
		Message: a.SuccessMessage(id.EventUserRegister),
		User:    u,
	}, nil
}

func (s *Service) denyRegister(ctx context.Context, a *app.Application, req RegisterRequest, reason id.Reason) RegisterOutcome {
	s.recordOutcome(ctx, a, snapshotNone(req.Username), id.EventRegisterFailed, req.Client, reason, nil)
	return RegisterOutcome{
		Reason:  reason,
		Message: a.MessageFor(reason),
	}
}

func (s *Service) releaseSeat(ctx context.Context, licenseID id.LicenseID) {
	if err := s.licenses.ReleaseSeat(ctx, licenseID); err != nil {
		s.logger.Error("compensating seat release failed",
			"license_id", licenseID.String(),
			"error", err)
		return
	}
	if s.metrics != nil {
		s.metrics.IncrementSeatsReleased()
	}
}
