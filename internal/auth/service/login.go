package service

import (
	"context"
	"errors"
	"time"

	"keygate/internal/app"
	"keygate/internal/session"
	"keygate/internal/user"
	id "keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
	"keygate/pkg/sentinel"
)

// LoginRequest is one authentication attempt by an end user.
type LoginRequest struct {
	APIKey   string
	Username string
	Password string
	Client   id.ClientInfo
}

// LoginOutcome is the tagged result of a login attempt. Denied carries the
// structured reason for programmatic use; Message is the tenant's display
// text and must never be parsed.
type LoginOutcome struct {
	Allowed bool
	Reason  id.Reason
	Message string
	User    *user.User
	Session *session.Session
}

// Login runs the authentication pipeline: resolve the application, evaluate
// policy, verify credentials, open a session, record the outcome. Every
// denial still records audit and webhook activity with success=false.
// An error return means infrastructure failure, never a denial.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginOutcome, error) {
	start := s.now()

	a, reason, err := s.resolveApplication(ctx, req.APIKey)
	if err != nil {
		return LoginOutcome{}, err
	}
	if reason != id.ReasonNone {
		return s.denyLogin(ctx, a, snapshotNone(req.Username), req.Client, reason), nil
	}

	u, err := s.users.ByUsername(ctx, a.ID, req.Username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Unknown username and bad password produce the same outcome so
			// callers cannot enumerate accounts. The audit entry keeps the
			// attempted name for the tenant's benefit.
			return s.denyLogin(ctx, a, snapshotNone(req.Username), req.Client, id.ReasonInvalidCredentials), nil
		}
		return LoginOutcome{}, dErrors.Wrap(err, dErrors.CodeInternal, "user lookup failed")
	}
	snap := snapshotOf(u.ID, u.Username)

	result, err := s.policy.Evaluate(ctx, a, u, req.Client)
	if err != nil {
		return LoginOutcome{}, err
	}
	if !result.Allowed {
		s.countAttempt(ctx, u.ID)
		return s.denyLogin(ctx, a, snap, req.Client, result.Reason), nil
	}

	if !s.hasher.Verify(req.Password, u.PasswordHash) {
		s.countAttempt(ctx, u.ID)
		return s.denyLogin(ctx, a, snap, req.Client, id.ReasonInvalidCredentials), nil
	}

	sess, err := s.sessions.Open(ctx, a.ID, u.ID, req.Client)
	if err != nil {
		return LoginOutcome{}, err
	}

	if err := s.users.RecordLogin(ctx, u.ID, s.now()); err != nil {
		s.logger.Warn("could not record login timestamp",
			"user_id", u.ID.String(),
			"error", err)
	}

	if result.HwidBound != "" {
		u.Hwid = result.HwidBound
	}

	s.recordOutcome(ctx, a, snap, id.EventUserLogin, req.Client, id.ReasonNone, map[string]any{
		"session_id": sess.ID.String(),
	})
	if s.metrics != nil {
		s.metrics.IncrementLogins()
		s.metrics.ObserveLoginDuration(float64(s.now().Sub(start)) / float64(time.Millisecond))
	}

	return LoginOutcome{
		Allowed: true,
		Message: a.SuccessMessage(id.EventUserLogin),
		User:    u,
		Session: sess,
	}, nil
}

func (s *Service) denyLogin(ctx context.Context, a *app.Application, snap userSnapshot, client id.ClientInfo, reason id.Reason) LoginOutcome {
	s.recordOutcome(ctx, a, snap, id.EventLoginFailed, client, reason, nil)
	return LoginOutcome{
		Reason:  reason,
		Message: a.MessageFor(reason),
	}
}

func (s *Service) countAttempt(ctx context.Context, userID id.UserID) {
	if err := s.users.RecordAttempt(ctx, userID); err != nil {
		s.logger.Warn("could not record login attempt",
			"user_id", userID.String(),
			"error", err)
	}
}
