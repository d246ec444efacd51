package admin

import (
	"context"

	"keygate/internal/audit"
	"keygate/internal/session"
	id "keygate/pkg/domain"
)

// ListSessions returns the live sessions of an application.
func (s *Service) ListSessions(ctx context.Context, appID id.AppID) ([]*session.Session, error) {
	return s.sessions.ListByApplication(ctx, appID)
}

// TerminateSession force-closes one session by token. Returns false when
// the token is already gone.
func (s *Service) TerminateSession(ctx context.Context, appID id.AppID, token string) (bool, error) {
	closed, err := s.sessions.Close(ctx, token)
	if err != nil {
		return false, err
	}
	if closed {
		s.audit(ctx, appID, nil, "", id.EventSessionClosed)
	}
	return closed, nil
}

// ActivityLog returns the most recent activity entries of an application,
// newest first.
func (s *Service) ActivityLog(ctx context.Context, appID id.AppID, limit int) ([]audit.Entry, error) {
	if s.auditor == nil {
		return nil, nil
	}
	return s.auditor.List(ctx, appID, limit)
}
