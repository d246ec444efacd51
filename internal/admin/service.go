// Package admin implements the tenant-facing management surface:
// application, license, user, blacklist, and webhook CRUD plus the forced
// session and hardware-binding interventions.
package admin

import (
	"context"
	"log/slog"
	"time"

	"keygate/internal/app"
	"keygate/internal/audit"
	"keygate/internal/blacklist"
	"keygate/internal/license"
	"keygate/internal/session"
	"keygate/internal/user"
	"keygate/internal/webhook"
	id "keygate/pkg/domain"
)

// SessionController is the slice of the session tracker the admin surface
// needs for forced terminations.
type SessionController interface {
	Close(ctx context.Context, token string) (bool, error)
	CloseAllForUser(ctx context.Context, userID id.UserID) error
	CloseAllForApplication(ctx context.Context, appID id.AppID) error
	ListByApplication(ctx context.Context, appID id.AppID) ([]*session.Session, error)
}

// SeatReleaser returns license seats when their holder is removed.
type SeatReleaser interface {
	ReleaseSeat(ctx context.Context, licenseID id.LicenseID) error
}

// AuditReader lists recent activity for an application.
type AuditReader interface {
	Record(ctx context.Context, e audit.Entry)
	List(ctx context.Context, appID id.AppID, limit int) ([]audit.Entry, error)
}

// Service is the management-plane orchestrator. All operations are
// tenant-scoped; handlers authenticate the tenant before calling in.
type Service struct {
	apps       app.Store
	users      user.Store
	licenses   license.Store
	blacklists blacklist.Store
	webhooks   webhook.Store
	sessions   SessionController
	seats      SeatReleaser
	auditor    AuditReader
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditReader(a AuditReader) Option {
	return func(s *Service) { s.auditor = a }
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService constructs the admin service over the full store set.
func NewService(
	apps app.Store,
	users user.Store,
	licenses license.Store,
	blacklists blacklist.Store,
	webhooks webhook.Store,
	sessions SessionController,
	seats SeatReleaser,
	opts ...Option,
) *Service {
	s := &Service{
		apps:       apps,
		users:      users,
		licenses:   licenses,
		blacklists: blacklists,
		webhooks:   webhooks,
		sessions:   sessions,
		seats:      seats,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// audit records an administrative action when an audit sink is configured.
func (s *Service) audit(ctx context.Context, appID id.AppID, userID *id.UserID, username string, event id.Event) {
	if s.auditor == nil {
		return
	}
	s.auditor.Record(ctx, audit.Entry{
		AppID:    appID,
		UserID:   userID,
		Username: username,
		Event:    event,
		Success:  true,
	})
}
