// Package service implements the authentication orchestrator: the login and
// registration state machines that turn a raw request plus tenant
// configuration into an accept or reject outcome.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"keygate/internal/app"
	"keygate/internal/audit"
	"keygate/internal/auth/metrics"
	"keygate/internal/webhook"
	id "keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
	"keygate/pkg/secrets"
	"keygate/pkg/sentinel"
)

// Service orchestrates the authentication pipelines. Every dependency is an
// interface so each pipeline stage can be mocked in isolation.
type Service struct {
	apps     ApplicationStore
	users    UserStore
	policy   PolicyEngine
	licenses LicenseManager
	sessions SessionTracker
	hasher   PasswordHasher
	auditor  AuditRecorder
	notifier WebhookNotifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditRecorder(recorder AuditRecorder) Option {
	return func(s *Service) { s.auditor = recorder }
}

func WithWebhookNotifier(notifier WebhookNotifier) Option {
	return func(s *Service) { s.notifier = notifier }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithPasswordHasher(h PasswordHasher) Option {
	return func(s *Service) { s.hasher = h }
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService constructs the orchestrator over its pipeline stages.
func NewService(apps ApplicationStore, users UserStore, policy PolicyEngine, licenses LicenseManager, sessions SessionTracker, opts ...Option) *Service {
	s := &Service{
		apps:     apps,
		users:    users,
		policy:   policy,
		licenses: licenses,
		sessions: sessions,
		hasher:   secrets.Hasher{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// resolveApplication maps an API key to an active application. An unknown
// key is an authorization failure, not a denial outcome: the caller never
// learns whether the key exists.
func (s *Service) resolveApplication(ctx context.Context, apiKey string) (*app.Application, id.Reason, error) {
	if apiKey == "" {
		return nil, id.ReasonNone, dErrors.New(dErrors.CodeUnauthorized, "missing API key")
	}
	a, err := s.apps.ByAPIKey(ctx, apiKey)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, id.ReasonNone, dErrors.New(dErrors.CodeUnauthorized, "invalid API key")
		}
		return nil, id.ReasonNone, dErrors.Wrap(err, dErrors.CodeInternal, "application lookup failed")
	}
	if !a.Active {
		return a, id.ReasonAppDisabled, nil
	}
	return a, id.ReasonNone, nil
}

// recordOutcome emits the audit entry and webhook notification for one
// attempt. Both paths are best-effort and never fail the request.
func (s *Service) recordOutcome(ctx context.Context, a *app.Application, u userSnapshot, event id.Event, client id.ClientInfo, reason id.Reason, metadata map[string]any) {
	success := reason == id.ReasonNone

	if s.auditor != nil {
		entry := audit.Entry{
			AppID:    a.ID,
			UserID:   u.id,
			Username: u.username,
			Event:    event,
			Client:   client,
			Metadata: metadata,
			Success:  success,
		}
		if !success {
			entry.Error = string(reason)
		}
		s.auditor.Record(ctx, entry)
	}

	if s.notifier != nil && a.Settings.EnableWebhooks {
		payload := webhook.Payload{
			Event:         event,
			Timestamp:     s.now().UTC(),
			ApplicationID: a.ID.String(),
			Metadata:      metadata,
			Success:       success,
		}
		if u.username != "" {
			payload.UserData = map[string]any{"username": u.username}
			if u.id != nil {
				payload.UserData["id"] = u.id.String()
			}
		}
		if !success {
			payload.ErrorMessage = string(reason)
		}
		s.notifier.Notify(ctx, a.ID, payload)
	}

	if s.metrics != nil && !success {
		s.metrics.IncrementDenials(string(reason))
	}
}

// userSnapshot carries the identity fields audit entries and webhook
// payloads need, tolerating attempts where no user record exists.
type userSnapshot struct {
	id       *id.UserID
	username string
}

func snapshotNone(username string) userSnapshot {
	return userSnapshot{username: username}
}

func snapshotOf(userID id.UserID, username string) userSnapshot {
	uid := userID
	return userSnapshot{id: &uid, username: username}
}
