package service

import (
	"context"
	"time"

	"keygate/internal/app"
	"keygate/internal/audit"
	"keygate/internal/license"
	"keygate/internal/policy"
	"keygate/internal/session"
	"keygate/internal/user"
	"keygate/internal/webhook"
	id "keygate/pkg/domain"
)

// ApplicationStore is the slice of app.Store the orchestrator needs.
// Error Contract: lookup methods return sentinel.ErrNotFound (wrapped) when
// the application does not exist.
type ApplicationStore interface {
	ByAPIKey(ctx context.Context, apiKey string) (*app.Application, error)
}

// UserStore is the slice of user.Store the orchestrator needs.
// Error Contract: lookups return sentinel.ErrNotFound (wrapped); Create
// returns sentinel.ErrConflict (wrapped) when the username is taken.
type UserStore interface {
	Create(ctx context.Context, u *user.User) error
	ByUsername(ctx context.Context, appID id.AppID, username string) (*user.User, error)
	CountByApplication(ctx context.Context, appID id.AppID) (int, error)
	RecordAttempt(ctx context.Context, userID id.UserID) error
	RecordLogin(ctx context.Context, userID id.UserID, at time.Time) error
}

// PolicyEngine evaluates access decisions for an attempt.
type PolicyEngine interface {
	Evaluate(ctx context.Context, a *app.Application, u *user.User, client id.ClientInfo) (policy.Result, error)
	CheckBlacklist(ctx context.Context, appID id.AppID, username, email string, client id.ClientInfo) (bool, error)
}

// LicenseManager validates keys and owns the seat counter operations.
type LicenseManager interface {
	Validate(ctx context.Context, key string, appID id.AppID) (*license.Key, id.Reason, error)
	ConsumeSeat(ctx context.Context, licenseID id.LicenseID) (bool, error)
	ReleaseSeat(ctx context.Context, licenseID id.LicenseID) error
}

// SessionTracker owns session lifecycle for the client-facing endpoints.
type SessionTracker interface {
	Open(ctx context.Context, appID id.AppID, userID id.UserID, client id.ClientInfo) (*session.Session, error)
	Heartbeat(ctx context.Context, token string) (bool, error)
	Close(ctx context.Context, token string) (bool, error)
}

// AuditRecorder captures activity entries. Recording never fails the caller.
type AuditRecorder interface {
	Record(ctx context.Context, e audit.Entry)
}

// WebhookNotifier fans an event out to subscribed receivers without blocking.
type WebhookNotifier interface {
	Notify(ctx context.Context, appID id.AppID, p webhook.Payload)
}

// PasswordHasher hashes and verifies end-user credentials.
type PasswordHasher interface {
	Hash(secret string) (string, error)
	Verify(secret, hash string) bool
}
