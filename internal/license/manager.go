package license

import (
	"context"
	"errors"
	"log/slog"
	"time"

	id "keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
	"keygate/pkg/sentinel"
)

// Manager validates license keys against a tenant application and tracks
// seat usage through the store's atomic counter operations.
type Manager struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// ManagerOption configures the Manager.
type ManagerOption func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

// WithClock overrides the time source, used by expiry tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// NewManager constructs a license Manager on top of a Store.
func NewManager(store Store, opts ...ManagerOption) *Manager {
	m := &Manager{store: store, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// Validate checks a raw license key string against an application.
// A non-empty Reason means the key was denied; error is reserved for
// infrastructure failures.
func (m *Manager) Validate(ctx context.Context, key string, appID id.AppID) (*Key, id.Reason, error) {
	k, err := m.store.ByKey(ctx, key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, id.ReasonLicenseNotFound, nil
		}
		return nil, id.ReasonNone, dErrors.Wrap(err, dErrors.CodeInternal, "license lookup failed")
	}
	if k.AppID != appID {
		return nil, id.ReasonLicenseWrongApp, nil
	}
	if !k.Active {
		return nil, id.ReasonLicenseInactive, nil
	}
	if k.Expired(m.now()) {
		return nil, id.ReasonLicenseExpired, nil
	}
	if k.CurrentUsers >= k.MaxUsers {
		return nil, id.ReasonSeatsExhausted, nil
	}
	return k, id.ReasonNone, nil
}

// ConsumeSeat atomically claims one seat. A false result means the key ran
// out of seats between Validate and now (race lost to a concurrent
// registration); the caller must fail the registration with SeatsExhausted.
func (m *Manager) ConsumeSeat(ctx context.Context, licenseID id.LicenseID) (bool, error) {
	ok, err := m.store.ConsumeSeat(ctx, licenseID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "seat consume failed")
	}
	return ok, nil
}

// ReleaseSeat returns a seat to the pool, floored at zero. Used on user
// deletion and as the compensating action when a registration fails after
// its seat was already consumed.
func (m *Manager) ReleaseSeat(ctx context.Context, licenseID id.LicenseID) error {
	ok, err := m.store.ReleaseSeat(ctx, licenseID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "seat release failed")
	}
	if !ok {
		m.logger.Warn("seat release was a no-op",
			"license_id", licenseID.String(),
		)
	}
	return nil
}
