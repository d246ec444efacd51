package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	id "keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
	"keygate/pkg/secrets"
	"keygate/pkg/sentinel"
)

const tokenCollisionRetries = 3

// Metrics receives open-session deltas. Every path that closes sessions
// reports through here, so the gauge stays balanced no matter who closes
// them: logout, sweep, or admin intervention. Nil disables instrumentation.
type Metrics interface {
	IncrementOpenSessions()
	DecrementOpenSessions(count int)
}

// Tracker creates, refreshes, and terminates session records.
type Tracker struct {
	store    Store
	ttl      time.Duration
	logger   *slog.Logger
	metrics  Metrics
	now      func() time.Time
	newToken func() (string, error)
}

// TrackerOption configures the Tracker.
type TrackerOption func(*Tracker)

// WithTTL sets the session time-to-live. Zero means sessions never expire.
func WithTTL(ttl time.Duration) TrackerOption {
	return func(t *Tracker) { t.ttl = ttl }
}

// WithLogger sets the tracker's logger.
func WithLogger(logger *slog.Logger) TrackerOption {
	return func(t *Tracker) { t.logger = logger }
}

// WithClock overrides the time source, used by expiry tests.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// WithTokenSource overrides the token generator, used by collision tests.
func WithTokenSource(fn func() (string, error)) TrackerOption {
	return func(t *Tracker) { t.newToken = fn }
}

// WithMetrics sets the open-session gauge updates.
func WithMetrics(m Metrics) TrackerOption {
	return func(t *Tracker) { t.metrics = m }
}

// NewTracker constructs a Tracker on top of a session Store.
func NewTracker(store Store, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		store:    store,
		now:      time.Now,
		newToken: func() (string, error) { return secrets.GenerateWithPrefix("sess_") },
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	return t
}

// Open creates a session for a fresh login. Token collisions are vanishingly
// rare with 256-bit tokens but the check-and-insert contract surfaces them;
// regenerate and retry a bounded number of times.
func (t *Tracker) Open(ctx context.Context, appID id.AppID, userID id.UserID, client id.ClientInfo) (*Session, error) {
	now := t.now()
	var expiresAt *time.Time
	if t.ttl > 0 {
		exp := now.Add(t.ttl)
		expiresAt = &exp
	}

	for attempt := 0; attempt < tokenCollisionRetries; attempt++ {
		token, err := t.newToken()
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not generate session token")
		}
		sess := &Session{
			ID:           id.NewSessionID(),
			AppID:        appID,
			UserID:       userID,
			Token:        token,
			IP:           client.IP,
			UserAgent:    client.UserAgent,
			Device:       DeviceName(client.UserAgent),
			Location:     client.Location,
			CreatedAt:    now,
			LastActivity: now,
			ExpiresAt:    expiresAt,
		}
		err = t.store.Create(ctx, sess)
		if err == nil {
			if t.metrics != nil {
				t.metrics.IncrementOpenSessions()
			}
			return sess, nil
		}
		if errors.Is(err, sentinel.ErrConflict) {
			t.logger.Warn("session token collision, regenerating",
				"application_id", appID.String(),
				"user_id", userID.String(),
			)
			continue
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not store session")
	}
	return nil, dErrors.New(dErrors.CodeInternal, "could not allocate a unique session token")
}

// Heartbeat refreshes a session's last-activity timestamp. Returns false
// when the token is unknown; never errors the caller for that.
func (t *Tracker) Heartbeat(ctx context.Context, token string) (bool, error) {
	ok, err := t.store.Touch(ctx, token, t.now())
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "heartbeat failed")
	}
	return ok, nil
}

// Close terminates a session. Returns false when the token is unknown.
func (t *Tracker) Close(ctx context.Context, token string) (bool, error) {
	ok, err := t.store.Close(ctx, token)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "session close failed")
	}
	if ok && t.metrics != nil {
		t.metrics.DecrementOpenSessions(1)
	}
	return ok, nil
}

// ListByApplication returns all live sessions for one application.
func (t *Tracker) ListByApplication(ctx context.Context, appID id.AppID) ([]*Session, error) {
	sessions, err := t.store.ListByApplication(ctx, appID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "session list failed")
	}
	return sessions, nil
}

// CloseAllForUser force-terminates every session a user holds (admin action,
// also called when the user is deleted).
func (t *Tracker) CloseAllForUser(ctx context.Context, userID id.UserID) error {
	removed, err := t.store.DeleteByUser(ctx, userID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "session purge failed")
	}
	if removed > 0 && t.metrics != nil {
		t.metrics.DecrementOpenSessions(removed)
	}
	return nil
}

// CloseAllForApplication drops every session belonging to an application,
// part of the application deletion cascade.
func (t *Tracker) CloseAllForApplication(ctx context.Context, appID id.AppID) error {
	removed, err := t.store.DeleteByApplication(ctx, appID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "session purge failed")
	}
	if removed > 0 && t.metrics != nil {
		t.metrics.DecrementOpenSessions(removed)
	}
	return nil
}
