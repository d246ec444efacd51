package admin

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keygate/internal/app"
	"keygate/internal/audit"
	"keygate/internal/blacklist"
	"keygate/internal/license"
	"keygate/internal/session"
	"keygate/internal/user"
	"keygate/internal/webhook"
	id "keygate/pkg/domain"
	"keygate/pkg/sentinel"
)

// fixture wires the admin service over in-memory stores and the real
// session tracker and license manager, so cross-store effects (cascades,
// seat returns) are observable end to end.
type fixture struct {
	svc        *Service
	apps       *app.MemoryStore
	users      *user.MemoryStore
	licenses   *license.MemoryStore
	blacklists *blacklist.MemoryStore
	webhooks   *webhook.MemoryStore
	tracker    *session.Tracker
	auditStore *audit.MemoryStore
	now        time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		apps:       app.NewMemoryStore(),
		users:      user.NewMemoryStore(),
		licenses:   license.NewMemoryStore(),
		blacklists: blacklist.NewMemoryStore(),
		webhooks:   webhook.NewMemoryStore(),
		auditStore: audit.NewMemoryStore(),
		now:        time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.tracker = session.NewTracker(session.NewMemoryStore(), session.WithLogger(logger))
	manager := license.NewManager(f.licenses)
	publisher := audit.NewPublisher(f.auditStore, audit.WithPublisherLogger(logger))
	f.svc = NewService(
		f.apps, f.users, f.licenses, f.blacklists, f.webhooks,
		f.tracker, manager,
		WithLogger(logger),
		WithAuditReader(publisher),
		WithClock(func() time.Time { return f.now }),
	)
	return f
}

func (f *fixture) createApp(t *testing.T) *app.Application {
	t.Helper()
	a, err := f.svc.CreateApplication(context.Background(), CreateApplicationInput{
		TenantID: id.NewTenantID(),
		Name:     "launcher",
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) createUser(t *testing.T, appID id.AppID, username string) *user.User {
	t.Helper()
	u, err := user.New(id.NewUserID(), appID, username, "", "hash", f.now)
	require.NoError(t, err)
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) openSession(t *testing.T, appID id.AppID, userID id.UserID) *session.Session {
	t.Helper()
	sess, err := f.tracker.Open(context.Background(), appID, userID, id.ClientInfo{IP: "10.0.0.1"})
	require.NoError(t, err)
	return sess
}

func TestCreateApplicationMintsPrefixedKey(t *testing.T) {
	f := newFixture(t)
	a := f.createApp(t)

	assert.Contains(t, a.APIKey, "app_")
	got, err := f.apps.ByAPIKey(context.Background(), a.APIKey)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
}

func TestRotateAPIKeyInvalidatesOldKey(t *testing.T) {
	f := newFixture(t)
	a := f.createApp(t)
	oldKey := a.APIKey

	newKey, err := f.svc.RotateAPIKey(context.Background(), a.ID)
	require.NoError(t, err)
	assert.NotEqual(t, oldKey, newKey)

	_, err = f.apps.ByAPIKey(context.Background(), oldKey)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	got, err := f.apps.ByAPIKey(context.Background(), newKey)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
}

func TestPauseUserClosesSessions(t *testing.T) {
	f := newFixture(t)
	a := f.createApp(t)
	u := f.createUser(t, a.ID, "alice")
	sess := f.openSession(t, a.ID, u.ID)

	require.NoError(t, f.svc.PauseUser(context.Background(), u.ID))

	got, err := f.users.ByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.True(t, got.Paused)

	alive, err := f.tracker.Heartbeat(context.Background(), sess.Token)
	require.NoError(t, err)
	assert.False(t, alive)
}

func TestDeleteUserReturnsSeatAndClosesSessions(t *testing.T) {
	f := newFixture(t)
	a := f.createApp(t)
	k, err := f.svc.CreateLicense(context.Background(), CreateLicenseInput{AppID: a.ID, MaxUsers: 5})
	require.NoError(t, err)

	manager := license.NewManager(f.licenses)
	consumed, err := manager.ConsumeSeat(context.Background(), k.ID)
	require.NoError(t, err)
	require.True(t, consumed)

	u := f.createUser(t, a.ID, "alice")
	u.LicenseID = &k.ID
	require.NoError(t, f.users.Update(context.Background(), u))
	sess := f.openSession(t, a.ID, u.ID)

	require.NoError(t, f.svc.DeleteUser(context.Background(), u.ID))

	_, err = f.users.ByID(context.Background(), u.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	got, err := f.licenses.ByID(context.Background(), k.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CurrentUsers)

	alive, err := f.tracker.Heartbeat(context.Background(), sess.Token)
	require.NoError(t, err)
	assert.False(t, alive)
}

func TestResetUserHwid(t *testing.T) {
	f := newFixture(t)
	a := f.createApp(t)
	u := f.createUser(t, a.ID, "alice")
	u.Hwid = "hw-1"
	require.NoError(t, f.users.Update(context.Background(), u))

	require.NoError(t, f.svc.ResetUserHwid(context.Background(), u.ID))

	got, err := f.users.ByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Hwid)

	entries, err := f.svc.ActivityLog(context.Background(), a.ID, 0)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, id.EventHwidReset, entries[0].Event)
}

func TestDeleteApplicationCascades(t *testing.T) {
	f := newFixture(t)
	a := f.createApp(t)
	u := f.createUser(t, a.ID, "alice")
	sess := f.openSession(t, a.ID, u.ID)

	_, err := f.svc.CreateLicense(context.Background(), CreateLicenseInput{AppID: a.ID, MaxUsers: 5})
	require.NoError(t, err)
	_, err = f.svc.CreateBlacklistEntry(context.Background(), a.ID, blacklist.TypeIP, "10.0.0.1", "abuse")
	require.NoError(t, err)
	_, err = f.svc.CreateWebhook(context.Background(), CreateWebhookInput{
		TenantID: a.TenantID,
		AppID:    a.ID,
		URL:      "https://example.com/hook",
		Events:   []id.Event{id.EventUserLogin},
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteApplication(context.Background(), a.ID))

	_, err = f.apps.ByID(context.Background(), a.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	_, err = f.users.ByID(context.Background(), u.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	licenses, err := f.licenses.ListByApplication(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Empty(t, licenses)

	entries, err := f.blacklists.ListByApplication(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)

	hooks, err := f.webhooks.ListByApplication(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Empty(t, hooks)

	alive, err := f.tracker.Heartbeat(context.Background(), sess.Token)
	require.NoError(t, err)
	assert.False(t, alive)
}

func TestUpdateLicensePreservesSeatCounter(t *testing.T) {
	f := newFixture(t)
	a := f.createApp(t)
	k, err := f.svc.CreateLicense(context.Background(), CreateLicenseInput{AppID: a.ID, MaxUsers: 5})
	require.NoError(t, err)

	manager := license.NewManager(f.licenses)
	consumed, err := manager.ConsumeSeat(context.Background(), k.ID)
	require.NoError(t, err)
	require.True(t, consumed)

	maxUsers := 10
	updated, err := f.svc.UpdateLicense(context.Background(), k.ID, UpdateLicenseInput{MaxUsers: &maxUsers})
	require.NoError(t, err)
	assert.Equal(t, 10, updated.MaxUsers)
	assert.Equal(t, 1, updated.CurrentUsers)
}

func TestTerminateSession(t *testing.T) {
	f := newFixture(t)
	a := f.createApp(t)
	u := f.createUser(t, a.ID, "alice")
	sess := f.openSession(t, a.ID, u.ID)

	closed, err := f.svc.TerminateSession(context.Background(), a.ID, sess.Token)
	require.NoError(t, err)
	assert.True(t, closed)

	// A second termination of the same token reports nothing to do.
	closed, err = f.svc.TerminateSession(context.Background(), a.ID, sess.Token)
	require.NoError(t, err)
	assert.False(t, closed)
}
