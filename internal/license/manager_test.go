package license

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "keygate/pkg/domain"
)

func TestManagerValidate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	appID := id.NewAppID()
	otherApp := id.NewAppID()
	past := now.Add(-time.Hour)

	seed := func(t *testing.T, mutate func(*Key)) *Manager {
		t.Helper()
		store := NewMemoryStore()
		k, err := NewKey(id.NewLicenseID(), appID, "lic_valid", 2, nil, now)
		require.NoError(t, err)
		if mutate != nil {
			mutate(k)
		}
		require.NoError(t, store.Create(ctx, k))
		return NewManager(store, WithClock(func() time.Time { return now }))
	}

	t.Run("valid key passes", func(t *testing.T) {
		m := seed(t, nil)
		k, reason, err := m.Validate(ctx, "lic_valid", appID)
		require.NoError(t, err)
		assert.Equal(t, id.ReasonNone, reason)
		require.NotNil(t, k)
	})

	t.Run("unknown key", func(t *testing.T) {
		m := seed(t, nil)
		k, reason, err := m.Validate(ctx, "lic_nope", appID)
		require.NoError(t, err)
		assert.Equal(t, id.ReasonLicenseNotFound, reason)
		assert.Nil(t, k)
	})

	t.Run("wrong application", func(t *testing.T) {
		m := seed(t, nil)
		_, reason, err := m.Validate(ctx, "lic_valid", otherApp)
		require.NoError(t, err)
		assert.Equal(t, id.ReasonLicenseWrongApp, reason)
	})

	t.Run("inactive key", func(t *testing.T) {
		m := seed(t, func(k *Key) { k.Active = false })
		_, reason, err := m.Validate(ctx, "lic_valid", appID)
		require.NoError(t, err)
		assert.Equal(t, id.ReasonLicenseInactive, reason)
	})

	t.Run("expired key", func(t *testing.T) {
		m := seed(t, func(k *Key) { k.ExpiresAt = &past })
		_, reason, err := m.Validate(ctx, "lic_valid", appID)
		require.NoError(t, err)
		assert.Equal(t, id.ReasonLicenseExpired, reason)
	})

	t.Run("exhausted key", func(t *testing.T) {
		m := seed(t, func(k *Key) { k.CurrentUsers = 2 })
		_, reason, err := m.Validate(ctx, "lic_valid", appID)
		require.NoError(t, err)
		assert.Equal(t, id.ReasonSeatsExhausted, reason)
	})
}

func TestManagerConsumeAndRelease(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()
	k, err := NewKey(id.NewLicenseID(), id.NewAppID(), "lic_seat", 1, nil, now)
	require.NoError(t, err)
	require.NoError(t, store.Create(ctx, k))

	m := NewManager(store)

	ok, err := m.ConsumeSeat(ctx, k.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.ConsumeSeat(ctx, k.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.ReleaseSeat(ctx, k.ID))

	ok, err = m.ConsumeSeat(ctx, k.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}
