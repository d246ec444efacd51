package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "keygate/pkg/domain"
	"keygate/pkg/sentinel"
)

func seedApp(t *testing.T, store *MemoryStore, apiKey string) *Application {
	t.Helper()
	a, err := New(id.NewAppID(), id.NewTenantID(), "launcher", apiKey, Settings{}, time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Create(context.Background(), a))
	return a
}

func TestMemoryStoreAPIKeyLookup(t *testing.T) {
	store := NewMemoryStore()
	a := seedApp(t, store, "app_one")

	got, err := store.ByAPIKey(context.Background(), "app_one")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = store.ByAPIKey(context.Background(), "app_unknown")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestMemoryStoreCreateRejectsDuplicateAPIKey(t *testing.T) {
	store := NewMemoryStore()
	seedApp(t, store, "app_one")

	dup, err := New(id.NewAppID(), id.NewTenantID(), "other", "app_one", Settings{}, time.Now())
	require.NoError(t, err)
	err = store.Create(context.Background(), dup)
	assert.ErrorIs(t, err, sentinel.ErrConflict)
}

func TestMemoryStoreUpdatePreservesAPIKey(t *testing.T) {
	store := NewMemoryStore()
	a := seedApp(t, store, "app_one")

	a.Name = "renamed"
	a.APIKey = "app_sneaky"
	require.NoError(t, store.Update(context.Background(), a))

	got, err := store.ByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	assert.Equal(t, "app_one", got.APIKey)

	// The old key still resolves; the smuggled one never existed.
	_, err = store.ByAPIKey(context.Background(), "app_one")
	require.NoError(t, err)
	_, err = store.ByAPIKey(context.Background(), "app_sneaky")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestMemoryStoreUpdateAPIKey(t *testing.T) {
	store := NewMemoryStore()
	a := seedApp(t, store, "app_one")

	require.NoError(t, store.UpdateAPIKey(context.Background(), a.ID, "app_two"))

	got, err := store.ByAPIKey(context.Background(), "app_two")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = store.ByAPIKey(context.Background(), "app_one")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestMemoryStoreUpdateAPIKeyCollision(t *testing.T) {
	store := NewMemoryStore()
	a := seedApp(t, store, "app_one")
	seedApp(t, store, "app_two")

	err := store.UpdateAPIKey(context.Background(), a.ID, "app_two")
	assert.ErrorIs(t, err, sentinel.ErrConflict)

	// Rotating to the key it already holds is a no-op, not a collision.
	require.NoError(t, store.UpdateAPIKey(context.Background(), a.ID, "app_one"))
}

func TestMemoryStoreDeleteFreesAPIKey(t *testing.T) {
	store := NewMemoryStore()
	a := seedApp(t, store, "app_one")

	require.NoError(t, store.Delete(context.Background(), a.ID))
	_, err := store.ByAPIKey(context.Background(), "app_one")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	seedApp(t, store, "app_one")
}

func TestMemoryStoreListByTenant(t *testing.T) {
	store := NewMemoryStore()
	tenantID := id.NewTenantID()

	for _, key := range []string{"app_one", "app_two"} {
		a, err := New(id.NewAppID(), tenantID, "launcher", key, Settings{}, time.Now())
		require.NoError(t, err)
		require.NoError(t, store.Create(context.Background(), a))
	}
	seedApp(t, store, "app_other_tenant")

	apps, err := store.ListByTenant(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Len(t, apps, 2)
}
