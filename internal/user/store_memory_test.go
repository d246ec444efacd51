package user

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "keygate/pkg/domain"
	"keygate/pkg/sentinel"
)

func seedUser(t *testing.T, store *MemoryStore, appID id.AppID, username string) *User {
	t.Helper()
	u, err := New(id.NewUserID(), appID, username, username+"@example.com", "hash", time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Create(context.Background(), u))
	return u
}

func TestMemoryStoreUsernameIsCaseInsensitive(t *testing.T) {
	store := NewMemoryStore()
	appID := id.NewAppID()
	seedUser(t, store, appID, "Alice")

	got, err := store.ByUsername(context.Background(), appID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Username)

	// Same name, different casing, must collide.
	dup, err := New(id.NewUserID(), appID, "ALICE", "", "hash", time.Now())
	require.NoError(t, err)
	err = store.Create(context.Background(), dup)
	assert.ErrorIs(t, err, sentinel.ErrConflict)
}

func TestMemoryStoreUsernameScopedToApplication(t *testing.T) {
	store := NewMemoryStore()
	appA := id.NewAppID()
	appB := id.NewAppID()
	seedUser(t, store, appA, "alice")

	// The same username in another application is a separate population.
	other, err := New(id.NewUserID(), appB, "alice", "", "hash", time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Create(context.Background(), other))

	_, err = store.ByUsername(context.Background(), appB, "alice")
	require.NoError(t, err)
}

func TestBindHwidIfUnsetFirstWriterWins(t *testing.T) {
	store := NewMemoryStore()
	u := seedUser(t, store, id.NewAppID(), "alice")

	bound, err := store.BindHwidIfUnset(context.Background(), u.ID, "hw-1")
	require.NoError(t, err)
	assert.Equal(t, "hw-1", bound)

	// Second call with a different value observes the winner.
	bound, err = store.BindHwidIfUnset(context.Background(), u.ID, "hw-2")
	require.NoError(t, err)
	assert.Equal(t, "hw-1", bound)
}

func TestBindHwidIfUnsetConcurrent(t *testing.T) {
	store := NewMemoryStore()
	u := seedUser(t, store, id.NewAppID(), "alice")

	const contenders = 16
	var wg sync.WaitGroup
	bounds := make([]string, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			hwid := "hw-a"
			if i%2 == 1 {
				hwid = "hw-b"
			}
			bound, err := store.BindHwidIfUnset(context.Background(), u.ID, hwid)
			if !assert.NoError(t, err) {
				return
			}
			bounds[i] = bound
		}(i)
	}
	wg.Wait()

	// Every caller must observe the same winning value.
	winner := bounds[0]
	require.NotEmpty(t, winner)
	for _, b := range bounds {
		assert.Equal(t, winner, b)
	}
}

func TestRecordLoginAndAttempt(t *testing.T) {
	store := NewMemoryStore()
	u := seedUser(t, store, id.NewAppID(), "alice")

	require.NoError(t, store.RecordAttempt(context.Background(), u.ID))
	require.NoError(t, store.RecordAttempt(context.Background(), u.ID))

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.RecordLogin(context.Background(), u.ID, at))

	got, err := store.ByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.LoginAttempts)
	require.NotNil(t, got.LastLogin)
	assert.Equal(t, at, *got.LastLogin)
}

func TestDeleteFreesUsername(t *testing.T) {
	store := NewMemoryStore()
	appID := id.NewAppID()
	u := seedUser(t, store, appID, "alice")

	require.NoError(t, store.Delete(context.Background(), u.ID))
	_, err := store.ByUsername(context.Background(), appID, "alice")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	// The name is reusable after deletion.
	seedUser(t, store, appID, "alice")
}

func TestCountByApplication(t *testing.T) {
	store := NewMemoryStore()
	appID := id.NewAppID()
	seedUser(t, store, appID, "alice")
	seedUser(t, store, appID, "bob")
	seedUser(t, store, id.NewAppID(), "carol")

	count, err := store.CountByApplication(context.Background(), appID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
