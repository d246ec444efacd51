package blacklist

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
	"keygate/pkg/sentinel"
)

func seedEntry(t *testing.T, store *MemoryStore, appID id.AppID, entryType EntryType, value string) *Entry {
	t.Helper()
	e, err := NewEntry(appID, entryType, value, "abuse", time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Create(context.Background(), e))
	return e
}

func TestNewEntryValidation(t *testing.T) {
	now := time.Now()
	appID := id.NewAppID()

	_, err := NewEntry(id.AppID{}, TypeIP, "10.0.0.1", "", now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = NewEntry(appID, EntryType("mac"), "aa:bb", "", now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = NewEntry(appID, TypeHwid, "", "", now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	e, err := NewEntry(appID, TypeUsername, "mallory", "chargeback", now)
	require.NoError(t, err)
	assert.False(t, e.ID == uuid.Nil)
}

func TestMatchesExactTypeAndValue(t *testing.T) {
	store := NewMemoryStore()
	appID := id.NewAppID()
	seedEntry(t, store, appID, TypeIP, "10.0.0.1")
	seedEntry(t, store, appID, TypeUsername, "mallory")

	tests := []struct {
		name      string
		entryType EntryType
		value     string
		want      bool
	}{
		{name: "ip hit", entryType: TypeIP, value: "10.0.0.1", want: true},
		{name: "ip miss", entryType: TypeIP, value: "10.0.0.2", want: false},
		{name: "username hit", entryType: TypeUsername, value: "mallory", want: true},
		{name: "value under wrong type", entryType: TypeHwid, value: "10.0.0.1", want: false},
		{name: "empty value never matches", entryType: TypeIP, value: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Matches(context.Background(), appID, tt.entryType, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchesScopedToApplication(t *testing.T) {
	store := NewMemoryStore()
	appA := id.NewAppID()
	appB := id.NewAppID()
	seedEntry(t, store, appA, TypeHwid, "hw-1")

	got, err := store.Matches(context.Background(), appB, TypeHwid, "hw-1")
	require.NoError(t, err)
	assert.False(t, got, "denylist rules never cross application boundaries")
}

func TestDeleteEntry(t *testing.T) {
	store := NewMemoryStore()
	appID := id.NewAppID()
	e := seedEntry(t, store, appID, TypeIP, "10.0.0.1")

	require.NoError(t, store.Delete(context.Background(), e.ID))
	got, err := store.Matches(context.Background(), appID, TypeIP, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, got)

	err = store.Delete(context.Background(), e.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestDeleteByApplication(t *testing.T) {
	store := NewMemoryStore()
	appA := id.NewAppID()
	appB := id.NewAppID()
	seedEntry(t, store, appA, TypeIP, "10.0.0.1")
	seedEntry(t, store, appA, TypeUsername, "mallory")
	kept := seedEntry(t, store, appB, TypeIP, "10.0.0.1")

	require.NoError(t, store.DeleteByApplication(context.Background(), appA))

	entries, err := store.ListByApplication(context.Background(), appA)
	require.NoError(t, err)
	assert.Empty(t, entries)

	entries, err = store.ListByApplication(context.Background(), appB)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, kept.ID, entries[0].ID)
}
