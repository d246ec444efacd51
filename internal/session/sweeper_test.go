package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "keygate/pkg/domain"
)

func TestSweepClosesOnlyExpiredSessions(t *testing.T) {
	store := NewMemoryStore()
	past := time.Now().Add(-2 * time.Hour)

	// One session opened two hours ago with a one-hour TTL, long expired.
	stale := NewTracker(store,
		WithTTL(time.Hour),
		WithLogger(discardLogger()),
		WithClock(func() time.Time { return past }),
	)
	expired, err := stale.Open(context.Background(), id.NewAppID(), id.NewUserID(), id.ClientInfo{})
	require.NoError(t, err)

	fresh := NewTracker(store, WithTTL(time.Hour), WithLogger(discardLogger()))
	live, err := fresh.Open(context.Background(), id.NewAppID(), id.NewUserID(), id.ClientInfo{})
	require.NoError(t, err)

	forever := NewTracker(store, WithLogger(discardLogger()))
	unbounded, err := forever.Open(context.Background(), id.NewAppID(), id.NewUserID(), id.ClientInfo{})
	require.NoError(t, err)

	sw := NewSweeper(fresh, store, WithSweeperLogger(discardLogger()))
	sw.sweep()

	alive, err := fresh.Heartbeat(context.Background(), expired.Token)
	require.NoError(t, err)
	assert.False(t, alive)

	alive, err = fresh.Heartbeat(context.Background(), live.Token)
	require.NoError(t, err)
	assert.True(t, alive)

	alive, err = fresh.Heartbeat(context.Background(), unbounded.Token)
	require.NoError(t, err)
	assert.True(t, alive, "sessions without an expiry are never swept")
}

func TestSweepHonorsBatchLimit(t *testing.T) {
	store := NewMemoryStore()
	past := time.Now().Add(-2 * time.Hour)
	stale := NewTracker(store,
		WithTTL(time.Hour),
		WithLogger(discardLogger()),
		WithClock(func() time.Time { return past }),
	)
	appID := id.NewAppID()
	for i := 0; i < 5; i++ {
		_, err := stale.Open(context.Background(), appID, id.NewUserID(), id.ClientInfo{})
		require.NoError(t, err)
	}

	sw := NewSweeper(stale, store, WithBatchSize(2), WithSweeperLogger(discardLogger()))
	sw.sweep()

	remaining, err := store.ListByApplication(context.Background(), appID)
	require.NoError(t, err)
	assert.Len(t, remaining, 3)
}

func TestSweepDecrementsOpenSessionGauge(t *testing.T) {
	store := NewMemoryStore()
	gauge := &gaugeRecorder{}
	past := time.Now().Add(-2 * time.Hour)
	tr := NewTracker(store,
		WithTTL(time.Hour),
		WithLogger(discardLogger()),
		WithClock(func() time.Time { return past }),
		WithMetrics(gauge),
	)
	_, err := tr.Open(context.Background(), id.NewAppID(), id.NewUserID(), id.ClientInfo{})
	require.NoError(t, err)
	require.Equal(t, 1, gauge.value())

	sw := NewSweeper(tr, store, WithSweeperLogger(discardLogger()))
	sw.sweep()

	assert.Equal(t, 0, gauge.value())
}

func TestSweeperStartStop(t *testing.T) {
	store := NewMemoryStore()
	tr := NewTracker(store, WithLogger(discardLogger()))
	sw := NewSweeper(tr, store,
		WithInterval(10*time.Millisecond),
		WithSweeperLogger(discardLogger()),
	)

	sw.Start()
	time.Sleep(30 * time.Millisecond)
	sw.Stop()
}
