package alpha

import (
	"context"
	"testing"
	"time"

	"github.com/aristath/systrader/internal/database"
	"github.com/aristath/systrader/internal/platform"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPlatform(t *testing.T) *platform.Store {
	t.Helper()
	db, err := database.New(database.Config{Path: ":memory:", Profile: database.ProfileStandard, Name: "test"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store, err := platform.NewStore(db, zerolog.Nop())
	require.NoError(t, err)
	return store
}

func TestGetEvents_FailsOutsideScope(t *testing.T) {
	_, err := GetEvents(context.Background(), []uint64{1}, nil, time.Time{}, time.Time{})
	assert.ErrorIs(t, err, platform.ErrContextMissing)
}

func TestGetEvents_SucceedsInsideScope(t *testing.T) {
	store := newTestPlatform(t)
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	id, err := store.GetInternalID("AAPL", ts)
	require.NoError(t, err)
	require.NoError(t, store.AddEvents([]platform.Event{
		{InternalID: id, Timestamp: ts, EventType: "earnings", Value: "beat"},
	}))

	ctx := withScope(context.Background(), store, ts.Add(time.Hour))
	events, err := GetEvents(ctx, []uint64{id}, nil, ts, ts)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "beat", events[0].Value)
}
