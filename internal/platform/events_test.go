package platform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEvents_FiltersByTypeAndWindow(t *testing.T) {
	store := newTestStore(t)
	id, err := store.GetInternalID("AAPL", day(0))
	require.NoError(t, err)

	require.NoError(t, store.AddEvents([]Event{
		{InternalID: id, Timestamp: day(0), EventType: "earnings", Value: "beat"},
		{InternalID: id, Timestamp: day(1), EventType: "split_announce", Value: "2:1"},
		{InternalID: id, Timestamp: day(10), EventType: "earnings", Value: "miss"},
	}))

	events, err := store.GetEvents([]uint64{id}, []string{"earnings"}, day(0), day(5), time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "beat", events[0].Value)
}

func TestGetEvents_RestatementKeepsLatestKnowledge(t *testing.T) {
	store := newTestStore(t)
	id, err := store.GetInternalID("AAPL", day(0))
	require.NoError(t, err)

	ts := day(0)
	require.NoError(t, store.AddEvents([]Event{
		{InternalID: id, Timestamp: ts, EventType: "earnings", Value: "preliminary", Knowledge: ts},
	}))
	require.NoError(t, store.AddEvents([]Event{
		{InternalID: id, Timestamp: ts, EventType: "earnings", Value: "final", Knowledge: ts.Add(time.Hour)},
	}))

	events, err := store.GetEvents([]uint64{id}, nil, ts, ts, ts.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "final", events[0].Value)
}
