package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetInternalID_AutoRegisters(t *testing.T) {
	store := newTestStore(t)

	id, err := store.GetInternalID("AAPL", day(0))
	require.NoError(t, err)
	assert.Equal(t, uint64(firstInternalID), id)

	// Second lookup within the same coverage returns the same id.
	again, err := store.GetInternalID("AAPL", day(1))
	require.NoError(t, err)
	assert.Equal(t, id, again)

	// A distinct ticker mints a distinct, monotonically increasing id.
	other, err := store.GetInternalID("MSFT", day(0))
	require.NoError(t, err)
	assert.Equal(t, id+1, other)
}

func TestRegisterSecurity_TickerReuseYieldsDistinctIDs(t *testing.T) {
	store := newTestStore(t)

	end := day(10)
	first, err := store.RegisterSecurity("FB", day(0), &end, nil)
	require.NoError(t, err)

	second, err := store.RegisterSecurity("META", day(10), nil, nil)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestGetUniverse(t *testing.T) {
	store := newTestStore(t)

	id1, err := store.GetInternalID("AAPL", day(0))
	require.NoError(t, err)
	end := day(5)
	id2, err := store.RegisterSecurity("DELISTED", day(0), &end, nil)
	require.NoError(t, err)

	universe := store.GetUniverse(day(1))
	assert.Contains(t, universe, id1)
	assert.Contains(t, universe, id2)

	universeAfterDelist := store.GetUniverse(day(6))
	assert.Contains(t, universeAfterDelist, id1)
	assert.NotContains(t, universeAfterDelist, id2)
}
