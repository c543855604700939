package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/index_ratio_monitor/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_SaveAndListCrossings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Truncate(time.Second)
	events := []domain.Crossing{
		{PairID: domain.PairFutures, Threshold: 3.25, Direction: domain.DirectionUp, Ratio: 3.255, At: base},
		{PairID: domain.PairFutures, Threshold: 3.26, Direction: domain.DirectionUp, Ratio: 3.27, At: base.Add(time.Second)},
		{PairID: domain.PairCash, Threshold: 3.25, Direction: domain.DirectionDown, Ratio: 3.2, At: base.Add(2 * time.Second)},
	}
	for i := range events {
		require.NoError(t, store.SaveCrossing(ctx, &events[i]))
	}

	got, err := store.ListCrossings(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Newest first.
	assert.Equal(t, domain.PairCash, got[0].PairID)
	assert.Equal(t, domain.DirectionDown, got[0].Direction)
	assert.Equal(t, 3.2, got[0].Ratio)
	assert.Equal(t, 3.26, got[1].Threshold)
	assert.Equal(t, domain.PairFutures, got[2].PairID)
}

func TestSQLiteStore_ListLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		c := domain.Crossing{
			PairID: domain.PairFutures, Threshold: 3.25,
			Direction: domain.DirectionUp, Ratio: 3.26, At: time.Now(),
		}
		require.NoError(t, store.SaveCrossing(ctx, &c))
	}

	got, err := store.ListCrossings(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSQLiteStore_EmptyList(t *testing.T) {
	store := newTestStore(t)

	got, err := store.ListCrossings(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}
