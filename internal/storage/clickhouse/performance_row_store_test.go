package clickhouse

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tv-attribution/internal/domain"
	"tv-attribution/internal/storage"
)

func testFact(client, tab, dim, week string, cost float64) *domain.WeeklyFact {
	return &domain.WeeklyFact{
		Client: client, SourceTab: tab, DimKey: dim, Week: week,
		Cost:                cost,
		Responses:           2,
		Impressions:         5000,
		Actions:             map[string]float64{"Lead": 4},
		ActionsTotal:        4,
		CostPerResponse:     cost / 2,
		CostPerActionsTotal: cost / 4,
		SourceFile:          "Compile_2024.xlsx",
	}
}

func TestPerformanceRowStore_InsertBulkAndGetByRun(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPerformanceRowStore(conn)
	ctx := context.Background()

	facts := []*domain.WeeklyFact{
		testFact("acme", "Channel", "WABC", "2024-03-04", 100),
		testFact("acme", "Channel", "KCBS", "2024-03-04", 200),
		testFact("acme", "Day", "Monday", "2024-03-04", 300),
	}
	require.NoError(t, store.InsertBulk(ctx, "run-1", facts))

	got, err := store.GetByRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Ordered by source_tab, week, dim_key.
	assert.Equal(t, "KCBS", got[0].DimKey)
	assert.Equal(t, "WABC", got[1].DimKey)
	assert.Equal(t, "Day", got[2].SourceTab)

	f := got[1]
	assert.Equal(t, 100.0, f.Cost)
	assert.Equal(t, map[string]float64{"Lead": 4}, f.Actions)
	assert.Equal(t, 50.0, f.CostPerResponse)
	assert.Equal(t, 25.0, f.CostPerActionsTotal)
	assert.Equal(t, "Compile_2024.xlsx", f.SourceFile)
}

func TestPerformanceRowStore_RunsAreIsolated(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPerformanceRowStore(conn)
	ctx := context.Background()

	// Same fact twice under different runs: append-only, both survive.
	f := testFact("acme", "Channel", "WABC", "2024-03-04", 100)
	require.NoError(t, store.InsertBulk(ctx, "run-1", []*domain.WeeklyFact{f}))
	require.NoError(t, store.InsertBulk(ctx, "run-2", []*domain.WeeklyFact{f}))

	run1, err := store.GetByRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, run1, 1)

	run2, err := store.GetByRun(ctx, "run-2")
	require.NoError(t, err)
	assert.Len(t, run2, 1)

	none, err := store.GetByRun(ctx, "run-3")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPerformanceRowStore_NaNRatiosRoundTripAsNull(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPerformanceRowStore(conn)
	ctx := context.Background()

	f := testFact("acme", "Channel", "WABC", "2024-03-04", 100)
	f.CostPerResponse = math.NaN()
	f.CostPerActionsTotal = math.NaN()
	require.NoError(t, store.InsertBulk(ctx, "run-1", []*domain.WeeklyFact{f}))

	got, err := store.GetByRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, math.IsNaN(got[0].CostPerResponse))
	assert.True(t, math.IsNaN(got[0].CostPerActionsTotal))
}

func TestPerformanceRowStore_InvalidInput(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPerformanceRowStore(conn)
	ctx := context.Background()

	err := store.InsertBulk(ctx, "", []*domain.WeeklyFact{
		testFact("acme", "Channel", "WABC", "2024-03-04", 100),
	})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	err = store.InsertBulk(ctx, "run-1", []*domain.WeeklyFact{
		testFact("", "Channel", "WABC", "2024-03-04", 100),
	})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	// Empty batch is a no-op.
	assert.NoError(t, store.InsertBulk(ctx, "run-1", nil))
}
