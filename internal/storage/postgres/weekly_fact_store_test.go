package postgres

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
		Actions:             map[string]float64{"Lead": 4, "Purchase": 1},
		ActionsTotal:        5,
		CostPerResponse:     cost / 2,
		CostPerActionsTotal: cost / 5,
		SourceFile:          "Compile_2024.xlsx",
	}
}

func TestWeeklyFactStore_LoadAndGetByClient(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewWeeklyFactStore(pool)
	ctx := context.Background()

	facts := []*domain.WeeklyFact{
		testFact("acme", "Channel", "WABC", "2024-03-04", 100),
		testFact("acme", "Channel", "KCBS", "2024-03-04", 200),
		testFact("acme", "Day", "Monday", "2024-03-04", 300),
	}
	require.NoError(t, store.Load(ctx, facts, domain.LoadAppend))

	got, err := store.GetByClient(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Ordered by source_tab, week, dim_key.
	assert.Equal(t, "KCBS", got[0].DimKey)
	assert.Equal(t, "WABC", got[1].DimKey)
	assert.Equal(t, "Day", got[2].SourceTab)

	f := got[1]
	assert.Equal(t, 100.0, f.Cost)
	assert.Equal(t, 2.0, f.Responses)
	assert.Equal(t, 5000.0, f.Impressions)
	assert.Equal(t, map[string]float64{"Lead": 4, "Purchase": 1}, f.Actions)
	assert.Equal(t, 5.0, f.ActionsTotal)
	assert.Equal(t, 50.0, f.CostPerResponse)
	assert.Equal(t, 20.0, f.CostPerActionsTotal)
	assert.Equal(t, "Compile_2024.xlsx", f.SourceFile)
}

func TestWeeklyFactStore_NaNRatiosRoundTripAsNull(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewWeeklyFactStore(pool)
	ctx := context.Background()

	f := testFact("acme", "Channel", "WABC", "2024-03-04", 100)
	f.Responses = 0
	f.ActionsTotal = 0
	f.Actions = map[string]float64{}
	f.CostPerResponse = math.NaN()
	f.CostPerActionsTotal = math.NaN()
	require.NoError(t, store.Load(ctx, []*domain.WeeklyFact{f}, domain.LoadAppend))

	got, err := store.GetByClient(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, math.IsNaN(got[0].CostPerResponse), "NULL ratio must read back as NaN")
	assert.True(t, math.IsNaN(got[0].CostPerActionsTotal), "NULL ratio must read back as NaN")
}

func TestWeeklyFactStore_AppendDuplicateRollsBack(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewWeeklyFactStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Load(ctx, []*domain.WeeklyFact{
		testFact("acme", "Channel", "WABC", "2024-03-04", 100),
	}, domain.LoadAppend))

	err := store.Load(ctx, []*domain.WeeklyFact{
		testFact("acme", "Channel", "KCBS", "2024-03-04", 1),
		testFact("acme", "Channel", "WABC", "2024-03-04", 999), // collides
	}, domain.LoadAppend)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// The transaction rolled back: the non-colliding row is absent too.
	got, err := store.GetByClient(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 100.0, got[0].Cost)
}

func TestWeeklyFactStore_ReplaceWeeks(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewWeeklyFactStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Load(ctx, []*domain.WeeklyFact{
		testFact("acme", "Channel", "WABC", "2024-03-04", 100),
		testFact("acme", "Channel", "WABC", "2024-03-11", 200),
		testFact("acme", "Day", "Monday", "2024-03-04", 300),
	}, domain.LoadAppend))

	require.NoError(t, store.Load(ctx, []*domain.WeeklyFact{
		testFact("acme", "Channel", "WNBC", "2024-03-04", 999),
	}, domain.LoadReplaceWeeks))

	ch, err := store.GetByClientTab(ctx, "acme", "Channel")
	require.NoError(t, err)
	require.Len(t, ch, 2)
	assert.Equal(t, "WNBC", ch[0].DimKey)
	assert.Equal(t, "2024-03-11", ch[1].Week)

	day, err := store.GetByClientTab(ctx, "acme", "Day")
	require.NoError(t, err)
	assert.Len(t, day, 1, "other tab must survive a weeks replace")
}

func TestWeeklyFactStore_ReplaceAll(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewWeeklyFactStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Load(ctx, []*domain.WeeklyFact{
		testFact("acme", "Channel", "WABC", "2024-03-04", 100),
		testFact("acme", "Channel", "KCBS", "2024-03-11", 200),
		testFact("globex", "Channel", "WXYZ", "2024-03-04", 300),
	}, domain.LoadAppend))

	require.NoError(t, store.Load(ctx, []*domain.WeeklyFact{
		testFact("acme", "Channel", "WNBC", "2024-03-18", 999),
	}, domain.LoadReplaceAll))

	ch, err := store.GetByClientTab(ctx, "acme", "Channel")
	require.NoError(t, err)
	require.Len(t, ch, 1)
	assert.Equal(t, "WNBC", ch[0].DimKey)

	other, err := store.GetByClient(ctx, "globex")
	require.NoError(t, err)
	assert.Len(t, other, 1, "other client must survive")
}

func TestWeeklyFactStore_SkipWritesNothing(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewWeeklyFactStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Load(ctx, []*domain.WeeklyFact{
		testFact("acme", "Channel", "WABC", "2024-03-04", 100),
	}, domain.LoadSkip))

	got, err := store.GetByClient(ctx, "acme")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWeeklyFactStore_InvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewWeeklyFactStore(pool)
	ctx := context.Background()

	err := store.Load(ctx, []*domain.WeeklyFact{
		testFact("acme", "Channel", "WABC", "2024-03-04", 100),
	}, "Upsert")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	err = store.Load(ctx, []*domain.WeeklyFact{
		testFact("", "Channel", "WABC", "2024-03-04", 100),
	}, domain.LoadAppend)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestWeeklyFactStore_Weeks(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewWeeklyFactStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Load(ctx, []*domain.WeeklyFact{
		testFact("acme", "Channel", "WABC", "2024-03-11", 100),
		testFact("acme", "Day", "Monday", "2024-03-04", 200),
	}, domain.LoadAppend))

	weeks, err := store.Weeks(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-03-04", "2024-03-11"}, weeks)

	none, err := store.Weeks(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}
