package storage

import (
	"context"

	"tv-attribution/internal/domain"
)

// WeeklyFactStore provides access to the fact_performance_weekly warehouse
// table: one row per (client, source tab, dimension key, week).
type WeeklyFactStore interface {
	// Load writes a batch of facts under the given mode:
	//   ReplaceWeeks  delete rows matching the batch's (client, tab, week)
	//                 combinations, then insert
	//   Append        insert only; ErrDuplicateKey on collision
	//   ReplaceAll    delete all rows for the batch's (client, tab) pairs,
	//                 then insert
	//   Skip          no write
	Load(ctx context.Context, facts []*domain.WeeklyFact, mode domain.LoadMode) error

	// GetByClient retrieves all facts for a client, ordered by
	// source tab, week, dimension key.
	GetByClient(ctx context.Context, client string) ([]*domain.WeeklyFact, error)

	// GetByClientTab retrieves facts for one performance table of a client,
	// ordered by week, dimension key.
	GetByClientTab(ctx context.Context, client, sourceTab string) ([]*domain.WeeklyFact, error)

	// Weeks lists the distinct week labels stored for a client, ascending.
	Weeks(ctx context.Context, client string) ([]string, error)
}

// PerformanceRowStore is the append-only analytics sink for built
// performance rows. Unlike the warehouse it never deletes; each pipeline run
// appends a new batch tagged with its run ID.
type PerformanceRowStore interface {
	// InsertBulk appends a batch of facts under one run ID.
	InsertBulk(ctx context.Context, runID string, facts []*domain.WeeklyFact) error

	// GetByRun retrieves all facts appended under a run ID, ordered by
	// source tab, week, dimension key.
	GetByRun(ctx context.Context, runID string) ([]*domain.WeeklyFact, error)
}
