package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"tv-attribution/internal/domain"
	"tv-attribution/internal/storage"
)

// PerformanceRowStore implements storage.PerformanceRowStore using ClickHouse.
// The table is append-only: every pipeline run writes a fresh batch under its
// run ID and nothing is ever deleted.
type PerformanceRowStore struct {
	conn *Conn
}

// NewPerformanceRowStore creates a new PerformanceRowStore.
func NewPerformanceRowStore(conn *Conn) *PerformanceRowStore {
	return &PerformanceRowStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PerformanceRowStore = (*PerformanceRowStore)(nil)

// InsertBulk appends a batch of facts under one run ID.
func (s *PerformanceRowStore) InsertBulk(ctx context.Context, runID string, facts []*domain.WeeklyFact) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(facts) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO performance_rows (
			run_id, client, source_tab, dim_key, week,
			cost, responses, impressions,
			actions, actions_total,
			cost_per_response, cost_per_actions_total,
			source_file
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, f := range facts {
		if f == nil || f.Client == "" || f.SourceTab == "" {
			return storage.ErrInvalidInput
		}
		actions, err := json.Marshal(f.Actions)
		if err != nil {
			return fmt.Errorf("marshal actions: %w", err)
		}
		err = batch.Append(
			runID, f.Client, f.SourceTab, f.DimKey, f.Week,
			f.Cost, f.Responses, f.Impressions,
			string(actions), f.ActionsTotal,
			nullableRatio(f.CostPerResponse), nullableRatio(f.CostPerActionsTotal),
			f.SourceFile,
		)
		if err != nil {
			return fmt.Errorf("append performance row: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByRun retrieves all facts appended under a run ID.
func (s *PerformanceRowStore) GetByRun(ctx context.Context, runID string) ([]*domain.WeeklyFact, error) {
	query := `
		SELECT
			client, source_tab, dim_key, week,
			cost, responses, impressions,
			actions, actions_total,
			cost_per_response, cost_per_actions_total,
			source_file
		FROM performance_rows
		WHERE run_id = ?
		ORDER BY source_tab ASC, week ASC, dim_key ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get performance rows by run: %w", err)
	}
	defer rows.Close()

	var facts []*domain.WeeklyFact
	for rows.Next() {
		var (
			f       domain.WeeklyFact
			actions string
			cpr     *float64
			cpat    *float64
		)
		err := rows.Scan(
			&f.Client, &f.SourceTab, &f.DimKey, &f.Week,
			&f.Cost, &f.Responses, &f.Impressions,
			&actions, &f.ActionsTotal,
			&cpr, &cpat,
			&f.SourceFile,
		)
		if err != nil {
			return nil, fmt.Errorf("scan performance row: %w", err)
		}
		if actions != "" {
			if err := json.Unmarshal([]byte(actions), &f.Actions); err != nil {
				return nil, fmt.Errorf("unmarshal actions: %w", err)
			}
		}
		f.CostPerResponse = ratioOrNaN(cpr)
		f.CostPerActionsTotal = ratioOrNaN(cpat)
		facts = append(facts, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate performance rows: %w", err)
	}
	return facts, nil
}

// nullableRatio maps an undefined ratio to NULL instead of storing NaN.
func nullableRatio(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func ratioOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
