package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"

	"tv-attribution/internal/domain"
	"tv-attribution/internal/storage"
)

// WeeklyFactStore implements storage.WeeklyFactStore using PostgreSQL.
type WeeklyFactStore struct {
	pool *Pool
}

// NewWeeklyFactStore creates a new WeeklyFactStore.
func NewWeeklyFactStore(pool *Pool) *WeeklyFactStore {
	return &WeeklyFactStore{pool: pool}
}

// Compile-time interface check.
var _ storage.WeeklyFactStore = (*WeeklyFactStore)(nil)

const insertFactQuery = `
	INSERT INTO fact_performance_weekly (
		client, source_tab, dim_key, week,
		cost, responses, impressions,
		actions, actions_total,
		cost_per_response, cost_per_actions_total,
		source_file
	) VALUES (
		$1, $2, $3, $4,
		$5, $6, $7,
		$8, $9,
		$10, $11,
		$12
	)
`

const selectFactColumns = `
	client, source_tab, dim_key, week,
	cost, responses, impressions,
	actions, actions_total,
	cost_per_response, cost_per_actions_total,
	source_file
`

// Load writes a batch of facts under the given mode. The whole batch runs in
// one transaction; deletes and inserts commit together or not at all.
func (s *WeeklyFactStore) Load(ctx context.Context, facts []*domain.WeeklyFact, mode domain.LoadMode) error {
	if !mode.Valid() {
		return storage.ErrInvalidInput
	}
	if mode == domain.LoadSkip || len(facts) == 0 {
		return nil
	}
	for _, f := range facts {
		if f == nil || f.Client == "" || f.SourceTab == "" || f.Week == "" {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	switch mode {
	case domain.LoadReplaceWeeks:
		seen := make(map[[3]string]struct{}, len(facts))
		for _, f := range facts {
			k := [3]string{f.Client, f.SourceTab, f.Week}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			_, err := tx.Exec(ctx,
				`DELETE FROM fact_performance_weekly WHERE client = $1 AND source_tab = $2 AND week = $3`,
				f.Client, f.SourceTab, f.Week)
			if err != nil {
				return fmt.Errorf("delete facts for week: %w", err)
			}
		}
	case domain.LoadReplaceAll:
		seen := make(map[[2]string]struct{}, len(facts))
		for _, f := range facts {
			k := [2]string{f.Client, f.SourceTab}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			_, err := tx.Exec(ctx,
				`DELETE FROM fact_performance_weekly WHERE client = $1 AND source_tab = $2`,
				f.Client, f.SourceTab)
			if err != nil {
				return fmt.Errorf("delete facts for tab: %w", err)
			}
		}
	}

	for _, f := range facts {
		actions, err := json.Marshal(f.Actions)
		if err != nil {
			return fmt.Errorf("marshal actions: %w", err)
		}
		_, err = tx.Exec(ctx, insertFactQuery,
			f.Client, f.SourceTab, f.DimKey, f.Week,
			f.Cost, f.Responses, f.Impressions,
			actions, f.ActionsTotal,
			nullableRatio(f.CostPerResponse), nullableRatio(f.CostPerActionsTotal),
			f.SourceFile,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert weekly fact: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByClient retrieves all facts for a client.
func (s *WeeklyFactStore) GetByClient(ctx context.Context, client string) ([]*domain.WeeklyFact, error) {
	query := `
		SELECT ` + selectFactColumns + `
		FROM fact_performance_weekly
		WHERE client = $1
		ORDER BY source_tab ASC, week ASC, dim_key ASC
	`
	rows, err := s.pool.Query(ctx, query, client)
	if err != nil {
		return nil, fmt.Errorf("get facts by client: %w", err)
	}
	defer rows.Close()

	return scanWeeklyFacts(rows)
}

// GetByClientTab retrieves facts for one performance table of a client.
func (s *WeeklyFactStore) GetByClientTab(ctx context.Context, client, sourceTab string) ([]*domain.WeeklyFact, error) {
	query := `
		SELECT ` + selectFactColumns + `
		FROM fact_performance_weekly
		WHERE client = $1 AND source_tab = $2
		ORDER BY week ASC, dim_key ASC
	`
	rows, err := s.pool.Query(ctx, query, client, sourceTab)
	if err != nil {
		return nil, fmt.Errorf("get facts by client/tab: %w", err)
	}
	defer rows.Close()

	return scanWeeklyFacts(rows)
}

// Weeks lists the distinct week labels stored for a client, ascending.
func (s *WeeklyFactStore) Weeks(ctx context.Context, client string) ([]string, error) {
	query := `
		SELECT DISTINCT week
		FROM fact_performance_weekly
		WHERE client = $1
		ORDER BY week ASC
	`
	rows, err := s.pool.Query(ctx, query, client)
	if err != nil {
		return nil, fmt.Errorf("list weeks: %w", err)
	}
	defer rows.Close()

	var weeks []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("scan week: %w", err)
		}
		weeks = append(weeks, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate weeks: %w", err)
	}
	return weeks, nil
}

// nullableRatio maps an undefined ratio to SQL NULL instead of storing NaN.
func nullableRatio(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

// scanWeeklyFacts scans multiple rows into a slice of WeeklyFact.
func scanWeeklyFacts(rows pgx.Rows) ([]*domain.WeeklyFact, error) {
	var facts []*domain.WeeklyFact

	for rows.Next() {
		var (
			f       domain.WeeklyFact
			actions []byte
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
			return nil, fmt.Errorf("scan weekly fact row: %w", err)
		}

		if len(actions) > 0 {
			if err := json.Unmarshal(actions, &f.Actions); err != nil {
				return nil, fmt.Errorf("unmarshal actions: %w", err)
			}
		}
		f.CostPerResponse = ratioOrNaN(cpr)
		f.CostPerActionsTotal = ratioOrNaN(cpat)

		facts = append(facts, &f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate weekly fact rows: %w", err)
	}
	return facts, nil
}

func ratioOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
