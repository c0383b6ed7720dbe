// Package orchestrator provides E2E pipeline orchestration.
// It coordinates: extraction → mapping → ranking → deduplication →
// aggregation → reporting → warehouse load.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tv-attribution/internal/dedupe"
	"tv-attribution/internal/domain"
	"tv-attribution/internal/extract"
	"tv-attribution/internal/mapping"
	"tv-attribution/internal/observability"
	"tv-attribution/internal/performance"
	"tv-attribution/internal/reporting"
	"tv-attribution/internal/spend"
	"tv-attribution/internal/storage"
	"tv-attribution/internal/validation"
)

// Orchestrator coordinates one pipeline run over a set of input files.
type Orchestrator struct {
	client      string
	dedupeMode  domain.DedupeMode
	revenueMode domain.RevenueMode

	factStore storage.WeeklyFactStore
	loadMode  domain.LoadMode
	rowStore  storage.PerformanceRowStore

	verbose bool
	now     func() time.Time
}

// Options for creating Orchestrator.
type Options struct {
	Client      string
	DedupeMode  domain.DedupeMode
	RevenueMode domain.RevenueMode

	// Optional warehouse sinks. A nil store skips that load.
	FactStore storage.WeeklyFactStore
	LoadMode  domain.LoadMode
	RowStore  storage.PerformanceRowStore

	Verbose bool
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		client:      opts.Client,
		dedupeMode:  opts.DedupeMode,
		revenueMode: opts.RevenueMode,
		factStore:   opts.FactStore,
		loadMode:    opts.LoadMode,
		rowStore:    opts.RowStore,
		verbose:     opts.Verbose,
		now:         func() time.Time { return time.Now().UTC() },
	}
	if o.dedupeMode == "" {
		o.dedupeMode = domain.DedupeWithAction
	}
	if o.revenueMode == "" {
		o.revenueMode = domain.RevenueAuto
	}
	if o.loadMode == "" {
		o.loadMode = domain.LoadSkip
	}
	return o
}

// WithClock sets a custom clock function for deterministic output.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// Inputs names the three input files of one run. ActionsPath and
// ResponsePath may be empty; the matching feed is then skipped.
type Inputs struct {
	SpendPath    string
	ActionsPath  string
	ResponsePath string
}

// Result contains everything a run produced in memory. Callers render or
// load it as needed.
type Result struct {
	Report  *reporting.Report
	Tables  []*performance.Table
	Book    *reporting.Workbook
	Facts   []*domain.WeeklyFact
	RunID   string
	Summary *validation.Report
}

// Run executes the full pipeline over the given inputs and records the
// run outcome and duration.
func (o *Orchestrator) Run(ctx context.Context, in Inputs) (*Result, error) {
	start := time.Now()
	res, err := o.run(ctx, in)
	observability.RecordPhaseDuration("total", time.Since(start).Seconds())
	if err != nil {
		observability.RecordRun("failure")
		return nil, err
	}
	observability.RecordRun("success")
	observability.DefaultMetrics.LastSuccessfulRun.SetToCurrentTime()
	return res, nil
}

// run is the pipeline body. Phases:
//  1. Parse the spend ledger, build rollups and station priority
//  2. Map and deduplicate action and response events
//  3. Build performance tables
//  4. Load facts into configured warehouses
func (o *Orchestrator) run(ctx context.Context, in Inputs) (*Result, error) {
	rep := &validation.Report{}

	// Phase 1: spend ledger
	o.log("Phase 1: Parsing spend ledger %s...", in.SpendPath)
	ledger, err := extract.ReadFile(in.SpendPath)
	if err != nil {
		return nil, fmt.Errorf("phase 1 (read ledger) failed: %w", err)
	}
	recs, err := spend.ParseLedger(ledger)
	if err != nil {
		return nil, fmt.Errorf("phase 1 (parse ledger) failed: %w", err)
	}
	spendTables, err := spend.BuildTables(ledger)
	if err != nil {
		return nil, fmt.Errorf("phase 1 (spend rollups) failed: %w", err)
	}
	ranks, top, err := spend.BuildStationPriority(ledger)
	if err != nil {
		return nil, fmt.Errorf("phase 1 (station priority) failed: %w", err)
	}
	validation.CheckSpend(recs, rep)
	validation.CheckPriority(top, rep)
	observability.DefaultMetrics.LedgerRowsParsed.Add(float64(len(recs)))
	o.log("  %d ledger rows, %d priority stations", len(recs), len(top))

	// Phase 2: events
	o.log("Phase 2: Mapping and deduplicating events...")
	engine := dedupe.NewEngine(top)

	var (
		actions, responses         []domain.MappedEvent
		actionsIn, responsesIn     int
		actionStats, responseStats domain.DedupeStats
	)
	if in.ActionsPath != "" {
		raw, err := o.readEvents(in.ActionsPath, mapping.MapActions)
		if err != nil {
			return nil, fmt.Errorf("phase 2 (actions) failed: %w", err)
		}
		actionsIn = len(raw)
		validation.CheckEvents("actions", raw, rep)
		actions, actionStats = engine.DedupeActions(raw, o.dedupeMode)
	}
	if in.ResponsePath != "" {
		raw, err := o.readEvents(in.ResponsePath, mapping.MapResponse)
		if err != nil {
			return nil, fmt.Errorf("phase 2 (responses) failed: %w", err)
		}
		responsesIn = len(raw)
		validation.CheckEvents("responses", raw, rep)
		responses, responseStats = dedupe.DedupeResponses(raw)
	}
	m := observability.DefaultMetrics
	m.EventsMapped.WithLabelValues("actions").Add(float64(actionsIn))
	m.EventsMapped.WithLabelValues("responses").Add(float64(responsesIn))
	m.EventsKept.WithLabelValues("actions").Add(float64(len(actions)))
	m.EventsKept.WithLabelValues("responses").Add(float64(len(responses)))
	m.EventsDeduped.WithLabelValues("actions").Add(float64(actionsIn - len(actions)))
	m.EventsDeduped.WithLabelValues("responses").Add(float64(responsesIn - len(responses)))
	m.RowsSkipped.WithLabelValues("actions", "no_timestamp").Add(float64(countNoTimestamp(actions)))
	m.RowsSkipped.WithLabelValues("responses", "no_timestamp").Add(float64(countNoTimestamp(responses)))
	o.log("  actions %d -> %d, responses %d -> %d",
		actionsIn, len(actions), responsesIn, len(responses))

	// Phase 3: performance tables
	o.log("Phase 3: Building performance tables...")
	revenueOn := performance.ResolveRevenue(o.revenueMode, actions)
	built := performance.Build(actions, responses, spendTables, o.client)
	market := performance.BuildMarket(actions, responses, spendTables, o.client)
	performance.MarkRevenue(built, revenueOn)
	if market != nil {
		market.IncludeRevenue = revenueOn
	}

	tables := orderedTables(built, market)
	m.TablesBuilt.Add(float64(len(tables)))
	o.log("  built %d tables", len(tables))

	// Phase 4: warehouse load
	runID := o.now().Format("20060102T150405Z")
	sourceFile := filepath.Base(in.SpendPath)
	var facts []*domain.WeeklyFact
	for _, t := range tables {
		facts = append(facts, performance.Facts(t, sourceFile)...)
	}
	if o.factStore != nil && o.loadMode != domain.LoadSkip {
		o.log("Phase 4: Loading %d facts into warehouse (%s)...", len(facts), o.loadMode)
		loadStart := time.Now()
		err := o.factStore.Load(ctx, facts, o.loadMode)
		observability.ObserveDBQuery("postgres", "load", time.Since(loadStart), err)
		if err != nil {
			return nil, fmt.Errorf("phase 4 (warehouse load) failed: %w", err)
		}
		observability.RecordFactsLoaded("postgres", len(facts))
	}
	if o.rowStore != nil {
		o.log("Phase 4: Appending %d rows to analytics sink (run %s)...", len(facts), runID)
		insertStart := time.Now()
		err := o.rowStore.InsertBulk(ctx, runID, facts)
		observability.ObserveDBQuery("clickhouse", "insert_bulk", time.Since(insertStart), err)
		if err != nil {
			return nil, fmt.Errorf("phase 4 (analytics append) failed: %w", err)
		}
		observability.RecordFactsLoaded("clickhouse", len(facts))
	}

	totalCost := 0.0
	for _, rec := range recs {
		totalCost += rec.Cost
	}

	result := &Result{
		Report: &reporting.Report{
			GeneratedAt:    o.now(),
			Client:         o.client,
			SpendFile:      filepath.Base(in.SpendPath),
			ActionsFile:    baseOrEmpty(in.ActionsPath),
			ResponseFile:   baseOrEmpty(in.ResponsePath),
			SpendRows:      len(recs),
			TotalCost:      totalCost,
			TopStations:    top,
			ActionsIn:      actionsIn,
			ActionsKept:    len(actions),
			ResponsesIn:    responsesIn,
			ResponsesKept:  len(responses),
			ActionStats:    actionStats,
			ResponseStats:  responseStats,
			RevenueEnabled: revenueOn,
			Tables:         reporting.TableSummaries(tables),
			Warnings:       rep.All(),
		},
		Tables: tables,
		Book: &reporting.Workbook{
			Client:         o.client,
			Tables:         tables,
			StationRanks:   ranks,
			ActionStats:    actionStats,
			ResponseStats:  responseStats,
			ActionsDetail:  performance.BuildDetail(actions),
			ResponseDetail: performance.BuildDetail(responses),
		},
		Facts:   facts,
		RunID:   runID,
		Summary: rep,
	}

	o.log("Pipeline completed: %d ledger rows, %d kept actions, %d kept responses, %d facts",
		len(recs), len(actions), len(responses), len(facts))

	return result, nil
}

// WriteOutputs renders the run's deliverables into dir: the Excel workbook,
// the Markdown run report, and optionally one CSV per table.
func (o *Orchestrator) WriteOutputs(res *Result, dir, workbook, runReport string, writeCSV bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	if err := reporting.WriteWorkbook(filepath.Join(dir, workbook), res.Book); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}

	md := reporting.RenderMarkdown(res.Report)
	if err := os.WriteFile(filepath.Join(dir, runReport), []byte(md), 0o644); err != nil {
		return fmt.Errorf("write run report: %w", err)
	}

	if writeCSV {
		for _, t := range res.Tables {
			if t == nil || len(t.Rows) == 0 {
				continue
			}
			name := csvFileName(t.Name)
			if err := os.WriteFile(filepath.Join(dir, name), []byte(reporting.RenderCSV(t)), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", name, err)
			}
		}
	}
	return nil
}

func (o *Orchestrator) readEvents(path string, mapFn func(*extract.Table) ([]domain.MappedEvent, error)) ([]domain.MappedEvent, error) {
	t, err := extract.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t.DropUnnamedColumns()
	return mapFn(t)
}

// countNoTimestamp counts kept events that weekly tables will exclude.
func countNoTimestamp(events []domain.MappedEvent) int {
	n := 0
	for i := range events {
		if !events[i].HasTimestamp {
			n++
		}
	}
	return n
}

// orderedTables fixes the sheet order of the deliverable.
func orderedTables(built map[string]*performance.Table, market *performance.Table) []*performance.Table {
	names := []string{
		performance.TableChannel,
		performance.TableCreative,
		performance.TableChannelByCreative,
		performance.TableDay,
		performance.TableHour,
		performance.TableChannelByHour,
	}
	var out []*performance.Table
	for _, n := range names {
		if t := built[n]; t != nil {
			out = append(out, t)
		}
	}
	if market != nil {
		out = append(out, market)
	}
	return out
}

func csvFileName(tableName string) string {
	return strings.ReplaceAll(tableName, " ", "_") + ".csv"
}

func baseOrEmpty(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Base(path)
}

func (o *Orchestrator) log(format string, args ...interface{}) {
	if o.verbose {
		log.Printf("[orchestrator] "+format, args...)
	}
}
