// Package main provides the warehouse ingest entry point. It runs the same
// extraction and aggregation as the pipeline but only loads facts, writing no
// report files. Useful for backfilling past weeks under a chosen load mode.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tv-attribution/internal/config"
	"tv-attribution/internal/domain"
	"tv-attribution/internal/extract"
	"tv-attribution/internal/orchestrator"
	"tv-attribution/internal/storage"
	"tv-attribution/internal/storage/clickhouse"
	"tv-attribution/internal/storage/migrations"
	"tv-attribution/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML config file")
	spendPath := flag.String("spend", "", "Spend ledger file (overrides discovery)")
	actionsPath := flag.String("actions", "", "Actions file (overrides discovery)")
	responsePath := flag.String("response", "", "Response file (overrides discovery)")
	loadMode := flag.String("mode", "", "Load mode: ReplaceWeeks, Append, ReplaceAll or Skip (overrides config)")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived signal %v, cancelling ingest...\n", sig)
		cancel()
	}()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *loadMode != "" {
		cfg.Warehouse.LoadMode = *loadMode
	}
	mode := cfg.Warehouse.LoadModeValue()
	if !mode.Valid() {
		fmt.Fprintf(os.Stderr, "Invalid load mode %q\n", cfg.Warehouse.LoadMode)
		os.Exit(1)
	}
	if cfg.Warehouse.DSN == "" && cfg.ClickHouse.DSN == "" {
		fmt.Fprintln(os.Stderr, "No warehouse configured: set warehouse.dsn or clickhouse.dsn")
		os.Exit(1)
	}

	inputs := orchestrator.Inputs{SpendPath: *spendPath, ActionsPath: *actionsPath, ResponsePath: *responsePath}
	if inputs.SpendPath == "" {
		p, err := extract.FindLatestByPattern(cfg.Inputs.Dir, cfg.Inputs.SpendPattern)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error locating spend ledger: %v\n", err)
			os.Exit(1)
		}
		inputs.SpendPath = p
	}
	if inputs.ActionsPath == "" {
		if p, err := extract.FindLatestByPattern(cfg.Inputs.Dir, cfg.Inputs.ActionsPattern); err == nil {
			inputs.ActionsPath = p
		}
	}
	if inputs.ResponsePath == "" {
		if p, err := extract.FindLatestByPattern(cfg.Inputs.Dir, cfg.Inputs.ResponsePattern); err == nil {
			inputs.ResponsePath = p
		}
	}

	var factStore storage.WeeklyFactStore
	if cfg.Warehouse.DSN != "" {
		pool, err := postgres.NewPool(ctx, cfg.Warehouse.DSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error connecting warehouse: %v\n", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			fmt.Fprintf(os.Stderr, "Error applying migrations: %v\n", err)
			os.Exit(1)
		}
		factStore = postgres.NewWeeklyFactStore(pool)
	}

	var rowStore storage.PerformanceRowStore
	if cfg.ClickHouse.DSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error preparing clickhouse: %v\n", err)
			os.Exit(1)
		}
		defer conn.Close()
		rowStore = clickhouse.NewPerformanceRowStore(conn)
	}

	fmt.Println("=== Warehouse Ingest ===")
	fmt.Printf("Client: %s\n", cfg.Client)
	fmt.Printf("Spend: %s\n", inputs.SpendPath)
	fmt.Printf("Mode: %s\n", mode)

	orch := orchestrator.New(orchestrator.Options{
		Client:      cfg.Client,
		DedupeMode:  cfg.Dedupe.DedupeMode(),
		RevenueMode: cfg.Revenue.RevenueMode(),
		FactStore:   factStore,
		LoadMode:    mode,
		RowStore:    rowStore,
		Verbose:     *verbose,
	})

	result, err := orch.Run(ctx, inputs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingest error: %v\n", err)
		os.Exit(1)
	}

	weeks := make(map[string]struct{})
	for _, f := range result.Facts {
		weeks[f.Week] = struct{}{}
	}
	fmt.Printf("\nIngest completed:\n")
	fmt.Printf("  Facts loaded: %d\n", len(result.Facts))
	fmt.Printf("  Weeks: %d\n", len(weeks))
	fmt.Printf("  Run ID: %s\n", result.RunID)
	if mode == domain.LoadSkip {
		fmt.Println("  Warehouse load skipped (mode Skip)")
	}
}
