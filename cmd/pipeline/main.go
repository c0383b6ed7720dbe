// Package main provides the weekly attribution pipeline entry point.
// Executes: extraction → mapping → deduplication → aggregation → reporting.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"tv-attribution/internal/config"
	"tv-attribution/internal/extract"
	"tv-attribution/internal/observability"
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
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address while running (e.g. :9090)")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				fmt.Fprintf(os.Stderr, "Metrics server error: %v\n", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived signal %v, cancelling pipeline...\n", sig)
		cancel()
	}()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	inputs, err := resolveInputs(cfg, *spendPath, *actionsPath, *responsePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error locating inputs: %v\n", err)
		os.Exit(1)
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

	fmt.Println("=== Weekly Attribution Pipeline ===")
	fmt.Printf("Client: %s\n", cfg.Client)
	fmt.Printf("Spend: %s\n", inputs.SpendPath)
	if inputs.ActionsPath != "" {
		fmt.Printf("Actions: %s\n", inputs.ActionsPath)
	}
	if inputs.ResponsePath != "" {
		fmt.Printf("Response: %s\n", inputs.ResponsePath)
	}

	orch := orchestrator.New(orchestrator.Options{
		Client:      cfg.Client,
		DedupeMode:  cfg.Dedupe.DedupeMode(),
		RevenueMode: cfg.Revenue.RevenueMode(),
		FactStore:   factStore,
		LoadMode:    cfg.Warehouse.LoadModeValue(),
		RowStore:    rowStore,
		Verbose:     *verbose,
	})

	result, err := orch.Run(ctx, inputs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Pipeline error: %v\n", err)
		os.Exit(1)
	}

	if err := orch.WriteOutputs(result, cfg.Output.Dir, cfg.Output.Workbook, cfg.Output.RunReport, cfg.Output.WriteCSV); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing outputs: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nPipeline completed:\n")
	fmt.Printf("  Ledger rows: %d\n", result.Report.SpendRows)
	fmt.Printf("  Actions kept: %d of %d\n", result.Report.ActionsKept, result.Report.ActionsIn)
	fmt.Printf("  Responses kept: %d of %d\n", result.Report.ResponsesKept, result.Report.ResponsesIn)
	fmt.Printf("  Tables: %d\n", len(result.Tables))
	fmt.Printf("  Facts: %d\n", len(result.Facts))
	for _, w := range result.Report.Warnings {
		fmt.Printf("  %s\n", w)
	}
	fmt.Printf("Outputs written to %s\n", cfg.Output.Dir)
}

// resolveInputs applies flag overrides, falling back to the most recent
// match of each configured pattern. Spend is required; event feeds are
// optional and skipped when nothing matches.
func resolveInputs(cfg *config.Config, spend, actions, response string) (orchestrator.Inputs, error) {
	in := orchestrator.Inputs{SpendPath: spend, ActionsPath: actions, ResponsePath: response}

	if in.SpendPath == "" {
		p, err := extract.FindLatestByPattern(cfg.Inputs.Dir, cfg.Inputs.SpendPattern)
		if err != nil {
			return in, fmt.Errorf("spend ledger (%s): %w", cfg.Inputs.SpendPattern, err)
		}
		in.SpendPath = p
	}
	if in.ActionsPath == "" {
		if p, err := extract.FindLatestByPattern(cfg.Inputs.Dir, cfg.Inputs.ActionsPattern); err == nil {
			in.ActionsPath = p
		}
	}
	if in.ResponsePath == "" {
		if p, err := extract.FindLatestByPattern(cfg.Inputs.Dir, cfg.Inputs.ResponsePattern); err == nil {
			in.ResponsePath = p
		}
	}
	return in, nil
}
