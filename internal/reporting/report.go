package reporting

import (
	"time"

	"tv-attribution/internal/domain"
)

// Report captures one pipeline run for the Markdown run summary.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	Client      string

	// Inputs
	SpendFile    string
	ActionsFile  string
	ResponseFile string

	// Spend summary
	SpendRows int
	TotalCost float64

	// Station priority
	TopStations []domain.StationRank

	// Deduplication
	ActionsIn     int
	ActionsKept   int
	ResponsesIn   int
	ResponsesKept int
	ActionStats   domain.DedupeStats
	ResponseStats domain.DedupeStats

	RevenueEnabled bool

	// Output tables (name, row count)
	Tables []TableSummary

	// Data quality warnings collected during the run
	Warnings []string
}

// TableSummary is one line in the output-tables section.
type TableSummary struct {
	Name  string
	Rows  int
	Weeks int
}
