package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders a run report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# Attribution Run Report — %s\n\n", r.Client))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Inputs
	sb.WriteString("## Inputs\n\n")
	sb.WriteString("| Feed | File |\n")
	sb.WriteString("|------|------|\n")
	sb.WriteString(fmt.Sprintf("| Spend ledger | %s |\n", orDash(r.SpendFile)))
	sb.WriteString(fmt.Sprintf("| Actions | %s |\n", orDash(r.ActionsFile)))
	sb.WriteString(fmt.Sprintf("| Responses | %s |\n", orDash(r.ResponseFile)))
	sb.WriteString("\n")

	// Spend Summary
	sb.WriteString("## Spend Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Ledger Rows | %d |\n", r.SpendRows))
	sb.WriteString(fmt.Sprintf("| Total Cost | %.2f |\n", r.TotalCost))
	sb.WriteString("\n")

	// Station Priority
	sb.WriteString("## Top Priority Stations\n\n")
	if len(r.TopStations) > 0 {
		sb.WriteString("| Rank | Station | Cost | Spots | Cost/Spot |\n")
		sb.WriteString("|------|---------|------|-------|----------|\n")
		for _, s := range r.TopStations {
			sb.WriteString(fmt.Sprintf("| %d | %s | %.2f | %.0f | %.2f |\n",
				s.Rank, s.Station, s.Cost, s.SpotCount, s.CostPerSpot))
		}
	} else {
		sb.WriteString("No ranked stations.\n")
	}
	sb.WriteString("\n")

	// Deduplication
	sb.WriteString("## Deduplication\n\n")
	sb.WriteString("| Feed | Group Keys | In | Kept | Groups | Kept by Priority | Kept by Probability |\n")
	sb.WriteString("|------|------------|----|------|--------|------------------|--------------------|\n")
	sb.WriteString(fmt.Sprintf("| Actions | %s | %d | %d | %d | %d | %d |\n",
		r.ActionStats.GroupKeys, r.ActionsIn, r.ActionsKept,
		r.ActionStats.Groups, r.ActionStats.KeptByTop3, r.ActionStats.KeptByProbability))
	sb.WriteString(fmt.Sprintf("| Responses | %s | %d | %d | %d | - | - |\n",
		r.ResponseStats.GroupKeys, r.ResponsesIn, r.ResponsesKept, r.ResponseStats.Groups))
	sb.WriteString("\n")

	if r.RevenueEnabled {
		sb.WriteString("Action revenue columns: enabled\n\n")
	} else {
		sb.WriteString("Action revenue columns: disabled\n\n")
	}

	// Output Tables
	sb.WriteString("## Output Tables\n\n")
	if len(r.Tables) > 0 {
		sb.WriteString("| Table | Rows | Weeks |\n")
		sb.WriteString("|-------|------|-------|\n")
		for _, t := range r.Tables {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d |\n", t.Name, t.Rows, t.Weeks))
		}
	} else {
		sb.WriteString("No tables produced.\n")
	}
	sb.WriteString("\n")

	// Warnings
	if len(r.Warnings) > 0 {
		sb.WriteString("## Warnings\n\n")
		for _, w := range r.Warnings {
			sb.WriteString(fmt.Sprintf("- %s\n", w))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
