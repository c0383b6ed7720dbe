// Package performance rolls deduplicated event streams and spend into weekly
// multi-dimensional tables with derived cost-efficiency ratios.
package performance

import (
	"math"
	"sort"
	"strings"
)

// Column names fixed across every table. Action-label columns are discovered
// from the data and interleaved per the ordering contract.
const (
	ColClient              = "Client"
	ColCost                = "Cost"
	ColResponses           = "Responses"
	ColCostPerResponse     = "Cost per Response"
	ColActionsTotal        = "Actions_Total"
	ColCostPerActionsTotal = "Cost per Actions_Total"
	ColImpressions         = "Impressions"
	ColActionRevenue       = "Action Revenue"
	ColROI                 = "ROI"
	ColWeek                = "Week Of (Mon)"
)

// Table names produced by the aggregator.
const (
	TableChannel           = "Channel"
	TableCreative          = "Creative"
	TableChannelByCreative = "Channel by Creative"
	TableDay               = "Day"
	TableHour              = "Hour"
	TableChannelByHour     = "Channel by Hour"
	TableMarket            = "Market"
)

// Row is one (dimension key, week) bucket. Base metrics are stored; every
// ratio is derived from this row's own bases on read, never carried over
// from a sub-aggregate.
type Row struct {
	Client string
	Dims   map[string]string // key column -> value

	Cost        float64
	Responses   float64
	Impressions float64
	Actions     map[string]float64 // discovered label -> count

	Revenue float64

	Week string
}

// ActionsTotal is the sum of all discovered action columns in this row.
func (r *Row) ActionsTotal() float64 {
	total := 0.0
	for _, v := range r.Actions {
		total += v
	}
	return total
}

// CostPerResponse is Cost/Responses, NaN when Responses is 0.
func (r *Row) CostPerResponse() float64 { return ratio(r.Cost, r.Responses) }

// CostPerAction is Cost divided by one action column, NaN when it is 0.
func (r *Row) CostPerAction(label string) float64 { return ratio(r.Cost, r.Actions[label]) }

// CostPerActionsTotal is Cost/ActionsTotal, NaN when the total is 0.
func (r *Row) CostPerActionsTotal() float64 { return ratio(r.Cost, r.ActionsTotal()) }

// ROI is Revenue/Cost, NaN when Cost is 0.
func (r *Row) ROI() float64 { return ratio(r.Revenue, r.Cost) }

func ratio(num, den float64) float64 {
	if den > 0 {
		return num / den
	}
	return math.NaN()
}

// Table is one finished performance table.
type Table struct {
	Name           string
	KeyColumns     []string // dimension key column(s), in display order
	ActionLabels   []string // discovered labels, sorted case-insensitively
	IncludeRevenue bool
	Rows           []*Row
}

// Columns returns the deterministic column order: Client, dimension keys,
// Cost, Responses, Cost per Response, each action column immediately followed
// by its cost-per column, Actions_Total, Cost per Actions_Total, Impressions,
// revenue columns when enabled, and the week label always last.
func (t *Table) Columns() []string {
	cols := []string{ColClient}
	cols = append(cols, t.KeyColumns...)
	cols = append(cols, ColCost, ColResponses, ColCostPerResponse)
	for _, label := range t.ActionLabels {
		cols = append(cols, label, "Cost per "+label)
	}
	cols = append(cols, ColActionsTotal, ColCostPerActionsTotal, ColImpressions)
	if t.IncludeRevenue {
		cols = append(cols, ColActionRevenue, ColROI)
	}
	cols = append(cols, ColWeek)
	return cols
}

// Value returns one cell of a row by column name. Ratio cells may be NaN.
func (t *Table) Value(r *Row, col string) any {
	switch col {
	case ColClient:
		return r.Client
	case ColCost:
		return r.Cost
	case ColResponses:
		return r.Responses
	case ColCostPerResponse:
		return r.CostPerResponse()
	case ColActionsTotal:
		return r.ActionsTotal()
	case ColCostPerActionsTotal:
		return r.CostPerActionsTotal()
	case ColImpressions:
		return r.Impressions
	case ColActionRevenue:
		return r.Revenue
	case ColROI:
		return r.ROI()
	case ColWeek:
		return r.Week
	}
	for _, key := range t.KeyColumns {
		if col == key {
			return r.Dims[key]
		}
	}
	if label, ok := strings.CutPrefix(col, "Cost per "); ok {
		return r.CostPerAction(label)
	}
	return r.Actions[col]
}

// sortLabels orders discovered action labels case-insensitively, falling
// back to byte order for case-only differences, so column layout is stable
// across runs.
func sortLabels(set map[string]struct{}) []string {
	labels := make([]string, 0, len(set))
	for l := range set {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool {
		a, b := strings.ToLower(labels[i]), strings.ToLower(labels[j])
		if a != b {
			return a < b
		}
		return labels[i] < labels[j]
	})
	return labels
}
