package performance

import (
	"strings"

	"tv-attribution/internal/domain"
)

// Facts flattens a table into warehouse rows, one per table row. Dimension
// values join into DimKey in the table's key-column order.
func Facts(t *Table, sourceFile string) []*domain.WeeklyFact {
	if t == nil {
		return nil
	}
	facts := make([]*domain.WeeklyFact, 0, len(t.Rows))
	for _, r := range t.Rows {
		dims := make([]string, len(t.KeyColumns))
		for i, k := range t.KeyColumns {
			dims[i] = r.Dims[k]
		}
		actions := make(map[string]float64, len(r.Actions))
		for label, n := range r.Actions {
			actions[label] = n
		}
		facts = append(facts, &domain.WeeklyFact{
			Client:              r.Client,
			SourceTab:           t.Name,
			DimKey:              strings.Join(dims, " | "),
			Week:                r.Week,
			Cost:                r.Cost,
			Responses:           r.Responses,
			Impressions:         r.Impressions,
			Actions:             actions,
			ActionsTotal:        r.ActionsTotal(),
			CostPerResponse:     r.CostPerResponse(),
			CostPerActionsTotal: r.CostPerActionsTotal(),
			SourceFile:          sourceFile,
		})
	}
	return facts
}
