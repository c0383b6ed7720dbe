package performance

import "tv-attribution/internal/domain"

// ResolveRevenue decides whether the Action Revenue and ROI columns are
// emitted. In auto mode they appear only when at least one action event
// carried a revenue value.
func ResolveRevenue(mode domain.RevenueMode, actions []domain.MappedEvent) bool {
	switch mode {
	case domain.RevenueOn:
		return true
	case domain.RevenueOff:
		return false
	}
	for i := range actions {
		if actions[i].HasRevenue {
			return true
		}
	}
	return false
}

// MarkRevenue flips the revenue columns on across a set of tables. Row
// revenue sums are accumulated during the build regardless; this only
// controls whether the columns render.
func MarkRevenue(tables map[string]*Table, enabled bool) {
	for _, t := range tables {
		if t != nil {
			t.IncludeRevenue = enabled
		}
	}
}
