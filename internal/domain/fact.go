package domain

// LoadMode controls how weekly facts replace existing warehouse rows.
type LoadMode string

const (
	// LoadReplaceWeeks deletes rows for the incoming (client, tab, week)
	// combinations before inserting.
	LoadReplaceWeeks LoadMode = "ReplaceWeeks"
	// LoadAppend inserts without deleting anything.
	LoadAppend LoadMode = "Append"
	// LoadReplaceAll deletes all rows for (client, tab) before inserting.
	LoadReplaceAll LoadMode = "ReplaceAll"
	// LoadSkip performs no write.
	LoadSkip LoadMode = "Skip"
)

// Valid reports whether m is a recognized load mode.
func (m LoadMode) Valid() bool {
	switch m {
	case LoadReplaceWeeks, LoadAppend, LoadReplaceAll, LoadSkip:
		return true
	}
	return false
}

// WeeklyFact is one flattened performance-table row ready for the warehouse.
// Ratio fields are NaN when undefined; stores persist NaN as NULL, never 0.
type WeeklyFact struct {
	Client    string
	SourceTab string // performance table name, e.g. "Channel"
	DimKey    string // dimension key values joined with " | "
	Week      string

	Cost        float64
	Responses   float64
	Impressions float64

	Actions      map[string]float64 // discovered action label -> count
	ActionsTotal float64

	CostPerResponse     float64 // NaN when Responses == 0
	CostPerActionsTotal float64 // NaN when ActionsTotal == 0

	SourceFile string
}
