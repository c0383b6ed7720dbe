package domain

// SpendRecord is one row of the compile ledger after coercion. Cost and
// Impressions are always finite; unparseable and missing values become 0,
// never NaN. Negative values pass through as written.
type SpendRecord struct {
	Station     string
	Cost        float64
	Impressions float64

	Creative    string
	HasCreative bool

	Day    string // weekday name, e.g. "Monday"
	HasDay bool

	Hour    int
	HasHour bool

	Market    string
	HasMarket bool

	Week    string // broadcast-week label (Monday date), empty when no date
	HasWeek bool
}

// StationRank is one row of the station priority ranking.
type StationRank struct {
	Station     string
	Cost        float64
	SpotCount   float64
	Impressions float64
	CostPerSpot float64
	Rank        int // dense, 1 = highest cost per spot
}
