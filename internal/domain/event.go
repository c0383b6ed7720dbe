package domain

import "time"

// UnknownStation is the sentinel used when a station name is absent or
// unrecognizable after canonicalization.
const UnknownStation = "UNKNOWN"

// MappedEvent is one action or response row projected onto the logical schema.
// Raw preserves every original column of the source row so detail sheets can
// re-merge them after deduplication.
type MappedEvent struct {
	SourceRowID int // zero-based row index in the source extract

	SessionID string
	Action    string // actions only; empty for responses
	Station   string // canonical, never empty (UnknownStation when missing)

	Timestamp    time.Time
	HasTimestamp bool

	// Probability arbitrates dedup ties in groups without a top-3 station.
	// An absent probability always loses to any present value.
	Probability    float64
	HasProbability bool

	Creative string
	Market   string

	Revenue    float64
	HasRevenue bool

	Raw map[string]string
}

// TimestampOrMax returns the event timestamp, or the maximum representable
// time when absent so that missing timestamps sort after all valid ones.
func (e *MappedEvent) TimestampOrMax() time.Time {
	if e.HasTimestamp {
		return e.Timestamp
	}
	return maxTime
}

var maxTime = time.Unix(1<<62, 0)

// DedupeMode selects the grouping key for action deduplication.
type DedupeMode string

const (
	// DedupeWithAction groups actions by (SessionID, Action).
	DedupeWithAction DedupeMode = "with_action"
	// DedupeSessionOnly groups actions by SessionID alone.
	DedupeSessionOnly DedupeMode = "session_only"
)

// Valid reports whether m is a recognized dedupe mode.
func (m DedupeMode) Valid() bool {
	return m == DedupeWithAction || m == DedupeSessionOnly
}

// RevenueMode controls whether action revenue metrics are included in output.
type RevenueMode string

const (
	RevenueOn   RevenueMode = "on"
	RevenueOff  RevenueMode = "off"
	RevenueAuto RevenueMode = "auto" // include only when the source carried a revenue column
)

// Valid reports whether m is a recognized revenue mode.
func (m RevenueMode) Valid() bool {
	return m == RevenueOn || m == RevenueOff || m == RevenueAuto
}

// DedupeStats summarizes one deduplication pass.
type DedupeStats struct {
	Mode              DedupeMode
	GroupKeys         string // human-readable group key description
	Groups            int
	KeptByTop3        int
	KeptByProbability int
}
