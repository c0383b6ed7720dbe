// Package dedupe collapses noisy multi-row session events into one winning
// row per group. Actions resolve first through the top-3 station priority
// ranking and only then through model probability; responses keep the
// earliest row per session.
package dedupe

import (
	"tv-attribution/internal/domain"
)

// Engine deduplicates mapped events against a station priority head table.
type Engine struct {
	rankByStation map[string]int
}

// NewEngine builds an engine from the top-3 rank table. Stations outside the
// table are unranked and never win by priority.
func NewEngine(top []domain.StationRank) *Engine {
	m := make(map[string]int, len(top))
	for _, r := range top {
		m[r.Station] = r.Rank
	}
	return &Engine{rankByStation: m}
}

type group struct {
	key  groupKey
	rows []int // indices into the input slice, in original order
}

type groupKey struct {
	sessionID string
	action    string
}

// collectGroups partitions events preserving first-seen group order.
func collectGroups(events []domain.MappedEvent, withAction bool) []group {
	index := make(map[groupKey]int)
	groups := make([]group, 0)
	for i, ev := range events {
		k := groupKey{sessionID: ev.SessionID}
		if withAction {
			k.action = ev.Action
		}
		gi, exists := index[k]
		if !exists {
			gi = len(groups)
			index[k] = gi
			groups = append(groups, group{key: k})
		}
		groups[gi].rows = append(groups[gi].rows, i)
	}
	return groups
}

// DedupeActions resolves one winner per group of the actions stream.
//
// Within a group:
//  1. If any row's station appears in the top-3 ranking, the winner is the
//     row with the numerically lowest rank; ties break by earliest timestamp
//     (missing sorts last), then original row order.
//  2. Otherwise the winner has the highest probability (absent probability
//     always loses to any present value); same tie-breaks.
//
// Empty input yields an empty result with zeroed stats.
func (e *Engine) DedupeActions(events []domain.MappedEvent, mode domain.DedupeMode) ([]domain.MappedEvent, domain.DedupeStats) {
	withAction := mode == domain.DedupeWithAction
	stats := domain.DedupeStats{Mode: mode, GroupKeys: "SessionID"}
	if withAction {
		stats.GroupKeys = "SessionID, Action"
	}

	groups := collectGroups(events, withAction)
	kept := make([]domain.MappedEvent, 0, len(groups))
	for _, g := range groups {
		stats.Groups++

		winner, byPriority := e.resolveAction(events, g.rows)
		kept = append(kept, events[winner])
		if byPriority {
			stats.KeptByTop3++
		} else {
			stats.KeptByProbability++
		}
	}
	return kept, stats
}

// resolveAction picks the winning row index of one group and reports whether
// the priority rule decided it.
func (e *Engine) resolveAction(events []domain.MappedEvent, rows []int) (int, bool) {
	// Priority pass: best (lowest) rank among ranked stations.
	bestRank := 0
	ranked := rows[:0:0]
	for _, i := range rows {
		r, ok := e.rankByStation[events[i].Station]
		if !ok {
			continue
		}
		switch {
		case len(ranked) == 0 || r < bestRank:
			bestRank = r
			ranked = append(ranked[:0], i)
		case r == bestRank:
			ranked = append(ranked, i)
		}
	}
	if len(ranked) > 0 {
		return earliest(events, ranked), true
	}

	// Probability pass: highest probability wins; candidates keep original
	// order so earliest-timestamp-then-order tie-breaking stays stable.
	best := []int{rows[0]}
	for _, i := range rows[1:] {
		switch {
		case events[i].Probability > events[best[0]].Probability:
			best = append(best[:0], i)
		case events[i].Probability == events[best[0]].Probability:
			best = append(best, i)
		}
	}
	return earliest(events, best), false
}

// DedupeResponses keeps the earliest-timestamped row per SessionID; rows with
// no timestamp sort after every valid one, and original order breaks ties.
func DedupeResponses(events []domain.MappedEvent) ([]domain.MappedEvent, domain.DedupeStats) {
	stats := domain.DedupeStats{GroupKeys: "SessionID"}
	groups := collectGroups(events, false)
	kept := make([]domain.MappedEvent, 0, len(groups))
	for _, g := range groups {
		stats.Groups++
		kept = append(kept, events[earliest(events, g.rows)])
	}
	return kept, stats
}

// earliest returns the candidate index with the smallest timestamp; missing
// timestamps sort last and the first candidate wins exact ties.
func earliest(events []domain.MappedEvent, candidates []int) int {
	best := candidates[0]
	bestTS := events[best].TimestampOrMax()
	for _, i := range candidates[1:] {
		if ts := events[i].TimestampOrMax(); ts.Before(bestTS) {
			best = i
			bestTS = ts
		}
	}
	return best
}
