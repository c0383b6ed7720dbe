// Package mapping projects raw action and response extracts onto the logical
// event schema. Header naming varies per export platform, so every logical
// column is resolved through a normalized alias list; only SessionID (and
// Action, for actions) are required.
package mapping

import (
	"math"
	"time"

	"tv-attribution/internal/domain"
	"tv-attribution/internal/extract"
	"tv-attribution/internal/normalization"
)

// Alias key sets, in resolution priority order.
var (
	sessionIDKeys = []string{"usersessionid", "sessionid", "sid"}
	actionKeys    = []string{"action", "event", "type", "actionname", "actiontype"}
	stationKeys   = []string{"tadspotschannel", "network", "station", "channel"}
	probKeys      = []string{"actionprobability", "actionsessionprobability", "probability", "score", "prob"}
	creativeKeys  = []string{"creative", "adcreative", "creativename", "spot"}
	marketKeys    = []string{"tadspotsmarket", "market", "region"}
	revenueKeys   = []string{"totalactionrevenue", "actionrevenue", "totalrevenue", "totalactionsrevenue", "grossrevenue", "revenue"}

	actionTimestampKeys   = []string{"actiondatetime", "visitdatetime", "timestamp", "datetime"}
	responseTimestampKeys = []string{"visitdatetime", "timestamp", "datetime"}
	dateKeys              = []string{"date", "visitdate", "actiondate", "datevisited", "dateaired"}
	timeKeys              = []string{"time", "visittime", "actiontime", "timeaired"}
)

// MapActions maps a raw actions extract to events. Fails with a
// MissingColumnError when no SessionID or Action column resolves.
func MapActions(t *extract.Table) ([]domain.MappedEvent, error) {
	sidCol, ok := t.FirstColumnByKeys(sessionIDKeys...)
	if !ok {
		return nil, &extract.MissingColumnError{Logical: "SessionID", Aliases: sessionIDKeys, Headers: t.Headers}
	}
	actCol, ok := t.FirstColumnByKeys(actionKeys...)
	if !ok {
		return nil, &extract.MissingColumnError{Logical: "Action", Aliases: actionKeys, Headers: t.Headers}
	}

	stationCol := chooseStationColumn(t)
	probCol, hasProbCol := t.FirstColumnByKeys(probKeys...)
	creativeCol, hasCreative := t.FirstColumnByKeys(creativeKeys...)
	marketCol, hasMarket := t.FirstColumnByKeys(marketKeys...)
	revCol, hasRevenue := t.FirstColumnByKeys(revenueKeys...)

	events := make([]domain.MappedEvent, 0, t.Len())
	for r := 0; r < t.Len(); r++ {
		ev := domain.MappedEvent{
			SourceRowID: r,
			SessionID:   t.Cell(r, sidCol),
			Action:      t.Cell(r, actCol),
			Raw:         t.RowMap(r),
		}
		ev.Station = resolveStation(t, r, stationCol)
		ev.Timestamp, ev.HasTimestamp = pickTimestamp(t, r, actionTimestampKeys)

		// Absent probability sorts below every present value.
		ev.Probability = math.Inf(-1)
		if hasProbCol {
			if p, pok := normalization.CoerceNumeric(t.Cell(r, probCol)); pok {
				ev.Probability = p
				ev.HasProbability = true
			}
		}
		if hasCreative {
			ev.Creative = t.Cell(r, creativeCol)
		}
		if hasMarket {
			if m := t.Cell(r, marketCol); m != "" {
				ev.Market = normalization.NormalizeMarket(m)
			}
		}
		if hasRevenue {
			rev, _ := normalization.CoerceNumeric(t.Cell(r, revCol))
			ev.Revenue = rev
			ev.HasRevenue = true
		}
		events = append(events, ev)
	}
	return events, nil
}

// MapResponse maps a raw response extract to events. Fails with a
// MissingColumnError when no SessionID column resolves.
func MapResponse(t *extract.Table) ([]domain.MappedEvent, error) {
	sidCol, ok := t.FirstColumnByKeys(sessionIDKeys...)
	if !ok {
		return nil, &extract.MissingColumnError{Logical: "SessionID", Aliases: sessionIDKeys, Headers: t.Headers}
	}

	stationCol := chooseStationColumn(t)
	creativeCol, hasCreative := t.FirstColumnByKeys(creativeKeys...)
	marketCol, hasMarket := t.FirstColumnByKeys(marketKeys...)

	events := make([]domain.MappedEvent, 0, t.Len())
	for r := 0; r < t.Len(); r++ {
		ev := domain.MappedEvent{
			SourceRowID: r,
			SessionID:   t.Cell(r, sidCol),
			Raw:         t.RowMap(r),
		}
		ev.Station = resolveStation(t, r, stationCol)
		ev.Timestamp, ev.HasTimestamp = pickTimestamp(t, r, responseTimestampKeys)
		ev.Probability = math.Inf(-1)
		if hasCreative {
			ev.Creative = t.Cell(r, creativeCol)
		}
		if hasMarket {
			if m := t.Cell(r, marketCol); m != "" {
				ev.Market = normalization.NormalizeMarket(m)
			}
		}
		events = append(events, ev)
	}
	return events, nil
}

// chooseStationColumn picks the station-like column with the most non-missing
// values among the known candidates, not merely the first alias hit. Returns
// the empty string when no candidate exists.
func chooseStationColumn(t *extract.Table) string {
	best := ""
	bestCount := -1
	for _, key := range stationKeys {
		col, ok := t.FirstColumnByKeys(key)
		if !ok {
			continue
		}
		count := 0
		for _, v := range t.Column(col) {
			if _, present := normalization.CanonicalStation(v); present {
				count++
			}
		}
		if count > bestCount {
			best, bestCount = col, count
		}
	}
	return best
}

func resolveStation(t *extract.Table, row int, stationCol string) string {
	if stationCol == "" {
		return domain.UnknownStation
	}
	if s, ok := normalization.CanonicalStation(t.Cell(row, stationCol)); ok {
		return s
	}
	return domain.UnknownStation
}

// pickTimestamp resolves a row timestamp: combined-datetime headers in
// priority order, then a stitched date+time pair, then date alone.
func pickTimestamp(t *extract.Table, row int, priority []string) (time.Time, bool) {
	for _, key := range priority {
		if col, found := t.FirstColumnByKeys(key); found {
			return normalization.CoerceDateTime(t.Cell(row, col))
		}
	}

	dateCol, hasDate := t.FirstColumnByKeys(dateKeys...)
	timeCol, hasTime := t.FirstColumnByKeys(timeKeys...)
	if hasDate && hasTime {
		if stitched, sok := normalization.CoerceDateTime(t.Cell(row, dateCol) + " " + t.Cell(row, timeCol)); sok {
			return stitched, true
		}
	}
	if hasDate {
		return normalization.CoerceDateTime(t.Cell(row, dateCol))
	}
	return time.Time{}, false
}
