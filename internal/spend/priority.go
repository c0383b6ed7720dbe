package spend

import (
	"sort"

	"tv-attribution/internal/domain"
	"tv-attribution/internal/extract"
	"tv-attribution/internal/normalization"
)

// TopStationCount is the size of the priority head table consulted by the
// dedup engine.
const TopStationCount = 3

// BuildStationPriority ranks stations by cost per spot and returns the full
// ranking plus its top-3 head. When the ledger has no explicit spot-count
// column, the per-station row count stands in for spots aired.
func BuildStationPriority(t *extract.Table) (rank, top []domain.StationRank, err error) {
	stationCol, ok := t.FirstColumnByKeys(stationKeys...)
	if !ok {
		return nil, nil, &extract.MissingColumnError{Logical: "Station", Aliases: stationKeys, Headers: t.Headers}
	}
	costCol, ok := t.FirstColumnByKeys(costKeys...)
	if !ok {
		return nil, nil, &extract.MissingColumnError{Logical: "Cost", Aliases: costKeys, Headers: t.Headers}
	}
	imprCol, hasImpr := t.FirstColumnByKeys(imprKeys...)
	spotCol, hasSpots := t.FirstColumnByKeys(spotCountKeys...)

	type accum struct {
		cost, spots, impressions float64
	}
	byStation := make(map[string]*accum)
	order := make([]string, 0)

	for r := 0; r < t.Len(); r++ {
		station, present := normalization.CanonicalStation(t.Cell(r, stationCol))
		if !present {
			station = domain.UnknownStation
		}
		a, exists := byStation[station]
		if !exists {
			a = &accum{}
			byStation[station] = a
			order = append(order, station)
		}
		if cost, cok := normalization.CoerceNumeric(t.Cell(r, costCol)); cok {
			a.cost += cost
		}
		if hasSpots {
			if n, sok := normalization.CoerceNumeric(t.Cell(r, spotCol)); sok {
				a.spots += n
			}
		} else {
			// Row count as spot proxy when no spot-count column exists.
			a.spots++
		}
		if hasImpr {
			if impr, iok := normalization.CoerceNumeric(t.Cell(r, imprCol)); iok {
				a.impressions += impr
			}
		}
	}

	rank = make([]domain.StationRank, 0, len(order))
	for _, station := range order {
		a := byStation[station]
		if a.spots <= 0 {
			continue // unrankable without spots
		}
		rank = append(rank, domain.StationRank{
			Station:     station,
			Cost:        a.cost,
			SpotCount:   a.spots,
			Impressions: a.impressions,
			CostPerSpot: a.cost / a.spots,
		})
	}

	// cost_per_spot desc, Cost desc, SpotCount desc, Station asc.
	sort.Slice(rank, func(i, j int) bool {
		a, b := rank[i], rank[j]
		if a.CostPerSpot != b.CostPerSpot {
			return a.CostPerSpot > b.CostPerSpot
		}
		if a.Cost != b.Cost {
			return a.Cost > b.Cost
		}
		if a.SpotCount != b.SpotCount {
			return a.SpotCount > b.SpotCount
		}
		return a.Station < b.Station
	})
	for i := range rank {
		rank[i].Rank = i + 1
	}

	n := TopStationCount
	if len(rank) < n {
		n = len(rank)
	}
	top = make([]domain.StationRank, n)
	copy(top, rank[:n])
	return rank, top, nil
}
