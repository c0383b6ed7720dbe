// Package spend builds per-dimension spend tables and the station priority
// ranking from the compile ledger.
package spend

import (
	"strings"

	"tv-attribution/internal/domain"
	"tv-attribution/internal/extract"
	"tv-attribution/internal/normalization"
)

// Ledger header alias keys.
var (
	stationKeys   = []string{"station", "stationname", "channel"}
	costKeys      = []string{"clientgross", "clientgrossamt", "cost", "gross", "spend"}
	imprKeys      = []string{"impressions"}
	creativeKeys  = []string{"tapeaired", "programaired", "creative", "szspottitle"}
	dateKeys      = []string{"dateaired", "dateairedmmddyyyy", "dateairedyyyymmdd", "datea", "airdate", "date"}
	timeKeys      = []string{"timeaired", "airtime", "time"}
	marketKeys    = []string{"market", "tadspotsmarket"}
	spotCountKeys = []string{"spotcount", "spots"}
)

// Cell is the aggregated spend for one dimension key.
type Cell struct {
	Cost        float64
	Impressions float64
}

// Composite keys for multi-column dimensions.
type (
	StationWeek         struct{ Station, Week string }
	StationCreative     struct{ Station, Creative string }
	StationCreativeWeek struct{ Station, Creative, Week string }
	DayWeek             struct{ Day, Week string }
	HourWeek            struct {
		Hour int
		Week string
	}
	StationHour struct {
		Station string
		Hour    int
	}
	StationHourWeek struct {
		Station string
		Hour    int
		Week    string
	}
	MarketWeek struct{ Market, Week string }
)

// Tables holds every spend rollup, all-time and weekly. A dimension whose key
// column is absent from the ledger yields an empty map, never an error.
type Tables struct {
	Station         map[string]Cell
	StationCreative map[StationCreative]Cell
	Day             map[string]Cell
	Hour            map[int]Cell
	StationHour     map[StationHour]Cell
	Market          map[string]Cell

	StationWeekly         map[StationWeek]Cell
	StationCreativeWeekly map[StationCreativeWeek]Cell
	DayWeekly             map[DayWeek]Cell
	HourWeekly            map[HourWeek]Cell
	StationHourWeekly     map[StationHourWeek]Cell
	MarketWeekly          map[MarketWeek]Cell

	HasCreative bool
	HasDate     bool
	HasTime     bool
	HasMarket   bool
}

// ParseLedger coerces the compile ledger into spend records. Station and cost
// columns are required; everything else is optional and degrades per row.
func ParseLedger(t *extract.Table) ([]domain.SpendRecord, error) {
	stationCol, ok := t.FirstColumnByKeys(stationKeys...)
	if !ok {
		return nil, &extract.MissingColumnError{Logical: "Station", Aliases: stationKeys, Headers: t.Headers}
	}
	costCol, ok := t.FirstColumnByKeys(costKeys...)
	if !ok {
		return nil, &extract.MissingColumnError{Logical: "Cost", Aliases: costKeys, Headers: t.Headers}
	}
	imprCol, hasImpr := t.FirstColumnByKeys(imprKeys...)
	creativeCol, hasCreative := t.FirstColumnByKeys(creativeKeys...)
	dateCol, hasDate := t.FirstColumnByKeys(dateKeys...)
	timeCol, hasTime := t.FirstColumnByKeys(timeKeys...)
	marketCol, hasMarket := t.FirstColumnByKeys(marketKeys...)

	records := make([]domain.SpendRecord, 0, t.Len())
	for r := 0; r < t.Len(); r++ {
		rec := domain.SpendRecord{}
		if s, present := normalization.CanonicalStation(t.Cell(r, stationCol)); present {
			rec.Station = s
		} else {
			rec.Station = domain.UnknownStation
		}

		// Unparseable cost/impressions become 0, never negative, never null.
		if cost, cok := normalization.CoerceNumeric(t.Cell(r, costCol)); cok {
			rec.Cost = cost
		}
		if hasImpr {
			if impr, iok := normalization.CoerceNumeric(t.Cell(r, imprCol)); iok {
				rec.Impressions = impr
			}
		}

		if hasCreative {
			c := strings.ToUpper(strings.TrimSpace(t.Cell(r, creativeCol)))
			if c != "" {
				rec.Creative = c
				rec.HasCreative = true
			}
		}
		if hasDate {
			if d, dok := normalization.CoerceDateTime(t.Cell(r, dateCol)); dok {
				rec.Day = normalization.Weekday(d)
				rec.HasDay = true
				rec.Week = normalization.WeekLabel(d)
				rec.HasWeek = true
			}
		}
		if hasTime {
			if h, hok := normalization.CoerceHour(t.Cell(r, timeCol)); hok {
				rec.Hour = h
				rec.HasHour = true
			}
		}
		if hasMarket {
			if m := strings.TrimSpace(t.Cell(r, marketCol)); m != "" {
				rec.Market = normalization.NormalizeMarket(m)
				rec.HasMarket = true
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// BuildTables aggregates spend records into every dimension rollup. The
// presence flags mirror which ledger columns resolved; weekly maps stay empty
// when the ledger has no date column.
func BuildTables(t *extract.Table) (*Tables, error) {
	records, err := ParseLedger(t)
	if err != nil {
		return nil, err
	}
	_, hasCreative := t.FirstColumnByKeys(creativeKeys...)
	_, hasDate := t.FirstColumnByKeys(dateKeys...)
	_, hasTime := t.FirstColumnByKeys(timeKeys...)
	_, hasMarket := t.FirstColumnByKeys(marketKeys...)

	tbl := &Tables{
		Station:         make(map[string]Cell),
		StationCreative: make(map[StationCreative]Cell),
		Day:             make(map[string]Cell),
		Hour:            make(map[int]Cell),
		StationHour:     make(map[StationHour]Cell),
		Market:          make(map[string]Cell),

		StationWeekly:         make(map[StationWeek]Cell),
		StationCreativeWeekly: make(map[StationCreativeWeek]Cell),
		DayWeekly:             make(map[DayWeek]Cell),
		HourWeekly:            make(map[HourWeek]Cell),
		StationHourWeekly:     make(map[StationHourWeek]Cell),
		MarketWeekly:          make(map[MarketWeek]Cell),

		HasCreative: hasCreative,
		HasDate:     hasDate,
		HasTime:     hasTime,
		HasMarket:   hasMarket,
	}

	for _, rec := range records {
		add(tbl.Station, rec.Station, rec)

		if rec.HasCreative {
			add(tbl.StationCreative, StationCreative{rec.Station, rec.Creative}, rec)
		}
		if rec.HasDay {
			add(tbl.Day, rec.Day, rec)
		}
		if rec.HasHour {
			add(tbl.Hour, rec.Hour, rec)
			add(tbl.StationHour, StationHour{rec.Station, rec.Hour}, rec)
		}
		if rec.HasMarket {
			add(tbl.Market, rec.Market, rec)
		}

		if !rec.HasWeek {
			continue
		}
		add(tbl.StationWeekly, StationWeek{rec.Station, rec.Week}, rec)
		if rec.HasCreative {
			add(tbl.StationCreativeWeekly, StationCreativeWeek{rec.Station, rec.Creative, rec.Week}, rec)
		}
		if rec.HasDay {
			add(tbl.DayWeekly, DayWeek{rec.Day, rec.Week}, rec)
		}
		if rec.HasHour {
			add(tbl.HourWeekly, HourWeek{rec.Hour, rec.Week}, rec)
			add(tbl.StationHourWeekly, StationHourWeek{rec.Station, rec.Hour, rec.Week}, rec)
		}
		if rec.HasMarket {
			add(tbl.MarketWeekly, MarketWeek{rec.Market, rec.Week}, rec)
		}
	}
	return tbl, nil
}

func add[K comparable](m map[K]Cell, k K, rec domain.SpendRecord) {
	c := m[k]
	c.Cost += rec.Cost
	c.Impressions += rec.Impressions
	m[k] = c
}
