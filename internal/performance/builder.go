package performance

import (
	"sort"
	"strconv"
	"strings"

	"tv-attribution/internal/domain"
	"tv-attribution/internal/normalization"
	"tv-attribution/internal/spend"
)

// eventView caches the time-derived dimensions of one deduplicated event.
// Events without a timestamp have no week and never enter aggregated tables;
// they still appear on the detail sheets.
type eventView struct {
	ev      *domain.MappedEvent
	week    string
	weekday string
	hour    int
	hasWeek bool
}

func viewEvents(events []domain.MappedEvent) []eventView {
	views := make([]eventView, len(events))
	for i := range events {
		v := eventView{ev: &events[i]}
		if events[i].HasTimestamp {
			ts := events[i].Timestamp
			v.week = normalization.WeekLabel(ts)
			v.weekday = normalization.Weekday(ts)
			v.hour = ts.Hour()
			v.hasWeek = true
		}
		views[i] = v
	}
	return views
}

// accumulator builds one table: rows keyed by (dimension values, week), with
// action labels discovered as they arrive.
type accumulator struct {
	client string
	keys   []string
	rows   map[string]*Row
	order  []string
	labels map[string]struct{}
}

func newAccumulator(client string, keys ...string) *accumulator {
	return &accumulator{
		client: client,
		keys:   keys,
		rows:   make(map[string]*Row),
		labels: make(map[string]struct{}),
	}
}

func (a *accumulator) row(week string, dimValues ...string) *Row {
	k := strings.Join(dimValues, "\x00") + "\x00" + week
	r, ok := a.rows[k]
	if !ok {
		dims := make(map[string]string, len(a.keys))
		for i, key := range a.keys {
			dims[key] = dimValues[i]
		}
		r = &Row{
			Client:  a.client,
			Dims:    dims,
			Actions: make(map[string]float64),
			Week:    week,
		}
		a.rows[k] = r
		a.order = append(a.order, k)
	}
	return r
}

func (a *accumulator) addAction(v eventView, dimValues ...string) {
	a.labels[v.ev.Action] = struct{}{}
	r := a.row(v.week, dimValues...)
	r.Actions[v.ev.Action]++
	if v.ev.HasRevenue {
		r.Revenue += v.ev.Revenue
	}
}

func (a *accumulator) table(name string) *Table {
	t := &Table{
		Name:         name,
		KeyColumns:   a.keys,
		ActionLabels: sortLabels(a.labels),
	}
	for _, k := range a.order {
		t.Rows = append(t.Rows, a.rows[k])
	}
	return t
}

// Build produces every performance table except Market from deduplicated
// events and the pre-built spend rollups. All joins are outer: a
// (dimension, week) bucket exists if spend, responses or actions touched it,
// and absent metrics stay zero.
func Build(actions, responses []domain.MappedEvent, sp *spend.Tables, client string) map[string]*Table {
	av := viewEvents(actions)
	rv := viewEvents(responses)

	tables := make(map[string]*Table)

	channelByCreative := buildChannelByCreative(av, rv, sp, client)
	tables[TableChannel] = buildChannel(av, rv, sp, client)
	tables[TableChannelByCreative] = channelByCreative
	tables[TableCreative] = rollupCreative(channelByCreative, client)
	tables[TableDay] = buildDay(av, rv, sp, client)
	tables[TableHour] = buildHour(av, rv, sp, client)
	tables[TableChannelByHour] = buildChannelByHour(av, rv, sp, client)
	return tables
}

func buildChannel(av, rv []eventView, sp *spend.Tables, client string) *Table {
	acc := newAccumulator(client, "Station")
	for k, cell := range sp.StationWeekly {
		r := acc.row(k.Week, k.Station)
		r.Cost += cell.Cost
		r.Impressions += cell.Impressions
	}
	for _, v := range rv {
		if v.hasWeek {
			acc.row(v.week, v.ev.Station).Responses++
		}
	}
	for _, v := range av {
		if v.hasWeek {
			acc.addAction(v, v.ev.Station)
		}
	}
	t := acc.table(TableChannel)
	sortByWeekThenCostDesc(t)
	return t
}

func buildChannelByCreative(av, rv []eventView, sp *spend.Tables, client string) *Table {
	acc := newAccumulator(client, "Station", "Creative")
	for k, cell := range sp.StationCreativeWeekly {
		r := acc.row(k.Week, k.Station, k.Creative)
		r.Cost += cell.Cost
		r.Impressions += cell.Impressions
	}
	for _, v := range rv {
		if v.hasWeek && v.ev.Creative != "" {
			acc.row(v.week, v.ev.Station, creativeKey(v.ev.Creative)).Responses++
		}
	}
	for _, v := range av {
		if v.hasWeek && v.ev.Creative != "" {
			acc.addAction(v, v.ev.Station, creativeKey(v.ev.Creative))
		}
	}
	t := acc.table(TableChannelByCreative)
	sortByWeekThenCostDesc(t)
	return t
}

// creativeKey matches the ledger's creative canonicalization so event and
// spend rows land in the same bucket.
func creativeKey(c string) string {
	return strings.ToUpper(strings.TrimSpace(c))
}

// rollupCreative sums the Station×Creative table's base metrics across
// stations per (Creative, week). Ratios are recomputed from the summed bases
// by the Row accessors, never summed directly.
func rollupCreative(byCreative *Table, client string) *Table {
	acc := newAccumulator(client, "Creative")
	for _, src := range byCreative.Rows {
		r := acc.row(src.Week, src.Dims["Creative"])
		r.Cost += src.Cost
		r.Responses += src.Responses
		r.Impressions += src.Impressions
		r.Revenue += src.Revenue
		for label, n := range src.Actions {
			acc.labels[label] = struct{}{}
			r.Actions[label] += n
		}
	}
	t := acc.table(TableCreative)
	sortByWeekThenCostDesc(t)
	return t
}

func buildDay(av, rv []eventView, sp *spend.Tables, client string) *Table {
	acc := newAccumulator(client, "Day")
	for k, cell := range sp.DayWeekly {
		r := acc.row(k.Week, k.Day)
		r.Cost += cell.Cost
		r.Impressions += cell.Impressions
	}
	for _, v := range rv {
		if v.hasWeek {
			acc.row(v.week, v.weekday).Responses++
		}
	}
	for _, v := range av {
		if v.hasWeek {
			acc.addAction(v, v.weekday)
		}
	}
	t := acc.table(TableDay)
	sortByWeekThenWeekday(t)
	return t
}

func buildHour(av, rv []eventView, sp *spend.Tables, client string) *Table {
	acc := newAccumulator(client, "Hour", "Daypart")
	for k, cell := range sp.HourWeekly {
		r := acc.row(k.Week, hourKey(k.Hour), HourToDaypart(k.Hour))
		r.Cost += cell.Cost
		r.Impressions += cell.Impressions
	}
	for _, v := range rv {
		if v.hasWeek {
			acc.row(v.week, hourKey(v.hour), HourToDaypart(v.hour)).Responses++
		}
	}
	for _, v := range av {
		if v.hasWeek {
			acc.addAction(v, hourKey(v.hour), HourToDaypart(v.hour))
		}
	}
	t := acc.table(TableHour)
	sortByWeekThenHour(t, "Hour")
	return t
}

func buildChannelByHour(av, rv []eventView, sp *spend.Tables, client string) *Table {
	acc := newAccumulator(client, "Station", "Hour", "Daypart")
	for k, cell := range sp.StationHourWeekly {
		r := acc.row(k.Week, k.Station, hourKey(k.Hour), HourToDaypart(k.Hour))
		r.Cost += cell.Cost
		r.Impressions += cell.Impressions
	}
	for _, v := range rv {
		if v.hasWeek {
			acc.row(v.week, v.ev.Station, hourKey(v.hour), HourToDaypart(v.hour)).Responses++
		}
	}
	for _, v := range av {
		if v.hasWeek {
			acc.addAction(v, v.ev.Station, hourKey(v.hour), HourToDaypart(v.hour))
		}
	}
	t := acc.table(TableChannelByHour)
	sortByWeekStationHour(t)
	return t
}

// BuildMarket mirrors the Channel table keyed by Market. It returns nil when
// no market attribute exists in spend, action or response data.
func BuildMarket(actions, responses []domain.MappedEvent, sp *spend.Tables, client string) *Table {
	haveMarket := sp.HasMarket
	for i := range actions {
		if actions[i].Market != "" {
			haveMarket = true
			break
		}
	}
	if !haveMarket {
		for i := range responses {
			if responses[i].Market != "" {
				haveMarket = true
				break
			}
		}
	}
	if !haveMarket {
		return nil
	}

	av := viewEvents(actions)
	rv := viewEvents(responses)

	acc := newAccumulator(client, "Market")
	for k, cell := range sp.MarketWeekly {
		r := acc.row(k.Week, k.Market)
		r.Cost += cell.Cost
		r.Impressions += cell.Impressions
	}
	for _, v := range rv {
		if v.hasWeek && v.ev.Market != "" {
			acc.row(v.week, v.ev.Market).Responses++
		}
	}
	for _, v := range av {
		if v.hasWeek && v.ev.Market != "" {
			acc.addAction(v, v.ev.Market)
		}
	}
	t := acc.table(TableMarket)
	sortByWeekThenCostDesc(t)
	return t
}

func hourKey(h int) string { return strconv.Itoa(h) }

func sortByWeekThenCostDesc(t *Table) {
	// Rows seeded from spend maps arrive in map-iteration order, so ties
	// on (week, cost) need the dimension key to stay deterministic.
	key := func(r *Row) string {
		parts := make([]string, len(t.KeyColumns))
		for i, k := range t.KeyColumns {
			parts[i] = r.Dims[k]
		}
		return strings.Join(parts, "\x00")
	}
	sort.SliceStable(t.Rows, func(i, j int) bool {
		a, b := t.Rows[i], t.Rows[j]
		if a.Week != b.Week {
			return a.Week < b.Week
		}
		if a.Cost != b.Cost {
			return a.Cost > b.Cost
		}
		return key(a) < key(b)
	})
}

var weekdayOrder = map[string]int{
	"Monday": 0, "Tuesday": 1, "Wednesday": 2, "Thursday": 3,
	"Friday": 4, "Saturday": 5, "Sunday": 6,
}

func sortByWeekThenWeekday(t *Table) {
	sort.SliceStable(t.Rows, func(i, j int) bool {
		a, b := t.Rows[i], t.Rows[j]
		if a.Week != b.Week {
			return a.Week < b.Week
		}
		return weekdayOrder[a.Dims["Day"]] < weekdayOrder[b.Dims["Day"]]
	})
}

func sortByWeekThenHour(t *Table, hourCol string) {
	sort.SliceStable(t.Rows, func(i, j int) bool {
		a, b := t.Rows[i], t.Rows[j]
		if a.Week != b.Week {
			return a.Week < b.Week
		}
		ha, _ := strconv.Atoi(a.Dims[hourCol])
		hb, _ := strconv.Atoi(b.Dims[hourCol])
		return ha < hb
	})
}

func sortByWeekStationHour(t *Table) {
	sort.SliceStable(t.Rows, func(i, j int) bool {
		a, b := t.Rows[i], t.Rows[j]
		if a.Week != b.Week {
			return a.Week < b.Week
		}
		if a.Dims["Station"] != b.Dims["Station"] {
			return a.Dims["Station"] < b.Dims["Station"]
		}
		ha, _ := strconv.Atoi(a.Dims["Hour"])
		hb, _ := strconv.Atoi(b.Dims["Hour"])
		return ha < hb
	})
}
