package spend

import (
	"math"
	"testing"

	"tv-attribution/internal/domain"
	"tv-attribution/internal/extract"
)

func ledgerTable(headers []string, rows [][]string) *extract.Table {
	return extract.NewTable(headers, rows)
}

func TestParseLedger_RequiredColumns(t *testing.T) {
	_, err := ParseLedger(ledgerTable([]string{"Client Gross"}, nil))
	if err == nil {
		t.Fatal("expected error when station column missing")
	}

	_, err = ParseLedger(ledgerTable([]string{"Station"}, nil))
	if err == nil {
		t.Fatal("expected error when cost column missing")
	}
}

func TestParseLedger_CoercionAndDegradation(t *testing.T) {
	tbl := ledgerTable(
		[]string{"Station", "Client Gross", "Impressions", "Tape Aired", "Date Aired", "Time Aired", "Market"},
		[][]string{
			{"wabc", "$1,200.00", "50000", "spring v2", "2024-03-05", "14:30", "national network"},
			{"", "not-a-number", "", "", "bad-date", "", ""},
		},
	)

	recs, err := ParseLedger(tbl)
	if err != nil {
		t.Fatalf("ParseLedger failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}

	r0 := recs[0]
	if r0.Station != "WABC" {
		t.Errorf("station mismatch: got %q", r0.Station)
	}
	if r0.Cost != 1200 {
		t.Errorf("cost mismatch: got %v", r0.Cost)
	}
	if r0.Impressions != 50000 {
		t.Errorf("impressions mismatch: got %v", r0.Impressions)
	}
	if !r0.HasCreative || r0.Creative != "SPRING V2" {
		t.Errorf("creative mismatch: got %q", r0.Creative)
	}
	// 2024-03-05 is a Tuesday; its broadcast week starts Monday 2024-03-04.
	if !r0.HasDay || r0.Day != "Tuesday" {
		t.Errorf("day mismatch: got %q", r0.Day)
	}
	if !r0.HasWeek || r0.Week != "2024-03-04" {
		t.Errorf("week mismatch: got %q", r0.Week)
	}
	if !r0.HasHour || r0.Hour != 14 {
		t.Errorf("hour mismatch: got %d", r0.Hour)
	}
	if !r0.HasMarket || r0.Market != "National" {
		t.Errorf("market mismatch: got %q", r0.Market)
	}

	// Row with nothing parseable degrades, never errors.
	r1 := recs[1]
	if r1.Station != domain.UnknownStation {
		t.Errorf("expected %s, got %q", domain.UnknownStation, r1.Station)
	}
	if r1.Cost != 0 {
		t.Errorf("unparseable cost should be 0, got %v", r1.Cost)
	}
	if r1.HasDay || r1.HasWeek || r1.HasHour || r1.HasCreative || r1.HasMarket {
		t.Errorf("expected all optional dims absent: %+v", r1)
	}
}

func TestBuildTables_WeeklyAggregation(t *testing.T) {
	tbl := ledgerTable(
		[]string{"Station", "Client Gross", "Impressions", "Date Aired"},
		[][]string{
			{"WABC", "100", "1000", "2024-03-05"},
			{"WABC", "200", "2000", "2024-03-06"},
			{"WABC", "50", "500", "2024-03-12"}, // next week
			{"KCBS", "300", "3000", "2024-03-05"},
		},
	)

	tables, err := BuildTables(tbl)
	if err != nil {
		t.Fatalf("BuildTables failed: %v", err)
	}

	if got := tables.Station["WABC"]; got.Cost != 350 || got.Impressions != 3500 {
		t.Errorf("all-time WABC mismatch: %+v", got)
	}
	if got := tables.StationWeekly[StationWeek{"WABC", "2024-03-04"}]; got.Cost != 300 || got.Impressions != 3000 {
		t.Errorf("weekly WABC week1 mismatch: %+v", got)
	}
	if got := tables.StationWeekly[StationWeek{"WABC", "2024-03-11"}]; got.Cost != 50 {
		t.Errorf("weekly WABC week2 mismatch: %+v", got)
	}
	if got := tables.StationWeekly[StationWeek{"KCBS", "2024-03-04"}]; got.Cost != 300 {
		t.Errorf("weekly KCBS mismatch: %+v", got)
	}
	if got := tables.DayWeekly[DayWeek{"Tuesday", "2024-03-04"}]; got.Cost != 400 {
		t.Errorf("day weekly mismatch: %+v", got)
	}
}

func TestBuildTables_LiteralNaNCostCellCountsAsZero(t *testing.T) {
	tbl := ledgerTable(
		[]string{"Station", "Client Gross"},
		[][]string{
			{"WABC", "100"},
			{"WABC", "NaN"}, // pandas missing-value marker
		},
	)

	tables, err := BuildTables(tbl)
	if err != nil {
		t.Fatalf("BuildTables failed: %v", err)
	}
	got := tables.Station["WABC"]
	if math.IsNaN(got.Cost) || got.Cost != 100 {
		t.Errorf("WABC Cost = %v, want 100", got.Cost)
	}
}

func TestBuildTables_AbsentDimensionsStayEmpty(t *testing.T) {
	tbl := ledgerTable(
		[]string{"Station", "Client Gross"},
		[][]string{{"WABC", "100"}},
	)

	tables, err := BuildTables(tbl)
	if err != nil {
		t.Fatalf("BuildTables failed: %v", err)
	}
	if tables.HasCreative || tables.HasDate || tables.HasTime || tables.HasMarket {
		t.Errorf("expected no optional dimension flags set")
	}
	if len(tables.StationCreative) != 0 || len(tables.Day) != 0 ||
		len(tables.Hour) != 0 || len(tables.Market) != 0 {
		t.Error("expected optional dimension maps to stay empty")
	}
	if len(tables.StationWeekly) != 0 {
		t.Error("no date column means no weekly rows")
	}
	if got := tables.Station["WABC"]; got.Cost != 100 {
		t.Errorf("all-time station mismatch: %+v", got)
	}
}

func TestBuildStationPriority_RankByCostPerSpot(t *testing.T) {
	tbl := ledgerTable(
		[]string{"Station", "Client Gross", "Spot Count"},
		[][]string{
			{"AAAA", "1000", "10"}, // 100/spot
			{"BBBB", "900", "3"},   // 300/spot
			{"CCCC", "400", "2"},   // 200/spot
			{"DDDD", "10", "1"},    // 10/spot
		},
	)

	rank, top, err := BuildStationPriority(tbl)
	if err != nil {
		t.Fatalf("BuildStationPriority failed: %v", err)
	}

	wantOrder := []string{"BBBB", "CCCC", "AAAA", "DDDD"}
	if len(rank) != len(wantOrder) {
		t.Fatalf("expected %d ranked stations, got %d", len(wantOrder), len(rank))
	}
	for i, want := range wantOrder {
		if rank[i].Station != want {
			t.Errorf("rank %d: got %s, want %s", i+1, rank[i].Station, want)
		}
		if rank[i].Rank != i+1 {
			t.Errorf("rank %d: Rank field %d", i+1, rank[i].Rank)
		}
	}
	if len(top) != TopStationCount {
		t.Fatalf("expected top-%d, got %d", TopStationCount, len(top))
	}
	if top[0].Station != "BBBB" || top[2].Station != "AAAA" {
		t.Errorf("top-3 mismatch: %+v", top)
	}
}

func TestBuildStationPriority_TieBreaks(t *testing.T) {
	// All stations at the same cost per spot; ties resolve by total cost
	// desc, then spot count desc, then station name asc.
	tbl := ledgerTable(
		[]string{"Station", "Client Gross", "Spot Count"},
		[][]string{
			{"ZZZZ", "100", "1"}, // cps 100, cost 100
			{"MMMM", "200", "2"}, // cps 100, cost 200
			{"AAAA", "100", "1"}, // cps 100, cost 100 -- name beats ZZZZ
		},
	)

	rank, _, err := BuildStationPriority(tbl)
	if err != nil {
		t.Fatalf("BuildStationPriority failed: %v", err)
	}
	wantOrder := []string{"MMMM", "AAAA", "ZZZZ"}
	for i, want := range wantOrder {
		if rank[i].Station != want {
			t.Errorf("rank %d: got %s, want %s", i+1, rank[i].Station, want)
		}
	}
}

func TestBuildStationPriority_RowCountAsSpotFallback(t *testing.T) {
	// No spot-count column: per-station row count stands in for spots.
	tbl := ledgerTable(
		[]string{"Station", "Client Gross"},
		[][]string{
			{"AAAA", "100"},
			{"AAAA", "100"}, // 2 rows, 200 total, 100/spot
			{"BBBB", "500"}, // 1 row, 500/spot
		},
	)

	rank, _, err := BuildStationPriority(tbl)
	if err != nil {
		t.Fatalf("BuildStationPriority failed: %v", err)
	}
	if rank[0].Station != "BBBB" || rank[0].CostPerSpot != 500 {
		t.Errorf("rank 1 mismatch: %+v", rank[0])
	}
	if rank[1].Station != "AAAA" || rank[1].SpotCount != 2 || rank[1].CostPerSpot != 100 {
		t.Errorf("rank 2 mismatch: %+v", rank[1])
	}
}

func TestBuildStationPriority_FewerThanThreeStations(t *testing.T) {
	tbl := ledgerTable(
		[]string{"Station", "Client Gross"},
		[][]string{{"AAAA", "100"}},
	)

	rank, top, err := BuildStationPriority(tbl)
	if err != nil {
		t.Fatalf("BuildStationPriority failed: %v", err)
	}
	if len(rank) != 1 || len(top) != 1 {
		t.Errorf("expected 1 ranked station, got rank=%d top=%d", len(rank), len(top))
	}
}

func TestBuildStationPriority_EmptyLedger(t *testing.T) {
	rank, top, err := BuildStationPriority(ledgerTable([]string{"Station", "Client Gross"}, nil))
	if err != nil {
		t.Fatalf("BuildStationPriority failed: %v", err)
	}
	if len(rank) != 0 || len(top) != 0 {
		t.Errorf("expected empty ranking, got rank=%d top=%d", len(rank), len(top))
	}
}
