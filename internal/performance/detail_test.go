package performance

import (
	"strings"
	"testing"
	"time"

	"tv-attribution/internal/domain"
)

func TestBuildDetail_ExcludesProbabilityColumns(t *testing.T) {
	events := []domain.MappedEvent{
		{
			Timestamp: time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC), HasTimestamp: true,
			Raw: map[string]string{
				"Session ID":         "s1",
				"Action Probability": "0.9",
				"probability score":  "0.8",
				"Station":            "WABC",
			},
		},
	}

	sheet := BuildDetail(events)
	for _, h := range sheet.Headers {
		if strings.Contains(strings.ToLower(h), "probability") {
			t.Errorf("probability column leaked into detail sheet: %q", h)
		}
	}
	want := []string{ColWeek, "Timestamp", "Session ID", "Station"}
	if len(sheet.Headers) != len(want) {
		t.Fatalf("headers mismatch: %v", sheet.Headers)
	}
	for i, h := range want {
		if sheet.Headers[i] != h {
			t.Errorf("header %d: got %q, want %q", i, sheet.Headers[i], h)
		}
	}
}

func TestBuildDetail_SortsByWeekThenTimestampWeeklessLast(t *testing.T) {
	events := []domain.MappedEvent{
		{Raw: map[string]string{"id": "no-ts"}},
		{
			Timestamp: time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC), HasTimestamp: true,
			Raw: map[string]string{"id": "week2"},
		},
		{
			Timestamp: time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC), HasTimestamp: true,
			Raw: map[string]string{"id": "week1-late"},
		},
		{
			Timestamp: time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC), HasTimestamp: true,
			Raw: map[string]string{"id": "week1-early"},
		},
	}

	sheet := BuildDetail(events)
	idCol := -1
	for i, h := range sheet.Headers {
		if h == "id" {
			idCol = i
		}
	}
	if idCol < 0 {
		t.Fatalf("id column not found in %v", sheet.Headers)
	}

	var got []string
	for _, row := range sheet.Rows {
		got = append(got, row[idCol])
	}
	want := []string{"week1-early", "week1-late", "week2", "no-ts"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("row order mismatch: got %v, want %v", got, want)
		}
	}

	// Weekless rows render empty week and timestamp cells.
	last := sheet.Rows[len(sheet.Rows)-1]
	if last[0] != "" || last[1] != "" {
		t.Errorf("weekless row should have empty week/timestamp: %v", last[:2])
	}
	// Timestamped rows carry the week label and formatted timestamp.
	if sheet.Rows[0][0] != "2024-03-04" || sheet.Rows[0][1] != "2024-03-05 09:00:00" {
		t.Errorf("week/timestamp cells mismatch: %v", sheet.Rows[0][:2])
	}
}

func TestBuildDetail_UnionsHeadersAcrossRows(t *testing.T) {
	events := []domain.MappedEvent{
		{Raw: map[string]string{"A": "1"}},
		{Raw: map[string]string{"B": "2"}},
	}

	sheet := BuildDetail(events)
	if len(sheet.Headers) != 4 { // week, timestamp, A, B
		t.Fatalf("headers mismatch: %v", sheet.Headers)
	}
	// A row without a column renders an empty cell.
	if sheet.Rows[0][2] != "1" || sheet.Rows[0][3] != "" {
		t.Errorf("row 0 cells mismatch: %v", sheet.Rows[0])
	}
	if sheet.Rows[1][2] != "" || sheet.Rows[1][3] != "2" {
		t.Errorf("row 1 cells mismatch: %v", sheet.Rows[1])
	}
}

func TestBuildDetail_Empty(t *testing.T) {
	sheet := BuildDetail(nil)
	if len(sheet.Rows) != 0 {
		t.Errorf("expected no rows, got %d", len(sheet.Rows))
	}
}
