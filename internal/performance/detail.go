package performance

import (
	"sort"
	"strings"

	"tv-attribution/internal/domain"
	"tv-attribution/internal/normalization"
)

// DetailSheet is the flat listing of surviving events that accompanies the
// aggregated tables, one row per deduplicated event.
type DetailSheet struct {
	Headers []string
	Rows    [][]string
}

const detailTimeLayout = "2006-01-02 15:04:05"

// BuildDetail renders deduplicated events with their original source columns.
// Probability columns are excluded from the output. Rows sort by week then
// timestamp; events without a timestamp sort last, keeping their input order.
func BuildDetail(events []domain.MappedEvent) *DetailSheet {
	seen := make(map[string]struct{})
	var raw []string
	for i := range events {
		for h := range events[i].Raw {
			if strings.Contains(strings.ToLower(h), "probability") {
				continue
			}
			if _, ok := seen[h]; !ok {
				seen[h] = struct{}{}
				raw = append(raw, h)
			}
		}
	}
	sort.Slice(raw, func(i, j int) bool {
		return strings.ToLower(raw[i]) < strings.ToLower(raw[j])
	})

	order := make([]int, len(events))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ea, eb := &events[order[a]], &events[order[b]]
		wa, wb := detailWeek(ea), detailWeek(eb)
		if (wa == "") != (wb == "") {
			return wb == ""
		}
		if wa != wb {
			return wa < wb
		}
		return ea.TimestampOrMax().Before(eb.TimestampOrMax())
	})

	sheet := &DetailSheet{
		Headers: append([]string{ColWeek, "Timestamp"}, raw...),
	}
	for _, idx := range order {
		ev := &events[idx]
		row := make([]string, 0, len(sheet.Headers))
		ts := ""
		if ev.HasTimestamp {
			ts = ev.Timestamp.Format(detailTimeLayout)
		}
		row = append(row, detailWeek(ev), ts)
		for _, h := range raw {
			row = append(row, ev.Raw[h])
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet
}

func detailWeek(ev *domain.MappedEvent) string {
	if !ev.HasTimestamp {
		return ""
	}
	return normalization.WeekLabel(ev.Timestamp)
}
