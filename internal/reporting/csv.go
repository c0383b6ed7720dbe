package reporting

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"tv-attribution/internal/performance"
)

// RenderCSV renders one performance table as a CSV string. NaN ratios render
// as empty cells.
func RenderCSV(t *performance.Table) string {
	var sb strings.Builder

	cols := t.Columns()
	for i, c := range cols {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(csvEscape(c))
	}
	sb.WriteByte('\n')

	for _, r := range t.Rows {
		for i, c := range cols {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(csvEscape(formatCell(t.Value(r, c))))
		}
		sb.WriteByte('\n')
	}

	return sb.String()
}

func formatCell(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		if math.IsNaN(x) {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func csvEscape(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return "\"" + strings.ReplaceAll(s, "\"", "\"\"") + "\""
	}
	return s
}
