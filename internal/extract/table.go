// Package extract reads raw tabular exports (XLSX or CSV) into a simple
// header+rows Table and resolves logical columns against the inconsistent
// header naming the upstream platforms produce.
package extract

import (
	"fmt"
	"regexp"
	"strings"

	"tv-attribution/internal/normalization"
)

// Table is a raw tabular extract: a header row and string cells. Missing
// trailing cells read as empty strings.
type Table struct {
	Headers []string
	Rows    [][]string

	// SourceFile is the file the table was read from, carried through to
	// warehouse rows for provenance.
	SourceFile string

	norm map[string]string // normalized header -> original header, built lazily
}

// NewTable builds a Table from a header row and data rows.
func NewTable(headers []string, rows [][]string) *Table {
	return &Table{Headers: headers, Rows: rows}
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// Cell returns the cell at (row, header). Empty string when the column is
// absent or the row is ragged.
func (t *Table) Cell(row int, header string) string {
	for i, h := range t.Headers {
		if h == header {
			if i < len(t.Rows[row]) {
				return strings.TrimSpace(t.Rows[row][i])
			}
			return ""
		}
	}
	return ""
}

// Column returns all cells of a column by original header name.
func (t *Table) Column(header string) []string {
	idx := -1
	for i, h := range t.Headers {
		if h == header {
			idx = i
			break
		}
	}
	out := make([]string, len(t.Rows))
	if idx < 0 {
		return out
	}
	for r, row := range t.Rows {
		if idx < len(row) {
			out[r] = strings.TrimSpace(row[idx])
		}
	}
	return out
}

// normIndex maps normalized header keys to the original header names. The
// first header wins when two normalize identically.
func (t *Table) normIndex() map[string]string {
	if t.norm == nil {
		t.norm = make(map[string]string, len(t.Headers))
		for _, h := range t.Headers {
			k := normalization.NormalizeKey(h)
			if _, exists := t.norm[k]; !exists {
				t.norm[k] = h
			}
		}
	}
	return t.norm
}

// FirstColumnByKeys finds the first original header whose normalized form
// matches one of the candidate keys, in candidate order. ok is false when
// none match.
func (t *Table) FirstColumnByKeys(keys ...string) (string, bool) {
	idx := t.normIndex()
	for _, k := range keys {
		if h, exists := idx[k]; exists {
			return h, true
		}
	}
	return "", false
}

var unnamedRe = regexp.MustCompile(`(?i)^Unnamed`)

// DropUnnamedColumns removes spreadsheet artifact columns ("Unnamed: 3" and
// the like) in place.
func (t *Table) DropUnnamedColumns() {
	keep := make([]int, 0, len(t.Headers))
	for i, h := range t.Headers {
		if !unnamedRe.MatchString(strings.TrimSpace(h)) {
			keep = append(keep, i)
		}
	}
	if len(keep) == len(t.Headers) {
		return
	}
	headers := make([]string, len(keep))
	for j, i := range keep {
		headers[j] = t.Headers[i]
	}
	rows := make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		nr := make([]string, len(keep))
		for j, i := range keep {
			if i < len(row) {
				nr[j] = row[i]
			}
		}
		rows[r] = nr
	}
	t.Headers = headers
	t.Rows = rows
	t.norm = nil
}

// RowMap returns row r as an original-header keyed map, for detail-sheet
// column passthrough.
func (t *Table) RowMap(r int) map[string]string {
	m := make(map[string]string, len(t.Headers))
	for i, h := range t.Headers {
		if i < len(t.Rows[r]) {
			m[h] = strings.TrimSpace(t.Rows[r][i])
		} else {
			m[h] = ""
		}
	}
	return m
}

// MissingColumnError reports that a required logical column could not be
// resolved from any accepted header alias. It is fatal to the stage that
// needs the column.
type MissingColumnError struct {
	Logical string   // logical column name, e.g. "SessionID"
	Aliases []string // normalized alias keys that were searched
	Headers []string // headers actually present in the extract
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing %s column: none of [%s] found among headers [%s]",
		e.Logical, strings.Join(e.Aliases, ", "), strings.Join(e.Headers, ", "))
}
