package reporting

import (
	"math"
	"strings"

	"github.com/xuri/excelize/v2"

	"tv-attribution/internal/domain"
	"tv-attribution/internal/performance"
)

// Workbook describes the sheets of one Excel deliverable: the performance
// tables in order, the station priority list, the dedupe summary, and the
// per-event detail listings.
type Workbook struct {
	Client string

	Tables []*performance.Table

	// StationRanks is the complete ranking; the priority sheet lists every
	// station, not just the dedupe window.
	StationRanks  []domain.StationRank
	ActionStats   domain.DedupeStats
	ResponseStats domain.DedupeStats

	ActionsDetail  *performance.DetailSheet
	ResponseDetail *performance.DetailSheet
}

const (
	sheetTopPriority    = "Top3_Priority"
	sheetDedupeReport   = "Dedupe_Report"
	sheetActionsDetail  = "Actions_dedup"
	sheetResponseDetail = "Response_dedup"

	currencyFmt = "$#,##0.00"
	countFmt    = "#,##0"
	ratioFmt    = "0.00"
)

// WriteWorkbook writes the workbook to path as an .xlsx file.
func WriteWorkbook(path string, wb *Workbook) error {
	f := excelize.NewFile()
	defer f.Close()

	styles, err := newColumnStyles(f)
	if err != nil {
		return err
	}

	first := true
	ensure := func(name string) error {
		idx, err := f.NewSheet(name)
		if err != nil {
			return err
		}
		if first {
			f.SetActiveSheet(idx)
			first = false
		}
		return nil
	}

	for _, t := range wb.Tables {
		if t == nil || len(t.Rows) == 0 {
			continue
		}
		name := sheetName(t.Name)
		if err := ensure(name); err != nil {
			return err
		}
		if err := writeTable(f, name, t, styles); err != nil {
			return err
		}
	}

	if err := ensure(sheetTopPriority); err != nil {
		return err
	}
	if err := writePriority(f, wb.StationRanks, styles); err != nil {
		return err
	}

	if err := ensure(sheetDedupeReport); err != nil {
		return err
	}
	if err := writeDedupeReport(f, wb.ActionStats, wb.ResponseStats); err != nil {
		return err
	}

	if wb.ActionsDetail != nil {
		if err := ensure(sheetActionsDetail); err != nil {
			return err
		}
		if err := writeDetail(f, sheetActionsDetail, wb.ActionsDetail); err != nil {
			return err
		}
	}
	if wb.ResponseDetail != nil {
		if err := ensure(sheetResponseDetail); err != nil {
			return err
		}
		if err := writeDetail(f, sheetResponseDetail, wb.ResponseDetail); err != nil {
			return err
		}
	}

	// Drop the default sheet created by excelize.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	return f.SaveAs(path)
}

type columnStyles struct {
	currency int
	count    int
	ratio    int
}

func newColumnStyles(f *excelize.File) (*columnStyles, error) {
	cur := currencyFmt
	cnt := countFmt
	rat := ratioFmt

	currency, err := f.NewStyle(&excelize.Style{CustomNumFmt: &cur})
	if err != nil {
		return nil, err
	}
	count, err := f.NewStyle(&excelize.Style{CustomNumFmt: &cnt})
	if err != nil {
		return nil, err
	}
	ratio, err := f.NewStyle(&excelize.Style{CustomNumFmt: &rat})
	if err != nil {
		return nil, err
	}
	return &columnStyles{currency: currency, count: count, ratio: ratio}, nil
}

// styleFor maps a performance column to its number style, 0 for none.
func (s *columnStyles) styleFor(col string) int {
	switch {
	case col == performance.ColCost,
		col == performance.ColActionRevenue,
		strings.HasPrefix(col, "Cost per "):
		return s.currency
	case col == performance.ColResponses,
		col == performance.ColActionsTotal,
		col == performance.ColImpressions:
		return s.count
	case col == performance.ColROI:
		return s.ratio
	}
	return 0
}

func writeTable(f *excelize.File, sheet string, t *performance.Table, styles *columnStyles) error {
	cols := t.Columns()
	for i, c := range cols {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, c); err != nil {
			return err
		}
	}

	for ri, row := range t.Rows {
		for ci, c := range cols {
			cell, _ := excelize.CoordinatesToCellName(ci+1, ri+2)
			v := t.Value(row, c)
			if x, ok := v.(float64); ok && math.IsNaN(x) {
				continue // NaN ratios stay blank
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	if len(t.Rows) == 0 {
		return nil
	}
	for ci, c := range cols {
		style := styles.styleFor(c)
		if style == 0 {
			continue
		}
		top, _ := excelize.CoordinatesToCellName(ci+1, 2)
		bottom, _ := excelize.CoordinatesToCellName(ci+1, len(t.Rows)+1)
		if err := f.SetCellStyle(sheet, top, bottom, style); err != nil {
			return err
		}
	}
	return nil
}

func writePriority(f *excelize.File, ranks []domain.StationRank, styles *columnStyles) error {
	headers := []string{"Rank", "Station", "Cost", "SpotCount", "Impressions", "CostPerSpot"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetTopPriority, cell, h); err != nil {
			return err
		}
	}
	for ri, s := range ranks {
		values := []any{s.Rank, s.Station, s.Cost, s.SpotCount, s.Impressions, s.CostPerSpot}
		for ci, v := range values {
			cell, _ := excelize.CoordinatesToCellName(ci+1, ri+2)
			if err := f.SetCellValue(sheetTopPriority, cell, v); err != nil {
				return err
			}
		}
	}
	if len(ranks) > 0 {
		for _, col := range []int{3, 6} { // Cost, CostPerSpot
			top, _ := excelize.CoordinatesToCellName(col, 2)
			bottom, _ := excelize.CoordinatesToCellName(col, len(ranks)+1)
			if err := f.SetCellStyle(sheetTopPriority, top, bottom, styles.currency); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeDedupeReport(f *excelize.File, actions, responses domain.DedupeStats) error {
	rows := [][]any{
		{"Feed", "Mode", "Group Keys", "Groups", "Kept by Priority", "Kept by Probability"},
		{"Actions", string(actions.Mode), actions.GroupKeys, actions.Groups, actions.KeptByTop3, actions.KeptByProbability},
		{"Responses", "", responses.GroupKeys, responses.Groups, 0, 0},
	}
	for ri, row := range rows {
		for ci, v := range row {
			cell, _ := excelize.CoordinatesToCellName(ci+1, ri+1)
			if err := f.SetCellValue(sheetDedupeReport, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeDetail(f *excelize.File, sheet string, ds *performance.DetailSheet) error {
	for i, h := range ds.Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	for ri, row := range ds.Rows {
		for ci, v := range row {
			if v == "" {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(ci+1, ri+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// sheetName makes a table name safe for Excel's 31 character sheet limit.
func sheetName(name string) string {
	s := strings.ReplaceAll(name, " by ", " x ")
	if len(s) > 31 {
		s = s[:31]
	}
	return s
}

// TableSummaries builds the run-report table section from built tables.
func TableSummaries(tables []*performance.Table) []TableSummary {
	var out []TableSummary
	for _, t := range tables {
		if t == nil {
			continue
		}
		weeks := make(map[string]struct{})
		for _, r := range t.Rows {
			weeks[r.Week] = struct{}{}
		}
		out = append(out, TableSummary{Name: t.Name, Rows: len(t.Rows), Weeks: len(weeks)})
	}
	return out
}
