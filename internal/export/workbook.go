package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"diary/internal/core"
)

// Mode selects the workbook layout.
type Mode string

const (
	ModeEventLog Mode = "month"
	ModeYearGrid Mode = "year"
)

const (
	EventLogSheet = "Event Log"
	PivotSheet    = "Structured Diary Grid"

	// ContentType is the MIME type of the generated workbook.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type Options struct {
	Mode Mode
	Year int // used by ModeYearGrid
}

// ParseMode maps a query value to a Mode; anything but "year" is the event log.
func ParseMode(s string) Mode {
	if Mode(s) == ModeYearGrid {
		return ModeYearGrid
	}
	return ModeEventLog
}

// YearSheetName is the grid sheet name for a year.
func YearSheetName(year int) string {
	return strconv.Itoa(year) + " Grid"
}

// FileName returns the download name for an export.
func FileName(opts Options, month string) string {
	if opts.Mode == ModeYearGrid {
		return fmt.Sprintf("structured-diary-%d.xlsx", opts.Year)
	}
	return fmt.Sprintf("structured-diary-%s.xlsx", month)
}

// ExportWorkbook builds the workbook for the given mode. In year mode only the
// entries of opts.Year are written to the event log.
func ExportWorkbook(entries []core.Entry, categories []core.Category, opts Options) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", EventLogSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	var err error
	switch opts.Mode {
	case ModeYearGrid:
		yearEntries := make([]core.Entry, 0, len(entries))
		filter := core.EntryFilter{Year: opts.Year}
		for _, e := range entries {
			if filter.Matches(e) {
				yearEntries = append(yearEntries, e)
			}
		}
		if err = writeEventLog(f, BuildEventLog(yearEntries)); err == nil {
			err = writeYearGrid(f, BuildYearGrid(opts.Year, yearEntries, categories))
		}
	default:
		if err = writeEventLog(f, BuildEventLog(entries)); err == nil {
			err = writePivot(f, BuildPivot(entries, categories))
		}
	}
	if err != nil {
		f.Close()
		return nil, err
	}
	f.SetActiveSheet(0)
	return f, nil
}

// WriteWorkbook streams the workbook to w.
func WriteWorkbook(w io.Writer, f *excelize.File) error {
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeEventLog(f *excelize.File, rows []EventRow) error {
	if err := setRow(f, EventLogSheet, 1, 1, EventLogHeaders); err != nil {
		return err
	}
	for i, r := range rows {
		if err := setRow(f, EventLogSheet, 1, i+2, r.Values()); err != nil {
			return err
		}
	}
	if err := boldRow(f, EventLogSheet, 1, len(EventLogHeaders)); err != nil {
		return err
	}
	widths := map[string]float64{"A": 12, "B": 16, "C": 16, "D": 60, "E": 22}
	for col, w := range widths {
		if err := f.SetColWidth(EventLogSheet, col, col, w); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}
	return nil
}

func writePivot(f *excelize.File, p Pivot) error {
	if _, err := f.NewSheet(PivotSheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", PivotSheet, err)
	}
	header := p.Header()
	if err := setRow(f, PivotSheet, 1, 1, header); err != nil {
		return err
	}
	for i, r := range p.Rows {
		if err := setRow(f, PivotSheet, 1, i+2, append([]string{r.Date}, r.Cells...)); err != nil {
			return err
		}
	}
	if err := boldRow(f, PivotSheet, 1, len(header)); err != nil {
		return err
	}
	if len(header) > 1 {
		last, _ := excelize.ColumnNumberToName(len(header))
		if err := f.SetColWidth(PivotSheet, "B", last, 30); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}
	return f.SetColWidth(PivotSheet, "A", "A", 12)
}

func writeYearGrid(f *excelize.File, g YearGrid) error {
	sheet := YearSheetName(g.Year)
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}

	header := g.HeaderRows()
	if err := setRow(f, sheet, 1, 1, header[0]); err != nil {
		return err
	}
	if err := setRow(f, sheet, 1, 2, header[1]); err != nil {
		return err
	}
	if err := f.MergeCell(sheet, "A1", "A2"); err != nil {
		return fmt.Errorf("merge date header: %w", err)
	}
	for _, grp := range g.Groups {
		if grp.Span < 2 {
			continue
		}
		start, _ := excelize.CoordinatesToCellName(grp.Start+2, 1)
		end, _ := excelize.CoordinatesToCellName(grp.Start+grp.Span+1, 1)
		if err := f.MergeCell(sheet, start, end); err != nil {
			return fmt.Errorf("merge %s header: %w", grp.Name, err)
		}
	}

	for i, r := range g.Rows {
		if err := setRow(f, sheet, 1, i+3, append([]string{r.Date}, r.Cells...)); err != nil {
			return err
		}
	}

	width := len(g.Columns) + 1
	if err := boldRow(f, sheet, 1, width); err != nil {
		return err
	}
	if err := boldRow(f, sheet, 2, width); err != nil {
		return err
	}
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		XSplit:      1,
		YSplit:      2,
		TopLeftCell: "B3",
		ActivePane:  "bottomRight",
	}); err != nil {
		return fmt.Errorf("freeze panes: %w", err)
	}
	return f.SetColWidth(sheet, "A", "A", 12)
}

func setRow(f *excelize.File, sheet string, col, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func boldRow(f *excelize.File, sheet string, row, width int) error {
	style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	from, _ := excelize.CoordinatesToCellName(1, row)
	to, _ := excelize.CoordinatesToCellName(width, row)
	return f.SetCellStyle(sheet, from, to, style)
}
