// Package export turns diary entries into tabular shapes: a flat event log,
// a per-day pivot by category and a fixed year grid, and writes them as
// xlsx workbooks.
package export

import (
	"sort"
	"strings"
	"time"

	"diary/internal/core"
)

const (
	pivotSeparator = "\n"
	gridSeparator  = "; "
)

type (
	EventRow struct {
		Date      string
		Category  string
		Item      string
		Content   string
		CreatedAt string
	}

	PivotRow struct {
		Date  string
		Cells []string
	}

	// Pivot has one row per day that has entries and one column per category.
	Pivot struct {
		Columns []string
		Rows    []PivotRow
	}

	GridColumn struct {
		CategoryID   string
		CategoryName string
		ItemID       string
		ItemName     string
	}

	// GridGroup is a run of adjacent columns sharing a category header.
	// Start is zero-based over Columns.
	GridGroup struct {
		Name  string
		Start int
		Span  int
	}

	GridRow struct {
		Date  string
		Cells []string
	}

	// YearGrid has one row per calendar day of Year and one column per
	// (category, item) pair in taxonomy order.
	YearGrid struct {
		Year    int
		Columns []GridColumn
		Groups  []GridGroup
		Rows    []GridRow
	}
)

// EventLogHeaders are the column titles of the event log sheet.
var EventLogHeaders = []string{"Date", "Category", "Item", "Content", "Created At"}

// BuildEventLog flattens entries into rows sorted by date, then creation time.
func BuildEventLog(entries []core.Entry) []EventRow {
	sorted := sortedByDate(entries)
	rows := make([]EventRow, 0, len(sorted))
	for _, e := range sorted {
		rows = append(rows, EventRow{
			Date:      e.DateKey(),
			Category:  e.CategoryName(),
			Item:      e.ItemName(),
			Content:   e.Content,
			CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return rows
}

// Values returns the row as spreadsheet cells.
func (r EventRow) Values() []string {
	return []string{r.Date, r.Category, r.Item, r.Content, r.CreatedAt}
}

// BuildPivot groups entries by day and category name. Entries whose category
// is not in categories land in a trailing unknown column, present only when
// such entries exist.
func BuildPivot(entries []core.Entry, categories []core.Category) Pivot {
	col := make(map[string]int, len(categories))
	columns := make([]string, 0, len(categories)+1)
	for _, c := range categories {
		col[c.ID] = len(columns)
		columns = append(columns, c.Name)
	}

	unknown := -1
	for _, e := range entries {
		if _, ok := col[e.CategoryID]; !ok {
			unknown = len(columns)
			columns = append(columns, core.UnknownLabel)
			break
		}
	}

	cells := make(map[string][][]string)
	var dates []string
	for _, e := range sortedByDate(entries) {
		key := e.DateKey()
		row, ok := cells[key]
		if !ok {
			row = make([][]string, len(columns))
			dates = append(dates, key)
		}
		i, ok := col[e.CategoryID]
		if !ok {
			i = unknown
		}
		row[i] = append(row[i], e.Content)
		cells[key] = row
	}

	p := Pivot{Columns: columns, Rows: make([]PivotRow, 0, len(dates))}
	for _, d := range dates {
		row := PivotRow{Date: d, Cells: make([]string, len(columns))}
		for i, parts := range cells[d] {
			row.Cells[i] = strings.Join(parts, pivotSeparator)
		}
		p.Rows = append(p.Rows, row)
	}
	return p
}

// Header returns the pivot header row.
func (p Pivot) Header() []string {
	return append([]string{"Date"}, p.Columns...)
}

// BuildYearGrid lays out every day of year against every (category, item)
// pair. Entries outside the year or whose item has no column are skipped.
func BuildYearGrid(year int, entries []core.Entry, categories []core.Category) YearGrid {
	g := YearGrid{Year: year}
	col := make(map[string]int)
	for _, c := range categories {
		if len(c.Items) == 0 {
			continue
		}
		g.Groups = append(g.Groups, GridGroup{Name: c.Name, Start: len(g.Columns), Span: len(c.Items)})
		for _, it := range c.Items {
			col[c.ID+"/"+it.ID] = len(g.Columns)
			g.Columns = append(g.Columns, GridColumn{
				CategoryID:   c.ID,
				CategoryName: c.Name,
				ItemID:       it.ID,
				ItemName:     it.Name,
			})
		}
	}

	days := core.DaysInYear(year)
	rowOf := make(map[string]int, len(days))
	parts := make([][][]string, len(days))
	g.Rows = make([]GridRow, len(days))
	for i, d := range days {
		key := d.Format(core.DateLayout)
		rowOf[key] = i
		g.Rows[i] = GridRow{Date: key, Cells: make([]string, len(g.Columns))}
		parts[i] = make([][]string, len(g.Columns))
	}

	for _, e := range sortedByDate(entries) {
		r, ok := rowOf[e.DateKey()]
		if !ok {
			continue
		}
		c, ok := col[e.CategoryID+"/"+e.ItemID]
		if !ok {
			continue
		}
		parts[r][c] = append(parts[r][c], e.Content)
	}
	for r := range parts {
		for c, p := range parts[r] {
			if len(p) > 0 {
				g.Rows[r].Cells[c] = strings.Join(p, gridSeparator)
			}
		}
	}
	return g
}

// HeaderRows returns the two header rows: category names at the start of each
// group, then item names. The first column holds "Date" on the top row.
func (g YearGrid) HeaderRows() [2][]string {
	top := make([]string, len(g.Columns)+1)
	sub := make([]string, len(g.Columns)+1)
	top[0] = "Date"
	for _, grp := range g.Groups {
		top[grp.Start+1] = grp.Name
	}
	for i, c := range g.Columns {
		sub[i+1] = c.ItemName
	}
	return [2][]string{top, sub}
}

// Values returns the header rows followed by one row per day.
func (g YearGrid) Values() [][]string {
	h := g.HeaderRows()
	out := make([][]string, 0, len(g.Rows)+2)
	out = append(out, h[0], h[1])
	for _, r := range g.Rows {
		out = append(out, append([]string{r.Date}, r.Cells...))
	}
	return out
}

func sortedByDate(entries []core.Entry) []core.Entry {
	out := make([]core.Entry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		ki, kj := out[i].DateKey(), out[j].DateKey()
		if ki != kj {
			return ki < kj
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
