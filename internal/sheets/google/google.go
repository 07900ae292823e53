package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"diary/internal/export"
	dlog "diary/internal/log"
	ports "diary/internal/sheets"
)

// Ensure interface conformance
var _ ports.GridPublisher = (*Client)(nil)

// Options configures a Sheets client. One of CredentialsJSON or
// CredentialsFile must be set.
type Options struct {
	SpreadsheetID   string
	SheetName       string // base name; the year is prefixed per tab
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	base := strings.TrimSpace(opts.SheetName)
	if base == "" {
		base = "Diary"
	}

	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetBase: base}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(opts.CredentialsJSON)
	serviceAccountFile := strings.TrimSpace(opts.CredentialsFile)

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// TabName returns the tab a year grid is written to.
func (c *Client) TabName(year int) string {
	return yearPrefixedName(c.sheetBase, year)
}

// PublishYearGrid rewrites the year's tab: the tab is created when missing,
// cleared, filled with the grid and its category headers merged.
func (c *Client) PublishYearGrid(ctx context.Context, g export.YearGrid) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	tab := c.TabName(g.Year)

	sheetID, err := c.ensureTab(ctx, tab)
	if err != nil {
		return err
	}

	rng := quoteTab(tab)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", tab, err)
	}

	vr := &gsheet.ValueRange{Values: gridValues(g)}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng+"!A1", vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write %s: %w", tab, err)
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: layoutRequests(sheetID, g)}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("format %s: %w", tab, err)
	}

	slog.InfoContext(ctx, "Year grid published",
		dlog.FieldComponent, dlog.ComponentSheets,
		dlog.FieldYear, g.Year,
		"tab", tab,
		"rows", len(g.Rows),
		"columns", len(g.Columns))
	return nil
}

// ensureTab returns the sheet ID of tab, adding the tab if it does not exist.
func (c *Client) ensureTab(ctx context.Context, tab string) (int64, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == tab {
			return s.Properties.SheetId, nil
		}
	}

	resp, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: tab}},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("add tab %s: %w", tab, err)
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil || resp.Replies[0].AddSheet.Properties == nil {
		return 0, fmt.Errorf("add tab %s: empty reply", tab)
	}
	slog.InfoContext(ctx, "Created sheet tab", dlog.FieldComponent, dlog.ComponentSheets, "tab", tab)
	return resp.Replies[0].AddSheet.Properties.SheetId, nil
}

// gridValues converts the grid into the value matrix sent to the API.
func gridValues(g export.YearGrid) [][]interface{} {
	rows := g.Values()
	out := make([][]interface{}, len(rows))
	for i, r := range rows {
		vals := make([]interface{}, len(r))
		for j, v := range r {
			vals[j] = v
		}
		out[i] = vals
	}
	return out
}

// layoutRequests unmerges the whole tab, merges the date header and every
// category header spanning more than one column, and freezes the headers.
func layoutRequests(sheetID int64, g export.YearGrid) []*gsheet.Request {
	reqs := []*gsheet.Request{
		{UnmergeCells: &gsheet.UnmergeCellsRequest{Range: gridRange(sheetID, 0, 0, 0, 0)}},
		{MergeCells: &gsheet.MergeCellsRequest{
			Range:     gridRange(sheetID, 0, 2, 0, 1),
			MergeType: "MERGE_ALL",
		}},
	}
	for _, grp := range g.Groups {
		if grp.Span < 2 {
			continue
		}
		start := int64(grp.Start + 1)
		reqs = append(reqs, &gsheet.Request{MergeCells: &gsheet.MergeCellsRequest{
			Range:     gridRange(sheetID, 0, 1, start, start+int64(grp.Span)),
			MergeType: "MERGE_ALL",
		}})
	}
	reqs = append(reqs, &gsheet.Request{UpdateSheetProperties: &gsheet.UpdateSheetPropertiesRequest{
		Properties: &gsheet.SheetProperties{
			SheetId:         sheetID,
			GridProperties:  &gsheet.GridProperties{FrozenRowCount: 2, FrozenColumnCount: 1},
			ForceSendFields: []string{"SheetId"},
		},
		Fields: "gridProperties.frozenRowCount,gridProperties.frozenColumnCount",
	}})
	return reqs
}

// gridRange builds a half-open range. A zero end index leaves that bound
// open. SheetId is always sent since the first tab has ID 0.
func gridRange(sheetID, startRow, endRow, startCol, endCol int64) *gsheet.GridRange {
	return &gsheet.GridRange{
		SheetId:          sheetID,
		StartRowIndex:    startRow,
		EndRowIndex:      endRow,
		StartColumnIndex: startCol,
		EndColumnIndex:   endCol,
		ForceSendFields:  []string{"SheetId"},
	}
}

func quoteTab(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
