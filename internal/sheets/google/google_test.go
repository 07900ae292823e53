package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"diary/internal/core"
	"diary/internal/export"
)

func sampleGrid() export.YearGrid {
	cats := []core.Category{
		{ID: "w", Name: "Work", IsActive: true, Items: []core.Item{
			{ID: "p", CategoryID: "w", Name: "Plan"},
			{ID: "e", CategoryID: "w", Name: "Execute"},
		}},
		{ID: "h", Name: "Health", IsActive: true, Items: []core.Item{
			{ID: "r", CategoryID: "h", Name: "Run"},
		}},
	}
	entries := []core.Entry{{EntryDate: "2026-03-15", CategoryID: "w", ItemID: "p", Content: "did X"}}
	return export.BuildYearGrid(2026, entries, cats)
}

func TestNew_MissingSettings(t *testing.T) {
	if _, err := New(context.Background(), Options{}); err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := New(context.Background(), Options{SpreadsheetID: "abc"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = New(context.Background(), Options{SpreadsheetID: "abc", CredentialsFile: "/non/existent.json"})
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"Diary", "2026 Diary"},
		{"  Diary ", "2026 Diary"},
		{"2025 Diary", "2025 Diary"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, 2026); got != tt.want {
			t.Errorf("yearPrefixedName(%q) = %q, want %q", tt.base, got, tt.want)
		}
	}
}

func TestQuoteTab(t *testing.T) {
	if got := quoteTab("Bob's 2026"); got != "'Bob''s 2026'" {
		t.Fatalf("quoteTab = %s", got)
	}
}

func TestGridValues(t *testing.T) {
	vals := gridValues(sampleGrid())
	if len(vals) != 2+365 {
		t.Fatalf("expected 367 rows, got %d", len(vals))
	}
	if vals[0][0] != "Date" || vals[0][1] != "Work" || vals[0][3] != "Health" {
		t.Fatalf("unexpected top header %v", vals[0])
	}
	if vals[1][1] != "Plan" || vals[1][2] != "Execute" {
		t.Fatalf("unexpected item header %v", vals[1])
	}
	// 2026-03-15 is day 74 of the year
	row := vals[2+73]
	if row[0] != "2026-03-15" || row[1] != "did X" {
		t.Fatalf("unexpected row %v", row)
	}
}

func TestLayoutRequests(t *testing.T) {
	reqs := layoutRequests(0, sampleGrid())
	// unmerge, date header, Work header (Health spans one column), freeze
	if len(reqs) != 4 {
		t.Fatalf("expected 4 requests, got %d", len(reqs))
	}
	if reqs[0].UnmergeCells == nil {
		t.Fatal("first request should unmerge")
	}
	work := reqs[2].MergeCells
	if work == nil || work.Range.StartColumnIndex != 1 || work.Range.EndColumnIndex != 3 || work.Range.EndRowIndex != 1 {
		t.Fatalf("unexpected Work merge %+v", work)
	}

	// sheet 0 must still be serialised
	b, err := json.Marshal(work.Range)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"sheetId":0`) {
		t.Fatalf("sheetId dropped from %s", b)
	}
	if reqs[3].UpdateSheetProperties == nil || reqs[3].UpdateSheetProperties.Properties.GridProperties.FrozenRowCount != 2 {
		t.Fatal("last request should freeze the header rows")
	}
}

// fakeSheets records the calls PublishYearGrid makes against the REST API.
type fakeSheets struct {
	mu      sync.Mutex
	calls   []string
	written int
	layout  int
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet:
		f.calls = append(f.calls, "get")
		io.WriteString(w, `{"sheets":[{"properties":{"sheetId":0,"title":"Sheet1"}}]}`)
	case strings.HasSuffix(r.URL.Path, ":batchUpdate"):
		var req gsheet.BatchUpdateSpreadsheetRequest
		_ = json.Unmarshal(body, &req)
		if len(req.Requests) == 1 && req.Requests[0].AddSheet != nil {
			f.calls = append(f.calls, "add:"+req.Requests[0].AddSheet.Properties.Title)
			io.WriteString(w, `{"replies":[{"addSheet":{"properties":{"sheetId":42}}}]}`)
			return
		}
		f.calls = append(f.calls, "layout")
		f.layout = len(req.Requests)
		io.WriteString(w, `{}`)
	case strings.HasSuffix(r.URL.Path, ":clear"):
		f.calls = append(f.calls, "clear")
		io.WriteString(w, `{}`)
	case r.Method == http.MethodPut:
		var vr gsheet.ValueRange
		_ = json.Unmarshal(body, &vr)
		f.calls = append(f.calls, "update")
		f.written = len(vr.Values)
		io.WriteString(w, `{}`)
	default:
		http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusBadRequest)
	}
}

func TestPublishYearGrid(t *testing.T) {
	fake := &fakeSheets{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	c := &Client{svc: svc, spreadsheetID: "sheet-123", sheetBase: "Diary"}

	if err := c.PublishYearGrid(context.Background(), sampleGrid()); err != nil {
		t.Fatalf("PublishYearGrid: %v", err)
	}

	want := []string{"get", "add:2026 Diary", "clear", "update", "layout"}
	if strings.Join(fake.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", fake.calls, want)
	}
	if fake.written != 367 || fake.layout != 4 {
		t.Fatalf("written=%d layout=%d", fake.written, fake.layout)
	}
}

func TestPublishYearGrid_NotInitialized(t *testing.T) {
	c := &Client{}
	if err := c.PublishYearGrid(context.Background(), export.YearGrid{Year: 2026}); err == nil {
		t.Fatal("expected error")
	}
}
