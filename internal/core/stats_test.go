package core

import (
	"testing"
	"time"
)

func TestAggregateEntryPresence(t *testing.T) {
	entries := []Entry{
		{EntryDate: "2026-03-01"},
		{EntryDate: "2026-03-01T10:00:00Z"},
		{EntryDate: "2026-03-31"},
		{EntryDate: "2026-04-01"},
		{EntryDate: "2026-02-28"},
	}
	counts := AggregateEntryPresence(entries, 2026, 2)
	sum := 0
	for _, n := range counts {
		sum += n
	}
	if sum != 3 {
		t.Fatalf("expected 3 entries in March, got %d", sum)
	}
	if counts["2026-03-01"] != 2 || counts["2026-03-31"] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestEntriesForDay(t *testing.T) {
	base := time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)
	entries := []Entry{
		{ID: "a", EntryDate: "2026-03-15", CreatedAt: base},
		{ID: "b", EntryDate: "2026-03-15T23:59:59Z", CreatedAt: base.Add(time.Hour)},
		{ID: "c", EntryDate: "2026-03-16T00:00:00Z", CreatedAt: base.Add(2 * time.Hour)},
		{ID: "d", EntryDate: "2026-03-14T23:59:59Z", CreatedAt: base.Add(3 * time.Hour)},
		{ID: "e", EntryDate: "2026-03-15", CreatedAt: base},
	}
	got := EntriesForDay(entries, "2026-03-15")
	ids := ""
	for _, e := range got {
		ids += e.ID
	}
	if ids != "bae" {
		t.Fatalf("expected newest first and stable ties (bae), got %q", ids)
	}
	if entries[0].ID != "a" || entries[1].ID != "b" {
		t.Fatalf("input slice was mutated")
	}
	if len(EntriesForDay(nil, "2026-03-15")) != 0 {
		t.Fatalf("expected empty result")
	}
}

func TestComputeCategoryStats(t *testing.T) {
	a := Category{ID: "A", Name: "A", Items: []Item{{ID: "a1", Name: "a1"}}}
	b := Category{ID: "B", Name: "B", Items: []Item{{ID: "b1", Name: "b1"}}}
	entries := []Entry{
		{CategoryID: "A", ItemID: "a1"},
		{CategoryID: "A", ItemID: "a1"},
		{CategoryID: "B", ItemID: "b1"},
	}
	stats := ComputeCategoryStats(entries, []Category{a, b})
	if stats.Total != 3 || len(stats.List) != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.List[0].Name != "A" || stats.List[0].Count != 2 || stats.Percent(0) != 67 {
		t.Fatalf("unexpected first stat %+v (%d%%)", stats.List[0], stats.Percent(0))
	}
	if stats.List[1].Name != "B" || stats.List[1].Count != 1 || stats.Percent(1) != 33 {
		t.Fatalf("unexpected second stat %+v (%d%%)", stats.List[1], stats.Percent(1))
	}
	if stats.List[0].Items[0].Name != "a1" || stats.List[0].Items[0].Count != 2 {
		t.Fatalf("unexpected item breakdown %+v", stats.List[0].Items)
	}
}

func TestComputeCategoryStatsEmpty(t *testing.T) {
	stats := ComputeCategoryStats(nil, nil)
	if stats.Total != 0 || len(stats.List) != 0 || stats.List == nil {
		t.Fatalf("expected empty non-nil list, got %+v", stats)
	}
	if stats.Percent(0) != 0 || Percent(1, 0) != 0 {
		t.Fatalf("percent of zero total should be 0")
	}
}

func TestComputeCategoryStatsTiesAndUnknown(t *testing.T) {
	inactive := Category{ID: "X", Name: "Old", IsActive: false}
	entries := []Entry{
		{CategoryID: "X", ItemID: "gone"},
		{CategoryID: "missing", ItemID: "?"},
		{CategoryID: "Y", ItemID: "y1", Category: &Category{ID: "Y", Name: "Denorm"}, Item: &Item{Name: "Thing"}},
	}
	stats := ComputeCategoryStats(entries, []Category{inactive})
	names := []string{stats.List[0].Name, stats.List[1].Name, stats.List[2].Name}
	if names[0] != "Old" || names[1] != UnknownLabel || names[2] != "Denorm" {
		t.Fatalf("ties should keep first appearance order, got %v", names)
	}
	if stats.List[0].Items[0].Name != UnknownLabel {
		t.Fatalf("missing item should fall back to unknown label")
	}
	if stats.List[2].Items[0].Name != "Thing" {
		t.Fatalf("denormalized item should be used")
	}
}

func TestRecentByCategory(t *testing.T) {
	long := "0123456789012345678901234567890123456789012345678901234567890123456789"
	entries := []Entry{
		{ID: "1", CategoryID: "A", EntryDate: "2026-03-01", Content: "first"},
		{ID: "2", CategoryID: "A", EntryDate: "2026-03-04", Content: long},
		{ID: "3", CategoryID: "A", EntryDate: "2026-03-03", Content: "third"},
		{ID: "4", CategoryID: "A", EntryDate: "2026-03-02", Content: "second"},
		{ID: "5", CategoryID: "B", EntryDate: "2026-03-02", Content: "b"},
	}
	got := RecentByCategory(entries, 3, 60)
	if len(got["A"]) != 3 || len(got["B"]) != 1 {
		t.Fatalf("unexpected sizes %d %d", len(got["A"]), len(got["B"]))
	}
	if got["A"][0].ID != "2" || got["A"][1].ID != "3" || got["A"][2].ID != "4" {
		t.Fatalf("unexpected order %v %v %v", got["A"][0].ID, got["A"][1].ID, got["A"][2].ID)
	}
	if want := long[:60] + "..."; got["A"][0].Preview != want {
		t.Fatalf("preview = %q", got["A"][0].Preview)
	}
	if Truncate("日記日記", 2) != "日記..." {
		t.Fatalf("truncate should count runes")
	}
}
