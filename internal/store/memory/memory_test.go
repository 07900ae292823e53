package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"diary/internal/core"
)

func TestSeededTaxonomy(t *testing.T) {
	s := NewSeeded()
	cats, err := s.ListCategories(context.Background(), false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(cats) != 2 || cats[0].Name != "Work" || cats[1].Name != "Health" {
		t.Fatalf("unexpected categories %+v", cats)
	}
	if len(cats[0].Items) != 2 || cats[0].Items[0].Name != "Plan" || cats[0].Items[1].Order != 2 {
		t.Fatalf("unexpected items %+v", cats[0].Items)
	}
}

func TestInactiveFiltering(t *testing.T) {
	ctx := context.Background()
	s := NewSeeded()
	cats, _ := s.ListCategories(ctx, false)
	health := cats[1]
	health.IsActive = false
	if err := s.UpdateCategory(ctx, health); err != nil {
		t.Fatalf("update: %v", err)
	}
	plan := cats[0].Items[0]
	plan.IsActive = false
	if err := s.UpdateItem(ctx, plan); err != nil {
		t.Fatalf("update item: %v", err)
	}

	active, _ := s.ListCategories(ctx, false)
	if len(active) != 1 || len(active[0].Items) != 1 {
		t.Fatalf("inactive nodes should be hidden: %+v", active)
	}
	all, _ := s.ListCategories(ctx, true)
	if len(all) != 2 || len(all[0].Items) != 2 {
		t.Fatalf("includeInactive should list everything: %+v", all)
	}
}

func TestEntryLifecycle(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	s := NewSeeded().WithClock(func() time.Time { return clock })
	cats, _ := s.ListCategories(ctx, false)
	work := cats[0]

	e, err := s.CreateEntry(ctx, core.Entry{
		EntryDate:  "2026-03-15",
		CategoryID: work.ID,
		ItemID:     work.Items[0].ID,
		Content:    "did X",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if e.ID == "" || !e.CreatedAt.Equal(clock) || e.Category == nil || e.Item.Name != "Plan" {
		t.Fatalf("unexpected entry %+v", e)
	}

	got, _ := s.ListEntries(ctx, core.EntryFilter{Date: "2026-03-15"})
	if len(got) != 1 || got[0].ID != e.ID {
		t.Fatalf("expected entry in day listing, got %+v", got)
	}
	if got, _ := s.ListEntries(ctx, core.EntryFilter{Date: "2026-03-16"}); len(got) != 0 {
		t.Fatalf("entry leaked into adjacent day")
	}

	clock = clock.Add(time.Hour)
	e.Content = "did Y"
	upd, err := s.UpdateEntry(ctx, e)
	if err != nil || upd.Content != "did Y" || !upd.UpdatedAt.Equal(clock) || !upd.CreatedAt.Equal(e.CreatedAt) {
		t.Fatalf("unexpected update %+v err=%v", upd, err)
	}

	if err := s.DeleteEntry(ctx, e.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetEntry(ctx, e.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteEntry(ctx, e.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestCreateItemUnknownCategory(t *testing.T) {
	_, err := New().CreateItem(context.Background(), core.Item{CategoryID: "nope", Name: "x"})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
