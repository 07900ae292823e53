package services

import (
	"context"
	"errors"
	"testing"

	"diary/internal/amqp"
	"diary/internal/core"
)

func TestEntryService_CreateAndDayRoundTrip(t *testing.T) {
	ctx := context.Background()
	st, cats := seeded(t)
	pub := &fakePublisher{}
	svc := NewEntryService(st, st, pub, nil)

	work, plan := cats[0], cats[0].Items[0]
	created, err := svc.CreateEntry(ctx, EntryInput{
		EntryDate:  "2026-03-15",
		CategoryID: work.ID,
		ItemID:     plan.ID,
		Content:    "  did X  ",
	})
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	if created.Content != "did X" {
		t.Errorf("content not trimmed: %q", created.Content)
	}

	day, err := svc.EntriesForDay(ctx, "2026-03-15")
	if err != nil {
		t.Fatalf("EntriesForDay: %v", err)
	}
	n := 0
	for _, e := range day {
		if e.ID == created.ID {
			n++
		}
	}
	if n != 1 {
		t.Fatalf("created entry should appear once, got %d", n)
	}

	other, _ := svc.EntriesForDay(ctx, "2026-03-16")
	if len(other) != 0 {
		t.Fatalf("adjacent day leaked: %v", other)
	}

	msgs := pub.sent()
	if len(msgs) != 1 || msgs[0].Action != amqp.ActionCreated || msgs[0].EntryDate != "2026-03-15" {
		t.Fatalf("unexpected events: %+v", msgs)
	}
}

func TestEntryService_CreateValidation(t *testing.T) {
	ctx := context.Background()
	st, cats := seeded(t)
	svc := NewEntryService(st, st, nil, nil)
	work, health := cats[0], cats[1]

	tests := []struct {
		name string
		in   EntryInput
		want error
	}{
		{"empty content", EntryInput{"2026-03-15", work.ID, work.Items[0].ID, "   "}, core.ErrEmptyContent},
		{"bad date", EntryInput{"2026-02-30", work.ID, work.Items[0].ID, "x"}, core.ErrInvalidDate},
		{"unknown category", EntryInput{"2026-03-15", "nope", work.Items[0].ID, "x"}, core.ErrMissingCategory},
		{"unknown item", EntryInput{"2026-03-15", work.ID, "nope", "x"}, core.ErrMissingItem},
		{"item of another category", EntryInput{"2026-03-15", work.ID, health.Items[0].ID, "x"}, core.ErrItemCategoryMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateEntry(ctx, tt.in)
			if !errors.Is(err, tt.want) {
				t.Fatalf("want %v, got %v", tt.want, err)
			}
			if !core.IsValidationError(err) {
				t.Errorf("%v should be a validation error", err)
			}
		})
	}
}

func TestEntryService_InactiveTaxonomy(t *testing.T) {
	ctx := context.Background()
	st, cats := seeded(t)
	svc := NewEntryService(st, st, nil, nil)
	work, plan, execute := cats[0], cats[0].Items[0], cats[0].Items[1]

	e, err := svc.CreateEntry(ctx, EntryInput{"2026-03-15", work.ID, plan.ID, "before"})
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}

	plan.IsActive = false
	if err := st.UpdateItem(ctx, plan); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}

	if _, err := svc.CreateEntry(ctx, EntryInput{"2026-03-15", work.ID, plan.ID, "new"}); !errors.Is(err, core.ErrInactiveTaxonomy) {
		t.Fatalf("create on inactive item: want ErrInactiveTaxonomy, got %v", err)
	}

	// Editing content of an entry that already points at the inactive item is allowed.
	updated, err := svc.UpdateEntry(ctx, e.ID, EntryInput{"2026-03-15", work.ID, plan.ID, "after"})
	if err != nil {
		t.Fatalf("UpdateEntry unchanged pair: %v", err)
	}
	if updated.Content != "after" || updated.ItemName() != "Plan" {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	// Moving to another active item works, moving back to the inactive one does not.
	if _, err := svc.UpdateEntry(ctx, e.ID, EntryInput{"2026-03-15", work.ID, execute.ID, "after"}); err != nil {
		t.Fatalf("UpdateEntry to active item: %v", err)
	}
	if _, err := svc.UpdateEntry(ctx, e.ID, EntryInput{"2026-03-15", work.ID, plan.ID, "after"}); !errors.Is(err, core.ErrInactiveTaxonomy) {
		t.Fatalf("want ErrInactiveTaxonomy, got %v", err)
	}
}

func TestEntryService_UpdateAcrossYearsPublishesBoth(t *testing.T) {
	ctx := context.Background()
	st, cats := seeded(t)
	pub := &fakePublisher{}
	svc := NewEntryService(st, st, pub, nil)
	work, plan := cats[0], cats[0].Items[0]

	e, err := svc.CreateEntry(ctx, EntryInput{"2025-12-31", work.ID, plan.ID, "x"})
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	if _, err := svc.UpdateEntry(ctx, e.ID, EntryInput{"2026-01-01", work.ID, plan.ID, "x"}); err != nil {
		t.Fatalf("UpdateEntry: %v", err)
	}

	msgs := pub.sent()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 events, got %d", len(msgs))
	}
	if msgs[1].Year() != 2026 || msgs[2].Year() != 2025 {
		t.Fatalf("expected new then old year, got %d %d", msgs[1].Year(), msgs[2].Year())
	}
}

func TestEntryService_DeleteAndPublishFailure(t *testing.T) {
	ctx := context.Background()
	st, cats := seeded(t)
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewEntryService(st, st, pub, nil)
	work, plan := cats[0], cats[0].Items[0]

	e, err := svc.CreateEntry(ctx, EntryInput{"2026-03-15", work.ID, plan.ID, "x"})
	if err != nil {
		t.Fatalf("publish failure must not fail create: %v", err)
	}
	if err := svc.DeleteEntry(ctx, e.ID); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	if _, err := svc.GetEntry(ctx, e.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("want ErrNotFound after delete, got %v", err)
	}
	if err := svc.DeleteEntry(ctx, e.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete: want ErrNotFound, got %v", err)
	}

	msgs := pub.sent()
	if len(msgs) != 2 || msgs[1].Action != amqp.ActionDeleted {
		t.Fatalf("unexpected events: %+v", msgs)
	}
}

func TestEntryService_InvalidPolicyFallsBackToDefault(t *testing.T) {
	ctx := context.Background()
	st, cats := seeded(t)
	policy := core.DeletionPolicy{core.KindEntry: core.SoftDelete}
	svc := NewEntryService(st, st, nil, policy)

	if got := svc.policy.ModeFor(core.KindEntry); got != core.HardDelete {
		t.Fatalf("entry mode = %q, want %q", got, core.HardDelete)
	}

	e, err := svc.CreateEntry(ctx, EntryInput{"2026-03-15", cats[0].ID, cats[0].Items[0].ID, "x"})
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	if err := svc.DeleteEntry(ctx, e.ID); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	if _, err := svc.GetEntry(ctx, e.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("want ErrNotFound after delete, got %v", err)
	}
}

func TestEntryService_Calendar(t *testing.T) {
	ctx := context.Background()
	st, cats := seeded(t)
	svc := NewEntryService(st, st, nil, nil)
	work, plan := cats[0], cats[0].Items[0]

	for _, d := range []string{"2026-03-01", "2026-03-01", "2026-03-31", "2026-04-01"} {
		if _, err := svc.CreateEntry(ctx, EntryInput{d, work.ID, plan.ID, "x"}); err != nil {
			t.Fatalf("CreateEntry %s: %v", d, err)
		}
	}

	cal, err := svc.Calendar(ctx, 2026, 2)
	if err != nil {
		t.Fatalf("Calendar: %v", err)
	}
	if cal.Key() != "2026-03" || len(cal.Cells) != core.CalendarCells {
		t.Fatalf("unexpected calendar %s with %d cells", cal.Key(), len(cal.Cells))
	}
	sum := 0
	for _, n := range cal.Counts {
		sum += n
	}
	if sum != 3 || cal.Counts["2026-03-01"] != 2 {
		t.Fatalf("unexpected counts %v", cal.Counts)
	}

	// month0 out of range rolls into the next year
	cal, err = svc.Calendar(ctx, 2026, 12)
	if err != nil || cal.Key() != "2027-01" {
		t.Fatalf("normalised month: %s %v", cal.Key(), err)
	}
}
