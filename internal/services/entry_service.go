package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"diary/internal/amqp"
	"diary/internal/core"
	dlog "diary/internal/log"
	"diary/internal/store"
)

// EventPublisher announces entry writes to other processes.
type EventPublisher interface {
	PublishEntryChanged(ctx context.Context, msg *amqp.EntryChangedMessage) error
}

// EntryInput holds the user-editable fields of an entry.
type EntryInput struct {
	EntryDate  string
	CategoryID string
	ItemID     string
	Content    string
}

// EntryService validates and persists entries, keeping them consistent with
// the taxonomy, and publishes a change event after each write.
type EntryService struct {
	entries   store.EntryStore
	taxonomy  store.TaxonomyReader
	publisher EventPublisher
	policy    core.DeletionPolicy
}

func NewEntryService(entries store.EntryStore, taxonomy store.TaxonomyReader, publisher EventPublisher, policy core.DeletionPolicy) *EntryService {
	return &EntryService{
		entries:   entries,
		taxonomy:  taxonomy,
		publisher: publisher,
		policy:    checkedPolicy(policy),
	}
}

// checkedPolicy returns p, or the default policy when p is nil or names a
// mode the stores cannot honour.
func checkedPolicy(p core.DeletionPolicy) core.DeletionPolicy {
	if p == nil {
		return core.DefaultDeletionPolicy()
	}
	if err := p.Validate(); err != nil {
		slog.Warn("Invalid deletion policy, using default",
			dlog.FieldError, err)
		return core.DefaultDeletionPolicy()
	}
	return p
}

// CreateEntry validates the input against the active taxonomy and stores it.
func (s *EntryService) CreateEntry(ctx context.Context, in EntryInput) (core.Entry, error) {
	e := in.toEntry()
	if err := e.Validate(); err != nil {
		return core.Entry{}, fmt.Errorf("create entry: %w", err)
	}
	if err := s.checkTaxonomy(ctx, e.CategoryID, e.ItemID, true); err != nil {
		return core.Entry{}, fmt.Errorf("create entry: %w", err)
	}

	created, err := s.entries.CreateEntry(ctx, e)
	if err != nil {
		return core.Entry{}, fmt.Errorf("save entry: %w", err)
	}

	dlog.NewStructuredLogger(dlog.FromContext(ctx)).
		LogEntryWritten(ctx, dlog.OpCreate, created.ID, created.EntryDate, created.CategoryID, created.ItemID)
	s.publish(ctx, created.ID, amqp.ActionCreated, created.EntryDate)
	return created, nil
}

// UpdateEntry replaces the editable fields of an entry. A deactivated
// category or item is accepted only if the entry already referenced it.
func (s *EntryService) UpdateEntry(ctx context.Context, id string, in EntryInput) (core.Entry, error) {
	prev, err := s.entries.GetEntry(ctx, id)
	if err != nil {
		return core.Entry{}, fmt.Errorf("update entry: %w", err)
	}

	e := in.toEntry()
	e.ID = id
	if err := e.Validate(); err != nil {
		return core.Entry{}, fmt.Errorf("update entry: %w", err)
	}
	unchanged := e.CategoryID == prev.CategoryID && e.ItemID == prev.ItemID
	if err := s.checkTaxonomy(ctx, e.CategoryID, e.ItemID, !unchanged); err != nil {
		return core.Entry{}, fmt.Errorf("update entry: %w", err)
	}

	updated, err := s.entries.UpdateEntry(ctx, e)
	if err != nil {
		return core.Entry{}, fmt.Errorf("save entry: %w", err)
	}

	dlog.NewStructuredLogger(dlog.FromContext(ctx)).
		LogEntryWritten(ctx, dlog.OpUpdate, updated.ID, updated.EntryDate, updated.CategoryID, updated.ItemID)
	s.publish(ctx, updated.ID, amqp.ActionUpdated, updated.EntryDate)
	if yearOf(prev.EntryDate) != yearOf(updated.EntryDate) {
		// The old year's grid also changed.
		s.publish(ctx, updated.ID, amqp.ActionUpdated, prev.EntryDate)
	}
	return updated, nil
}

// DeleteEntry removes an entry according to the deletion policy.
func (s *EntryService) DeleteEntry(ctx context.Context, id string) error {
	prev, err := s.entries.GetEntry(ctx, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if s.policy.ModeFor(core.KindEntry) != core.HardDelete {
		return fmt.Errorf("delete entry: soft delete not supported for entries")
	}
	if err := s.entries.DeleteEntry(ctx, id); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}

	dlog.NewStructuredLogger(dlog.FromContext(ctx)).
		LogEntryWritten(ctx, dlog.OpDelete, prev.ID, prev.EntryDate, prev.CategoryID, prev.ItemID)
	s.publish(ctx, id, amqp.ActionDeleted, prev.EntryDate)
	return nil
}

func (s *EntryService) GetEntry(ctx context.Context, id string) (core.Entry, error) {
	return s.entries.GetEntry(ctx, id)
}

func (s *EntryService) ListEntries(ctx context.Context, f core.EntryFilter) ([]core.Entry, error) {
	entries, err := s.entries.ListEntries(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// EntriesForDay returns a day's entries, newest first.
func (s *EntryService) EntriesForDay(ctx context.Context, date string) ([]core.Entry, error) {
	if _, err := core.ParseDate(date); err != nil {
		return nil, err
	}
	entries, err := s.ListEntries(ctx, core.EntryFilter{Date: core.DateKey(date)})
	if err != nil {
		return nil, err
	}
	return core.EntriesForDay(entries, date), nil
}

// CalendarMonth is a month grid with per-day entry counts.
type CalendarMonth struct {
	Year   int
	Month0 int
	Cells  []core.CalendarCell
	Counts map[string]int
}

// Key returns the month as YYYY-MM.
func (c CalendarMonth) Key() string {
	return core.MonthKey(c.Year, c.Month0)
}

// Calendar builds the month grid and the entry counts shown on it.
func (s *EntryService) Calendar(ctx context.Context, year, month0 int) (CalendarMonth, error) {
	year, month0 = core.MonthOf(year, month0)
	entries, err := s.ListEntries(ctx, core.EntryFilter{Month: core.MonthKey(year, month0)})
	if err != nil {
		return CalendarMonth{}, err
	}
	return CalendarMonth{
		Year:   year,
		Month0: month0,
		Cells:  core.BuildCalendarGrid(year, month0),
		Counts: core.AggregateEntryPresence(entries, year, month0),
	}, nil
}

func (s *EntryService) checkTaxonomy(ctx context.Context, categoryID, itemID string, requireActive bool) error {
	cat, err := s.taxonomy.GetCategory(ctx, categoryID)
	if errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("category %s: %w", categoryID, core.ErrMissingCategory)
	}
	if err != nil {
		return err
	}
	item, err := s.taxonomy.GetItem(ctx, itemID)
	if errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("item %s: %w", itemID, core.ErrMissingItem)
	}
	if err != nil {
		return err
	}
	if item.CategoryID != cat.ID {
		return fmt.Errorf("item %s in category %s: %w", itemID, categoryID, core.ErrItemCategoryMismatch)
	}
	if requireActive && (!cat.IsActive || !item.IsActive) {
		return core.ErrInactiveTaxonomy
	}
	return nil
}

// publish never fails the caller; the entry is already stored.
func (s *EntryService) publish(ctx context.Context, id string, action amqp.Action, date string) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "No event publisher configured, skipping entry change event", "id", id)
		return
	}
	if err := s.publisher.PublishEntryChanged(ctx, amqp.NewEntryChangedMessage(id, action, core.DateKey(date))); err != nil {
		slog.ErrorContext(ctx, "Failed to publish entry change",
			dlog.FieldEntryID, id,
			dlog.FieldAction, string(action),
			dlog.FieldComponent, dlog.ComponentAMQP,
			dlog.FieldError, err)
	}
}

func (in EntryInput) toEntry() core.Entry {
	return core.Entry{
		EntryDate:  core.DateKey(strings.TrimSpace(in.EntryDate)),
		CategoryID: strings.TrimSpace(in.CategoryID),
		ItemID:     strings.TrimSpace(in.ItemID),
		Content:    strings.TrimSpace(in.Content),
	}
}

func yearOf(date string) int {
	t, err := core.ParseDate(date)
	if err != nil {
		return 0
	}
	return t.Year()
}
