// Package memory is an in-process store used by the memory backend and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"diary/internal/core"
)

type Store struct {
	mu      sync.Mutex
	cats    []core.Category // Items left empty; see items
	items   []core.Item
	entries []core.Entry
	now     func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{now: time.Now}
}

// NewSeeded returns a store holding the demo taxonomy.
func NewSeeded() *Store {
	s := New()
	ctx := context.Background()
	for _, seed := range []struct {
		name, color string
		items       []string
	}{
		{"Work", "#3b82f6", []string{"Plan", "Execute"}},
		{"Health", "#22c55e", []string{"Run"}},
	} {
		c, _ := s.CreateCategory(ctx, core.Category{Name: seed.name, Color: seed.color, IsActive: true})
		for _, name := range seed.items {
			_, _ = s.CreateItem(ctx, core.Item{CategoryID: c.ID, Name: name, Emoji: "✨", IsActive: true})
		}
	}
	return s
}

// WithClock overrides the timestamp source.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) ListCategories(_ context.Context, includeInactive bool) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.Category, 0, len(s.cats))
	for _, c := range s.cats {
		if !includeInactive && !c.IsActive {
			continue
		}
		c.Items = s.itemsOf(c.ID, includeInactive)
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (s *Store) GetCategory(_ context.Context, id string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.catIndex(id)
	if i < 0 {
		return core.Category{}, fmt.Errorf("category %s: %w", id, core.ErrNotFound)
	}
	c := s.cats[i]
	c.Items = s.itemsOf(id, true)
	return c, nil
}

func (s *Store) GetItem(_ context.Context, id string) (core.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.itemIndex(id)
	if i < 0 {
		return core.Item{}, fmt.Errorf("item %s: %w", id, core.ErrNotFound)
	}
	return s.items[i], nil
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = uuid.NewString()
	if c.Order == 0 {
		max := 0
		for _, x := range s.cats {
			if x.Order > max {
				max = x.Order
			}
		}
		c.Order = max + 1
	}
	c.Items = nil
	s.cats = append(s.cats, c)
	return c, nil
}

func (s *Store) UpdateCategory(_ context.Context, c core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.catIndex(c.ID)
	if i < 0 {
		return fmt.Errorf("category %s: %w", c.ID, core.ErrNotFound)
	}
	c.Items = nil
	s.cats[i] = c
	return nil
}

func (s *Store) CreateItem(_ context.Context, it core.Item) (core.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.catIndex(it.CategoryID) < 0 {
		return core.Item{}, fmt.Errorf("category %s: %w", it.CategoryID, core.ErrNotFound)
	}
	it.ID = uuid.NewString()
	if it.Order == 0 {
		max := 0
		for _, x := range s.items {
			if x.CategoryID == it.CategoryID && x.Order > max {
				max = x.Order
			}
		}
		it.Order = max + 1
	}
	s.items = append(s.items, it)
	return it, nil
}

func (s *Store) UpdateItem(_ context.Context, it core.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.itemIndex(it.ID)
	if i < 0 {
		return fmt.Errorf("item %s: %w", it.ID, core.ErrNotFound)
	}
	s.items[i] = it
	return nil
}

func (s *Store) ListEntries(_ context.Context, f core.EntryFilter) ([]core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Entry, 0)
	for _, e := range s.entries {
		if f.Matches(e) {
			out = append(out, s.resolve(e))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].EntryDate != out[j].EntryDate {
			return out[i].EntryDate < out[j].EntryDate
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) GetEntry(_ context.Context, id string) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.entryIndex(id)
	if i < 0 {
		return core.Entry{}, fmt.Errorf("entry %s: %w", id, core.ErrNotFound)
	}
	return s.resolve(s.entries[i]), nil
}

func (s *Store) CreateEntry(_ context.Context, e core.Entry) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	e.ID = uuid.NewString()
	e.CreatedAt, e.UpdatedAt = now, now
	e.Category, e.Item = nil, nil
	s.entries = append(s.entries, e)
	return s.resolve(e), nil
}

func (s *Store) UpdateEntry(_ context.Context, e core.Entry) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.entryIndex(e.ID)
	if i < 0 {
		return core.Entry{}, fmt.Errorf("entry %s: %w", e.ID, core.ErrNotFound)
	}
	e.CreatedAt = s.entries[i].CreatedAt
	e.UpdatedAt = s.now().UTC()
	e.Category, e.Item = nil, nil
	s.entries[i] = e
	return s.resolve(e), nil
}

func (s *Store) DeleteEntry(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.entryIndex(id)
	if i < 0 {
		return fmt.Errorf("entry %s: %w", id, core.ErrNotFound)
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	return nil
}

func (s *Store) itemsOf(categoryID string, includeInactive bool) []core.Item {
	var out []core.Item
	for _, it := range s.items {
		if it.CategoryID != categoryID || (!includeInactive && !it.IsActive) {
			continue
		}
		out = append(out, it)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func (s *Store) resolve(e core.Entry) core.Entry {
	if i := s.catIndex(e.CategoryID); i >= 0 {
		c := s.cats[i]
		e.Category = &c
	}
	if i := s.itemIndex(e.ItemID); i >= 0 {
		it := s.items[i]
		e.Item = &it
	}
	return e
}

func (s *Store) catIndex(id string) int {
	for i, c := range s.cats {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) itemIndex(id string) int {
	for i, it := range s.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) entryIndex(id string) int {
	for i, e := range s.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }
