package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"diary/internal/core"
	dlog "diary/internal/log"
	"diary/internal/store"
)

// DefaultItemEmoji is used when an item is created without one.
const DefaultItemEmoji = "✨"

type TaxonomyOptions struct {
	// CascadeDeactivate also deactivates a category's items when the
	// category is deactivated. Reactivation never cascades.
	CascadeDeactivate bool
	Policy            core.DeletionPolicy
}

// TaxonomyService manages categories and items.
type TaxonomyService struct {
	store store.TaxonomyStore
	opts  TaxonomyOptions
}

func NewTaxonomyService(s store.TaxonomyStore, opts TaxonomyOptions) *TaxonomyService {
	opts.Policy = checkedPolicy(opts.Policy)
	return &TaxonomyService{store: s, opts: opts}
}

func (s *TaxonomyService) ListCategories(ctx context.Context, includeInactive bool) ([]core.Category, error) {
	cats, err := s.store.ListCategories(ctx, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// ActiveItems returns the active items of an active category, for the entry form.
func (s *TaxonomyService) ActiveItems(ctx context.Context, categoryID string) ([]core.Item, error) {
	cat, err := s.store.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if !cat.IsActive {
		return []core.Item{}, nil
	}
	return cat.ActiveItems(), nil
}

func (s *TaxonomyService) AddCategory(ctx context.Context, name, color string) (core.Category, error) {
	c := core.Category{Name: strings.TrimSpace(name), Color: strings.TrimSpace(color), IsActive: true}
	if err := c.Validate(); err != nil {
		return core.Category{}, fmt.Errorf("add category: %w", err)
	}
	created, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("add category: %w", err)
	}
	s.logWrite(ctx, dlog.OpCreate, "category", created.ID)
	return created, nil
}

func (s *TaxonomyService) UpdateCategory(ctx context.Context, id, name, color string) (core.Category, error) {
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	c.Name, c.Color = strings.TrimSpace(name), strings.TrimSpace(color)
	if err := c.Validate(); err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	if err := s.store.UpdateCategory(ctx, c); err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	s.logWrite(ctx, dlog.OpUpdate, "category", id)
	return c, nil
}

// SetCategoryActive toggles a category. Deactivation cascades to items only
// when CascadeDeactivate is set.
func (s *TaxonomyService) SetCategoryActive(ctx context.Context, id string, active bool) error {
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return fmt.Errorf("set category active: %w", err)
	}
	c.IsActive = active
	if err := s.store.UpdateCategory(ctx, c); err != nil {
		return fmt.Errorf("set category active: %w", err)
	}
	if !active && s.opts.CascadeDeactivate {
		for _, it := range c.Items {
			if !it.IsActive {
				continue
			}
			it.IsActive = false
			if err := s.store.UpdateItem(ctx, it); err != nil {
				return fmt.Errorf("cascade deactivate item %s: %w", it.ID, err)
			}
		}
	}
	slog.InfoContext(ctx, "Category activity changed",
		dlog.FieldComponent, dlog.ComponentTaxonomy,
		dlog.FieldCategoryID, id,
		"active", active,
		"cascade", !active && s.opts.CascadeDeactivate)
	return nil
}

// MoveCategory swaps a category's order with its neighbour; direction < 0
// moves up, > 0 moves down. Moving past either end is a no-op.
func (s *TaxonomyService) MoveCategory(ctx context.Context, id string, direction int) error {
	cats, err := s.store.ListCategories(ctx, true)
	if err != nil {
		return fmt.Errorf("move category: %w", err)
	}
	i := -1
	for k, c := range cats {
		if c.ID == id {
			i = k
			break
		}
	}
	if i < 0 {
		return fmt.Errorf("move category %s: %w", id, core.ErrNotFound)
	}
	j := i + sign(direction)
	if j == i || j < 0 || j >= len(cats) {
		return nil
	}
	a, b := cats[i], cats[j]
	a.Order, b.Order = swapOrders(a.Order, b.Order, sign(direction))
	if err := s.store.UpdateCategory(ctx, a); err != nil {
		return fmt.Errorf("move category: %w", err)
	}
	if err := s.store.UpdateCategory(ctx, b); err != nil {
		return fmt.Errorf("move category: %w", err)
	}
	s.logWrite(ctx, dlog.OpMove, "category", id)
	return nil
}

// DeleteCategory applies the deletion policy; categories are only ever deactivated.
func (s *TaxonomyService) DeleteCategory(ctx context.Context, id string) error {
	if s.opts.Policy.ModeFor(core.KindCategory) != core.SoftDelete {
		return fmt.Errorf("delete category: %w", core.ErrHardDeleteUnsupported)
	}
	return s.SetCategoryActive(ctx, id, false)
}

func (s *TaxonomyService) AddItem(ctx context.Context, categoryID, name, emoji string) (core.Item, error) {
	if _, err := s.store.GetCategory(ctx, categoryID); err != nil {
		return core.Item{}, fmt.Errorf("add item: %w", err)
	}
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		emoji = DefaultItemEmoji
	}
	it := core.Item{CategoryID: categoryID, Name: strings.TrimSpace(name), Emoji: emoji, IsActive: true}
	if err := it.Validate(); err != nil {
		return core.Item{}, fmt.Errorf("add item: %w", err)
	}
	created, err := s.store.CreateItem(ctx, it)
	if err != nil {
		return core.Item{}, fmt.Errorf("add item: %w", err)
	}
	s.logWrite(ctx, dlog.OpCreate, "item", created.ID)
	return created, nil
}

func (s *TaxonomyService) UpdateItem(ctx context.Context, id, name, emoji string) (core.Item, error) {
	it, err := s.store.GetItem(ctx, id)
	if err != nil {
		return core.Item{}, fmt.Errorf("update item: %w", err)
	}
	it.Name = strings.TrimSpace(name)
	if e := strings.TrimSpace(emoji); e != "" {
		it.Emoji = e
	}
	if err := it.Validate(); err != nil {
		return core.Item{}, fmt.Errorf("update item: %w", err)
	}
	if err := s.store.UpdateItem(ctx, it); err != nil {
		return core.Item{}, fmt.Errorf("update item: %w", err)
	}
	s.logWrite(ctx, dlog.OpUpdate, "item", id)
	return it, nil
}

func (s *TaxonomyService) SetItemActive(ctx context.Context, id string, active bool) error {
	it, err := s.store.GetItem(ctx, id)
	if err != nil {
		return fmt.Errorf("set item active: %w", err)
	}
	it.IsActive = active
	if err := s.store.UpdateItem(ctx, it); err != nil {
		return fmt.Errorf("set item active: %w", err)
	}
	slog.InfoContext(ctx, "Item activity changed",
		dlog.FieldComponent, dlog.ComponentTaxonomy,
		dlog.FieldItemID, id,
		"active", active)
	return nil
}

// MoveItem swaps an item's order with its neighbour inside its category.
func (s *TaxonomyService) MoveItem(ctx context.Context, id string, direction int) error {
	it, err := s.store.GetItem(ctx, id)
	if err != nil {
		return fmt.Errorf("move item: %w", err)
	}
	cat, err := s.store.GetCategory(ctx, it.CategoryID)
	if err != nil {
		return fmt.Errorf("move item: %w", err)
	}
	items := cat.Items
	i := -1
	for k, x := range items {
		if x.ID == id {
			i = k
			break
		}
	}
	if i < 0 {
		return fmt.Errorf("move item %s: %w", id, core.ErrNotFound)
	}
	j := i + sign(direction)
	if j == i || j < 0 || j >= len(items) {
		return nil
	}
	a, b := items[i], items[j]
	a.Order, b.Order = swapOrders(a.Order, b.Order, sign(direction))
	if err := s.store.UpdateItem(ctx, a); err != nil {
		return fmt.Errorf("move item: %w", err)
	}
	if err := s.store.UpdateItem(ctx, b); err != nil {
		return fmt.Errorf("move item: %w", err)
	}
	s.logWrite(ctx, dlog.OpMove, "item", id)
	return nil
}

// DeleteItem applies the deletion policy; items are only ever deactivated.
func (s *TaxonomyService) DeleteItem(ctx context.Context, id string) error {
	if s.opts.Policy.ModeFor(core.KindItem) != core.SoftDelete {
		return fmt.Errorf("delete item: %w", core.ErrHardDeleteUnsupported)
	}
	return s.SetItemActive(ctx, id, false)
}

func (s *TaxonomyService) logWrite(ctx context.Context, op, kind, id string) {
	slog.InfoContext(ctx, "Taxonomy updated",
		dlog.FieldComponent, dlog.ComponentTaxonomy,
		dlog.FieldOperation, op,
		"kind", kind,
		"id", id)
}

// swapOrders exchanges two order values. Orders are advisory and may tie; a
// tie is broken so the moved node ends up on the requested side.
func swapOrders(moving, neighbour, dir int) (int, int) {
	if moving == neighbour {
		return neighbour + dir, moving
	}
	return neighbour, moving
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}
