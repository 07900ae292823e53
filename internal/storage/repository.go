package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"diary/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

// DSN builds a modernc sqlite data source with foreign keys enforced.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", DSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ListCategories implements store.TaxonomyReader
func (r *SQLiteRepository) ListCategories(ctx context.Context, includeInactive bool) ([]core.Category, error) {
	cats, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	items, err := r.queries.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	byCategory := make(map[string][]core.Item)
	for _, it := range items {
		if !includeInactive && !it.IsActive {
			continue
		}
		byCategory[it.CategoryID] = append(byCategory[it.CategoryID], toItem(it))
	}

	out := make([]core.Category, 0, len(cats))
	for _, c := range cats {
		if !includeInactive && !c.IsActive {
			continue
		}
		cat := toCategory(c)
		cat.Items = byCategory[c.ID]
		out = append(out, cat)
	}
	return out, nil
}

// GetCategory implements store.TaxonomyReader
func (r *SQLiteRepository) GetCategory(ctx context.Context, id string) (core.Category, error) {
	row, err := r.queries.GetCategory(ctx, id)
	if err != nil {
		return core.Category{}, notFound(err, "get category "+id)
	}
	cat := toCategory(row)
	items, err := r.queries.ListItems(ctx)
	if err != nil {
		return core.Category{}, fmt.Errorf("list items: %w", err)
	}
	for _, it := range items {
		if it.CategoryID == id {
			cat.Items = append(cat.Items, toItem(it))
		}
	}
	return cat, nil
}

// GetItem implements store.TaxonomyReader
func (r *SQLiteRepository) GetItem(ctx context.Context, id string) (core.Item, error) {
	row, err := r.queries.GetItem(ctx, id)
	if err != nil {
		return core.Item{}, notFound(err, "get item "+id)
	}
	return toItem(row), nil
}

// CreateCategory implements store.TaxonomyWriter
func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c.ID = uuid.NewString()
	if c.Order == 0 {
		max, err := r.queries.MaxCategoryOrder(ctx)
		if err != nil {
			return core.Category{}, fmt.Errorf("max category order: %w", err)
		}
		c.Order = int(max) + 1
	}
	if err := r.queries.CreateCategory(ctx, fromCategory(c)); err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	c.Items = nil

	slog.InfoContext(ctx, "Category saved to SQLite", "id", c.ID, "name", c.Name, "order", c.Order)
	return c, nil
}

// UpdateCategory implements store.TaxonomyWriter
func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) error {
	n, err := r.queries.UpdateCategory(ctx, fromCategory(c))
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update category %s: %w", c.ID, core.ErrNotFound)
	}
	slog.InfoContext(ctx, "Category updated", "id", c.ID, "active", c.IsActive, "order", c.Order)
	return nil
}

// CreateItem implements store.TaxonomyWriter
func (r *SQLiteRepository) CreateItem(ctx context.Context, it core.Item) (core.Item, error) {
	if _, err := r.queries.GetCategory(ctx, it.CategoryID); err != nil {
		return core.Item{}, notFound(err, "get category "+it.CategoryID)
	}
	it.ID = uuid.NewString()
	if it.Order == 0 {
		max, err := r.queries.MaxItemOrder(ctx, it.CategoryID)
		if err != nil {
			return core.Item{}, fmt.Errorf("max item order: %w", err)
		}
		it.Order = int(max) + 1
	}
	if err := r.queries.CreateItem(ctx, fromItem(it)); err != nil {
		return core.Item{}, fmt.Errorf("create item: %w", err)
	}

	slog.InfoContext(ctx, "Item saved to SQLite", "id", it.ID, "category_id", it.CategoryID, "name", it.Name)
	return it, nil
}

// UpdateItem implements store.TaxonomyWriter
func (r *SQLiteRepository) UpdateItem(ctx context.Context, it core.Item) error {
	n, err := r.queries.UpdateItem(ctx, fromItem(it))
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update item %s: %w", it.ID, core.ErrNotFound)
	}
	slog.InfoContext(ctx, "Item updated", "id", it.ID, "active", it.IsActive, "order", it.Order)
	return nil
}

// ListEntries implements store.EntryReader
func (r *SQLiteRepository) ListEntries(ctx context.Context, f core.EntryFilter) ([]core.Entry, error) {
	from, to, err := dateRange(f)
	if err != nil {
		return nil, err
	}
	rows, err := r.queries.ListEntries(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	out := make([]core.Entry, len(rows))
	for i, row := range rows {
		out[i] = toEntry(row)
	}
	return out, nil
}

// GetEntry implements store.EntryReader
func (r *SQLiteRepository) GetEntry(ctx context.Context, id string) (core.Entry, error) {
	row, err := r.queries.GetEntry(ctx, id)
	if err != nil {
		return core.Entry{}, notFound(err, "get entry "+id)
	}
	return toEntry(row), nil
}

// CreateEntry implements store.EntryWriter
func (r *SQLiteRepository) CreateEntry(ctx context.Context, e core.Entry) (core.Entry, error) {
	now := formatTime(r.now())
	row := EntryRow{
		ID:         uuid.NewString(),
		EntryDate:  core.DateKey(e.EntryDate),
		CategoryID: e.CategoryID,
		ItemID:     e.ItemID,
		Content:    e.Content,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := r.queries.CreateEntry(ctx, row); err != nil {
		return core.Entry{}, fmt.Errorf("create entry: %w", err)
	}

	slog.InfoContext(ctx, "Entry saved to SQLite",
		"id", row.ID,
		"entry_date", row.EntryDate,
		"category_id", row.CategoryID,
		"item_id", row.ItemID)

	return r.GetEntry(ctx, row.ID)
}

// UpdateEntry implements store.EntryWriter
func (r *SQLiteRepository) UpdateEntry(ctx context.Context, e core.Entry) (core.Entry, error) {
	n, err := r.queries.UpdateEntry(ctx, EntryRow{
		ID:         e.ID,
		EntryDate:  core.DateKey(e.EntryDate),
		CategoryID: e.CategoryID,
		ItemID:     e.ItemID,
		Content:    e.Content,
		UpdatedAt:  formatTime(r.now()),
	})
	if err != nil {
		return core.Entry{}, fmt.Errorf("update entry: %w", err)
	}
	if n == 0 {
		return core.Entry{}, fmt.Errorf("update entry %s: %w", e.ID, core.ErrNotFound)
	}
	slog.InfoContext(ctx, "Entry updated", "id", e.ID, "entry_date", e.EntryDate)
	return r.GetEntry(ctx, e.ID)
}

// DeleteEntry implements store.EntryWriter
func (r *SQLiteRepository) DeleteEntry(ctx context.Context, id string) error {
	n, err := r.queries.DeleteEntry(ctx, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete entry %s: %w", id, core.ErrNotFound)
	}
	slog.InfoContext(ctx, "Entry deleted", "id", id)
	return nil
}

// dateRange turns a filter into a half-open [from, to) range over date keys.
func dateRange(f core.EntryFilter) (string, string, error) {
	switch {
	case f.Date != "":
		d, err := core.ParseDate(f.Date)
		if err != nil {
			return "", "", err
		}
		return d.Format(core.DateLayout), d.AddDate(0, 0, 1).Format(core.DateLayout), nil
	case f.Month != "":
		y, m, err := core.ParseMonth(f.Month)
		if err != nil {
			return "", "", err
		}
		return core.MonthKey(y, m) + "-01", core.MonthKey(y, m+1) + "-01", nil
	case f.Year != 0:
		// "-13" sorts after every day of the year, including year 9999.
		return fmt.Sprintf("%04d-01-01", f.Year), fmt.Sprintf("%04d-13", f.Year), nil
	}
	return "", "~", nil
}

func notFound(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func toCategory(r CategoryRow) core.Category {
	return core.Category{ID: r.ID, Name: r.Name, Color: r.Color, IsActive: r.IsActive, Order: int(r.SortOrder)}
}

func fromCategory(c core.Category) CategoryRow {
	return CategoryRow{ID: c.ID, Name: c.Name, Color: c.Color, IsActive: c.IsActive, SortOrder: int64(c.Order)}
}

func toItem(r ItemRow) core.Item {
	return core.Item{
		ID:         r.ID,
		CategoryID: r.CategoryID,
		Name:       r.Name,
		Emoji:      r.Emoji,
		IsActive:   r.IsActive,
		Order:      int(r.SortOrder),
	}
}

func fromItem(it core.Item) ItemRow {
	return ItemRow{
		ID:         it.ID,
		CategoryID: it.CategoryID,
		Name:       it.Name,
		Emoji:      it.Emoji,
		IsActive:   it.IsActive,
		SortOrder:  int64(it.Order),
	}
}

func toEntry(r EntryRow) core.Entry {
	e := core.Entry{
		ID:         r.ID,
		EntryDate:  r.EntryDate,
		CategoryID: r.CategoryID,
		ItemID:     r.ItemID,
		Content:    r.Content,
		CreatedAt:  parseTime(r.CreatedAt),
		UpdatedAt:  parseTime(r.UpdatedAt),
	}
	if r.CategoryName.Valid {
		e.Category = &core.Category{
			ID:       r.CategoryID,
			Name:     r.CategoryName.String,
			Color:    r.CategoryColor.String,
			IsActive: r.CategoryIsActive.Bool,
			Order:    int(r.CategoryOrder.Int64),
		}
	}
	if r.ItemName.Valid {
		e.Item = &core.Item{
			ID:         r.ItemID,
			CategoryID: r.CategoryID,
			Name:       r.ItemName.String,
			Emoji:      r.ItemEmoji.String,
			IsActive:   r.ItemIsActive.Bool,
			Order:      int(r.ItemOrder.Int64),
		}
	}
	return e
}
