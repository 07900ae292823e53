package storage

import (
	"context"
	"database/sql"
	"time"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type CategoryRow struct {
	ID        string
	Name      string
	Color     string
	IsActive  bool
	SortOrder int64
}

type ItemRow struct {
	ID         string
	CategoryID string
	Name       string
	Emoji      string
	IsActive   bool
	SortOrder  int64
}

type EntryRow struct {
	ID         string
	EntryDate  string
	CategoryID string
	ItemID     string
	Content    string
	CreatedAt  string
	UpdatedAt  string

	// Joined columns; NULL when the referenced row is missing.
	CategoryName     sql.NullString
	CategoryColor    sql.NullString
	CategoryIsActive sql.NullBool
	CategoryOrder    sql.NullInt64
	ItemName         sql.NullString
	ItemEmoji        sql.NullString
	ItemIsActive     sql.NullBool
	ItemOrder        sql.NullInt64
}

const listCategories = `-- name: ListCategories :many
SELECT id, name, color, is_active, sort_order FROM categories
ORDER BY sort_order, created_at, id`

func (q *Queries) ListCategories(ctx context.Context) ([]CategoryRow, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CategoryRow
	for rows.Next() {
		var i CategoryRow
		if err := rows.Scan(&i.ID, &i.Name, &i.Color, &i.IsActive, &i.SortOrder); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getCategory = `-- name: GetCategory :one
SELECT id, name, color, is_active, sort_order FROM categories WHERE id = ?`

func (q *Queries) GetCategory(ctx context.Context, id string) (CategoryRow, error) {
	var i CategoryRow
	err := q.db.QueryRowContext(ctx, getCategory, id).Scan(&i.ID, &i.Name, &i.Color, &i.IsActive, &i.SortOrder)
	return i, err
}

const maxCategoryOrder = `-- name: MaxCategoryOrder :one
SELECT COALESCE(MAX(sort_order), 0) FROM categories`

func (q *Queries) MaxCategoryOrder(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, maxCategoryOrder).Scan(&n)
	return n, err
}

const createCategory = `-- name: CreateCategory :exec
INSERT INTO categories (id, name, color, is_active, sort_order) VALUES (?, ?, ?, ?, ?)`

func (q *Queries) CreateCategory(ctx context.Context, arg CategoryRow) error {
	_, err := q.db.ExecContext(ctx, createCategory, arg.ID, arg.Name, arg.Color, arg.IsActive, arg.SortOrder)
	return err
}

const updateCategory = `-- name: UpdateCategory :execrows
UPDATE categories SET name = ?, color = ?, is_active = ?, sort_order = ? WHERE id = ?`

func (q *Queries) UpdateCategory(ctx context.Context, arg CategoryRow) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateCategory, arg.Name, arg.Color, arg.IsActive, arg.SortOrder, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listItems = `-- name: ListItems :many
SELECT id, category_id, name, emoji, is_active, sort_order FROM items
ORDER BY sort_order, created_at, id`

func (q *Queries) ListItems(ctx context.Context) ([]ItemRow, error) {
	rows, err := q.db.QueryContext(ctx, listItems)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ItemRow
	for rows.Next() {
		var i ItemRow
		if err := rows.Scan(&i.ID, &i.CategoryID, &i.Name, &i.Emoji, &i.IsActive, &i.SortOrder); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getItem = `-- name: GetItem :one
SELECT id, category_id, name, emoji, is_active, sort_order FROM items WHERE id = ?`

func (q *Queries) GetItem(ctx context.Context, id string) (ItemRow, error) {
	var i ItemRow
	err := q.db.QueryRowContext(ctx, getItem, id).Scan(&i.ID, &i.CategoryID, &i.Name, &i.Emoji, &i.IsActive, &i.SortOrder)
	return i, err
}

const maxItemOrder = `-- name: MaxItemOrder :one
SELECT COALESCE(MAX(sort_order), 0) FROM items WHERE category_id = ?`

func (q *Queries) MaxItemOrder(ctx context.Context, categoryID string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, maxItemOrder, categoryID).Scan(&n)
	return n, err
}

const createItem = `-- name: CreateItem :exec
INSERT INTO items (id, category_id, name, emoji, is_active, sort_order) VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateItem(ctx context.Context, arg ItemRow) error {
	_, err := q.db.ExecContext(ctx, createItem, arg.ID, arg.CategoryID, arg.Name, arg.Emoji, arg.IsActive, arg.SortOrder)
	return err
}

const updateItem = `-- name: UpdateItem :execrows
UPDATE items SET name = ?, emoji = ?, is_active = ?, sort_order = ? WHERE id = ?`

func (q *Queries) UpdateItem(ctx context.Context, arg ItemRow) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateItem, arg.Name, arg.Emoji, arg.IsActive, arg.SortOrder, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const entryColumns = `e.id, e.entry_date, e.category_id, e.item_id, e.content, e.created_at, e.updated_at,
	c.name, c.color, c.is_active, c.sort_order,
	i.name, i.emoji, i.is_active, i.sort_order
FROM entries e
LEFT JOIN categories c ON c.id = e.category_id
LEFT JOIN items i ON i.id = e.item_id`

const listEntries = `-- name: ListEntries :many
SELECT ` + entryColumns + `
WHERE e.entry_date >= ? AND e.entry_date < ?
ORDER BY e.entry_date, e.created_at DESC`

// ListEntries returns entries whose date key lies in [from, to).
func (q *Queries) ListEntries(ctx context.Context, from, to string) ([]EntryRow, error) {
	rows, err := q.db.QueryContext(ctx, listEntries, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []EntryRow
	for rows.Next() {
		i, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getEntry = `-- name: GetEntry :one
SELECT ` + entryColumns + `
WHERE e.id = ?`

func (q *Queries) GetEntry(ctx context.Context, id string) (EntryRow, error) {
	return scanEntry(q.db.QueryRowContext(ctx, getEntry, id))
}

const createEntry = `-- name: CreateEntry :exec
INSERT INTO entries (id, entry_date, category_id, item_id, content, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateEntry(ctx context.Context, arg EntryRow) error {
	_, err := q.db.ExecContext(ctx, createEntry,
		arg.ID, arg.EntryDate, arg.CategoryID, arg.ItemID, arg.Content, arg.CreatedAt, arg.UpdatedAt)
	return err
}

const updateEntry = `-- name: UpdateEntry :execrows
UPDATE entries SET entry_date = ?, category_id = ?, item_id = ?, content = ?, updated_at = ?
WHERE id = ?`

func (q *Queries) UpdateEntry(ctx context.Context, arg EntryRow) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateEntry,
		arg.EntryDate, arg.CategoryID, arg.ItemID, arg.Content, arg.UpdatedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteEntry = `-- name: DeleteEntry :execrows
DELETE FROM entries WHERE id = ?`

func (q *Queries) DeleteEntry(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteEntry, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(s scanner) (EntryRow, error) {
	var i EntryRow
	err := s.Scan(
		&i.ID, &i.EntryDate, &i.CategoryID, &i.ItemID, &i.Content, &i.CreatedAt, &i.UpdatedAt,
		&i.CategoryName, &i.CategoryColor, &i.CategoryIsActive, &i.CategoryOrder,
		&i.ItemName, &i.ItemEmoji, &i.ItemIsActive, &i.ItemOrder,
	)
	return i, err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
