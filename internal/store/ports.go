// Package store declares the data services the diary consumes and a cached
// wrapper around any implementation of them.
package store

import (
	"context"

	"diary/internal/core"
)

// Ports for outbound adapters.
type (
	TaxonomyReader interface {
		// ListCategories returns categories ordered by Order, each with its
		// items ordered by Order. When includeInactive is false both inactive
		// categories and inactive items are dropped.
		ListCategories(ctx context.Context, includeInactive bool) ([]core.Category, error)
		GetCategory(ctx context.Context, id string) (core.Category, error)
		GetItem(ctx context.Context, id string) (core.Item, error)
	}

	TaxonomyWriter interface {
		// CreateCategory assigns an ID and, when Order is 0, max(order)+1.
		CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
		UpdateCategory(ctx context.Context, c core.Category) error
		CreateItem(ctx context.Context, it core.Item) (core.Item, error)
		UpdateItem(ctx context.Context, it core.Item) error
	}

	EntryReader interface {
		// ListEntries returns entries with Category and Item filled in,
		// inactive taxonomy included.
		ListEntries(ctx context.Context, f core.EntryFilter) ([]core.Entry, error)
		GetEntry(ctx context.Context, id string) (core.Entry, error)
	}

	EntryWriter interface {
		CreateEntry(ctx context.Context, e core.Entry) (core.Entry, error)
		UpdateEntry(ctx context.Context, e core.Entry) (core.Entry, error)
		DeleteEntry(ctx context.Context, id string) error
	}

	TaxonomyStore interface {
		TaxonomyReader
		TaxonomyWriter
	}

	EntryStore interface {
		EntryReader
		EntryWriter
	}

	// Store is the full data service a backend provides.
	Store interface {
		TaxonomyStore
		EntryStore
	}
)
