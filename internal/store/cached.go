package store

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"diary/internal/cache"
	"diary/internal/core"
)

const (
	taxonomyPrefix = "taxonomy:"
	monthPrefix    = "entries:month:"
	yearPrefix     = "entries:year:"
)

// Cached is a read-through cache over a Store. Category listings and month or
// year entry windows are cached; everything else goes straight to the inner
// store. Writes made through Cached invalidate the windows they touch. Writes
// made elsewhere need an explicit Invalidate call.
type Cached struct {
	inner    Store
	taxonomy *cache.LRUCache[[]core.Category]
	entries  *cache.LRUCache[[]core.Entry]
	logger   *slog.Logger

	// gen counts invalidations. A read-through fill only lands if no
	// invalidation ran while the inner read was in flight.
	mu  sync.Mutex
	gen uint64
}

func NewCached(inner Store, size int, ttl time.Duration, logger *slog.Logger) *Cached {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{
		inner:    inner,
		taxonomy: cache.NewLRUCache[[]core.Category](4, ttl),
		entries:  cache.NewLRUCache[[]core.Entry](size, ttl),
		logger:   logger,
	}
}

// Register hands the underlying caches to a cleanup manager.
func (c *Cached) Register(m *cache.Manager) {
	m.Register(c.taxonomy)
	m.Register(c.entries)
}

// InvalidateEntries drops the cached windows containing month (YYYY-MM).
func (c *Cached) InvalidateEntries(month string) {
	c.mu.Lock()
	c.gen++
	c.entries.Delete(monthPrefix + month)
	if y, _, err := core.ParseMonth(month); err == nil {
		c.entries.Delete(yearPrefix + strconv.Itoa(y))
	}
	c.mu.Unlock()
	c.logger.Debug("Entry cache invalidated", "month", month)
}

// InvalidateTaxonomy drops cached category listings. Entry windows carry
// denormalized names, so they go too.
func (c *Cached) InvalidateTaxonomy() {
	c.clear()
	c.logger.Debug("Taxonomy cache invalidated")
}

// InvalidateAll empties every cache.
func (c *Cached) InvalidateAll() {
	c.clear()
	c.logger.Debug("All caches invalidated")
}

func (c *Cached) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.taxonomy.Clear()
	c.entries.Clear()
}

func (c *Cached) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// fill runs set only when the generation still equals gen.
func (c *Cached) fill(gen uint64, set func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		c.logger.Debug("Discarding cache fill raced by invalidation")
		return
	}
	set()
}

// Sizes reports the number of cached taxonomy listings and entry windows.
func (c *Cached) Sizes() (taxonomy, entries int) {
	return c.taxonomy.Size(), c.entries.Size()
}

func (c *Cached) ListCategories(ctx context.Context, includeInactive bool) ([]core.Category, error) {
	key := taxonomyPrefix + strconv.FormatBool(includeInactive)
	if cats, ok := c.taxonomy.Get(key); ok {
		return cloneCategories(cats), nil
	}
	gen := c.generation()
	cats, err := c.inner.ListCategories(ctx, includeInactive)
	if err != nil {
		return nil, err
	}
	c.fill(gen, func() { c.taxonomy.Set(key, cloneCategories(cats)) })
	return cats, nil
}

func (c *Cached) GetCategory(ctx context.Context, id string) (core.Category, error) {
	return c.inner.GetCategory(ctx, id)
}

func (c *Cached) GetItem(ctx context.Context, id string) (core.Item, error) {
	return c.inner.GetItem(ctx, id)
}

func (c *Cached) CreateCategory(ctx context.Context, cat core.Category) (core.Category, error) {
	out, err := c.inner.CreateCategory(ctx, cat)
	if err == nil {
		c.InvalidateTaxonomy()
	}
	return out, err
}

func (c *Cached) UpdateCategory(ctx context.Context, cat core.Category) error {
	err := c.inner.UpdateCategory(ctx, cat)
	if err == nil {
		c.InvalidateTaxonomy()
	}
	return err
}

func (c *Cached) CreateItem(ctx context.Context, it core.Item) (core.Item, error) {
	out, err := c.inner.CreateItem(ctx, it)
	if err == nil {
		c.InvalidateTaxonomy()
	}
	return out, err
}

func (c *Cached) UpdateItem(ctx context.Context, it core.Item) error {
	err := c.inner.UpdateItem(ctx, it)
	if err == nil {
		c.InvalidateTaxonomy()
	}
	return err
}

func (c *Cached) ListEntries(ctx context.Context, f core.EntryFilter) ([]core.Entry, error) {
	key := windowKey(f)
	if key == "" {
		return c.inner.ListEntries(ctx, f)
	}
	if entries, ok := c.entries.Get(key); ok {
		return append([]core.Entry(nil), entries...), nil
	}
	gen := c.generation()
	entries, err := c.inner.ListEntries(ctx, f)
	if err != nil {
		return nil, err
	}
	c.fill(gen, func() { c.entries.Set(key, append([]core.Entry(nil), entries...)) })
	return entries, nil
}

func (c *Cached) GetEntry(ctx context.Context, id string) (core.Entry, error) {
	return c.inner.GetEntry(ctx, id)
}

func (c *Cached) CreateEntry(ctx context.Context, e core.Entry) (core.Entry, error) {
	out, err := c.inner.CreateEntry(ctx, e)
	if err == nil {
		c.InvalidateEntries(monthOf(out.EntryDate))
	}
	return out, err
}

func (c *Cached) UpdateEntry(ctx context.Context, e core.Entry) (core.Entry, error) {
	prev, perr := c.inner.GetEntry(ctx, e.ID)
	out, err := c.inner.UpdateEntry(ctx, e)
	if err != nil {
		return out, err
	}
	if perr == nil {
		c.InvalidateEntries(monthOf(prev.EntryDate))
	}
	c.InvalidateEntries(monthOf(out.EntryDate))
	return out, nil
}

func (c *Cached) DeleteEntry(ctx context.Context, id string) error {
	prev, perr := c.inner.GetEntry(ctx, id)
	if err := c.inner.DeleteEntry(ctx, id); err != nil {
		return err
	}
	if perr == nil {
		c.InvalidateEntries(monthOf(prev.EntryDate))
	} else {
		c.clear()
	}
	return nil
}

func windowKey(f core.EntryFilter) string {
	switch {
	case f.Date != "":
		return ""
	case f.Month != "":
		return monthPrefix + f.Month
	case f.Year != 0:
		return yearPrefix + strconv.Itoa(f.Year)
	}
	return ""
}

func monthOf(date string) string {
	key := core.DateKey(date)
	if len(key) < 7 {
		return key
	}
	return key[:7]
}

func cloneCategories(in []core.Category) []core.Category {
	out := make([]core.Category, len(in))
	for i, c := range in {
		c.Items = append([]core.Item(nil), c.Items...)
		out[i] = c
	}
	return out
}
