// Package cache provides a time-boxed, bounded memoization layer in front of
// the catalog stores. Results are keyed by canonical query shape, live in
// strict LRU structures, and are served only within their TTL. Mutating
// operations synchronously invalidate every entry for the affected playlist
// before returning, so a subsequent read in the same task can never observe a
// stale result.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkoski/teleguide/internal/domain"
)

const (
	// DefaultTTL bounds how long a memoized result may be served.
	DefaultTTL = 5 * time.Minute

	// Default capacities for the recency caches.
	DefaultPageCapacity     = 128
	DefaultCountCapacity    = 256
	DefaultCategoryCapacity = 32
)

type pageEntry struct {
	records    []domain.Record
	insertedAt time.Time
}

type countEntry struct {
	n          int
	insertedAt time.Time
}

type catEntry struct {
	categories []domain.Category
	insertedAt time.Time
}

// Options tunes the cache. Zero values fall back to defaults.
type Options struct {
	TTL              time.Duration
	PageCapacity     int
	CountCapacity    int
	CategoryCapacity int

	// Now is the clock used for TTL checks; overridable in tests.
	Now func() time.Time
}

func (o *Options) applyDefaults() {
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.PageCapacity <= 0 {
		o.PageCapacity = DefaultPageCapacity
	}
	if o.CountCapacity <= 0 {
		o.CountCapacity = DefaultCountCapacity
	}
	if o.CategoryCapacity <= 0 {
		o.CategoryCapacity = DefaultCategoryCapacity
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Cache decorates a domain.CatalogStore with TTL memoization over bounded
// LRU structures. Reads are pure; writes pass through and purge.
type Cache struct {
	store  domain.CatalogStore
	opts   Options
	logger *slog.Logger

	pages  *lru.Cache[string, pageEntry]
	counts *lru.Cache[string, countEntry]
	cats   *lru.Cache[string, catEntry]
}

// New wraps store with a query/result cache.
func New(store domain.CatalogStore, opts Options, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts.applyDefaults()

	pages, err := lru.New[string, pageEntry](opts.PageCapacity)
	if err != nil {
		return nil, err
	}
	counts, err := lru.New[string, countEntry](opts.CountCapacity)
	if err != nil {
		return nil, err
	}
	cats, err := lru.New[string, catEntry](opts.CategoryCapacity)
	if err != nil {
		return nil, err
	}

	return &Cache{
		store:  store,
		opts:   opts,
		logger: logger,
		pages:  pages,
		counts: counts,
		cats:   cats,
	}, nil
}

// pageKey canonicalizes a query shape. The playlist id leads so playlist
// invalidation can purge by prefix.
func pageKey(playlistID string, t domain.ContentType, opts domain.QueryOptions) string {
	return fmt.Sprintf("%s|%s|%s|%s|%d|%d|%s",
		playlistID, t, opts.CategoryID, strings.ToLower(opts.Search),
		opts.Limit, opts.Offset, opts.OrderBy)
}

func countKey(playlistID string, t domain.ContentType, categoryID string) string {
	return playlistID + "|" + string(t) + "|" + categoryID
}

func catKey(playlistID string, t domain.ContentType) string {
	return playlistID + "|" + string(t)
}

func (c *Cache) fresh(insertedAt time.Time) bool {
	return c.opts.Now().Sub(insertedAt) < c.opts.TTL
}

// Query serves from the page cache within TTL, falling through to the store
// on miss or expiry. A hit promotes the entry to most recently used.
func (c *Cache) Query(ctx context.Context, playlistID string, t domain.ContentType, opts domain.QueryOptions) ([]domain.Record, error) {
	key := pageKey(playlistID, t, opts)
	if e, ok := c.pages.Get(key); ok && c.fresh(e.insertedAt) {
		return e.records, nil
	}

	recs, err := c.store.Query(ctx, playlistID, t, opts)
	if err != nil {
		return nil, err
	}
	c.pages.Add(key, pageEntry{records: recs, insertedAt: c.opts.Now()})
	return recs, nil
}

// Count memoizes aggregate counts the same way.
func (c *Cache) Count(ctx context.Context, playlistID string, t domain.ContentType, categoryID string) (int, error) {
	key := countKey(playlistID, t, categoryID)
	if e, ok := c.counts.Get(key); ok && c.fresh(e.insertedAt) {
		return e.n, nil
	}

	n, err := c.store.Count(ctx, playlistID, t, categoryID)
	if err != nil {
		return 0, err
	}
	c.counts.Add(key, countEntry{n: n, insertedAt: c.opts.Now()})
	return n, nil
}

// Categories memoizes category lists with live member counts.
func (c *Cache) Categories(ctx context.Context, playlistID string, t domain.ContentType) ([]domain.Category, error) {
	key := catKey(playlistID, t)
	if e, ok := c.cats.Get(key); ok && c.fresh(e.insertedAt) {
		return e.categories, nil
	}

	cats, err := c.store.Categories(ctx, playlistID, t)
	if err != nil {
		return nil, err
	}
	c.cats.Add(key, catEntry{categories: cats, insertedAt: c.opts.Now()})
	return cats, nil
}

// ReplaceAll writes through and purges the playlist's entries before
// returning.
func (c *Cache) ReplaceAll(ctx context.Context, playlistID string, bundle *domain.Bundle) error {
	if err := c.store.ReplaceAll(ctx, playlistID, bundle); err != nil {
		return err
	}
	c.InvalidatePlaylist(playlistID)
	return nil
}

// DeletePlaylist writes through and purges the playlist's entries before
// returning.
func (c *Cache) DeletePlaylist(ctx context.Context, playlistID string) error {
	if err := c.store.DeletePlaylist(ctx, playlistID); err != nil {
		return err
	}
	c.InvalidatePlaylist(playlistID)
	return nil
}

// InvalidatePlaylist drops every cached result derived from the playlist.
func (c *Cache) InvalidatePlaylist(playlistID string) {
	prefix := playlistID + "|"
	purged := 0
	for _, k := range c.pages.Keys() {
		if strings.HasPrefix(k, prefix) {
			c.pages.Remove(k)
			purged++
		}
	}
	for _, k := range c.counts.Keys() {
		if strings.HasPrefix(k, prefix) {
			c.counts.Remove(k)
			purged++
		}
	}
	for _, k := range c.cats.Keys() {
		if strings.HasPrefix(k, prefix) {
			c.cats.Remove(k)
			purged++
		}
	}
	c.logger.Debug("invalidated cache", "playlistID", playlistID, "entries", purged)
}

// Purge drops every cached entry.
func (c *Cache) Purge() {
	c.pages.Purge()
	c.counts.Purge()
	c.cats.Purge()
}

func (c *Cache) Close() error {
	c.Purge()
	return c.store.Close()
}
