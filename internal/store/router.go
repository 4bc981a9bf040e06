// Package store routes catalog operations between the primary indexed store
// and the key-value fallback store.
package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pkoski/teleguide/internal/domain"
)

// Router implements domain.CatalogStore by delegating to the primary store
// until it proves unavailable, then latching to the fallback for the rest of
// the session. The switch is logged exactly once and never retried.
type Router struct {
	primary  domain.CatalogStore // may be nil when initialization failed
	fallback domain.CatalogStore
	logger   *slog.Logger

	mu       sync.Mutex
	degraded bool
	logOnce  sync.Once
}

// NewRouter creates a Router. Pass a nil primary (with initErr describing why)
// when the indexed engine failed to initialize; every call then goes straight
// to the fallback.
func NewRouter(primary, fallback domain.CatalogStore, initErr error, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{primary: primary, fallback: fallback, logger: logger}
	if primary == nil || initErr != nil {
		r.degraded = true
		r.logOnce.Do(func() {
			logger.Warn("indexed store unavailable, using fallback store", "error", initErr)
		})
	}
	return r
}

// Degraded reports whether the router has latched to the fallback store.
func (r *Router) Degraded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.degraded
}

// active returns the store all calls should go to.
func (r *Router) active() domain.CatalogStore {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.degraded {
		return r.fallback
	}
	return r.primary
}

// degrade latches the router to the fallback store. Called when a primary
// operation fails mid-session; the failed call is retried on the fallback,
// which holds the same snapshots because every ingest writes to both stores.
func (r *Router) degrade(err error) {
	r.mu.Lock()
	r.degraded = true
	r.mu.Unlock()
	r.logOnce.Do(func() {
		r.logger.Warn("indexed store failed, switching to fallback store", "error", err)
	})
}

// ReplaceAll writes the snapshot to both stores. The fallback always receives
// it, so a later mid-session latch serves the real catalog rather than an
// empty one.
func (r *Router) ReplaceAll(ctx context.Context, playlistID string, bundle *domain.Bundle) error {
	if !r.Degraded() && r.primary != nil {
		if err := r.primary.ReplaceAll(ctx, playlistID, bundle); err != nil {
			r.degrade(err)
		}
	}
	return r.fallback.ReplaceAll(ctx, playlistID, bundle)
}

func (r *Router) Query(ctx context.Context, playlistID string, t domain.ContentType, opts domain.QueryOptions) ([]domain.Record, error) {
	store := r.active()
	recs, err := store.Query(ctx, playlistID, t, opts)
	if err != nil && store == r.primary {
		r.degrade(err)
		return r.fallback.Query(ctx, playlistID, t, opts)
	}
	return recs, err
}

func (r *Router) Count(ctx context.Context, playlistID string, t domain.ContentType, categoryID string) (int, error) {
	store := r.active()
	n, err := store.Count(ctx, playlistID, t, categoryID)
	if err != nil && store == r.primary {
		r.degrade(err)
		return r.fallback.Count(ctx, playlistID, t, categoryID)
	}
	return n, err
}

func (r *Router) Categories(ctx context.Context, playlistID string, t domain.ContentType) ([]domain.Category, error) {
	store := r.active()
	cats, err := store.Categories(ctx, playlistID, t)
	if err != nil && store == r.primary {
		r.degrade(err)
		return r.fallback.Categories(ctx, playlistID, t)
	}
	return cats, err
}

func (r *Router) DeletePlaylist(ctx context.Context, playlistID string) error {
	// Deletion cascades to both stores so a later degrade can't resurrect
	// a removed playlist from stale fallback blobs.
	var primaryErr error
	if !r.Degraded() && r.primary != nil {
		primaryErr = r.primary.DeletePlaylist(ctx, playlistID)
		if primaryErr != nil {
			r.degrade(primaryErr)
		}
	}
	return r.fallback.DeletePlaylist(ctx, playlistID)
}

func (r *Router) Close() error {
	var err error
	if r.primary != nil {
		err = r.primary.Close()
	}
	if ferr := r.fallback.Close(); ferr != nil && err == nil {
		err = ferr
	}
	return err
}
