package catalog

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pkoski/teleguide/internal/domain"
	"golang.org/x/sync/singleflight"
)

// DefaultBatchSize is the page size for viewport-driven loads.
const DefaultBatchSize = 50

// LoadStatus is the lifecycle state of one category load key.
type LoadStatus int

const (
	StatusIdle LoadStatus = iota
	StatusLoading
	StatusLoaded
	StatusError
)

func (s LoadStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// LoadKey identifies one independently loaded record set.
type LoadKey struct {
	PlaylistID  string
	ContentType domain.ContentType
	CategoryID  string
}

func (k LoadKey) String() string {
	return k.PlaylistID + "|" + string(k.ContentType) + "|" + k.CategoryID
}

// LoadState tracks incremental loading progress for one key. Offset only ever
// advances for a given generation; a key never holds two in-flight loads.
type LoadState struct {
	Status  LoadStatus
	Offset  int
	Total   int
	HasMore bool
	Err     error
	Records []domain.Record

	// gen is the cancellation token: bumped on invalidation, checked before
	// a finished load applies its result.
	gen uint64
}

// Loader coordinates demand-driven retrieval of category record sets in
// bounded batches, triggered by viewport visibility. Loads for different keys
// may interleave freely; loads for one key are sequential and coalesced.
type Loader struct {
	store     domain.CatalogStore
	batchSize int
	logger    *slog.Logger

	mu     sync.Mutex
	states map[LoadKey]*LoadState
	group  singleflight.Group
}

// NewLoader creates a Loader reading through the given store (normally the
// query cache). batchSize <= 0 selects the default.
func NewLoader(store domain.CatalogStore, batchSize int, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Loader{
		store:     store,
		batchSize: batchSize,
		logger:    logger,
		states:    make(map[LoadKey]*LoadState),
	}
}

// State returns a snapshot of the key's load state.
func (l *Loader) State(key LoadKey) LoadState {
	l.mu.Lock()
	defer l.mu.Unlock()
	if st, ok := l.states[key]; ok {
		snap := *st
		snap.Records = st.Records // shared, treated as read-only by callers
		return snap
	}
	return LoadState{Status: StatusIdle, HasMore: true}
}

// Records returns the records loaded so far for the key.
func (l *Loader) Records(key LoadKey) []domain.Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	if st, ok := l.states[key]; ok {
		return st.Records
	}
	return nil
}

// EnsureVisible handles a first visibility signal: when nothing has been
// loaded for the key yet it issues a count query followed by the initial
// page. Signals for keys already loading or loaded are no-ops.
func (l *Loader) EnsureVisible(ctx context.Context, key LoadKey) error {
	l.mu.Lock()
	st := l.stateLocked(key)
	if st.Status != StatusIdle && st.Status != StatusError {
		l.mu.Unlock()
		return nil
	}
	l.mu.Unlock()
	return l.loadNext(ctx, key, true)
}

// LoadMore handles a "need more" signal: it advances the offset by one batch
// and fetches the next page. A trigger while a load is in flight is a no-op
// (coalesced, not queued); a trigger when HasMore is false is a no-op.
func (l *Loader) LoadMore(ctx context.Context, key LoadKey) error {
	l.mu.Lock()
	st := l.stateLocked(key)
	if st.Status == StatusLoading || (st.Status == StatusLoaded && !st.HasMore) {
		l.mu.Unlock()
		return nil
	}
	l.mu.Unlock()
	return l.loadNext(ctx, key, false)
}

// Invalidate marks any pending load for the key non-actionable and resets its
// state, so the key can be loaded fresh. Used on view teardown and snapshot
// replacement.
func (l *Loader) Invalidate(key LoadKey) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if st, ok := l.states[key]; ok {
		st.gen++
		st.Status = StatusIdle
		st.Offset = 0
		st.Total = 0
		st.HasMore = true
		st.Err = nil
		st.Records = nil
	}
}

// InvalidatePlaylist invalidates every key belonging to the playlist.
func (l *Loader) InvalidatePlaylist(playlistID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, st := range l.states {
		if key.PlaylistID == playlistID {
			st.gen++
			delete(l.states, key)
		}
	}
}

// VisibleSlice returns the loaded records within the viewport window plus
// overscan, and the absolute index of the first returned record.
func (l *Loader) VisibleSlice(key LoadKey, scrollOffset, viewportHeight, itemHeight, overscan int) ([]domain.Record, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.states[key]
	if !ok {
		return nil, 0
	}
	start, end := Window(len(st.Records), scrollOffset, viewportHeight, itemHeight, overscan)
	return st.Records[start:end], start
}

func (l *Loader) stateLocked(key LoadKey) *LoadState {
	st, ok := l.states[key]
	if !ok {
		st = &LoadState{Status: StatusIdle, HasMore: true}
		l.states[key] = st
	}
	return st
}

// loadNext fetches the next page for the key. The loading status plus the
// singleflight group guarantee at most one in-flight load per key.
func (l *Loader) loadNext(ctx context.Context, key LoadKey, first bool) error {
	l.mu.Lock()
	st := l.stateLocked(key)
	if st.Status == StatusLoading {
		l.mu.Unlock()
		return nil
	}
	gen := st.gen
	offset := st.Offset
	st.Status = StatusLoading
	st.Err = nil
	l.mu.Unlock()

	_, err, _ := l.group.Do(key.String(), func() (any, error) {
		var total int
		if first {
			n, err := l.store.Count(ctx, key.PlaylistID, key.ContentType, key.CategoryID)
			if err != nil {
				return nil, err
			}
			total = n
		}

		page, err := l.store.Query(ctx, key.PlaylistID, key.ContentType, domain.QueryOptions{
			CategoryID: key.CategoryID,
			Limit:      l.batchSize,
			Offset:     offset,
		})
		if err != nil {
			return nil, err
		}

		l.mu.Lock()
		defer l.mu.Unlock()
		cur, ok := l.states[key]
		if !ok || cur.gen != gen {
			// Key was torn down while the load was in flight; discard.
			l.logger.Debug("discarding stale load result", "key", key.String())
			return nil, nil
		}
		if first {
			cur.Total = total
		}
		cur.Records = append(cur.Records, page...)
		cur.Offset = offset + l.batchSize
		cur.HasMore = len(page) == l.batchSize
		cur.Status = StatusLoaded
		return nil, nil
	})

	if err != nil {
		l.mu.Lock()
		if cur, ok := l.states[key]; ok && cur.gen == gen {
			cur.Status = StatusError
			cur.Err = err
		}
		l.mu.Unlock()
		l.logger.Error("category load failed", "key", key.String(), "error", err)
		return err
	}
	return nil
}
