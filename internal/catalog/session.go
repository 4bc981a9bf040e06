// Package catalog orchestrates playlist lifecycle, demand-driven loading, and
// the read selectors exposed to the presentation layer.
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/pkoski/teleguide/internal/domain"
	"github.com/pkoski/teleguide/internal/normalize"
)

const (
	// MinSearchLength is the minimum query length accepted by SearchContent;
	// shorter queries are rejected locally without hitting the store.
	MinSearchLength = 2

	defaultSearchLimit = 100
)

// Result is the value-shaped outcome returned across the presentation
// boundary. Failures are reported here, never panicked or thrown.
type Result struct {
	Success bool
	Message string
}

func failure(msg string) Result { return Result{Success: false, Message: msg} }
func success() Result           { return Result{Success: true} }

// LoadResult is the outcome of LoadPlaylist/RefreshPlaylist.
type LoadResult struct {
	Result
	Playlist *domain.Playlist
}

// SearchResult is the outcome of SearchContent.
type SearchResult struct {
	Result
	Records []domain.Record
}

// Options tunes a Session.
type Options struct {
	// MaxPlaylists is the caller-supplied cap on concurrently cached
	// playlists. Zero means unlimited; the core never hardcodes a limit.
	MaxPlaylists int
	BatchSize    int
}

// Session is the single source of truth for known playlists, the default
// designation, and per-category load state. It owns the loader and the
// playlist metadata; the stores own the persisted rows; the cache owns
// disposable derived copies. Safe for concurrent use: the scheduled
// refresher and the presentation layer's command goroutines share one
// Session.
type Session struct {
	provider   domain.Provider
	store      domain.CatalogStore // cache-wrapped router
	meta       domain.MetaStore
	normalizer *normalize.Normalizer
	loader     *Loader
	logger     *slog.Logger
	opts       Options

	mu        sync.Mutex
	playlists map[string]*domain.Playlist
	defaultID string
}

// NewSession builds a session and restores playlist metadata and preferences
// from the durable meta store.
func NewSession(
	provider domain.Provider,
	store domain.CatalogStore,
	meta domain.MetaStore,
	opts Options,
	logger *slog.Logger,
) *Session {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{
		provider:   provider,
		store:      store,
		meta:       meta,
		normalizer: normalize.New(logger),
		loader:     NewLoader(store, opts.BatchSize, logger),
		logger:     logger,
		opts:       opts,
		playlists:  make(map[string]*domain.Playlist),
	}

	if metas, err := meta.ListPlaylistMeta(); err == nil {
		for _, p := range metas {
			s.playlists[p.ID] = p
		}
	} else {
		logger.Warn("failed to restore playlist metadata", "error", err)
	}
	if prefs, ok := meta.GetPreferences(); ok {
		if _, known := s.playlists[prefs.DefaultPlaylistID]; known {
			s.defaultID = prefs.DefaultPlaylistID
		}
	}
	if s.defaultID == "" {
		for _, p := range s.sortedPlaylistsLocked() {
			s.defaultID = p.ID
			break
		}
	}

	return s
}

// Loader exposes the chunked loader to the presentation layer.
func (s *Session) Loader() *Loader { return s.loader }

// === Actions ===

// LoadPlaylist fetches, normalizes, and installs a playlist snapshot.
// Idempotent per (baseUrl, username): re-invocation with the same identity
// replaces the previous snapshot wholesale rather than duplicating it. A
// failure at any stage leaves prior state untouched.
func (s *Session) LoadPlaylist(ctx context.Context, cfg domain.PlaylistConfig) LoadResult {
	if cfg.BaseURL == "" || cfg.Username == "" || cfg.Password == "" {
		return LoadResult{Result: failure("playlist requires base URL, username, and password")}
	}

	id := cfg.ID()
	s.mu.Lock()
	_, exists := s.playlists[id]
	atLimit := !exists && s.opts.MaxPlaylists > 0 && len(s.playlists) >= s.opts.MaxPlaylists
	s.mu.Unlock()
	if atLimit {
		s.logger.Warn("playlist limit reached", "limit", s.opts.MaxPlaylists)
		return LoadResult{Result: failure(domain.ErrPlaylistLimit.Error())}
	}

	raw, err := s.provider.FetchCatalog(ctx, cfg)
	if err != nil {
		s.logger.Error("catalog fetch failed", "playlistID", id, "error", err)
		return LoadResult{Result: failure("catalog fetch failed: " + err.Error())}
	}

	bundle := s.normalizer.Normalize(raw)

	start := time.Now()
	if err := s.store.ReplaceAll(ctx, id, bundle); err != nil {
		// The store guarantees the previous snapshot is still queryable.
		s.logger.Error("snapshot replace failed", "playlistID", id, "error", err)
		return LoadResult{Result: failure("catalog ingest failed: " + err.Error())}
	}
	s.loader.InvalidatePlaylist(id)

	name := cfg.Name
	if name == "" {
		name = cfg.Username + "@" + cfg.BaseURL
	}
	p := &domain.Playlist{
		ID:       id,
		Name:     name,
		BaseURL:  cfg.BaseURL,
		Username: cfg.Username,
		Password: cfg.Password,
		Stats:    bundle.Stats,
		LoadedAt: time.Now(),
	}
	s.mu.Lock()
	s.playlists[id] = p
	if s.defaultID == "" {
		s.setDefaultLocked(id)
	}
	s.mu.Unlock()
	if err := s.meta.SavePlaylistMeta(p); err != nil {
		s.logger.Warn("failed to persist playlist metadata", "playlistID", id, "error", err)
	}

	s.logger.Info("loaded playlist",
		"playlistID", id,
		"records", bundle.Stats.Total,
		"dropped", bundle.Stats.Dropped,
		"duration", time.Since(start))

	return LoadResult{Result: success(), Playlist: p}
}

// RefreshPlaylist re-ingests a known playlist with its stored credentials.
// The old snapshot is fully superseded, never merged.
func (s *Session) RefreshPlaylist(ctx context.Context, id string) LoadResult {
	s.mu.Lock()
	p, ok := s.playlists[id]
	s.mu.Unlock()
	if !ok {
		return LoadResult{Result: failure(domain.ErrPlaylistNotFound.Error())}
	}
	return s.LoadPlaylist(ctx, domain.PlaylistConfig{
		Name:     p.Name,
		BaseURL:  p.BaseURL,
		Username: p.Username,
		Password: p.Password,
	})
}

// RemovePlaylist cascades deletion through the store, the caches, the load
// states, and the default designation.
func (s *Session) RemovePlaylist(ctx context.Context, id string) Result {
	s.mu.Lock()
	_, ok := s.playlists[id]
	s.mu.Unlock()
	if !ok {
		return failure(domain.ErrPlaylistNotFound.Error())
	}

	if err := s.store.DeletePlaylist(ctx, id); err != nil {
		s.logger.Error("playlist delete failed", "playlistID", id, "error", err)
		return failure("failed to remove playlist: " + err.Error())
	}
	s.loader.InvalidatePlaylist(id)

	s.mu.Lock()
	delete(s.playlists, id)
	if s.defaultID == id {
		s.defaultID = ""
		for _, p := range s.sortedPlaylistsLocked() {
			s.defaultID = p.ID
			break
		}
		s.persistPrefsLocked()
	}
	s.mu.Unlock()

	if err := s.meta.DeletePlaylistMeta(id); err != nil {
		s.logger.Warn("failed to delete playlist metadata", "playlistID", id, "error", err)
	}

	s.logger.Info("removed playlist", "playlistID", id)
	return success()
}

// SetDefaultPlaylist designates the playlist all selectors read from.
func (s *Session) SetDefaultPlaylist(id string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.playlists[id]; !ok {
		return failure(domain.ErrPlaylistNotFound.Error())
	}
	s.setDefaultLocked(id)
	return success()
}

// SearchContent searches record names across all content types of the
// current playlist. Queries below the minimum length are rejected locally.
func (s *Session) SearchContent(ctx context.Context, query string, limit int) SearchResult {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinSearchLength {
		return SearchResult{Result: failure(domain.ErrQueryTooShort.Error())}
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	id, err := s.currentID()
	if err != nil {
		return SearchResult{Result: failure(domain.ErrPlaylistNotFound.Error())}
	}

	var all []domain.Record
	for _, t := range domain.ContentTypes {
		recs, err := s.store.Query(ctx, id, t, domain.QueryOptions{
			Search: query,
			Limit:  limit,
		})
		if err != nil {
			s.logger.Error("search query failed", "contentType", t, "error", err)
			return SearchResult{Result: failure("search failed: " + err.Error())}
		}
		all = append(all, recs...)
	}

	sort.Slice(all, func(i, j int) bool {
		a, b := strings.ToLower(all[i].Name), strings.ToLower(all[j].Name)
		if a != b {
			return a < b
		}
		return all[i].ID < all[j].ID
	})
	if len(all) > limit {
		all = all[:limit]
	}

	s.persistLastSearch(query)
	return SearchResult{Result: success(), Records: all}
}

// SuggestCategories returns category names of the current playlist fuzzily
// matching term, best matches first.
func (s *Session) SuggestCategories(ctx context.Context, t domain.ContentType, term string) ([]string, error) {
	cats, err := s.GetCategories(ctx, t)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.Name
	}
	ranks := fuzzy.RankFindNormalizedFold(term, names)
	sort.Sort(ranks)
	out := make([]string, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, r.Target)
	}
	return out, nil
}

// === Selectors (idempotent reads against the current playlist) ===

// Playlists returns all known playlists, ordered by id.
func (s *Session) Playlists() []*domain.Playlist {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedPlaylistsLocked()
}

// DefaultPlaylist returns the current playlist, if any.
func (s *Session) DefaultPlaylist() (*domain.Playlist, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.playlists[s.defaultID]
	return p, ok
}

// GetByCategory returns one page of records for a category.
func (s *Session) GetByCategory(ctx context.Context, t domain.ContentType, categoryID string, offset, limit int) ([]domain.Record, error) {
	id, err := s.currentID()
	if err != nil {
		return nil, err
	}
	return s.store.Query(ctx, id, t, domain.QueryOptions{
		CategoryID: categoryID,
		Offset:     offset,
		Limit:      limit,
	})
}

// CountByCategory returns the member count for a category.
func (s *Session) CountByCategory(ctx context.Context, t domain.ContentType, categoryID string) (int, error) {
	id, err := s.currentID()
	if err != nil {
		return 0, err
	}
	return s.store.Count(ctx, id, t, categoryID)
}

// GetCategories returns the categories of one content type with live member
// counts.
func (s *Session) GetCategories(ctx context.Context, t domain.ContentType) ([]domain.Category, error) {
	id, err := s.currentID()
	if err != nil {
		return nil, err
	}
	return s.store.Categories(ctx, id, t)
}

// === Internals ===

func (s *Session) currentID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.defaultID == "" {
		return "", domain.ErrPlaylistNotFound
	}
	return s.defaultID, nil
}

// sortedPlaylistsLocked requires s.mu held.
func (s *Session) sortedPlaylistsLocked() []*domain.Playlist {
	out := make([]*domain.Playlist, 0, len(s.playlists))
	for _, p := range s.playlists {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// setDefaultLocked requires s.mu held.
func (s *Session) setDefaultLocked(id string) {
	s.defaultID = id
	s.persistPrefsLocked()
}

// persistPrefsLocked requires s.mu held.
func (s *Session) persistPrefsLocked() {
	prefs, _ := s.meta.GetPreferences()
	if prefs == nil {
		prefs = &domain.Preferences{}
	}
	prefs.DefaultPlaylistID = s.defaultID
	if err := s.meta.SavePreferences(prefs); err != nil {
		s.logger.Warn("failed to persist preferences", "error", err)
	}
}

func (s *Session) persistLastSearch(query string) {
	prefs, _ := s.meta.GetPreferences()
	if prefs == nil {
		prefs = &domain.Preferences{}
	}
	prefs.LastSearchQuery = query
	if err := s.meta.SavePreferences(prefs); err != nil {
		s.logger.Warn("failed to persist preferences", "error", err)
	}
}

// IsNotFound reports whether err is the unknown-playlist condition.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrPlaylistNotFound)
}
