package catalog

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/pkoski/teleguide/internal/domain"
	"github.com/pkoski/teleguide/internal/log"
	"github.com/pkoski/teleguide/internal/store/storetest"
)

// fakeProvider returns a canned catalog or a forced error.
type fakeProvider struct {
	mu      sync.Mutex
	catalog *domain.RawCatalog
	fail    error
	calls   int
	lastCfg domain.PlaylistConfig
}

func (p *fakeProvider) FetchCatalog(ctx context.Context, cfg domain.PlaylistConfig) (*domain.RawCatalog, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.lastCfg = cfg
	if p.fail != nil {
		return nil, p.fail
	}
	return p.catalog, nil
}

// fakeMeta is an in-memory MetaStore.
type fakeMeta struct {
	mu        sync.Mutex
	playlists map[string]*domain.Playlist
	prefs     *domain.Preferences
}

func newFakeMeta() *fakeMeta {
	return &fakeMeta{playlists: make(map[string]*domain.Playlist)}
}

func (m *fakeMeta) SavePlaylistMeta(p *domain.Playlist) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.playlists[p.ID] = &cp
	return nil
}

func (m *fakeMeta) GetPlaylistMeta(id string) (*domain.Playlist, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.playlists[id]
	return p, ok
}

func (m *fakeMeta) ListPlaylistMeta() ([]*domain.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Playlist, 0, len(m.playlists))
	for _, p := range m.playlists {
		out = append(out, p)
	}
	return out, nil
}

func (m *fakeMeta) DeletePlaylistMeta(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.playlists, id)
	return nil
}

func (m *fakeMeta) SavePreferences(p *domain.Preferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.prefs = &cp
	return nil
}

func (m *fakeMeta) GetPreferences() (*domain.Preferences, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.prefs == nil {
		return nil, false
	}
	cp := *m.prefs
	return &cp, true
}

func sampleCatalog() *domain.RawCatalog {
	return &domain.RawCatalog{
		Categories: map[domain.ContentType][]domain.RawCategory{
			domain.ContentLive: {{ID: "news", Name: "News"}},
			domain.ContentVOD:  {{ID: "films", Name: "Films"}},
		},
		Streams: map[domain.ContentType][]domain.RawStream{
			domain.ContentLive: {
				{ID: "1", Name: "World News", CategoryID: "news", Type: domain.ContentLive},
				{ID: "2", Name: "Sports Arena", CategoryID: "", Type: domain.ContentLive},
			},
			domain.ContentVOD: {
				{ID: "3", Name: "Heat Wave", CategoryID: "films", Type: domain.ContentVOD},
			},
		},
	}
}

func testConfig() domain.PlaylistConfig {
	return domain.PlaylistConfig{
		Name:     "main",
		BaseURL:  "http://provider",
		Username: "user",
		Password: "pass",
	}
}

func newTestSession(opts Options) (*Session, *fakeProvider, *storetest.Fake, *fakeMeta) {
	provider := &fakeProvider{catalog: sampleCatalog()}
	store := storetest.NewFake()
	meta := newFakeMeta()
	s := NewSession(provider, store, meta, opts, log.Null())
	return s, provider, store, meta
}

func TestLoadPlaylist(t *testing.T) {
	s, _, store, meta := newTestSession(Options{})

	res := s.LoadPlaylist(context.Background(), testConfig())
	if !res.Success {
		t.Fatalf("LoadPlaylist failed: %s", res.Message)
	}
	if res.Playlist.Stats.Total != 3 {
		t.Errorf("total = %d, want 3", res.Playlist.Stats.Total)
	}
	if got := len(store.Records(res.Playlist.ID)); got != 3 {
		t.Errorf("stored records = %d, want 3", got)
	}
	if _, ok := meta.GetPlaylistMeta(res.Playlist.ID); !ok {
		t.Error("playlist metadata not persisted")
	}

	// First playlist becomes the default.
	def, ok := s.DefaultPlaylist()
	if !ok || def.ID != res.Playlist.ID {
		t.Error("first playlist not designated default")
	}
}

func TestLoadPlaylistValidation(t *testing.T) {
	s, provider, _, _ := newTestSession(Options{})

	cfg := testConfig()
	cfg.Password = ""
	res := s.LoadPlaylist(context.Background(), cfg)
	if res.Success {
		t.Fatal("expected validation failure")
	}
	if provider.calls != 0 {
		t.Error("provider called despite invalid config")
	}
}

func TestLoadPlaylistFetchFailureKeepsPriorState(t *testing.T) {
	s, provider, store, _ := newTestSession(Options{})

	res := s.LoadPlaylist(context.Background(), testConfig())
	if !res.Success {
		t.Fatalf("LoadPlaylist: %s", res.Message)
	}
	id := res.Playlist.ID

	provider.fail = errors.New("provider timeout")
	res = s.LoadPlaylist(context.Background(), testConfig())
	if res.Success {
		t.Fatal("expected fetch failure")
	}

	// The previous snapshot stays queryable.
	if got := len(store.Records(id)); got != 3 {
		t.Errorf("records after failed reload = %d, want 3", got)
	}
	if len(s.Playlists()) != 1 {
		t.Errorf("playlists = %d, want 1", len(s.Playlists()))
	}
}

func TestLoadPlaylistIdempotentReload(t *testing.T) {
	s, provider, store, _ := newTestSession(Options{})

	res := s.LoadPlaylist(context.Background(), testConfig())
	if !res.Success {
		t.Fatalf("LoadPlaylist: %s", res.Message)
	}

	// Same identity, new password: replaces in place, no duplicate.
	provider.catalog = &domain.RawCatalog{
		Streams: map[domain.ContentType][]domain.RawStream{
			domain.ContentLive: {
				{ID: "9", Name: "Solo Channel", Type: domain.ContentLive},
			},
		},
	}
	cfg := testConfig()
	cfg.Password = "rotated"
	res2 := s.LoadPlaylist(context.Background(), cfg)
	if !res2.Success {
		t.Fatalf("reload: %s", res2.Message)
	}
	if res2.Playlist.ID != res.Playlist.ID {
		t.Errorf("reload changed identity: %s vs %s", res2.Playlist.ID, res.Playlist.ID)
	}
	if len(s.Playlists()) != 1 {
		t.Fatalf("playlists = %d, want 1", len(s.Playlists()))
	}
	if s.Playlists()[0].Password != "rotated" {
		t.Error("password not updated on reload")
	}

	recs := store.Records(res.Playlist.ID)
	if len(recs) != 1 || recs[0].ID != "9" {
		t.Errorf("snapshot not replaced: %+v", recs)
	}
}

func TestLoadPlaylistLimit(t *testing.T) {
	s, _, _, _ := newTestSession(Options{MaxPlaylists: 1})

	if res := s.LoadPlaylist(context.Background(), testConfig()); !res.Success {
		t.Fatalf("LoadPlaylist: %s", res.Message)
	}

	other := testConfig()
	other.Username = "other"
	res := s.LoadPlaylist(context.Background(), other)
	if res.Success {
		t.Fatal("expected playlist limit failure")
	}
	if !strings.Contains(res.Message, domain.ErrPlaylistLimit.Error()) {
		t.Errorf("message = %q", res.Message)
	}

	// Reloading an existing playlist is not blocked by the limit.
	if res := s.LoadPlaylist(context.Background(), testConfig()); !res.Success {
		t.Errorf("reload blocked by limit: %s", res.Message)
	}
}

func TestRemovePlaylistCascades(t *testing.T) {
	s, _, store, meta := newTestSession(Options{})

	res := s.LoadPlaylist(context.Background(), testConfig())
	if !res.Success {
		t.Fatalf("LoadPlaylist: %s", res.Message)
	}
	id := res.Playlist.ID

	if rm := s.RemovePlaylist(context.Background(), id); !rm.Success {
		t.Fatalf("RemovePlaylist: %s", rm.Message)
	}
	if got := len(store.Records(id)); got != 0 {
		t.Errorf("records after remove = %d, want 0", got)
	}
	if _, ok := meta.GetPlaylistMeta(id); ok {
		t.Error("metadata survives remove")
	}
	if _, ok := s.DefaultPlaylist(); ok {
		t.Error("default still set after removing only playlist")
	}

	if rm := s.RemovePlaylist(context.Background(), id); rm.Success {
		t.Error("removing unknown playlist succeeded")
	}
}

func TestRemoveReassignsDefault(t *testing.T) {
	s, _, _, _ := newTestSession(Options{})

	first := s.LoadPlaylist(context.Background(), testConfig())
	other := testConfig()
	other.Username = "second"
	second := s.LoadPlaylist(context.Background(), other)
	if !first.Success || !second.Success {
		t.Fatal("setup loads failed")
	}

	if rm := s.RemovePlaylist(context.Background(), first.Playlist.ID); !rm.Success {
		t.Fatalf("RemovePlaylist: %s", rm.Message)
	}
	def, ok := s.DefaultPlaylist()
	if !ok || def.ID != second.Playlist.ID {
		t.Error("default not reassigned to surviving playlist")
	}
}

func TestSearchContent(t *testing.T) {
	s, _, store, meta := newTestSession(Options{})
	if res := s.LoadPlaylist(context.Background(), testConfig()); !res.Success {
		t.Fatalf("LoadPlaylist: %s", res.Message)
	}

	// Queries under the minimum length never reach the store.
	calls := store.QueryCalls
	res := s.SearchContent(context.Background(), "a", 10)
	if res.Success {
		t.Fatal("expected short-query rejection")
	}
	if store.QueryCalls != calls {
		t.Error("short query hit the store")
	}

	res = s.SearchContent(context.Background(), "ea", 10)
	if !res.Success {
		t.Fatalf("SearchContent: %s", res.Message)
	}
	// "Heat Wave" (vod) matches; cross-type search.
	if len(res.Records) != 1 || res.Records[0].ID != "3" {
		t.Errorf("results = %+v, want [Heat Wave]", res.Records)
	}

	prefs, ok := meta.GetPreferences()
	if !ok || prefs.LastSearchQuery != "ea" {
		t.Error("last search query not persisted")
	}
}

func TestSetDefaultPlaylist(t *testing.T) {
	s, _, _, _ := newTestSession(Options{})
	if res := s.SetDefaultPlaylist("ghost"); res.Success {
		t.Error("setting unknown default succeeded")
	}

	res := s.LoadPlaylist(context.Background(), testConfig())
	if !res.Success {
		t.Fatalf("LoadPlaylist: %s", res.Message)
	}
	if set := s.SetDefaultPlaylist(res.Playlist.ID); !set.Success {
		t.Errorf("SetDefaultPlaylist: %s", set.Message)
	}
}

func TestSessionRestoresFromMeta(t *testing.T) {
	provider := &fakeProvider{catalog: sampleCatalog()}
	store := storetest.NewFake()
	meta := newFakeMeta()
	meta.SavePlaylistMeta(&domain.Playlist{ID: "http://a|u", Name: "a"})
	meta.SavePlaylistMeta(&domain.Playlist{ID: "http://b|u", Name: "b"})
	meta.SavePreferences(&domain.Preferences{DefaultPlaylistID: "http://b|u"})

	s := NewSession(provider, store, meta, Options{}, log.Null())

	if len(s.Playlists()) != 2 {
		t.Errorf("restored playlists = %d, want 2", len(s.Playlists()))
	}
	def, ok := s.DefaultPlaylist()
	if !ok || def.ID != "http://b|u" {
		t.Error("default not restored from preferences")
	}
}

func TestRefreshPlaylist(t *testing.T) {
	s, provider, _, _ := newTestSession(Options{})

	if res := s.RefreshPlaylist(context.Background(), "ghost"); res.Success {
		t.Error("refreshing unknown playlist succeeded")
	}

	res := s.LoadPlaylist(context.Background(), testConfig())
	if !res.Success {
		t.Fatalf("LoadPlaylist: %s", res.Message)
	}

	ref := s.RefreshPlaylist(context.Background(), res.Playlist.ID)
	if !ref.Success {
		t.Fatalf("RefreshPlaylist: %s", ref.Message)
	}
	if provider.lastCfg.Password != "pass" {
		t.Error("refresh did not reuse stored credentials")
	}
	if provider.calls != 2 {
		t.Errorf("provider calls = %d, want 2", provider.calls)
	}
}

func TestConcurrentRefreshAndReads(t *testing.T) {
	s, _, _, _ := newTestSession(Options{})

	res := s.LoadPlaylist(context.Background(), testConfig())
	if !res.Success {
		t.Fatalf("LoadPlaylist: %s", res.Message)
	}
	id := res.Playlist.ID

	// A scheduled refresh runs on its own goroutine while the presentation
	// layer keeps reading; run under -race.
	var wg sync.WaitGroup
	start := make(chan struct{})
	wg.Add(3)
	go func() {
		defer wg.Done()
		<-start
		for i := 0; i < 50; i++ {
			if ref := s.RefreshPlaylist(context.Background(), id); !ref.Success {
				t.Errorf("RefreshPlaylist: %s", ref.Message)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		<-start
		for i := 0; i < 50; i++ {
			s.Playlists()
			s.DefaultPlaylist()
		}
	}()
	go func() {
		defer wg.Done()
		<-start
		for i := 0; i < 50; i++ {
			if sr := s.SearchContent(context.Background(), "news", 10); !sr.Success {
				t.Errorf("SearchContent: %s", sr.Message)
				return
			}
		}
	}()
	close(start)
	wg.Wait()

	if len(s.Playlists()) != 1 {
		t.Errorf("playlists = %d, want 1", len(s.Playlists()))
	}
}

func TestSuggestCategories(t *testing.T) {
	s, _, _, _ := newTestSession(Options{})
	if res := s.LoadPlaylist(context.Background(), testConfig()); !res.Success {
		t.Fatalf("LoadPlaylist: %s", res.Message)
	}

	got, err := s.SuggestCategories(context.Background(), domain.ContentLive, "nws")
	if err != nil {
		t.Fatalf("SuggestCategories: %v", err)
	}
	found := false
	for _, name := range got {
		if name == "News" {
			found = true
		}
	}
	if !found {
		t.Errorf("suggestions = %v, want to include News", got)
	}
}
