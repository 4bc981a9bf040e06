package bolt

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/pkoski/teleguide/internal/domain"
	"github.com/pkoski/teleguide/internal/log"
	"github.com/pkoski/teleguide/internal/store/storetest"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "catalog.bolt"), log.Null())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.CatalogStore {
		return openTestStore(t)
	})
}

func TestPlaylistMetaRoundTrip(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	p := &domain.Playlist{
		ID:       "http://host|user",
		Name:     "main",
		BaseURL:  "http://host",
		Username: "user",
		Password: "secret",
		Stats:    domain.Statistics{Total: 42},
		LoadedAt: time.Now().Truncate(time.Second),
	}
	if err := s.SavePlaylistMeta(p); err != nil {
		t.Fatalf("SavePlaylistMeta: %v", err)
	}

	got, ok := s.GetPlaylistMeta(p.ID)
	if !ok {
		t.Fatal("GetPlaylistMeta: not found")
	}
	if got.Name != "main" || got.Password != "secret" || got.Stats.Total != 42 {
		t.Errorf("round trip mismatch: %+v", got)
	}

	list, err := s.ListPlaylistMeta()
	if err != nil {
		t.Fatalf("ListPlaylistMeta: %v", err)
	}
	if len(list) != 1 || list[0].ID != p.ID {
		t.Errorf("list = %+v, want one entry for %s", list, p.ID)
	}

	if err := s.DeletePlaylistMeta(p.ID); err != nil {
		t.Fatalf("DeletePlaylistMeta: %v", err)
	}
	if _, ok := s.GetPlaylistMeta(p.ID); ok {
		t.Error("meta still present after delete")
	}
}

func TestListPlaylistMetaOrdered(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	for _, id := range []string{"b|u", "a|u", "c|u"} {
		if err := s.SavePlaylistMeta(&domain.Playlist{ID: id}); err != nil {
			t.Fatalf("SavePlaylistMeta(%s): %v", id, err)
		}
	}
	list, err := s.ListPlaylistMeta()
	if err != nil {
		t.Fatalf("ListPlaylistMeta: %v", err)
	}
	want := []string{"a|u", "b|u", "c|u"}
	for i, p := range list {
		if p.ID != want[i] {
			t.Fatalf("list order = %v, want %v", list, want)
		}
	}
}

func TestPreferencesRoundTrip(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	if _, ok := s.GetPreferences(); ok {
		t.Fatal("expected no preferences in fresh store")
	}

	prefs := &domain.Preferences{DefaultPlaylistID: "p1", LastSearchQuery: "sports"}
	if err := s.SavePreferences(prefs); err != nil {
		t.Fatalf("SavePreferences: %v", err)
	}

	got, ok := s.GetPreferences()
	if !ok {
		t.Fatal("GetPreferences: not found")
	}
	if got.DefaultPlaylistID != "p1" || got.LastSearchQuery != "sports" {
		t.Errorf("preferences = %+v", got)
	}
}
