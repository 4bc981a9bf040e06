package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/pkoski/teleguide/internal/domain"
	"github.com/pkoski/teleguide/internal/log"
	"github.com/pkoski/teleguide/internal/store/storetest"
)

func openTestStore(t *testing.T) domain.CatalogStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "catalog.db"), log.Null())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, openTestStore)
}

func TestOpenBadPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "nested", "catalog.db"), log.Null())
	if err == nil {
		t.Fatal("expected error for unwritable path")
	}
	if !errors.Is(err, domain.ErrEngineUnavailable) {
		t.Errorf("error = %v, want ErrEngineUnavailable", err)
	}
}

func TestReplaceAllPreservesSnapshotOnReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	s, err := Open(path, log.Null())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	bundle := &domain.Bundle{
		Records: []domain.Record{
			{ID: "1", Name: "Channel One", CategoryID: "c", ContentType: domain.ContentLive},
		},
		Categories: []domain.Category{
			{ID: "c", Name: "C", ContentType: domain.ContentLive},
		},
	}
	if err := s.ReplaceAll(context.Background(), "p1", bundle); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = Open(path, log.Null())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	n, err := s.Count(context.Background(), "p1", domain.ContentLive, "")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("count after reopen = %d, want 1", n)
	}
}

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"50%", `50\%`},
		{"a_b", `a\_b`},
		{`back\slash`, `back\\slash`},
	}
	for _, tt := range tests {
		if got := escapeLike(tt.in); got != tt.want {
			t.Errorf("escapeLike(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
