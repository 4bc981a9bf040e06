// Package storetest holds the shared contract suite for catalog store
// implementations. Both backends must pass it unmodified; that is what makes
// them observably equivalent.
package storetest

import (
	"context"
	"testing"

	"github.com/pkoski/teleguide/internal/domain"
)

// Factory creates a fresh, empty store for one subtest.
type Factory func(t *testing.T) domain.CatalogStore

// fixture returns a small live bundle: two News records, one uncategorized,
// plus an empty Sports category.
func fixture() *domain.Bundle {
	return &domain.Bundle{
		Records: []domain.Record{
			{ID: "3", Name: "World News", CategoryID: "news", ContentType: domain.ContentLive, URL: "http://x/3", Added: 300},
			{ID: "1", Name: "alpha news", CategoryID: "news", ContentType: domain.ContentLive, URL: "http://x/1", Added: 100},
			{ID: "2", Name: "Mystery Feed", CategoryID: domain.UncategorizedID(domain.ContentLive), ContentType: domain.ContentLive, URL: "http://x/2", Added: 200},
		},
		Categories: []domain.Category{
			{ID: "news", Name: "News", ContentType: domain.ContentLive},
			{ID: "sports", Name: "Sports", ContentType: domain.ContentLive},
			{ID: domain.UncategorizedID(domain.ContentLive), Name: domain.UncategorizedName, ContentType: domain.ContentLive},
		},
	}
}

// Run exercises the full CatalogStore contract against the given factory.
func Run(t *testing.T, factory Factory) {
	t.Run("QueryOrdering", func(t *testing.T) { testQueryOrdering(t, factory) })
	t.Run("QueryCategoryFilter", func(t *testing.T) { testQueryCategoryFilter(t, factory) })
	t.Run("QuerySearch", func(t *testing.T) { testQuerySearch(t, factory) })
	t.Run("QueryPagination", func(t *testing.T) { testQueryPagination(t, factory) })
	t.Run("QueryOrderByRecent", func(t *testing.T) { testQueryOrderByRecent(t, factory) })
	t.Run("Count", func(t *testing.T) { testCount(t, factory) })
	t.Run("Categories", func(t *testing.T) { testCategories(t, factory) })
	t.Run("ReplaceIsIdempotent", func(t *testing.T) { testReplaceIdempotent(t, factory) })
	t.Run("DeletePlaylist", func(t *testing.T) { testDeletePlaylist(t, factory) })
	t.Run("PlaylistIsolation", func(t *testing.T) { testPlaylistIsolation(t, factory) })
	t.Run("EmptyPlaylist", func(t *testing.T) { testEmptyPlaylist(t, factory) })
}

func mustReplace(t *testing.T, s domain.CatalogStore, playlistID string, b *domain.Bundle) {
	t.Helper()
	if err := s.ReplaceAll(context.Background(), playlistID, b); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
}

func ids(recs []domain.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

func equalIDs(got []domain.Record, want ...string) bool {
	if len(got) != len(want) {
		return false
	}
	for i, r := range got {
		if r.ID != want[i] {
			return false
		}
	}
	return true
}

func testQueryOrdering(t *testing.T, factory Factory) {
	s := factory(t)
	defer s.Close()
	mustReplace(t, s, "p1", fixture())

	// Case-insensitive name ascending: "alpha news" < "Mystery Feed" < "World News".
	got, err := s.Query(context.Background(), "p1", domain.ContentLive, domain.QueryOptions{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if !equalIDs(got, "1", "2", "3") {
		t.Errorf("order = %v, want [1 2 3]", ids(got))
	}
}

func testQueryCategoryFilter(t *testing.T, factory Factory) {
	s := factory(t)
	defer s.Close()
	mustReplace(t, s, "p1", fixture())

	got, err := s.Query(context.Background(), "p1", domain.ContentLive, domain.QueryOptions{CategoryID: "news"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if !equalIDs(got, "1", "3") {
		t.Errorf("news records = %v, want [1 3]", ids(got))
	}

	got, err = s.Query(context.Background(), "p1", domain.ContentLive, domain.QueryOptions{CategoryID: domain.UncategorizedID(domain.ContentLive)})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if !equalIDs(got, "2") {
		t.Errorf("uncategorized records = %v, want [2]", ids(got))
	}
}

func testQuerySearch(t *testing.T, factory Factory) {
	s := factory(t)
	defer s.Close()
	b := fixture()
	b.Records = append(b.Records, domain.Record{
		ID: "4", Name: "100% Hits", CategoryID: "news", ContentType: domain.ContentLive,
	})
	mustReplace(t, s, "p1", b)

	tests := []struct {
		name   string
		search string
		want   []string
	}{
		{"case insensitive", "NEWS", []string{"1", "3"}},
		{"substring", "yster", []string{"2"}},
		{"no match", "zzz", nil},
		{"literal percent", "100%", []string{"4"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Query(context.Background(), "p1", domain.ContentLive, domain.QueryOptions{Search: tt.search})
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if !equalIDs(got, tt.want...) {
				t.Errorf("search %q = %v, want %v", tt.search, ids(got), tt.want)
			}
		})
	}
}

func testQueryPagination(t *testing.T, factory Factory) {
	s := factory(t)
	defer s.Close()
	mustReplace(t, s, "p1", fixture())

	got, err := s.Query(context.Background(), "p1", domain.ContentLive, domain.QueryOptions{Limit: 2})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if !equalIDs(got, "1", "2") {
		t.Errorf("page 1 = %v, want [1 2]", ids(got))
	}

	got, err = s.Query(context.Background(), "p1", domain.ContentLive, domain.QueryOptions{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if !equalIDs(got, "3") {
		t.Errorf("page 2 = %v, want [3]", ids(got))
	}

	got, err = s.Query(context.Background(), "p1", domain.ContentLive, domain.QueryOptions{Limit: 2, Offset: 10})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("offset past end = %v, want empty", ids(got))
	}
}

func testQueryOrderByRecent(t *testing.T, factory Factory) {
	s := factory(t)
	defer s.Close()
	mustReplace(t, s, "p1", fixture())

	got, err := s.Query(context.Background(), "p1", domain.ContentLive, domain.QueryOptions{OrderBy: domain.OrderByRecent})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if !equalIDs(got, "3", "2", "1") {
		t.Errorf("recent order = %v, want [3 2 1]", ids(got))
	}
}

func testCount(t *testing.T, factory Factory) {
	s := factory(t)
	defer s.Close()
	mustReplace(t, s, "p1", fixture())

	n, err := s.Count(context.Background(), "p1", domain.ContentLive, "")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Errorf("total count = %d, want 3", n)
	}

	n, err = s.Count(context.Background(), "p1", domain.ContentLive, "news")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Errorf("news count = %d, want 2", n)
	}

	n, err = s.Count(context.Background(), "p1", domain.ContentVOD, "")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 0 {
		t.Errorf("vod count = %d, want 0", n)
	}
}

func testCategories(t *testing.T, factory Factory) {
	s := factory(t)
	defer s.Close()
	mustReplace(t, s, "p1", fixture())

	cats, err := s.Categories(context.Background(), "p1", domain.ContentLive)
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	counts := make(map[string]int, len(cats))
	total := 0
	for _, c := range cats {
		counts[c.ID] = c.MemberCount
		total += c.MemberCount
	}
	if counts["news"] != 2 {
		t.Errorf("news members = %d, want 2", counts["news"])
	}
	if counts["sports"] != 0 {
		t.Errorf("sports members = %d, want 0", counts["sports"])
	}
	if counts[domain.UncategorizedID(domain.ContentLive)] != 1 {
		t.Errorf("uncategorized members = %d, want 1", counts[domain.UncategorizedID(domain.ContentLive)])
	}
	// Member counts sum to the record total.
	if total != 3 {
		t.Errorf("member count sum = %d, want 3", total)
	}
}

func testReplaceIdempotent(t *testing.T, factory Factory) {
	s := factory(t)
	defer s.Close()
	mustReplace(t, s, "p1", fixture())

	// A second ingest fully supersedes the first, never merges with it.
	replacement := &domain.Bundle{
		Records: []domain.Record{
			{ID: "9", Name: "Only Channel", CategoryID: "news", ContentType: domain.ContentLive},
		},
		Categories: []domain.Category{
			{ID: "news", Name: "News", ContentType: domain.ContentLive},
		},
	}
	mustReplace(t, s, "p1", replacement)

	got, err := s.Query(context.Background(), "p1", domain.ContentLive, domain.QueryOptions{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if !equalIDs(got, "9") {
		t.Errorf("records after replace = %v, want [9]", ids(got))
	}
}

func testDeletePlaylist(t *testing.T, factory Factory) {
	s := factory(t)
	defer s.Close()
	mustReplace(t, s, "p1", fixture())

	if err := s.DeletePlaylist(context.Background(), "p1"); err != nil {
		t.Fatalf("DeletePlaylist: %v", err)
	}
	n, err := s.Count(context.Background(), "p1", domain.ContentLive, "")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 0 {
		t.Errorf("count after delete = %d, want 0", n)
	}
	cats, err := s.Categories(context.Background(), "p1", domain.ContentLive)
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if len(cats) != 0 {
		t.Errorf("categories after delete = %d, want 0", len(cats))
	}

	// Deleting an unknown playlist is a no-op.
	if err := s.DeletePlaylist(context.Background(), "ghost"); err != nil {
		t.Errorf("DeletePlaylist unknown: %v", err)
	}
}

func testPlaylistIsolation(t *testing.T, factory Factory) {
	s := factory(t)
	defer s.Close()
	mustReplace(t, s, "p1", fixture())
	mustReplace(t, s, "p2", &domain.Bundle{
		Records: []domain.Record{
			{ID: "x", Name: "Other", CategoryID: "c", ContentType: domain.ContentLive},
		},
		Categories: []domain.Category{
			{ID: "c", Name: "C", ContentType: domain.ContentLive},
		},
	})

	if err := s.DeletePlaylist(context.Background(), "p2"); err != nil {
		t.Fatalf("DeletePlaylist: %v", err)
	}
	n, err := s.Count(context.Background(), "p1", domain.ContentLive, "")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Errorf("p1 count after p2 delete = %d, want 3", n)
	}
}

func testEmptyPlaylist(t *testing.T, factory Factory) {
	s := factory(t)
	defer s.Close()

	got, err := s.Query(context.Background(), "nope", domain.ContentLive, domain.QueryOptions{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("records for unknown playlist = %v, want empty", ids(got))
	}
	n, err := s.Count(context.Background(), "nope", domain.ContentLive, "")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 0 {
		t.Errorf("count for unknown playlist = %d, want 0", n)
	}
}
