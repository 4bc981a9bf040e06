package normalize

import (
	"testing"

	"github.com/pkoski/teleguide/internal/domain"
	"github.com/pkoski/teleguide/internal/log"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		want domain.ContentType
	}{
		{"CNN Live", domain.ContentLive},
		{"24/7 Cartoons", domain.ContentLive},
		{"Music Channels", domain.ContentLive},
		{"Sky TV HD", domain.ContentLive},
		{"Breaking Bad S01E03", domain.ContentSeries},
		{"Dark Season 2", domain.ContentSeries},
		{"Lost Episode 14", domain.ContentSeries},
		{"The Godfather", domain.ContentVOD},
		{"Heat (1995)", domain.ContentVOD},
		// Word-boundary matching: embedded "live"/"tv" must not classify.
		{"Oliver Twist", domain.ContentVOD},
		{"Deliverance", domain.ContentVOD},
		// Rule order: live wins over series when both match.
		{"Live Season 3 Special", domain.ContentLive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.name); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestNormalizeDropsInvalidRecords(t *testing.T) {
	n := New(log.Null())
	raw := &domain.RawCatalog{
		Streams: map[domain.ContentType][]domain.RawStream{
			domain.ContentLive: {
				{ID: "1", Name: "Good Channel", Type: domain.ContentLive},
				{ID: "", Name: "No ID", Type: domain.ContentLive},
				{ID: "3", Name: "   ", Type: domain.ContentLive},
			},
		},
	}

	b := n.Normalize(raw)
	if len(b.Records) != 1 {
		t.Errorf("records = %d, want 1", len(b.Records))
	}
	if b.Stats.Dropped != 2 {
		t.Errorf("dropped = %d, want 2", b.Stats.Dropped)
	}
	if b.Stats.Total != 1 {
		t.Errorf("total = %d, want 1", b.Stats.Total)
	}
}

func TestNormalizeCategoryAssignment(t *testing.T) {
	n := New(log.Null())
	raw := &domain.RawCatalog{
		Categories: map[domain.ContentType][]domain.RawCategory{
			domain.ContentLive: {{ID: "news", Name: "News"}},
		},
		Streams: map[domain.ContentType][]domain.RawStream{
			domain.ContentLive: {
				{ID: "1", Name: "World News", CategoryID: "news", Type: domain.ContentLive},
				{ID: "2", Name: "Headline Review", CategoryID: "news", Type: domain.ContentLive},
				{ID: "3", Name: "Mystery Feed", CategoryID: "", Type: domain.ContentLive},
			},
		},
	}

	b := n.Normalize(raw)

	byID := make(map[string]domain.Record)
	for _, r := range b.Records {
		byID[r.ID] = r
	}
	if byID["1"].CategoryID != "news" || byID["2"].CategoryID != "news" {
		t.Error("known category not preserved")
	}
	if byID["3"].CategoryID != domain.UncategorizedID(domain.ContentLive) {
		t.Errorf("record 3 category = %s, want uncategorized", byID["3"].CategoryID)
	}

	counts := make(map[string]int)
	for _, c := range b.Categories {
		counts[c.ID] = c.MemberCount
	}
	if counts["news"] != 2 {
		t.Errorf("news members = %d, want 2", counts["news"])
	}
	if counts[domain.UncategorizedID(domain.ContentLive)] != 1 {
		t.Errorf("uncategorized members = %d, want 1", counts[domain.UncategorizedID(domain.ContentLive)])
	}
}

func TestNormalizeUnknownCategoryFallsToUncategorized(t *testing.T) {
	n := New(log.Null())
	raw := &domain.RawCatalog{
		Categories: map[domain.ContentType][]domain.RawCategory{
			domain.ContentLive: {{ID: "news", Name: "News"}},
		},
		Streams: map[domain.ContentType][]domain.RawStream{
			domain.ContentLive: {
				{ID: "1", Name: "Orphan", CategoryID: "deleted-cat", Type: domain.ContentLive},
			},
		},
	}

	b := n.Normalize(raw)
	if b.Records[0].CategoryID != domain.UncategorizedID(domain.ContentLive) {
		t.Errorf("category = %s, want uncategorized", b.Records[0].CategoryID)
	}
}

func TestNormalizeNoUncategorizedWhenUnused(t *testing.T) {
	n := New(log.Null())
	raw := &domain.RawCatalog{
		Categories: map[domain.ContentType][]domain.RawCategory{
			domain.ContentLive: {{ID: "news", Name: "News"}},
		},
		Streams: map[domain.ContentType][]domain.RawStream{
			domain.ContentLive: {
				{ID: "1", Name: "World News", CategoryID: "news", Type: domain.ContentLive},
			},
		},
	}

	b := n.Normalize(raw)
	for _, c := range b.Categories {
		if c.ID == domain.UncategorizedID(domain.ContentLive) {
			t.Error("synthetic category emitted with no members")
		}
	}
}

func TestNormalizeListTypeWinsForUntypedStreams(t *testing.T) {
	n := New(log.Null())
	raw := &domain.RawCatalog{
		Streams: map[domain.ContentType][]domain.RawStream{
			domain.ContentVOD: {
				// No explicit type tag; the list the provider delivered it
				// in is authoritative, not the name heuristic.
				{ID: "1", Name: "CNN Live"},
			},
		},
	}

	b := n.Normalize(raw)
	if len(b.Records) != 1 || b.Records[0].ContentType != domain.ContentVOD {
		t.Errorf("records = %+v, want one vod record", b.Records)
	}
}

func TestNormalizeStats(t *testing.T) {
	n := New(log.Null())
	raw := &domain.RawCatalog{
		Streams: map[domain.ContentType][]domain.RawStream{
			domain.ContentLive: {
				{ID: "1", Name: "A", Type: domain.ContentLive},
				{ID: "2", Name: "B", Type: domain.ContentLive},
			},
			domain.ContentVOD: {
				{ID: "3", Name: "C", Type: domain.ContentVOD},
			},
		},
	}

	b := n.Normalize(raw)
	if b.Stats.Total != 3 {
		t.Errorf("total = %d, want 3", b.Stats.Total)
	}
	if b.Stats.PerType[domain.ContentLive] != 2 {
		t.Errorf("live = %d, want 2", b.Stats.PerType[domain.ContentLive])
	}
	if b.Stats.PerType[domain.ContentVOD] != 1 {
		t.Errorf("vod = %d, want 1", b.Stats.PerType[domain.ContentVOD])
	}

	sum := 0
	for _, c := range b.Stats.PerCategory {
		sum += c
	}
	if sum != b.Stats.Total {
		t.Errorf("per-category sum = %d, want %d", sum, b.Stats.Total)
	}
}

func TestNormalizeNilCatalog(t *testing.T) {
	n := New(log.Null())
	b := n.Normalize(nil)
	if b.Stats.Total != 0 || len(b.Records) != 0 {
		t.Errorf("nil catalog bundle = %+v", b)
	}
}
