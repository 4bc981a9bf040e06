// Package normalize turns a raw catalog fetch response into a canonical
// bundle of records, categories, and aggregate statistics.
package normalize

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/pkoski/teleguide/internal/domain"
)

// episodePattern matches S01E05-style codes and "Season 2"/"Episode 7" words
// commonly embedded in series item names.
var episodePattern = regexp.MustCompile(`(?i)\bS\d{1,2}\s*E\d{1,3}\b|\bseason\s*\d+\b|\bepisode\s*\d+\b|\bseries\b`)

// livePattern flags linear-channel names when the provider omits a type tag.
// Whole-word matches only, so "Oliver" or "Deliverance" stay vod.
var livePattern = regexp.MustCompile(`(?i)\b(live|channels?|tv)\b|24/7`)

// Normalizer converts RawCatalog snapshots into Bundles.
type Normalizer struct {
	logger *slog.Logger
}

// New creates a Normalizer.
func New(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger}
}

// Normalize produces the canonical bundle for one raw catalog snapshot.
// Records missing an id or name are dropped and counted, never fail the
// whole ingest. Statistics are computed once over the final set.
func (n *Normalizer) Normalize(raw *domain.RawCatalog) *domain.Bundle {
	b := &domain.Bundle{}
	if raw == nil {
		b.Stats = computeStats(nil, 0)
		return b
	}

	// Index provider categories per type; names are looked up during record
	// assignment and unmatched ids fall through to Uncategorized.
	catIndex := make(map[domain.ContentType]map[string]string)
	for _, t := range domain.ContentTypes {
		idx := make(map[string]string)
		for _, rc := range raw.Categories[t] {
			if rc.ID == "" {
				continue
			}
			idx[rc.ID] = rc.Name
		}
		catIndex[t] = idx
	}

	dropped := 0
	usedCats := make(map[domain.ContentType]map[string]bool)
	for _, t := range domain.ContentTypes {
		usedCats[t] = make(map[string]bool)
	}

	for _, t := range domain.ContentTypes {
		for _, rs := range raw.Streams[t] {
			rec, ok := n.normalizeStream(rs, t, catIndex)
			if !ok {
				dropped++
				continue
			}
			usedCats[rec.ContentType][rec.CategoryID] = true
			b.Records = append(b.Records, rec)
		}
	}

	// Emit categories in provider order, then the synthetic Uncategorized
	// category per type when anything landed in it.
	for _, t := range domain.ContentTypes {
		for _, rc := range raw.Categories[t] {
			if rc.ID == "" {
				continue
			}
			b.Categories = append(b.Categories, domain.Category{
				ID:          rc.ID,
				Name:        rc.Name,
				ContentType: t,
			})
		}
		if usedCats[t][domain.UncategorizedID(t)] {
			b.Categories = append(b.Categories, domain.Category{
				ID:          domain.UncategorizedID(t),
				Name:        domain.UncategorizedName,
				ContentType: t,
			})
		}
	}

	b.Stats = computeStats(b.Records, dropped)
	fillMemberCounts(b)

	n.logger.Debug("normalized catalog",
		"records", len(b.Records),
		"categories", len(b.Categories),
		"dropped", dropped)

	return b
}

// normalizeStream validates and canonicalizes one raw stream. The listType is
// the content type of the provider list the stream arrived in; an explicit
// tag on the stream wins, then the name heuristic.
func (n *Normalizer) normalizeStream(
	rs domain.RawStream,
	listType domain.ContentType,
	catIndex map[domain.ContentType]map[string]string,
) (domain.Record, bool) {
	if rs.ID == "" || strings.TrimSpace(rs.Name) == "" {
		return domain.Record{}, false
	}

	t := rs.Type
	if !t.Valid() {
		t = listType
	}
	if !t.Valid() {
		t = Classify(rs.Name)
	}

	catID := rs.CategoryID
	if catID == "" || catIndex[t][catID] == "" {
		catID = domain.UncategorizedID(t)
	}

	return domain.Record{
		ID:          rs.ID,
		Name:        strings.TrimSpace(rs.Name),
		CategoryID:  catID,
		ContentType: t,
		URL:         rs.URL,
		LogoURL:     rs.LogoURL,
		SeasonNum:   rs.SeasonNum,
		EpisodeNum:  rs.EpisodeNum,
		Added:       rs.Added,
		Raw:         rs.Raw,
	}, true
}

// Classify assigns a content type from an item's display name. Best-effort:
// rule order is live, then series, then vod, and the first matching rule is
// authoritative. Ambiguous names default to vod.
func Classify(name string) domain.ContentType {
	if livePattern.MatchString(name) {
		return domain.ContentLive
	}
	if episodePattern.MatchString(name) {
		return domain.ContentSeries
	}
	return domain.ContentVOD
}

// computeStats aggregates counts in a single pass over the normalized set.
func computeStats(records []domain.Record, dropped int) domain.Statistics {
	s := domain.Statistics{
		Total:       len(records),
		PerType:     make(map[domain.ContentType]int),
		PerCategory: make(map[string]int),
		Dropped:     dropped,
	}
	for _, r := range records {
		s.PerType[r.ContentType]++
		s.PerCategory[r.CategoryID]++
	}
	return s
}

// fillMemberCounts sets each category's MemberCount from the computed stats.
func fillMemberCounts(b *domain.Bundle) {
	for i := range b.Categories {
		b.Categories[i].MemberCount = b.Stats.PerCategory[b.Categories[i].ID]
	}
}
