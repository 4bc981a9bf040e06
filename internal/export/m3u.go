// Package export writes catalog slices as M3U playlists consumable by
// external players.
package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/grafov/m3u8"
	"github.com/pkoski/teleguide/internal/domain"
)

// maxExportRecords bounds one export so a full provider catalog can't be
// dumped by accident.
const maxExportRecords = 10000

// Exporter writes M3U playlists from stored records.
type Exporter struct {
	store  domain.CatalogStore
	logger *slog.Logger
}

// New creates an Exporter reading from store.
func New(store domain.CatalogStore, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{store: store, logger: logger}
}

// WriteCategory writes all records of one category (or the whole content type
// when categoryID is empty) as an M3U playlist to w. Records without a stream
// URL are skipped.
func (e *Exporter) WriteCategory(ctx context.Context, w io.Writer, playlistID string, t domain.ContentType, categoryID string) (int, error) {
	records, err := e.collect(ctx, playlistID, t, categoryID)
	if err != nil {
		return 0, err
	}

	pl, err := m3u8.NewMediaPlaylist(0, uint(len(records)+1))
	if err != nil {
		return 0, fmt.Errorf("create playlist: %w", err)
	}

	written := 0
	for _, r := range records {
		if r.URL == "" {
			continue
		}
		title := r.Name
		if code := r.EpisodeCode(); code != "" {
			title = title + " " + code
		}
		if err := pl.Append(r.URL, -1, title); err != nil {
			return written, fmt.Errorf("append %s: %w", r.ID, err)
		}
		written++
	}
	pl.Close()

	if _, err := w.Write(pl.Encode().Bytes()); err != nil {
		return written, err
	}

	e.logger.Info("exported playlist",
		"playlistID", playlistID, "contentType", t, "categoryID", categoryID, "records", written)
	return written, nil
}

func (e *Exporter) collect(ctx context.Context, playlistID string, t domain.ContentType, categoryID string) ([]domain.Record, error) {
	var out []domain.Record
	offset := 0
	const page = 500
	for len(out) < maxExportRecords {
		recs, err := e.store.Query(ctx, playlistID, t, domain.QueryOptions{
			CategoryID: categoryID,
			Limit:      page,
			Offset:     offset,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
		if len(recs) < page {
			break
		}
		offset += page
	}
	return out, nil
}
