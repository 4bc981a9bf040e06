// Package sqlite implements the primary indexed catalog store on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pkoski/teleguide/internal/domain"
	_ "modernc.org/sqlite"
)

// Schema for the catalog tables. Applied on Open.
const schema = `
CREATE TABLE IF NOT EXISTS records (
	playlist_id  TEXT NOT NULL,
	content_type TEXT NOT NULL,
	id           TEXT NOT NULL,
	name         TEXT NOT NULL,
	category_id  TEXT NOT NULL,
	url          TEXT NOT NULL DEFAULT '',
	logo_url     TEXT NOT NULL DEFAULT '',
	season_num   INTEGER NOT NULL DEFAULT 0,
	episode_num  INTEGER NOT NULL DEFAULT 0,
	added        INTEGER NOT NULL DEFAULT 0,
	raw          BLOB,
	PRIMARY KEY (playlist_id, content_type, id)
);
CREATE INDEX IF NOT EXISTS idx_records_category
	ON records(playlist_id, content_type, category_id);
CREATE INDEX IF NOT EXISTS idx_records_name
	ON records(playlist_id, content_type, name COLLATE NOCASE);

CREATE TABLE IF NOT EXISTS categories (
	playlist_id  TEXT NOT NULL,
	content_type TEXT NOT NULL,
	id           TEXT NOT NULL,
	name         TEXT NOT NULL,
	PRIMARY KEY (playlist_id, content_type, id)
);
`

const defaultPageSize = 50

// Store implements domain.CatalogStore over a SQLite database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the database at path and applies the schema.
// Initialization failures are reported as domain.ErrEngineUnavailable so the
// caller can route to the fallback store.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEngineUnavailable, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrEngineUnavailable, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: schema: %v", domain.ErrEngineUnavailable, err)
	}

	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ReplaceAll swaps in a new snapshot for the playlist inside one transaction:
// previous rows are deleted and the bundle inserted, with rollback on any
// failure so the old snapshot stays intact.
func (s *Store) ReplaceAll(ctx context.Context, playlistID string, bundle *domain.Bundle) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", domain.ErrIngestFailed, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE playlist_id = ?`, playlistID); err != nil {
		return fmt.Errorf("%w: clear records: %v", domain.ErrIngestFailed, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE playlist_id = ?`, playlistID); err != nil {
		return fmt.Errorf("%w: clear categories: %v", domain.ErrIngestFailed, err)
	}

	recStmt, err := tx.PrepareContext(ctx, `INSERT INTO records
		(playlist_id, content_type, id, name, category_id, url, logo_url, season_num, episode_num, added, raw)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: prepare: %v", domain.ErrIngestFailed, err)
	}
	defer recStmt.Close()

	for _, r := range bundle.Records {
		if _, err := recStmt.ExecContext(ctx, playlistID, string(r.ContentType), r.ID,
			r.Name, r.CategoryID, r.URL, r.LogoURL, r.SeasonNum, r.EpisodeNum, r.Added, []byte(r.Raw)); err != nil {
			return fmt.Errorf("%w: insert record %s: %v", domain.ErrIngestFailed, r.ID, err)
		}
	}

	catStmt, err := tx.PrepareContext(ctx, `INSERT INTO categories
		(playlist_id, content_type, id, name) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: prepare: %v", domain.ErrIngestFailed, err)
	}
	defer catStmt.Close()

	for _, c := range bundle.Categories {
		if _, err := catStmt.ExecContext(ctx, playlistID, string(c.ContentType), c.ID, c.Name); err != nil {
			return fmt.Errorf("%w: insert category %s: %v", domain.ErrIngestFailed, c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", domain.ErrIngestFailed, err)
	}

	s.logger.Debug("replaced snapshot",
		"playlistID", playlistID,
		"records", len(bundle.Records),
		"categories", len(bundle.Categories))
	return nil
}

// Query returns one ordered page of records.
func (s *Store) Query(ctx context.Context, playlistID string, t domain.ContentType, opts domain.QueryOptions) ([]domain.Record, error) {
	if opts.Limit <= 0 {
		opts.Limit = defaultPageSize
	}

	var sb strings.Builder
	sb.WriteString(`SELECT id, name, category_id, content_type, url, logo_url, season_num, episode_num, added, raw
		FROM records WHERE playlist_id = ? AND content_type = ?`)
	args := []any{playlistID, string(t)}

	if opts.CategoryID != "" {
		sb.WriteString(` AND category_id = ?`)
		args = append(args, opts.CategoryID)
	}
	if opts.Search != "" {
		sb.WriteString(` AND name LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(opts.Search)+"%")
	}

	switch opts.OrderBy {
	case domain.OrderByRecent:
		sb.WriteString(` ORDER BY added DESC, id ASC`)
	default:
		sb.WriteString(` ORDER BY name COLLATE NOCASE ASC, id ASC`)
	}
	sb.WriteString(` LIMIT ? OFFSET ?`)
	args = append(args, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []domain.Record
	for rows.Next() {
		var r domain.Record
		var ct string
		var raw []byte
		if err := rows.Scan(&r.ID, &r.Name, &r.CategoryID, &ct, &r.URL, &r.LogoURL,
			&r.SeasonNum, &r.EpisodeNum, &r.Added, &raw); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.ContentType = domain.ContentType(ct)
		if len(raw) > 0 {
			r.Raw = raw
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the number of records of type t, optionally for one category.
func (s *Store) Count(ctx context.Context, playlistID string, t domain.ContentType, categoryID string) (int, error) {
	q := `SELECT COUNT(*) FROM records WHERE playlist_id = ? AND content_type = ?`
	args := []any{playlistID, string(t)}
	if categoryID != "" {
		q += ` AND category_id = ?`
		args = append(args, categoryID)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// Categories returns categories of type t with member counts computed by
// aggregation over the records table, so counts can never drift.
func (s *Store) Categories(ctx context.Context, playlistID string, t domain.ContentType) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, COUNT(r.id)
		FROM categories c
		LEFT JOIN records r
			ON r.playlist_id = c.playlist_id
			AND r.content_type = c.content_type
			AND r.category_id = c.id
		WHERE c.playlist_id = ? AND c.content_type = ?
		GROUP BY c.id, c.name
		ORDER BY c.name COLLATE NOCASE ASC, c.id ASC`,
		playlistID, string(t))
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []domain.Category
	for rows.Next() {
		c := domain.Category{ContentType: t}
		if err := rows.Scan(&c.ID, &c.Name, &c.MemberCount); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeletePlaylist removes all rows belonging to the playlist.
func (s *Store) DeletePlaylist(ctx context.Context, playlistID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE playlist_id = ?`, playlistID); err != nil {
		return fmt.Errorf("delete records: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE playlist_id = ?`, playlistID); err != nil {
		return fmt.Errorf("delete categories: %w", err)
	}
	return tx.Commit()
}

// escapeLike escapes LIKE metacharacters in a user-supplied search term.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
