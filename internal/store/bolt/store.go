// Package bolt implements the fallback catalog store over a bbolt key-value
// database: one serialized blob per (playlist, content type), with queries
// satisfied by in-memory filter/sort/slice after deserialization. Slower than
// the indexed store but observably equivalent for every query operation.
//
// The bolt database also carries the small durable session state (playlist
// metadata and preferences) regardless of which query backend is active.
package bolt

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkoski/teleguide/internal/domain"
	"github.com/vmihailenco/msgpack/v5"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketRecords    = []byte("records")
	bucketCategories = []byte("categories")
	bucketMeta       = []byte("meta")
	bucketPrefs      = []byte("prefs")
)

const (
	prefsKey        = "session"
	defaultPageSize = 50
)

// Store implements domain.CatalogStore and domain.MetaStore using bbolt.
type Store struct {
	db     *bolt.DB
	logger *slog.Logger
}

// Open opens (or creates) the bolt database at path and ensures all buckets
// exist.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketRecords, bucketCategories, bucketMeta, bucketPrefs} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// recordsKey is the blob key for one (playlist, content type) record set.
func recordsKey(playlistID string, t domain.ContentType) []byte {
	return []byte("pl:" + playlistID + ":" + string(t))
}

// categoriesKey is the blob key for one playlist's category list.
func categoriesKey(playlistID string) []byte {
	return []byte("pl:" + playlistID)
}

// === CatalogStore ===

// ReplaceAll installs the new snapshot for a playlist in one bolt update
// transaction: all-or-nothing, the previous blobs survive any failure.
func (s *Store) ReplaceAll(ctx context.Context, playlistID string, bundle *domain.Bundle) error {
	byType := make(map[domain.ContentType][]domain.Record)
	for _, r := range bundle.Records {
		byType[r.ContentType] = append(byType[r.ContentType], r)
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		rb := tx.Bucket(bucketRecords)
		for _, t := range domain.ContentTypes {
			key := recordsKey(playlistID, t)
			recs := byType[t]
			if len(recs) == 0 {
				if err := rb.Delete(key); err != nil {
					return err
				}
				continue
			}
			blob, err := msgpack.Marshal(recs)
			if err != nil {
				return err
			}
			if err := rb.Put(key, blob); err != nil {
				return err
			}
		}

		blob, err := msgpack.Marshal(bundle.Categories)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketCategories).Put(categoriesKey(playlistID), blob)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIngestFailed, err)
	}

	s.logger.Debug("replaced snapshot",
		"playlistID", playlistID,
		"records", len(bundle.Records),
		"categories", len(bundle.Categories))
	return nil
}

// Query loads the (playlist, type) blob and filters, sorts, and slices it in
// memory with the same semantics as the indexed store.
func (s *Store) Query(ctx context.Context, playlistID string, t domain.ContentType, opts domain.QueryOptions) ([]domain.Record, error) {
	if opts.Limit <= 0 {
		opts.Limit = defaultPageSize
	}

	recs, err := s.loadRecords(playlistID, t)
	if err != nil {
		return nil, err
	}

	search := strings.ToLower(opts.Search)
	filtered := recs[:0:0]
	for _, r := range recs {
		if opts.CategoryID != "" && r.CategoryID != opts.CategoryID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(r.Name), search) {
			continue
		}
		filtered = append(filtered, r)
	}

	sortRecords(filtered, opts.OrderBy)

	if opts.Offset >= len(filtered) {
		return nil, nil
	}
	end := opts.Offset + opts.Limit
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[opts.Offset:end], nil
}

// Count filters the blob in memory and returns the matching record count.
func (s *Store) Count(ctx context.Context, playlistID string, t domain.ContentType, categoryID string) (int, error) {
	recs, err := s.loadRecords(playlistID, t)
	if err != nil {
		return 0, err
	}
	if categoryID == "" {
		return len(recs), nil
	}
	n := 0
	for _, r := range recs {
		if r.CategoryID == categoryID {
			n++
		}
	}
	return n, nil
}

// Categories recomputes member counts from the stored records on every call,
// matching the indexed store's aggregation semantics.
func (s *Store) Categories(ctx context.Context, playlistID string, t domain.ContentType) ([]domain.Category, error) {
	var cats []domain.Category
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketCategories).Get(categoriesKey(playlistID))
		if v == nil {
			return nil
		}
		return msgpack.Unmarshal(v, &cats)
	})
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}

	recs, err := s.loadRecords(playlistID, t)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(recs))
	for _, r := range recs {
		counts[r.CategoryID]++
	}

	out := make([]domain.Category, 0, len(cats))
	for _, c := range cats {
		if c.ContentType != t {
			continue
		}
		c.MemberCount = counts[c.ID]
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if a != b {
			return a < b
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// DeletePlaylist removes the playlist's record blobs and category list.
func (s *Store) DeletePlaylist(ctx context.Context, playlistID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		rb := tx.Bucket(bucketRecords)
		for _, t := range domain.ContentTypes {
			if err := rb.Delete(recordsKey(playlistID, t)); err != nil {
				return err
			}
		}
		return tx.Bucket(bucketCategories).Delete(categoriesKey(playlistID))
	})
}

func (s *Store) loadRecords(playlistID string, t domain.ContentType) ([]domain.Record, error) {
	var recs []domain.Record
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketRecords).Get(recordsKey(playlistID, t))
		if v == nil {
			return nil
		}
		return msgpack.Unmarshal(v, &recs)
	})
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	return recs, nil
}

// sortRecords applies the shared ordering contract: name ascending with
// ASCII-insensitive folding and id tiebreak, or added-descending for recent.
func sortRecords(recs []domain.Record, orderBy domain.OrderBy) {
	switch orderBy {
	case domain.OrderByRecent:
		sort.Slice(recs, func(i, j int) bool {
			if recs[i].Added != recs[j].Added {
				return recs[i].Added > recs[j].Added
			}
			return recs[i].ID < recs[j].ID
		})
	default:
		sort.Slice(recs, func(i, j int) bool {
			a, b := strings.ToLower(recs[i].Name), strings.ToLower(recs[j].Name)
			if a != b {
				return a < b
			}
			return recs[i].ID < recs[j].ID
		})
	}
}

// === MetaStore ===

func (s *Store) SavePlaylistMeta(p *domain.Playlist) error {
	blob, err := msgpack.Marshal(p)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMeta).Put([]byte(p.ID), blob)
	})
}

func (s *Store) GetPlaylistMeta(id string) (*domain.Playlist, bool) {
	var p domain.Playlist
	found := false
	s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketMeta).Get([]byte(id))
		if v == nil {
			return nil
		}
		if err := msgpack.Unmarshal(v, &p); err == nil {
			found = true
		}
		return nil
	})
	if !found {
		return nil, false
	}
	return &p, true
}

func (s *Store) ListPlaylistMeta() ([]*domain.Playlist, error) {
	var out []*domain.Playlist
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMeta).ForEach(func(k, v []byte) error {
			var p domain.Playlist
			if err := msgpack.Unmarshal(v, &p); err != nil {
				return err
			}
			out = append(out, &p)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DeletePlaylistMeta(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMeta).Delete([]byte(id))
	})
}

func (s *Store) SavePreferences(p *domain.Preferences) error {
	blob, err := msgpack.Marshal(p)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPrefs).Put([]byte(prefsKey), blob)
	})
}

func (s *Store) GetPreferences() (*domain.Preferences, bool) {
	var p domain.Preferences
	found := false
	s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketPrefs).Get([]byte(prefsKey))
		if v == nil {
			return nil
		}
		if err := msgpack.Unmarshal(v, &p); err == nil {
			found = true
		}
		return nil
	})
	if !found {
		return nil, false
	}
	return &p, true
}
