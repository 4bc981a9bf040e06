package storetest

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/pkoski/teleguide/internal/domain"
)

// Fake is an in-memory CatalogStore for wiring tests. Calls are counted and
// any operation can be forced to fail via Fail.
type Fake struct {
	mu      sync.Mutex
	records map[string][]domain.Record   // playlistID -> records
	cats    map[string][]domain.Category // playlistID -> categories

	// Fail, when non-nil, is returned by every operation.
	Fail error

	// Block, when non-nil, is received from at the start of every read so a
	// test can hold a call in flight.
	Block chan struct{}

	QueryCalls   int
	CountCalls   int
	CatCalls     int
	ReplaceCalls int
	DeleteCalls  int
}

// NewFake creates an empty fake store.
func NewFake() *Fake {
	return &Fake{
		records: make(map[string][]domain.Record),
		cats:    make(map[string][]domain.Category),
	}
}

// Seed installs a bundle without counting a ReplaceAll call.
func (f *Fake) Seed(playlistID string, bundle *domain.Bundle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[playlistID] = append([]domain.Record(nil), bundle.Records...)
	f.cats[playlistID] = append([]domain.Category(nil), bundle.Categories...)
}

func (f *Fake) wait() {
	f.mu.Lock()
	block := f.Block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
}

func (f *Fake) ReplaceAll(ctx context.Context, playlistID string, bundle *domain.Bundle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ReplaceCalls++
	if f.Fail != nil {
		return f.Fail
	}
	f.records[playlistID] = append([]domain.Record(nil), bundle.Records...)
	f.cats[playlistID] = append([]domain.Category(nil), bundle.Categories...)
	return nil
}

func (f *Fake) Query(ctx context.Context, playlistID string, t domain.ContentType, opts domain.QueryOptions) ([]domain.Record, error) {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.QueryCalls++
	if f.Fail != nil {
		return nil, f.Fail
	}
	if opts.Limit <= 0 {
		opts.Limit = 50
	}

	search := strings.ToLower(opts.Search)
	var filtered []domain.Record
	for _, r := range f.records[playlistID] {
		if r.ContentType != t {
			continue
		}
		if opts.CategoryID != "" && r.CategoryID != opts.CategoryID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(r.Name), search) {
			continue
		}
		filtered = append(filtered, r)
	}
	sort.Slice(filtered, func(i, j int) bool {
		a, b := strings.ToLower(filtered[i].Name), strings.ToLower(filtered[j].Name)
		if a != b {
			return a < b
		}
		return filtered[i].ID < filtered[j].ID
	})

	if opts.Offset >= len(filtered) {
		return nil, nil
	}
	end := opts.Offset + opts.Limit
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[opts.Offset:end], nil
}

func (f *Fake) Count(ctx context.Context, playlistID string, t domain.ContentType, categoryID string) (int, error) {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CountCalls++
	if f.Fail != nil {
		return 0, f.Fail
	}
	n := 0
	for _, r := range f.records[playlistID] {
		if r.ContentType != t {
			continue
		}
		if categoryID != "" && r.CategoryID != categoryID {
			continue
		}
		n++
	}
	return n, nil
}

func (f *Fake) Categories(ctx context.Context, playlistID string, t domain.ContentType) ([]domain.Category, error) {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CatCalls++
	if f.Fail != nil {
		return nil, f.Fail
	}
	counts := make(map[string]int)
	for _, r := range f.records[playlistID] {
		if r.ContentType == t {
			counts[r.CategoryID]++
		}
	}
	var out []domain.Category
	for _, c := range f.cats[playlistID] {
		if c.ContentType != t {
			continue
		}
		c.MemberCount = counts[c.ID]
		out = append(out, c)
	}
	return out, nil
}

func (f *Fake) DeletePlaylist(ctx context.Context, playlistID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DeleteCalls++
	if f.Fail != nil {
		return f.Fail
	}
	delete(f.records, playlistID)
	delete(f.cats, playlistID)
	return nil
}

func (f *Fake) Close() error { return nil }

// SetFail toggles the forced failure under the fake's lock.
func (f *Fake) SetFail(err error) {
	f.mu.Lock()
	f.Fail = err
	f.mu.Unlock()
}

// Records returns a copy of the stored records for assertions.
func (f *Fake) Records(playlistID string) []domain.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Record(nil), f.records[playlistID]...)
}
