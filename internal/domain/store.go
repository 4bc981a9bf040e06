package domain

import "context"

// CatalogStore is the query surface shared by the primary indexed store, the
// fallback key-value store, the engine router, and the result cache. Both
// backends must be observably equivalent for all four read operations.
type CatalogStore interface {
	// ReplaceAll atomically discards the previous snapshot for a playlist
	// and installs the new one. All-or-nothing: a failure partway through
	// leaves the previous snapshot intact.
	ReplaceAll(ctx context.Context, playlistID string, bundle *Bundle) error

	// Query returns an ordered page of records. OrderBy defaults to name
	// ascending; ties are broken by id ascending for determinism.
	Query(ctx context.Context, playlistID string, t ContentType, opts QueryOptions) ([]Record, error)

	// Count returns the number of records of type t, optionally narrowed to
	// one category (empty categoryID counts all).
	Count(ctx context.Context, playlistID string, t ContentType, categoryID string) (int, error)

	// Categories returns the categories of type t with live member counts
	// computed from the stored records, never cached counters.
	Categories(ctx context.Context, playlistID string, t ContentType) ([]Category, error)

	// DeletePlaylist removes every record and category belonging to the
	// playlist. Deleting an unknown playlist is a no-op.
	DeletePlaylist(ctx context.Context, playlistID string) error

	Close() error
}

// MetaStore persists playlist metadata and session preferences. This small
// durable state lives in the key-value layer regardless of which query
// backend is active.
type MetaStore interface {
	SavePlaylistMeta(p *Playlist) error
	GetPlaylistMeta(id string) (*Playlist, bool)
	ListPlaylistMeta() ([]*Playlist, error)
	DeletePlaylistMeta(id string) error

	SavePreferences(p *Preferences) error
	GetPreferences() (*Preferences, bool)
}

// Provider fetches a raw catalog snapshot from the remote catalog provider.
type Provider interface {
	FetchCatalog(ctx context.Context, cfg PlaylistConfig) (*RawCatalog, error)
}
