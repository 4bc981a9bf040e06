package domain

import "errors"

// Sentinel errors for catalog operations
var (
	// ErrEngineUnavailable indicates the primary indexed store failed to
	// initialize; callers route queries to the fallback store.
	ErrEngineUnavailable = errors.New("indexed store engine unavailable")

	// ErrFetchFailed indicates the catalog provider was unreachable or
	// returned an unsuccessful response.
	ErrFetchFailed = errors.New("catalog fetch failed")

	// ErrIngestFailed indicates normalization or a store write failed; the
	// previous snapshot remains queryable.
	ErrIngestFailed = errors.New("catalog ingest failed")

	// ErrPlaylistNotFound indicates the requested playlist is not known to
	// the session.
	ErrPlaylistNotFound = errors.New("playlist not found")

	// ErrPlaylistLimit indicates the caller-supplied playlist limit would be
	// exceeded by accepting another playlist.
	ErrPlaylistLimit = errors.New("playlist limit reached")

	// ErrQueryTooShort indicates a search query below the minimum length;
	// rejected locally without hitting the store.
	ErrQueryTooShort = errors.New("search query too short")
)
