package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// ContentType distinguishes catalog content kinds.
type ContentType string

const (
	ContentLive   ContentType = "live"
	ContentVOD    ContentType = "vod"
	ContentSeries ContentType = "series"
)

// ContentTypes lists all content types in canonical order.
var ContentTypes = []ContentType{ContentLive, ContentVOD, ContentSeries}

// Valid reports whether t is one of the known content types.
func (t ContentType) Valid() bool {
	switch t {
	case ContentLive, ContentVOD, ContentSeries:
		return true
	}
	return false
}

// UncategorizedID returns the synthetic category id for records of type t
// that carry no resolvable category.
func UncategorizedID(t ContentType) string {
	return "uncat:" + string(t)
}

// UncategorizedName is the display name of the synthetic category.
const UncategorizedName = "Uncategorized"

// Record is one normalized content item. ID is unique within
// (playlist, content type).
type Record struct {
	ID          string          `json:"id" msgpack:"id"`
	Name        string          `json:"name" msgpack:"name"`
	CategoryID  string          `json:"categoryId" msgpack:"cat"`
	ContentType ContentType     `json:"contentType" msgpack:"type"`
	URL         string          `json:"url" msgpack:"url"`
	LogoURL     string          `json:"logoUrl,omitempty" msgpack:"logo,omitempty"`
	SeasonNum   int             `json:"seasonNum,omitempty" msgpack:"sn,omitempty"`
	EpisodeNum  int             `json:"episodeNum,omitempty" msgpack:"en,omitempty"`
	Added       int64           `json:"added,omitempty" msgpack:"added,omitempty"`
	Raw         json.RawMessage `json:"raw,omitempty" msgpack:"raw,omitempty"`
}

// EpisodeCode returns the formatted episode code (e.g. "S01E05") for series
// records, empty otherwise.
func (r Record) EpisodeCode() string {
	if r.ContentType != ContentSeries || (r.SeasonNum == 0 && r.EpisodeNum == 0) {
		return ""
	}
	return fmt.Sprintf("S%02dE%02d", r.SeasonNum, r.EpisodeNum)
}

// Category is a named grouping of records of one content type. MemberCount is
// derived from the records currently assigned to it, never drifted
// incrementally.
type Category struct {
	ID          string      `json:"categoryId" msgpack:"id"`
	Name        string      `json:"categoryName" msgpack:"name"`
	ContentType ContentType `json:"contentType" msgpack:"type"`
	MemberCount int         `json:"memberCount" msgpack:"count"`
}

// Statistics is an aggregate snapshot computed once per ingest over the full
// normalized set.
type Statistics struct {
	Total       int                 `json:"total" msgpack:"total"`
	PerType     map[ContentType]int `json:"perType" msgpack:"perType"`
	PerCategory map[string]int      `json:"perCategory" msgpack:"perCategory"`
	Dropped     int                 `json:"dropped" msgpack:"dropped"`
}

// Bundle is the canonical output of normalization: everything needed to
// replace a playlist snapshot atomically.
type Bundle struct {
	Records    []Record   `msgpack:"records"`
	Categories []Category `msgpack:"categories"`
	Stats      Statistics `msgpack:"stats"`
}

// PlaylistConfig identifies one provider connection. The composite
// (BaseURL, Username) is the playlist identity.
type PlaylistConfig struct {
	Name     string `json:"name"`
	BaseURL  string `json:"baseUrl"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// ID returns the stable playlist identifier derived from the composite key.
func (c PlaylistConfig) ID() string {
	return c.BaseURL + "|" + c.Username
}

// Playlist is the durable metadata record for one ingested playlist.
type Playlist struct {
	ID       string     `json:"id" msgpack:"id"`
	Name     string     `json:"name" msgpack:"name"`
	BaseURL  string     `json:"baseUrl" msgpack:"baseUrl"`
	Username string     `json:"username" msgpack:"username"`
	Password string     `json:"password" msgpack:"password"`
	Stats    Statistics `json:"statistics" msgpack:"stats"`
	LoadedAt time.Time  `json:"loadedAt" msgpack:"loadedAt"`
}

// Preferences are session-level settings that survive reloads independent of
// catalog size.
type Preferences struct {
	DefaultPlaylistID string `json:"defaultPlaylistId" msgpack:"default"`
	LastSearchQuery   string `json:"lastSearchQuery" msgpack:"lastSearch"`
}

// OrderBy selects the ordering of query results.
type OrderBy string

const (
	// OrderByName orders by name ascending (case-insensitive), ties broken
	// by id ascending. This is the default.
	OrderByName OrderBy = "name"
	// OrderByRecent orders by added timestamp descending, ties broken by id.
	OrderByRecent OrderBy = "recent"
)

// QueryOptions narrows and pages a record query. Zero Limit means a default
// page; both backends honor identical semantics.
type QueryOptions struct {
	CategoryID string
	Search     string // case-insensitive substring match on name
	Limit      int
	Offset     int
	OrderBy    OrderBy
}

// RawCategory is one category entry as delivered by the provider, before
// normalization.
type RawCategory struct {
	ID   string
	Name string
}

// RawStream is one content item as delivered by the provider. Type may be
// empty, in which case the normalizer classifies by name heuristic.
type RawStream struct {
	ID         string
	Name       string
	CategoryID string
	Type       ContentType
	URL        string
	LogoURL    string
	SeasonNum  int
	EpisodeNum int
	Added      int64
	Raw        json.RawMessage
}

// RawCatalog is a full catalog snapshot as fetched from the provider:
// parallel category and stream lists per content type plus account metadata.
type RawCatalog struct {
	UserInfo   UserInfo
	Categories map[ContentType][]RawCategory
	Streams    map[ContentType][]RawStream
}

// UserInfo is provider account metadata attached to a fetch response.
type UserInfo struct {
	Username  string
	Status    string
	ExpiresAt int64
	MaxConns  int
}
