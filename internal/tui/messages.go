package tui

import (
	"github.com/pkoski/teleguide/internal/catalog"
	"github.com/pkoski/teleguide/internal/domain"
)

// Message types for the TUI

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// CategoriesLoadedMsg signals that the sidebar categories are ready
type CategoriesLoadedMsg struct {
	ContentType domain.ContentType
	Categories  []domain.Category
}

// RecordsLoadedMsg signals that a chunk finished loading for a key
type RecordsLoadedMsg struct {
	Key catalog.LoadKey
}

// SearchResultsMsg signals that search results are ready
type SearchResultsMsg struct {
	Query   string
	Records []domain.Record
}

// StatusMsg sets a temporary status message
type StatusMsg struct {
	Message string
	IsError bool
}

// ClearStatusMsg clears the status bar message
type ClearStatusMsg struct{}

// TickMsg drives the loading spinner
type TickMsg struct{}
