package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkoski/teleguide/internal/catalog"
	"github.com/pkoski/teleguide/internal/domain"
)

const cmdTimeout = 30 * time.Second

// LoadCategoriesCmd fetches the category list for one content type.
func LoadCategoriesCmd(session *catalog.Session, t domain.ContentType) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
		defer cancel()
		cats, err := session.GetCategories(ctx, t)
		if err != nil {
			return ErrMsg{Err: err, Context: "load categories"}
		}
		return CategoriesLoadedMsg{ContentType: t, Categories: cats}
	}
}

// EnsureVisibleCmd triggers the first chunk load for a key.
func EnsureVisibleCmd(loader *catalog.Loader, key catalog.LoadKey) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
		defer cancel()
		if err := loader.EnsureVisible(ctx, key); err != nil {
			return ErrMsg{Err: err, Context: "load records"}
		}
		return RecordsLoadedMsg{Key: key}
	}
}

// LoadMoreCmd fetches the next chunk for a key.
func LoadMoreCmd(loader *catalog.Loader, key catalog.LoadKey) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
		defer cancel()
		if err := loader.LoadMore(ctx, key); err != nil {
			return ErrMsg{Err: err, Context: "load more records"}
		}
		return RecordsLoadedMsg{Key: key}
	}
}

// SearchCmd runs a catalog-wide name search.
func SearchCmd(session *catalog.Session, query string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
		defer cancel()
		res := session.SearchContent(ctx, query, 200)
		if !res.Success {
			return StatusMsg{Message: res.Message, IsError: true}
		}
		return SearchResultsMsg{Query: query, Records: res.Records}
	}
}

// TickCmd emits a TickMsg after the given interval.
func TickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return TickMsg{}
	})
}

// ClearStatusCmd clears the status line after a delay.
func ClearStatusCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}
