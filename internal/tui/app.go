// Package tui is the interactive catalog browser.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkoski/teleguide/internal/catalog"
	"github.com/pkoski/teleguide/internal/domain"
	"github.com/sahilm/fuzzy"
)

// Pane identifies which panel has keyboard focus
type Pane int

const (
	PaneSidebar Pane = iota
	PaneList
)

// InputMode identifies what a visible text input is for
type InputMode int

const (
	InputNone InputMode = iota
	InputFilter
	InputSearch
)

const (
	sidebarWidth = 32
	chromeHeight = 2 // header + footer
	loadAhead    = 10
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	paneStyle     = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("238"))
	focusedPane   = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("62"))
)

// recordItems adapts records for fuzzy filtering
type recordItems []domain.Record

func (r recordItems) String(i int) string { return r[i].Name }
func (r recordItems) Len() int            { return len(r) }

// Model is the main Bubble Tea model for the browser
type Model struct {
	Session *catalog.Session
	Loader  *catalog.Loader

	// Navigation
	ContentType int // index into domain.ContentTypes
	Categories  []domain.Category
	CatCursor   int
	RecCursor   int
	Focus       Pane

	// Filter / search
	Input      textinput.Model
	InputMode  InputMode
	FilterText string
	SearchHits []domain.Record
	InSearch   bool

	// UI state
	Spinner     spinner.Model
	Width       int
	Height      int
	StatusText  string
	StatusIsErr bool
}

// NewModel creates the browser model.
func NewModel(session *catalog.Session) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	ti := textinput.New()
	ti.CharLimit = 64

	return Model{
		Session: session,
		Loader:  session.Loader(),
		Spinner: sp,
		Input:   ti,
	}
}

func (m Model) contentType() domain.ContentType {
	return domain.ContentTypes[m.ContentType]
}

func (m Model) loadKey() catalog.LoadKey {
	p, ok := m.Session.DefaultPlaylist()
	if !ok {
		return catalog.LoadKey{}
	}
	key := catalog.LoadKey{PlaylistID: p.ID, ContentType: m.contentType()}
	if len(m.Categories) > 0 && m.CatCursor < len(m.Categories) {
		key.CategoryID = m.Categories[m.CatCursor].ID
	}
	return key
}

// Init starts category loading for the first content type.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		LoadCategoriesCmd(m.Session, m.contentType()),
		m.Spinner.Tick,
	)
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if m.InputMode != InputNone {
			return m.updateInput(msg)
		}
		return m.updateKeys(msg)

	case CategoriesLoadedMsg:
		if msg.ContentType != m.contentType() {
			return m, nil
		}
		m.Categories = msg.Categories
		m.CatCursor = 0
		m.RecCursor = 0
		return m, EnsureVisibleCmd(m.Loader, m.loadKey())

	case RecordsLoadedMsg:
		// Records are pulled from the loader at render time.
		return m, nil

	case SearchResultsMsg:
		m.InSearch = true
		m.SearchHits = msg.Records
		m.RecCursor = 0
		m.Focus = PaneList
		m.StatusText = fmt.Sprintf("%d results for %q", len(msg.Records), msg.Query)
		m.StatusIsErr = false
		return m, ClearStatusCmd(4 * time.Second)

	case StatusMsg:
		m.StatusText = msg.Message
		m.StatusIsErr = msg.IsError
		return m, ClearStatusCmd(4 * time.Second)

	case ClearStatusMsg:
		m.StatusText = ""
		m.StatusIsErr = false
		return m, nil

	case ErrMsg:
		m.StatusText = msg.Error()
		m.StatusIsErr = true
		return m, ClearStatusCmd(6 * time.Second)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "tab":
		m.ContentType = (m.ContentType + 1) % len(domain.ContentTypes)
		m.Categories = nil
		m.CatCursor = 0
		m.RecCursor = 0
		m.InSearch = false
		m.FilterText = ""
		return m, LoadCategoriesCmd(m.Session, m.contentType())

	case "left", "h":
		m.Focus = PaneSidebar
		return m, nil

	case "right", "l", "enter":
		m.Focus = PaneList
		return m, EnsureVisibleCmd(m.Loader, m.loadKey())

	case "up", "k":
		return m.moveCursor(-1)

	case "down", "j":
		return m.moveCursor(1)

	case "/":
		m.InputMode = InputFilter
		m.Input.Placeholder = "filter loaded records"
		m.Input.SetValue(m.FilterText)
		m.Input.Focus()
		return m, textinput.Blink

	case "s":
		m.InputMode = InputSearch
		m.Input.Placeholder = "search catalog"
		m.Input.SetValue("")
		m.Input.Focus()
		return m, textinput.Blink

	case "esc":
		if m.InSearch {
			m.InSearch = false
			m.SearchHits = nil
			m.RecCursor = 0
		}
		m.FilterText = ""
		return m, nil

	case "r":
		m.Loader.Invalidate(m.loadKey())
		return m, EnsureVisibleCmd(m.Loader, m.loadKey())
	}

	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.InputMode = InputNone
		m.Input.Blur()
		return m, nil

	case "enter":
		value := strings.TrimSpace(m.Input.Value())
		mode := m.InputMode
		m.InputMode = InputNone
		m.Input.Blur()
		if mode == InputFilter {
			m.FilterText = value
			m.RecCursor = 0
			return m, nil
		}
		if value == "" {
			return m, nil
		}
		return m, SearchCmd(m.Session, value)
	}

	var cmd tea.Cmd
	m.Input, cmd = m.Input.Update(msg)
	return m, cmd
}

func (m Model) moveCursor(delta int) (tea.Model, tea.Cmd) {
	if m.Focus == PaneSidebar {
		next := m.CatCursor + delta
		if next < 0 || next >= len(m.Categories) {
			return m, nil
		}
		m.CatCursor = next
		m.RecCursor = 0
		m.InSearch = false
		return m, EnsureVisibleCmd(m.Loader, m.loadKey())
	}

	records := m.visibleRecords()
	next := m.RecCursor + delta
	if next < 0 || next >= len(records) {
		return m, nil
	}
	m.RecCursor = next

	// Fetch the next chunk before the cursor reaches the end of what is
	// loaded. Duplicate triggers coalesce inside the loader.
	if !m.InSearch && m.FilterText == "" {
		state := m.Loader.State(m.loadKey())
		if state.HasMore && m.RecCursor >= len(records)-loadAhead {
			return m, LoadMoreCmd(m.Loader, m.loadKey())
		}
	}
	return m, nil
}

// visibleRecords returns what the list pane should show: search hits, a fuzzy
// filtered view, or the loader's records.
func (m Model) visibleRecords() []domain.Record {
	if m.InSearch {
		return m.SearchHits
	}
	records := m.Loader.Records(m.loadKey())
	if m.FilterText == "" {
		return records
	}
	matches := fuzzy.FindFrom(m.FilterText, recordItems(records))
	out := make([]domain.Record, 0, len(matches))
	for _, match := range matches {
		out = append(out, records[match.Index])
	}
	return out
}

// View renders the browser
func (m Model) View() string {
	if m.Width == 0 {
		return "loading..."
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, m.viewSidebar(), m.viewList())
	return lipgloss.JoinVertical(lipgloss.Left, m.viewHeader(), body, m.viewFooter())
}

func (m Model) viewHeader() string {
	parts := make([]string, 0, len(domain.ContentTypes))
	for i, t := range domain.ContentTypes {
		label := string(t)
		if i == m.ContentType {
			label = selectedStyle.Render(label)
		} else {
			label = dimStyle.Render(label)
		}
		parts = append(parts, label)
	}
	title := titleStyle.Render("teleguide")
	return title + "  " + strings.Join(parts, " | ")
}

func (m Model) viewSidebar() string {
	height := m.listHeight()
	var b strings.Builder

	start := 0
	if m.CatCursor >= height {
		start = m.CatCursor - height + 1
	}
	for i := start; i < len(m.Categories) && i < start+height; i++ {
		c := m.Categories[i]
		line := fmt.Sprintf("%s (%d)", c.Name, c.MemberCount)
		if len(line) > sidebarWidth-4 {
			line = line[:sidebarWidth-4]
		}
		if i == m.CatCursor {
			line = selectedStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}

	style := paneStyle
	if m.Focus == PaneSidebar {
		style = focusedPane
	}
	return style.Width(sidebarWidth).Height(height).Render(b.String())
}

func (m Model) viewList() string {
	height := m.listHeight()
	width := m.Width - sidebarWidth - 4
	records := m.visibleRecords()
	state := m.Loader.State(m.loadKey())

	var b strings.Builder
	start := 0
	if m.RecCursor >= height {
		start = m.RecCursor - height + 1
	}
	for i := start; i < len(records) && i < start+height; i++ {
		r := records[i]
		line := r.Name
		if code := r.EpisodeCode(); code != "" {
			line += " " + dimStyle.Render(code)
		}
		if i == m.RecCursor {
			line = selectedStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}

	if len(records) == 0 {
		switch state.Status {
		case catalog.StatusLoading:
			b.WriteString(m.Spinner.View() + " loading...")
		case catalog.StatusError:
			b.WriteString(errorStyle.Render("load failed: " + state.Err.Error()))
		default:
			b.WriteString(dimStyle.Render("no records"))
		}
	}

	style := paneStyle
	if m.Focus == PaneList {
		style = focusedPane
	}
	return style.Width(width).Height(height).Render(b.String())
}

func (m Model) viewFooter() string {
	if m.InputMode != InputNone {
		return m.Input.View()
	}
	if m.StatusText != "" {
		if m.StatusIsErr {
			return errorStyle.Render(m.StatusText)
		}
		return m.StatusText
	}

	state := m.Loader.State(m.loadKey())
	progress := ""
	if state.Total > 0 {
		progress = fmt.Sprintf("  %d/%d loaded", len(m.Loader.Records(m.loadKey())), state.Total)
	}
	if state.Status == catalog.StatusLoading {
		progress += "  " + m.Spinner.View()
	}
	return dimStyle.Render("tab: content type  /: filter  s: search  r: reload  q: quit" + progress)
}

func (m Model) listHeight() int {
	h := m.Height - chromeHeight - 2 // border
	if h < 3 {
		h = 3
	}
	return h
}
