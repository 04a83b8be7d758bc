package preview

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/lepinkainen/feed-timeline/pkg/feed"
)

// ViewMode represents the current view mode
type ViewMode int

// View modes for the preview TUI
const (
	ListViewMode ViewMode = iota
	DetailViewMode
	EntryViewMode
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("12")).Bold(true)
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Model represents the Bubble Tea model for the preview TUI
type Model struct {
	items         feed.Timeline
	title         string
	cursor        int
	viewMode      ViewMode
	width         int
	height        int
	selectedIndex int
	now           func() time.Time
}

// NewModel creates a new preview model
func NewModel(items feed.Timeline, title string) Model {
	return Model{
		items:         items,
		title:         title,
		viewMode:      ListViewMode,
		selectedIndex: -1,
		now:           time.Now,
	}
}

// Cursor returns the index of the highlighted item
func (m Model) Cursor() int {
	return m.cursor
}

// Mode returns the active view mode
func (m Model) Mode() ViewMode {
	return m.viewMode
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch m.viewMode {
		case ListViewMode:
			return m.updateListView(msg)
		case DetailViewMode, EntryViewMode:
			return m.updateDetailView(msg)
		}
	}

	return m, nil
}

// updateListView handles key presses in list view mode
func (m Model) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}

	case "home", "g":
		m.cursor = 0

	case "end", "G":
		if len(m.items) > 0 {
			m.cursor = len(m.items) - 1
		}

	case "enter":
		m.selectedIndex = m.cursor
		m.viewMode = DetailViewMode

	case "x":
		m.selectedIndex = m.cursor
		m.viewMode = EntryViewMode
	}

	return m, nil
}

// updateDetailView handles key presses in detail and entry view modes
func (m Model) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "esc":
		m.viewMode = ListViewMode

	case "x":
		if m.viewMode == DetailViewMode {
			m.viewMode = EntryViewMode
		} else {
			m.viewMode = DetailViewMode
		}
	}

	return m, nil
}

// View implements tea.Model
func (m Model) View() string {
	switch m.viewMode {
	case ListViewMode:
		return m.renderListView()
	case DetailViewMode:
		return m.renderDetailView()
	case EntryViewMode:
		return m.renderEntryView()
	}
	return ""
}

// visibleRange keeps the cursor near the middle of the screen when the list overflows
func (m Model) visibleRange() (int, int) {
	start, end := 0, len(m.items)
	if m.height <= 0 {
		return start, end
	}

	maxVisible := max(m.height-6, 1)
	if maxVisible >= len(m.items) {
		return start, end
	}

	start = max(m.cursor-maxVisible/2, 0)
	end = start + maxVisible
	if end > len(m.items) {
		end = len(m.items)
		start = max(end-maxVisible, 0)
	}
	return start, end
}

// renderListView renders the list view
func (m Model) renderListView() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("Timeline Preview - %s (%d items)", m.title, len(m.items))))
	b.WriteString("\n\n")

	start, end := m.visibleRange()
	for i := start; i < end; i++ {
		line := FormatCompactListItem(i, m.items[i])
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("→ " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(footerStyle.Render("↑/↓ or j/k: navigate • enter: view details • x: atom entry • q: quit"))

	return b.String()
}

// selected returns the item opened from the list
func (m Model) selected() (feed.Item, bool) {
	if m.selectedIndex < 0 || m.selectedIndex >= len(m.items) {
		return feed.Item{}, false
	}
	return m.items[m.selectedIndex], true
}

// renderDetailView renders the detail view
func (m Model) renderDetailView() string {
	item, ok := m.selected()
	if !ok {
		return "No item selected"
	}

	var b strings.Builder
	b.WriteString(FormatDetailedItem(item, m.now()))
	b.WriteString("\n")
	b.WriteString(footerStyle.Render("esc: back to list • x: toggle atom entry • q: quit"))

	return b.String()
}

// renderEntryView renders the item as an Atom entry
func (m Model) renderEntryView() string {
	item, ok := m.selected()
	if !ok {
		return "No item selected"
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("Atom Entry Preview"))
	b.WriteString("\n\n")
	b.WriteString(FormatAtomEntry(item))
	b.WriteString("\n")
	b.WriteString(footerStyle.Render("esc: back to list • x: toggle detail view • q: quit"))

	return b.String()
}

// PrintList writes the compact list without any terminal control sequences
func PrintList(w io.Writer, items feed.Timeline) error {
	for i, item := range items {
		if _, err := fmt.Fprintln(w, FormatCompactListItem(i, item)); err != nil {
			return fmt.Errorf("failed to write preview line: %w", err)
		}
	}
	return nil
}

// Run starts the Bubble Tea program, or prints a plain list when stdout is not a terminal
func Run(items feed.Timeline, title string) error {
	if len(items) == 0 {
		fmt.Println("No items to preview")
		return nil
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return PrintList(os.Stdout, items)
	}

	p := tea.NewProgram(NewModel(items, title), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
