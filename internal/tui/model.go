package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"gitlab.com/tozd/go/errors"

	"github.com/mcdonaldj/epubtidy/internal/adapters/tuisvc"
	"github.com/mcdonaldj/epubtidy/internal/config"
	"github.com/mcdonaldj/epubtidy/internal/discovery"
	"github.com/mcdonaldj/epubtidy/internal/ports"
	"github.com/mcdonaldj/epubtidy/internal/preview"
	"github.com/mcdonaldj/epubtidy/internal/walker"
)

// View represents the current view state
type View int

const (
	BooksView    View = iota
	PreviewView       // Entries a clean would rewrite
	FileDiffView      // Line diff of one entry
)

// BookItem represents a book in the list
type BookItem struct {
	Name        string
	Path        string
	Size        int64
	Runs        int
	LastOutcome string
	LastRun     time.Time
}

// Model is the main TUI model
type Model struct {
	config   *config.Config
	service  ports.TUIService
	view     View
	width    int
	height   int
	quitting bool
	busy     bool

	// Books view
	books      []BookItem
	bookCursor int

	// Preview view
	preview       *ports.TUIPreview
	previewCursor int

	// File diff view
	fileDiff       *preview.FileDiff
	fileDiffScroll int

	// Status message
	statusMsg string
	statusErr bool
}

// Key bindings
type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Enter    key.Binding
	Back     key.Binding
	Clean    key.Binding
	CleanAll key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "preview"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc", "backspace"),
		key.WithHelp("esc", "back"),
	),
	Clean: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "clean"),
	),
	CleanAll: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "clean all"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// NewModel creates a new TUI model backed by the real service.
func NewModel() (*Model, error) {
	return NewModelWithService(tuisvc.New())
}

// NewModelWithService loads the config and books through svc.
func NewModelWithService(svc ports.TUIService) (*Model, error) {
	cfg, err := svc.LoadConfig()
	if err != nil {
		return nil, errors.Errorf("loading config: %w", err)
	}

	m := NewModelWithConfig(cfg, svc)
	if err := m.loadBooks(); err != nil {
		return nil, err
	}
	return m, nil
}

// NewModelWithConfig creates a model without loading books.
func NewModelWithConfig(cfg *config.Config, svc ports.TUIService) *Model {
	return &Model{
		config:  cfg,
		service: svc,
		view:    BooksView,
	}
}

// loadBooks loads all books with their journal status
func (m *Model) loadBooks() error {
	infos, err := m.service.ListBooks(m.config)
	if err != nil {
		return err
	}

	m.books = nil
	for _, b := range infos {
		m.books = append(m.books, BookItem{
			Name:        b.Name,
			Path:        b.Path,
			Size:        b.Size,
			Runs:        b.Runs,
			LastOutcome: b.LastOutcome,
			LastRun:     b.LastRun,
		})
	}
	if m.bookCursor >= len(m.books) {
		m.bookCursor = len(m.books) - 1
	}
	if m.bookCursor < 0 {
		m.bookCursor = 0
	}
	return nil
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case statusMsg:
		m.busy = false
		m.statusMsg = msg.msg
		m.statusErr = msg.err
		// A clean invalidates the preview it was started from
		if m.view == PreviewView {
			m.view = BooksView
			m.preview = nil
			m.previewCursor = 0
		}
		// Reload data to reflect changes
		_ = m.loadBooks()
		return m, nil

	case previewMsg:
		m.busy = false
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Preview failed: %v", msg.err)
			m.statusErr = true
			m.view = BooksView
		} else {
			m.preview = msg.preview
			m.previewCursor = 0
			m.view = PreviewView
			m.statusMsg = ""
		}
		return m, nil

	case tea.KeyMsg:
		// Clear status on any key
		m.statusMsg = ""
		m.statusErr = false

		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case m.busy:
			m.statusMsg = "Working..."

		case key.Matches(msg, keys.Up):
			m.moveCursor(-1)

		case key.Matches(msg, keys.Down):
			m.moveCursor(1)

		case key.Matches(msg, keys.Enter):
			switch {
			case m.view == BooksView && len(m.books) > 0:
				m.busy = true
				return m, m.loadPreview(m.books[m.bookCursor].Path)
			case m.view == PreviewView && m.preview != nil && len(m.preview.Changes) > 0:
				m.openFileDiff(m.preview.Changes[m.previewCursor])
			}

		case key.Matches(msg, keys.Back):
			switch m.view {
			case PreviewView:
				m.view = BooksView
				m.preview = nil
				m.previewCursor = 0
			case FileDiffView:
				m.view = PreviewView
				m.fileDiff = nil
				m.fileDiffScroll = 0
			}

		case key.Matches(msg, keys.Clean):
			if m.view != FileDiffView {
				m.busy = true
				return m, m.runClean()
			}

		case key.Matches(msg, keys.CleanAll):
			if m.view == BooksView {
				m.busy = true
				return m, m.runCleanAll()
			}
		}
	}

	return m, nil
}

func (m *Model) moveCursor(delta int) {
	switch m.view {
	case BooksView:
		m.bookCursor = clamp(m.bookCursor+delta, len(m.books)-1)
	case PreviewView:
		if m.preview != nil {
			m.previewCursor = clamp(m.previewCursor+delta, len(m.preview.Changes)-1)
		}
	case FileDiffView:
		if m.fileDiff != nil {
			maxScroll := len(m.fileDiff.Lines) - (m.height - 10)
			m.fileDiffScroll = clamp(m.fileDiffScroll+delta, maxScroll)
		}
	}
}

// clamp bounds v to [0, max]; a negative max yields 0.
func clamp(v, max int) int {
	if v > max {
		v = max
	}
	if v < 0 {
		v = 0
	}
	return v
}

func (m *Model) openFileDiff(c ports.TUIChange) {
	d := preview.Compute(walker.Change{Path: c.Path, Before: c.Before, After: c.After})
	m.fileDiff = &d
	m.fileDiffScroll = 0
	m.view = FileDiffView
}

// selectedBook returns the book the current view acts on.
func (m *Model) selectedBook() (string, string) {
	if m.view == PreviewView && m.preview != nil {
		for _, b := range m.books {
			if b.Path == m.preview.Book {
				return b.Name, b.Path
			}
		}
	}
	if m.view == BooksView && len(m.books) > 0 {
		b := m.books[m.bookCursor]
		return b.Name, b.Path
	}
	return "", ""
}

type statusMsg struct {
	msg string
	err bool
}

type previewMsg struct {
	preview *ports.TUIPreview
	err     error
}

func (m *Model) loadPreview(book string) tea.Cmd {
	return func() tea.Msg {
		p, err := m.service.Preview(m.config, book)
		if err != nil {
			return previewMsg{err: err}
		}
		return previewMsg{preview: &p}
	}
}

func (m *Model) runClean() tea.Cmd {
	name, path := m.selectedBook()
	return func() tea.Msg {
		if path == "" {
			return statusMsg{err: true, msg: "No book selected"}
		}

		result := m.service.Clean(m.config, path)
		switch {
		case result.Error != nil:
			return statusMsg{err: true, msg: fmt.Sprintf("Clean failed: %v", result.Error)}
		case result.Rewritten == 0:
			return statusMsg{msg: fmt.Sprintf("%s: nothing to clean", name)}
		}
		msg := fmt.Sprintf("✓ Cleaned %s (%d %s rewritten)", name, result.Rewritten, plural(result.Rewritten, "entry", "entries"))
		if result.Warnings > 0 {
			msg += fmt.Sprintf(", %d %s", result.Warnings, plural(result.Warnings, "warning", "warnings"))
		}
		return statusMsg{msg: msg}
	}
}

func (m *Model) runCleanAll() tea.Cmd {
	books := make([]BookItem, len(m.books))
	copy(books, m.books)
	return func() tea.Msg {
		if len(books) == 0 {
			return statusMsg{err: true, msg: "No books to clean"}
		}

		changed, failed := 0, 0
		var firstErr error
		for _, b := range books {
			result := m.service.Clean(m.config, b.Path)
			switch {
			case result.Error != nil:
				failed++
				if firstErr == nil {
					firstErr = errors.Errorf("%s: %w", b.Name, result.Error)
				}
			case result.Rewritten > 0:
				changed++
			}
		}

		msg := fmt.Sprintf("Cleaned %d books: %d changed, %d failed", len(books), changed, failed)
		if firstErr != nil {
			return statusMsg{err: true, msg: msg + " (" + firstErr.Error() + ")"}
		}
		return statusMsg{msg: "✓ " + msg}
	}
}

// View renders the UI
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.view {
	case BooksView:
		content = m.renderBooksView()
	case PreviewView:
		content = m.renderPreviewView()
	case FileDiffView:
		content = m.renderFileDiffView()
	}

	return appStyle.Render(content)
}

func (m *Model) visibleHeight() int {
	h := m.height - 10
	if h < 5 {
		h = 5
	}
	return h
}

func (m *Model) renderStatus(b *strings.Builder) {
	b.WriteString("\n")
	if m.statusMsg != "" {
		if m.statusErr {
			b.WriteString(errorBadge.Render(m.statusMsg))
		} else {
			b.WriteString(successBadge.Render(m.statusMsg))
		}
	} else if m.busy {
		b.WriteString(dimStyle.Render("Working..."))
	}
	b.WriteString("\n")
}

func (m *Model) renderBooksView() string {
	var b strings.Builder

	// Title
	b.WriteString(titleStyle.Render(" 📚 epubtidy "))
	b.WriteString("\n\n")

	if len(m.books) == 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  No books found in %s", m.config.BookDir)))
		b.WriteString("\n")
	} else {
		header := fmt.Sprintf("  %-36s %10s %6s %-10s %s",
			"BOOK", "SIZE", "RUNS", "LAST", "WHEN")
		b.WriteString(dimStyle.Render(header))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(strings.Repeat("─", 78)))
		b.WriteString("\n")
	}

	visibleHeight := m.visibleHeight()
	start := 0
	if m.bookCursor >= visibleHeight {
		start = m.bookCursor - visibleHeight + 1
	}

	for i := start; i < len(m.books) && i < start+visibleHeight; i++ {
		bk := m.books[i]
		cursor := "  "
		style := normalStyle
		if i == m.bookCursor {
			cursor = "▸ "
			style = selectedStyle
		}

		last := bk.LastOutcome
		if last == "" {
			last = "-"
		}
		when := "-"
		if !bk.LastRun.IsZero() {
			when = relativeTime(bk.LastRun)
		}

		line := fmt.Sprintf("%s%-36s %10s %6d ",
			cursor, truncate(bk.Name, 36), discovery.FormatSize(bk.Size), bk.Runs)
		b.WriteString(style.Render(line))
		b.WriteString(outcomeStyle(bk.LastOutcome).Render(fmt.Sprintf("%-10s", last)))
		b.WriteString(style.Render(" " + when))
		b.WriteString("\n")
	}

	// Pad to fixed height
	for i := len(m.books); i < visibleHeight; i++ {
		b.WriteString("\n")
	}

	m.renderStatus(&b)

	help := "[↑/↓] navigate  [enter] preview  [c] clean  [a] clean all  [q] quit"
	b.WriteString(helpStyle.Render(help))

	return b.String()
}

func (m *Model) renderPreviewView() string {
	var b strings.Builder

	if m.preview == nil {
		return "Loading..."
	}

	name, _ := m.selectedBook()
	if name == "" {
		name = m.preview.Book
	}
	b.WriteString(titleStyle.Render(fmt.Sprintf(" 🔍 %s ", name)))
	b.WriteString("\n\n")

	summary := fmt.Sprintf("  %s   %d %s would change",
		m.preview.Outcome, len(m.preview.Changes), plural(len(m.preview.Changes), "entry", "entries"))
	b.WriteString(dimStyle.Render(summary))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(strings.Repeat("─", 70)))
	b.WriteString("\n")

	if len(m.preview.Changes) == 0 {
		b.WriteString(dimStyle.Render("  Nothing to clean"))
		b.WriteString("\n")
	}

	visibleHeight := m.visibleHeight()
	start := 0
	if m.previewCursor >= visibleHeight {
		start = m.previewCursor - visibleHeight + 1
	}

	for i := start; i < len(m.preview.Changes) && i < start+visibleHeight; i++ {
		c := m.preview.Changes[i]
		cursor := "  "
		style := normalStyle
		if i == m.previewCursor {
			cursor = "▸ "
			style = selectedStyle
		}
		removed := len(preview.Removed(c.Before, c.After))
		line := fmt.Sprintf("%sM %-50s %s", cursor, truncate(c.Path, 50),
			fmt.Sprintf("-%d %s", removed, plural(removed, "declaration", "declarations")))
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}

	for _, w := range m.preview.Warnings {
		b.WriteString(errorBadge.Render("  ! " + w))
		b.WriteString("\n")
	}

	for i := len(m.preview.Changes); i < visibleHeight; i++ {
		b.WriteString("\n")
	}

	m.renderStatus(&b)

	help := "[↑/↓] navigate  [enter] view diff  [c] clean  [esc] back  [q] quit"
	b.WriteString(helpStyle.Render(help))

	return b.String()
}

func (m *Model) renderFileDiffView() string {
	var b strings.Builder

	if m.fileDiff == nil {
		return "Loading..."
	}

	b.WriteString(titleStyle.Render(fmt.Sprintf(" 📄 %s ", m.fileDiff.Path)))
	b.WriteString("\n")
	header := fmt.Sprintf("  %-35s │ %-35s", "original", "cleaned")
	b.WriteString(dimStyle.Render(header))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(strings.Repeat("─", 75)))
	b.WriteString("\n")

	switch {
	case m.fileDiff.IsBinary:
		b.WriteString(dimStyle.Render("  Binary content - diff not available"))
		b.WriteString("\n")
	case len(m.fileDiff.Lines) == 0:
		b.WriteString(dimStyle.Render("  No differences"))
		b.WriteString("\n")
	default:
		visibleHeight := m.height - 12
		if visibleHeight < 5 {
			visibleHeight = 5
		}

		endIdx := m.fileDiffScroll + visibleHeight
		if endIdx > len(m.fileDiff.Lines) {
			endIdx = len(m.fileDiff.Lines)
		}

		for i := m.fileDiffScroll; i < endIdx; i++ {
			line := m.fileDiff.Lines[i]

			ln1, ln2 := "   ", "   "
			if line.LineNum1 > 0 {
				ln1 = fmt.Sprintf("%3d", line.LineNum1)
			}
			if line.LineNum2 > 0 {
				ln2 = fmt.Sprintf("%3d", line.LineNum2)
			}

			content := truncate(line.Content, 60)
			switch line.Type {
			case '+':
				b.WriteString(addedStyle.Render(fmt.Sprintf("%s  + │ %s  + %s", ln1, ln2, content)))
			case '-':
				b.WriteString(deletedStyle.Render(fmt.Sprintf("%s  - │ %s  - %s", ln1, ln2, content)))
			default:
				b.WriteString(dimStyle.Render(fmt.Sprintf("%s    │ %s    %s", ln1, ln2, content)))
			}
			b.WriteString("\n")
		}

		if len(m.fileDiff.Lines) > visibleHeight {
			scrollInfo := fmt.Sprintf("  Lines %d-%d of %d",
				m.fileDiffScroll+1, endIdx, len(m.fileDiff.Lines))
			b.WriteString(dimStyle.Render(scrollInfo))
			b.WriteString("\n")
		}
	}

	m.renderStatus(&b)

	help := "[↑/↓] scroll  [esc] back  [q] quit"
	b.WriteString(helpStyle.Render(help))

	return b.String()
}

// Run starts the TUI
func Run() error {
	m, err := NewModel()
	if err != nil {
		return err
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

// Helper functions
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

func relativeTime(t time.Time) string {
	diff := time.Since(t)
	switch {
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 2")
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
