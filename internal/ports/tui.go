package ports

import (
	"time"

	"github.com/mcdonaldj/epubtidy/internal/config"
)

// TUIBookInfo contains book metadata for display.
type TUIBookInfo struct {
	Name        string
	Path        string
	Size        int64
	ModTime     time.Time
	Runs        int       // journal entries for this book
	LastOutcome string    // "changed", "unchanged", "failed" or "" when never run
	LastRun     time.Time
}

// TUIChange is the before/after text of one entry a clean would rewrite.
type TUIChange struct {
	Path   string
	Before string
	After  string
}

// TUIPreview is the result of a dry run over one book.
type TUIPreview struct {
	Book     string
	Outcome  string
	Changes  []TUIChange
	Warnings []string
}

// TUICleanResult contains the result of cleaning one book.
type TUICleanResult struct {
	Status    string
	Rewritten int
	Warnings  int // entry failures and decoding warnings
	Error     error
}

// TUIService provides operations needed by the TUI.
// This abstraction allows the TUI to be tested without real books.
type TUIService interface {
	// LoadConfig loads the application configuration.
	LoadConfig() (*config.Config, error)

	// ListBooks returns the books in the configured directory with their
	// journal status.
	ListBooks(cfg *config.Config) ([]TUIBookInfo, error)

	// Clean runs the replace transaction over book.
	Clean(cfg *config.Config, book string) TUICleanResult

	// Preview dry-runs book and returns the changes a clean would make.
	Preview(cfg *config.Config, book string) (TUIPreview, error)
}
