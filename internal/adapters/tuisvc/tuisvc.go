// Package tuisvc provides the real implementation of ports.TUIService.
package tuisvc

import (
	"github.com/rs/zerolog"

	"github.com/mcdonaldj/epubtidy/internal/adapters/osfs"
	"github.com/mcdonaldj/epubtidy/internal/config"
	"github.com/mcdonaldj/epubtidy/internal/discovery"
	"github.com/mcdonaldj/epubtidy/internal/journal"
	"github.com/mcdonaldj/epubtidy/internal/ports"
	"github.com/mcdonaldj/epubtidy/internal/tidy"
)

// Service implements ports.TUIService using real filesystem operations.
type Service struct {
	log zerolog.Logger
}

// New creates a new TUI service. The TUI owns the terminal, so nothing is
// logged by default.
func New() *Service {
	return &Service{log: zerolog.Nop()}
}

// NewWithLogger creates a TUI service that logs transactions to log.
func NewWithLogger(log zerolog.Logger) *Service {
	return &Service{log: log}
}

// LoadConfig loads the application configuration.
func (s *Service) LoadConfig() (*config.Config, error) {
	return config.Load()
}

// ListBooks returns the books in book_dir with their latest journal entry.
func (s *Service) ListBooks(cfg *config.Config) ([]ports.TUIBookInfo, error) {
	dir, err := config.ExpandPath(cfg.BookDir)
	if err != nil {
		return nil, err
	}

	books, err := discovery.ListBooks(osfs.New(), dir, discovery.Options{
		Exclude: cfg.Exclude,
		Skip:    []string{discovery.SelfName()},
	})
	if err != nil {
		return nil, err
	}

	// A missing or unreadable journal only hides the history columns.
	j := s.history(cfg)

	result := make([]ports.TUIBookInfo, 0, len(books))
	for _, b := range books {
		item := ports.TUIBookInfo{
			Name:    b.Name,
			Path:    b.Path,
			Size:    b.Size,
			ModTime: b.ModTime,
		}
		if j != nil {
			item.Runs = len(j.ForBook(b.Path))
			if latest := j.Latest(b.Path); latest != nil {
				item.LastOutcome = latest.Outcome
				item.LastRun = latest.CreatedAt
			}
		}
		result = append(result, item)
	}
	return result, nil
}

// Clean runs the replace transaction over book.
func (s *Service) Clean(cfg *config.Config, book string) ports.TUICleanResult {
	svc, err := tidy.NewDefaultService(cfg, tidy.WithLogger(s.log))
	if err != nil {
		return ports.TUICleanResult{Status: "failed", Error: err}
	}
	res := svc.Process(book)
	return ports.TUICleanResult{
		Status:    res.Status(),
		Rewritten: len(res.Rewritten),
		Warnings:  len(res.Failures) + len(res.Warnings),
		Error:     res.Err,
	}
}

// Preview dry-runs book and returns the captured changes.
func (s *Service) Preview(cfg *config.Config, book string) (ports.TUIPreview, error) {
	svc, err := tidy.NewDefaultService(cfg, tidy.WithLogger(s.log), tidy.WithDryRun(true))
	if err != nil {
		return ports.TUIPreview{}, err
	}
	res := svc.Process(book)
	if res.Err != nil {
		return ports.TUIPreview{}, res.Err
	}

	p := ports.TUIPreview{Book: book, Outcome: res.Outcome.String(), Warnings: res.Warnings}
	for _, c := range res.Changes {
		p.Changes = append(p.Changes, ports.TUIChange{Path: c.Path, Before: c.Before, After: c.After})
	}
	for _, f := range res.Failures {
		p.Warnings = append(p.Warnings, f.Error())
	}
	return p, nil
}

func (s *Service) history(cfg *config.Config) *journal.Journal {
	if !cfg.Journal.Enabled {
		return nil
	}
	path := cfg.Journal.Path
	if path == "" {
		path = tidy.DefaultJournalPath
	}
	path, err := config.ExpandPath(path)
	if err != nil {
		return nil
	}
	j, err := journal.Load(path)
	if err != nil {
		s.log.Debug().Err(err).Msg("journal unavailable")
		return nil
	}
	return j
}

// Compile-time check that Service implements ports.TUIService.
var _ ports.TUIService = (*Service)(nil)
