package mocks

import (
	"github.com/mcdonaldj/epubtidy/internal/config"
	"github.com/mcdonaldj/epubtidy/internal/ports"
)

// MockTUIService implements ports.TUIService for testing.
type MockTUIService struct {
	// ConfigResult is the config to return from LoadConfig
	ConfigResult *config.Config
	// ConfigError is the error to return from LoadConfig
	ConfigError error

	// Books is the list of books to return
	Books []ports.TUIBookInfo
	// BooksError is the error to return from ListBooks
	BooksError error

	// CleanResults maps book paths to clean results
	CleanResults map[string]ports.TUICleanResult

	// Previews maps book paths to previews
	Previews map[string]ports.TUIPreview
	// PreviewErrors maps book paths to preview errors
	PreviewErrors map[string]error

	// Call tracking
	LoadConfigCalls int
	ListBooksCalls  int
	CleanCalls      []string
	PreviewCalls    []string
}

// NewMockTUIService creates a new mock TUI service.
func NewMockTUIService() *MockTUIService {
	return &MockTUIService{
		ConfigResult:  &config.Config{},
		CleanResults:  make(map[string]ports.TUICleanResult),
		Previews:      make(map[string]ports.TUIPreview),
		PreviewErrors: make(map[string]error),
	}
}

// LoadConfig loads the application configuration.
func (m *MockTUIService) LoadConfig() (*config.Config, error) {
	m.LoadConfigCalls++
	if m.ConfigError != nil {
		return nil, m.ConfigError
	}
	return m.ConfigResult, nil
}

// ListBooks returns the configured books.
func (m *MockTUIService) ListBooks(cfg *config.Config) ([]ports.TUIBookInfo, error) {
	m.ListBooksCalls++
	if m.BooksError != nil {
		return nil, m.BooksError
	}
	return m.Books, nil
}

// Clean returns the configured result, or an unchanged result.
func (m *MockTUIService) Clean(cfg *config.Config, book string) ports.TUICleanResult {
	m.CleanCalls = append(m.CleanCalls, book)
	if result, ok := m.CleanResults[book]; ok {
		return result
	}
	return ports.TUICleanResult{Status: "unchanged"}
}

// Preview returns the configured preview for book.
func (m *MockTUIService) Preview(cfg *config.Config, book string) (ports.TUIPreview, error) {
	m.PreviewCalls = append(m.PreviewCalls, book)
	if err, ok := m.PreviewErrors[book]; ok {
		return ports.TUIPreview{}, err
	}
	if p, ok := m.Previews[book]; ok {
		return p, nil
	}
	return ports.TUIPreview{Book: book, Outcome: "no changes needed"}, nil
}

// Compile-time check that MockTUIService implements ports.TUIService.
var _ ports.TUIService = (*MockTUIService)(nil)
