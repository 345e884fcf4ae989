// Package discovery finds the books to process in a directory.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"

	"github.com/mcdonaldj/epubtidy/internal/ports"
)

// Extension is the suffix a file needs to be picked up, in any case.
const Extension = ".epub"

type Book struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

type Options struct {
	// Exclude holds doublestar patterns or exact names matched against the
	// file name.
	Exclude []string
	// Skip holds file names never to process, such as the running binary.
	Skip []string
}

// ListBooks returns the top-level regular .epub files in dir, sorted by
// name. Hidden files and subdirectories are ignored.
func ListBooks(fs ports.FileSystem, dir string, opts Options) ([]Book, error) {
	entries, err := fs.ReadDir(dir)
	if err != nil {
		return nil, errors.Errorf("listing %s: %w", dir, err)
	}

	var books []Book
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !entry.Type().IsRegular() || strings.HasPrefix(name, ".") {
			continue
		}
		if !strings.EqualFold(filepath.Ext(name), Extension) {
			continue
		}
		if contains(opts.Skip, name) || shouldExclude(name, opts.Exclude) {
			continue
		}

		book := Book{Name: name, Path: filepath.Join(dir, name)}
		if info, err := entry.Info(); err == nil {
			book.Size = info.Size()
			book.ModTime = info.ModTime()
		}
		books = append(books, book)
	}

	sort.Slice(books, func(i, j int) bool { return books[i].Name < books[j].Name })
	return books, nil
}

// Paths returns the paths of books.
func Paths(books []Book) []string {
	paths := make([]string, len(books))
	for i, b := range books {
		paths[i] = b.Path
	}
	return paths
}

// SelfName returns the file name of the running executable, or "" when it
// cannot be determined.
func SelfName() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Base(exe)
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n != "" && n == name {
			return true
		}
	}
	return false
}

// shouldExclude checks if a file name matches an exclude pattern
func shouldExclude(name string, excludePatterns []string) bool {
	for _, pattern := range excludePatterns {
		// Check exact match
		if name == pattern {
			return true
		}
		// Check glob pattern
		if matched, _ := doublestar.Match(pattern, name); matched {
			return true
		}
	}
	return false
}

// FormatSize formats bytes as human-readable
func FormatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
