// Package journal keeps a JSON history of processed books.
package journal

import (
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/zeebo/blake3"
	"gitlab.com/tozd/go/errors"
)

type Entry struct {
	Book       string    `json:"book"`
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`
	Rewritten  []string  `json:"rewritten,omitempty"`
	Before     string    `json:"before_blake3,omitempty"`
	After      string    `json:"after_blake3,omitempty"`
	Entries    int       `json:"entries,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Changed reports whether the book was replaced.
func (e Entry) Changed() bool {
	return e.After != "" && e.After != e.Before
}

type Journal struct {
	Entries []Entry `json:"entries"`
}

func Load(path string) (*Journal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Journal{Entries: []Entry{}}, nil
		}
		return nil, errors.Errorf("reading journal: %w", err)
	}

	var j Journal
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, errors.Errorf("parsing journal %s: %w", path, err)
	}
	if j.Entries == nil {
		j.Entries = []Entry{}
	}

	return &j, nil
}

// Save writes the journal to a sibling temp file and renames it over path.
func (j *Journal) Save(path string) error {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Errorf("creating journal directory: %w", err)
	}

	data, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return errors.Errorf("encoding journal: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Errorf("writing journal: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.Errorf("replacing journal: %w", err)
	}
	return nil
}

func (j *Journal) Add(entry Entry) {
	j.Entries = append(j.Entries, entry)
}

// Latest returns the newest entry for book, or nil.
func (j *Journal) Latest(book string) *Entry {
	for i := len(j.Entries) - 1; i >= 0; i-- {
		if j.Entries[i].Book == book {
			return &j.Entries[i]
		}
	}
	return nil
}

// ForBook returns the entries for book, oldest first. An empty book returns
// every entry.
func (j *Journal) ForBook(book string) []Entry {
	if book == "" {
		return append([]Entry(nil), j.Entries...)
	}
	var out []Entry
	for _, e := range j.Entries {
		if e.Book == book {
			out = append(out, e)
		}
	}
	return out
}

// Books returns the distinct books in the journal, sorted.
func (j *Journal) Books() []string {
	seen := make(map[string]bool)
	var books []string
	for _, e := range j.Entries {
		if !seen[e.Book] {
			seen[e.Book] = true
			books = append(books, e.Book)
		}
	}
	sort.Strings(books)
	return books
}

// Prune keeps the newest keepLast entries of each book.
// Returns the number of entries removed.
func (j *Journal) Prune(keepLast int) int {
	if keepLast <= 0 {
		return 0
	}

	// Entries are ordered oldest to newest; count from the end.
	kept := make(map[string]int)
	keep := make([]bool, len(j.Entries))
	for i := len(j.Entries) - 1; i >= 0; i-- {
		book := j.Entries[i].Book
		if kept[book] < keepLast {
			kept[book]++
			keep[i] = true
		}
	}

	out := j.Entries[:0]
	removed := 0
	for i, e := range j.Entries {
		if keep[i] {
			out = append(out, e)
		} else {
			removed++
		}
	}
	j.Entries = out
	return removed
}

// Store appends entries to a journal file, pruning as it goes.
type Store struct {
	Path     string
	KeepLast int
}

// Record loads the journal, appends entry, prunes and saves.
func (s *Store) Record(entry Entry) error {
	j, err := Load(s.Path)
	if err != nil {
		return err
	}
	j.Add(entry)
	j.Prune(s.KeepLast)
	return j.Save(s.Path)
}

// ComputeBLAKE3 calculates the BLAKE3-256 hash of a file
func ComputeBLAKE3(filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
