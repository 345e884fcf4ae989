package journal

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zeebo/blake3"
)

func TestJournalSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "journal.json")

	original := &Journal{
		Entries: []Entry{
			{
				Book:       "/books/dune.epub",
				Outcome:    "changes applied",
				Rewritten:  []string{"OEBPS/style.css"},
				Before:     "aa11",
				After:      "bb22",
				Entries:    12,
				DurationMS: 40,
				CreatedAt:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
			},
			{
				Book:      "/books/broken.epub",
				Outcome:   "failed",
				Error:     "not a valid archive",
				CreatedAt: time.Date(2026, 3, 1, 10, 0, 1, 0, time.UTC),
			},
		},
	}

	if err := original.Save(path); err != nil {
		t.Fatalf("Failed to save journal: %v", err)
	}

	// No temp file left behind
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file should not exist after save, stat err = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load journal: %v", err)
	}

	if len(loaded.Entries) != 2 {
		t.Fatalf("Entries count = %d, expected %d", len(loaded.Entries), 2)
	}
	for i, e := range loaded.Entries {
		orig := original.Entries[i]
		if e.Book != orig.Book {
			t.Errorf("Entry[%d].Book = %q, expected %q", i, e.Book, orig.Book)
		}
		if e.Outcome != orig.Outcome {
			t.Errorf("Entry[%d].Outcome = %q, expected %q", i, e.Outcome, orig.Outcome)
		}
		if !e.CreatedAt.Equal(orig.CreatedAt) {
			t.Errorf("Entry[%d].CreatedAt = %v, expected %v", i, e.CreatedAt, orig.CreatedAt)
		}
	}
	if loaded.Entries[1].Error != "not a valid archive" {
		t.Errorf("Entry[1].Error = %q", loaded.Entries[1].Error)
	}
}

func TestLoadMissingJournal(t *testing.T) {
	j, err := Load(filepath.Join(t.TempDir(), "journal.json"))
	if err != nil {
		t.Fatalf("Load should not fail for missing journal: %v", err)
	}
	if j.Entries == nil || len(j.Entries) != 0 {
		t.Errorf("Entries = %v, expected empty slice", j.Entries)
	}
}

func TestLoadMalformedJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write journal: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Load should fail for malformed JSON")
	}
}

func TestLatestAndForBook(t *testing.T) {
	j := &Journal{}
	j.Add(Entry{Book: "a.epub", Outcome: "no changes needed"})
	j.Add(Entry{Book: "b.epub", Outcome: "failed"})
	j.Add(Entry{Book: "a.epub", Outcome: "changes applied"})

	latest := j.Latest("a.epub")
	if latest == nil {
		t.Fatal("Latest returned nil")
	}
	if latest.Outcome != "changes applied" {
		t.Errorf("Latest.Outcome = %q, expected %q", latest.Outcome, "changes applied")
	}
	if j.Latest("missing.epub") != nil {
		t.Error("Latest should be nil for an unknown book")
	}

	if got := len(j.ForBook("a.epub")); got != 2 {
		t.Errorf("ForBook(a) = %d entries, expected 2", got)
	}
	if got := len(j.ForBook("")); got != 3 {
		t.Errorf("ForBook(\"\") = %d entries, expected 3", got)
	}

	books := j.Books()
	if len(books) != 2 || books[0] != "a.epub" || books[1] != "b.epub" {
		t.Errorf("Books = %v, expected [a.epub b.epub]", books)
	}
}

func TestPrune(t *testing.T) {
	j := &Journal{}
	for i := 0; i < 5; i++ {
		j.Add(Entry{Book: "a.epub", DurationMS: int64(i)})
	}
	j.Add(Entry{Book: "b.epub"})

	removed := j.Prune(3)
	if removed != 2 {
		t.Errorf("Prune removed %d, expected 2", removed)
	}
	if len(j.Entries) != 4 {
		t.Fatalf("Remaining entries = %d, expected 4", len(j.Entries))
	}

	// The newest entries of a.epub survive, in order
	for i, want := range []int64{2, 3, 4} {
		if j.Entries[i].DurationMS != want {
			t.Errorf("Entry[%d].DurationMS = %d, expected %d", i, j.Entries[i].DurationMS, want)
		}
	}
	if j.Entries[3].Book != "b.epub" {
		t.Errorf("b.epub entry should be kept")
	}
}

func TestPruneNoAction(t *testing.T) {
	j := &Journal{Entries: []Entry{{Book: "a"}, {Book: "a"}}}

	if removed := j.Prune(5); removed != 0 {
		t.Errorf("Prune removed %d, expected 0", removed)
	}
	if removed := j.Prune(0); removed != 0 {
		t.Errorf("Prune(0) removed %d, expected 0", removed)
	}
	if len(j.Entries) != 2 {
		t.Error("Entries should be unchanged")
	}
}

func TestStoreRecord(t *testing.T) {
	store := &Store{Path: filepath.Join(t.TempDir(), "journal.json"), KeepLast: 2}

	for _, outcome := range []string{"one", "two", "three"} {
		if err := store.Record(Entry{Book: "a.epub", Outcome: outcome}); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	j, err := Load(store.Path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(j.Entries) != 2 {
		t.Fatalf("Entries = %d, expected 2", len(j.Entries))
	}
	if j.Entries[0].Outcome != "two" || j.Entries[1].Outcome != "three" {
		t.Errorf("Entries = %+v, expected two then three", j.Entries)
	}
}

func TestEntryChanged(t *testing.T) {
	tests := []struct {
		entry    Entry
		expected bool
	}{
		{Entry{Before: "a", After: "b"}, true},
		{Entry{Before: "a", After: "a"}, false},
		{Entry{Before: "a"}, false},
	}
	for _, tt := range tests {
		if got := tt.entry.Changed(); got != tt.expected {
			t.Errorf("Changed(%+v) = %v, expected %v", tt.entry, got, tt.expected)
		}
	}
}

func TestComputeBLAKE3(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "test.txt")
	content := "hello world"
	if err := os.WriteFile(testFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	hash, err := ComputeBLAKE3(testFile)
	if err != nil {
		t.Fatalf("ComputeBLAKE3 failed: %v", err)
	}

	sum := blake3.Sum256([]byte(content))
	expected := hex.EncodeToString(sum[:])
	if hash != expected {
		t.Errorf("BLAKE3 = %q, expected %q", hash, expected)
	}
	if len(hash) != 64 {
		t.Errorf("BLAKE3 length = %d, expected 64", len(hash))
	}

	if _, err := ComputeBLAKE3(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("ComputeBLAKE3 should fail for a missing file")
	}
}

func TestJournalJSONFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.json")
	j := &Journal{Entries: []Entry{{Book: "a.epub", Outcome: "changes applied", Before: "x", After: "y"}}}
	if err := j.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read journal file: %v", err)
	}

	var raw map[string][]map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Journal is not valid JSON: %v", err)
	}
	entry := raw["entries"][0]
	for _, field := range []string{"book", "outcome", "before_blake3", "after_blake3", "created_at", "duration_ms"} {
		if _, ok := entry[field]; !ok {
			t.Errorf("JSON missing field %q", field)
		}
	}
	if _, ok := entry["error"]; ok {
		t.Error("empty error should be omitted")
	}
}
