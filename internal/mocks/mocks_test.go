package mocks

import (
	"errors"
	"os"
	"testing"

	"github.com/mcdonaldj/epubtidy/internal/ports"
)

func TestMockFileSystem(t *testing.T) {
	mockFS := NewMockFileSystem()

	// Test WriteFile and ReadFile
	if err := mockFS.WriteFile("/test/file.css", []byte("hello"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	content, err := mockFS.ReadFile("/test/file.css")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(content) != "hello" {
		t.Errorf("content = %q, expected %q", string(content), "hello")
	}

	// Test Stat after WriteFile
	info, err := mockFS.Stat("/test/file.css")
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Size() != 5 {
		t.Errorf("size = %d, expected 5", info.Size())
	}
	if info.Mode() != 0600 {
		t.Errorf("mode = %v, expected 0600", info.Mode())
	}

	// Test ReadFile for non-existent file
	if _, err := mockFS.ReadFile("/nonexistent"); err == nil {
		t.Error("ReadFile should fail for non-existent file")
	}

	// Test error injection
	mockFS.Errors["/error/path"] = errors.New("injected error")
	_, err = mockFS.ReadFile("/error/path")
	if err == nil || err.Error() != "injected error" {
		t.Errorf("Expected injected error, got: %v", err)
	}
}

func TestMockFileSystemRenameAndRemove(t *testing.T) {
	mockFS := NewMockFileSystem()
	mockFS.Files["/books/a.epub.tmp"] = []byte("new")
	mockFS.Files["/books/a.epub"] = []byte("old")

	if err := mockFS.Rename("/books/a.epub.tmp", "/books/a.epub"); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if string(mockFS.Files["/books/a.epub"]) != "new" {
		t.Errorf("content after rename = %q, expected %q", mockFS.Files["/books/a.epub"], "new")
	}
	if _, ok := mockFS.Files["/books/a.epub.tmp"]; ok {
		t.Error("old path should be gone after rename")
	}
	if len(mockFS.Renames) != 1 {
		t.Errorf("Renames = %d, expected 1", len(mockFS.Renames))
	}

	if err := mockFS.Remove("/books/missing"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Remove of missing file = %v, expected ErrNotExist", err)
	}

	mockFS.MethodErrors["Rename"] = errors.New("cross-device link")
	if err := mockFS.Rename("/books/a.epub", "/other/a.epub"); err == nil {
		t.Error("Rename should fail with method error injected")
	}
}

func TestMockFileSystemRemoveAll(t *testing.T) {
	mockFS := NewMockFileSystem()
	mockFS.Files["/scratch/a.css"] = []byte("a")
	mockFS.Files["/scratch/sub/b.css"] = []byte("b")
	mockFS.Files["/scratch-other/c.css"] = []byte("c")

	if err := mockFS.RemoveAll("/scratch"); err != nil {
		t.Fatalf("RemoveAll failed: %v", err)
	}
	if len(mockFS.Files) != 1 {
		t.Errorf("files left = %d, expected 1", len(mockFS.Files))
	}
	if _, ok := mockFS.Files["/scratch-other/c.css"]; !ok {
		t.Error("sibling directory with shared prefix should survive")
	}
}

func TestMockFileSystemWriteTemp(t *testing.T) {
	mockFS := NewMockFileSystem()
	mockFS.Files["/scratch/.a.css.1.epubtidy"] = []byte("existing")

	name, err := mockFS.WriteTemp("/scratch", ".a.css.*.epubtidy", []byte("new"), 0o600)
	if err != nil {
		t.Fatalf("WriteTemp failed: %v", err)
	}
	if name != "/scratch/.a.css.2.epubtidy" {
		t.Errorf("name = %q, expected /scratch/.a.css.2.epubtidy", name)
	}
	if string(mockFS.Files["/scratch/.a.css.1.epubtidy"]) != "existing" {
		t.Error("existing file was overwritten")
	}
	if string(mockFS.Files[name]) != "new" || mockFS.Modes[name] != 0o600 {
		t.Errorf("temp file = %q mode %v", mockFS.Files[name], mockFS.Modes[name])
	}

	mockFS.Errors["/scratch/.b.css.*.epubtidy"] = errors.New("disk full")
	if _, err := mockFS.WriteTemp("/scratch", ".b.css.*.epubtidy", nil, 0o644); err == nil {
		t.Error("expected injected error")
	}
}

func TestMockFileSystemReadDir(t *testing.T) {
	mockFS := NewMockFileSystem()
	mockFS.Dirs["/books"] = []os.DirEntry{
		&MockDirEntry{EntryName: "a.epub"},
		&MockDirEntry{EntryName: "b.epub"},
		&MockDirEntry{EntryName: "sub", Directory: true},
	}

	entries, err := mockFS.ReadDir("/books")
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("ReadDir returned %d entries, expected 3", len(entries))
	}
}

func TestMockFileSystemWalk(t *testing.T) {
	mockFS := NewMockFileSystem()
	mockFS.Files["/scratch/b.css"] = []byte("b")
	mockFS.Files["/scratch/a.css"] = []byte("a")
	mockFS.Files["/elsewhere/c.css"] = []byte("c")

	var visited []string
	err := mockFS.Walk("/scratch", func(path string, info os.FileInfo, err error) error {
		visited = append(visited, path)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	expected := []string{"/scratch", "/scratch/a.css", "/scratch/b.css"}
	if len(visited) != len(expected) {
		t.Fatalf("Walk visited %v, expected %v", visited, expected)
	}
	for i := range expected {
		if visited[i] != expected[i] {
			t.Errorf("visited[%d] = %q, expected %q", i, visited[i], expected[i])
		}
	}
}

func TestMockArchiver(t *testing.T) {
	mockFS := NewMockFileSystem()
	archiver := NewMockArchiver()
	archiver.FS = mockFS
	archiver.Tree["mimetype"] = "application/epub+zip"
	archiver.Tree["OEBPS/style.css"] = "p {}"

	scratch, err := archiver.Extract("/books/a.epub")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if scratch != "/scratch" {
		t.Errorf("scratch = %q, expected /scratch", scratch)
	}
	if string(mockFS.Files["/scratch/OEBPS/style.css"]) != "p {}" {
		t.Error("Extract should materialize the tree into the filesystem")
	}

	n, err := archiver.Pack(scratch, "/books/a.epub.tmpzip")
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Pack returned %d, expected 2", n)
	}
	if string(mockFS.Files["/books/a.epub.tmpzip"]) != "packed" {
		t.Error("Pack should write PackOutput at the destination")
	}

	entries, err := archiver.List("/books/a.epub")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 2 || entries[0].Name != "OEBPS/style.css" {
		t.Errorf("List = %+v, expected 2 sorted entries", entries)
	}

	archiver.Errors["Pack"] = ports.ErrPack
	if _, err := archiver.Pack(scratch, "/x"); !errors.Is(err, ports.ErrPack) {
		t.Errorf("Expected ErrPack, got: %v", err)
	}
}
