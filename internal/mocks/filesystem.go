// Package mocks provides mock implementations for testing.
package mocks

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mcdonaldj/epubtidy/internal/ports"
)

// MockFileSystem implements ports.FileSystem in memory.
type MockFileSystem struct {
	// Files maps paths to file contents
	Files map[string][]byte
	// Modes maps paths to file modes set by WriteFile or Chmod
	Modes map[string]os.FileMode
	// Dirs maps paths to directory entries for ReadDir
	Dirs map[string][]os.DirEntry
	// Stats maps paths to FileInfo for Stat
	Stats map[string]os.FileInfo
	// Errors maps paths to errors (for simulating failures on one path)
	Errors map[string]error
	// MethodErrors maps method names ("Rename", "RemoveAll", ...) to errors
	// returned for every call of that method
	MethodErrors map[string]error
	// WalkEntries contains entries to return during Walk. When empty, Walk
	// synthesizes entries from Files.
	WalkEntries []WalkEntry

	// Call tracking
	Renames []RenameCall
	Removed []string

	temps int
}

// WalkEntry represents a file or directory entry for Walk testing.
type WalkEntry struct {
	Path string
	Info os.FileInfo
	Err  error
}

// RenameCall records parameters of a Rename call.
type RenameCall struct {
	OldPath string
	NewPath string
}

// NewMockFileSystem creates a new mock filesystem.
func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{
		Files:        make(map[string][]byte),
		Modes:        make(map[string]os.FileMode),
		Dirs:         make(map[string][]os.DirEntry),
		Stats:        make(map[string]os.FileInfo),
		Errors:       make(map[string]error),
		MethodErrors: make(map[string]error),
	}
}

func (m *MockFileSystem) fail(method, path string) error {
	if err, ok := m.MethodErrors[method]; ok {
		return err
	}
	if err, ok := m.Errors[path]; ok {
		return err
	}
	return nil
}

// ReadDir reads the named directory and returns directory entries.
func (m *MockFileSystem) ReadDir(name string) ([]os.DirEntry, error) {
	if err := m.fail("ReadDir", name); err != nil {
		return nil, err
	}
	if entries, ok := m.Dirs[name]; ok {
		return entries, nil
	}
	return nil, os.ErrNotExist
}

// Stat returns file info for the named file.
func (m *MockFileSystem) Stat(name string) (os.FileInfo, error) {
	if err := m.fail("Stat", name); err != nil {
		return nil, err
	}
	if info, ok := m.Stats[name]; ok {
		return info, nil
	}
	if content, ok := m.Files[name]; ok {
		return &MockFileInfo{FileName: filepath.Base(name), FileSize: int64(len(content)), FileMode: m.Modes[name]}, nil
	}
	return nil, os.ErrNotExist
}

// MkdirAll creates a directory along with any necessary parents.
func (m *MockFileSystem) MkdirAll(path string, perm os.FileMode) error {
	if err := m.fail("MkdirAll", path); err != nil {
		return err
	}
	m.Stats[path] = &MockFileInfo{FileName: filepath.Base(path), FileMode: perm | os.ModeDir, Dir: true}
	return nil
}

// WriteFile writes data to the named file, creating it if necessary.
func (m *MockFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	if err := m.fail("WriteFile", name); err != nil {
		return err
	}
	m.Files[name] = append([]byte(nil), data...)
	m.Modes[name] = perm
	return nil
}

// WriteTemp writes data to a fresh file in dir. The "*" in pattern is
// replaced by a counter; failures are looked up under dir joined with the
// unexpanded pattern.
func (m *MockFileSystem) WriteTemp(dir, pattern string, data []byte, perm os.FileMode) (string, error) {
	if err := m.fail("WriteTemp", filepath.Join(dir, pattern)); err != nil {
		return "", err
	}
	if !strings.Contains(pattern, "*") {
		pattern += "*"
	}
	for {
		m.temps++
		name := filepath.Join(dir, strings.Replace(pattern, "*", strconv.Itoa(m.temps), 1))
		if _, ok := m.Files[name]; ok {
			continue
		}
		m.Files[name] = append([]byte(nil), data...)
		m.Modes[name] = perm
		return name, nil
	}
}

// ReadFile reads the named file and returns the contents.
func (m *MockFileSystem) ReadFile(name string) ([]byte, error) {
	if err := m.fail("ReadFile", name); err != nil {
		return nil, err
	}
	if content, ok := m.Files[name]; ok {
		return content, nil
	}
	return nil, os.ErrNotExist
}

// Remove removes the named file or empty directory.
func (m *MockFileSystem) Remove(name string) error {
	m.Removed = append(m.Removed, name)
	if err := m.fail("Remove", name); err != nil {
		return err
	}
	if _, ok := m.Files[name]; !ok {
		if _, ok := m.Stats[name]; !ok {
			return os.ErrNotExist
		}
	}
	delete(m.Files, name)
	delete(m.Modes, name)
	delete(m.Stats, name)
	return nil
}

// RemoveAll removes path and any children it contains.
func (m *MockFileSystem) RemoveAll(path string) error {
	m.Removed = append(m.Removed, path)
	if err := m.fail("RemoveAll", path); err != nil {
		return err
	}
	within := func(k string) bool {
		return k == path || strings.HasPrefix(k, path+string(filepath.Separator))
	}
	for k := range m.Files {
		if within(k) {
			delete(m.Files, k)
			delete(m.Modes, k)
		}
	}
	for k := range m.Stats {
		if within(k) {
			delete(m.Stats, k)
		}
	}
	return nil
}

// Rename renames (moves) oldpath to newpath.
func (m *MockFileSystem) Rename(oldpath, newpath string) error {
	m.Renames = append(m.Renames, RenameCall{OldPath: oldpath, NewPath: newpath})
	if err := m.fail("Rename", oldpath); err != nil {
		return err
	}
	content, ok := m.Files[oldpath]
	if !ok {
		return os.ErrNotExist
	}
	m.Files[newpath] = content
	m.Modes[newpath] = m.Modes[oldpath]
	delete(m.Files, oldpath)
	delete(m.Modes, oldpath)
	return nil
}

// Chmod changes the mode of the named file.
func (m *MockFileSystem) Chmod(name string, mode os.FileMode) error {
	if err := m.fail("Chmod", name); err != nil {
		return err
	}
	if _, ok := m.Files[name]; !ok {
		return os.ErrNotExist
	}
	m.Modes[name] = mode
	return nil
}

// Walk walks the file tree rooted at root, calling fn for each file or directory.
func (m *MockFileSystem) Walk(root string, fn ports.WalkFunc) error {
	if err := m.fail("Walk", root); err != nil {
		return err
	}
	entries := m.WalkEntries
	if len(entries) == 0 {
		entries = m.synthesizeWalk(root)
	}
	for _, entry := range entries {
		if entry.Path != root && !strings.HasPrefix(entry.Path, root+string(filepath.Separator)) {
			continue
		}
		if err := fn(entry.Path, entry.Info, entry.Err); err != nil {
			if err == filepath.SkipDir || err == filepath.SkipAll {
				continue
			}
			return err
		}
	}
	return nil
}

func (m *MockFileSystem) synthesizeWalk(root string) []WalkEntry {
	paths := make([]string, 0, len(m.Files))
	for p := range m.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	entries := []WalkEntry{{Path: root, Info: &MockFileInfo{FileName: filepath.Base(root), Dir: true, FileMode: os.ModeDir | 0o755}}}
	for _, p := range paths {
		entries = append(entries, WalkEntry{
			Path: p,
			Info: &MockFileInfo{FileName: filepath.Base(p), FileSize: int64(len(m.Files[p])), FileMode: m.Modes[p]},
		})
	}
	return entries
}

// MockFileInfo implements os.FileInfo for testing.
type MockFileInfo struct {
	FileName string
	FileSize int64
	FileMode os.FileMode
	Modified time.Time
	Dir      bool
}

func (fi *MockFileInfo) Name() string       { return fi.FileName }
func (fi *MockFileInfo) Size() int64        { return fi.FileSize }
func (fi *MockFileInfo) Mode() os.FileMode  { return fi.FileMode }
func (fi *MockFileInfo) ModTime() time.Time { return fi.Modified }
func (fi *MockFileInfo) IsDir() bool        { return fi.Dir }
func (fi *MockFileInfo) Sys() interface{}   { return nil }

// MockDirEntry implements os.DirEntry for testing.
type MockDirEntry struct {
	EntryName string
	Directory bool
	EntryMode os.FileMode
}

func (d *MockDirEntry) Name() string      { return d.EntryName }
func (d *MockDirEntry) IsDir() bool       { return d.Directory }
func (d *MockDirEntry) Type() os.FileMode { return d.EntryMode.Type() }
func (d *MockDirEntry) Info() (os.FileInfo, error) {
	return &MockFileInfo{FileName: d.EntryName, Dir: d.Directory, FileMode: d.EntryMode}, nil
}

// Compile-time check that MockFileSystem implements ports.FileSystem.
var _ ports.FileSystem = (*MockFileSystem)(nil)
