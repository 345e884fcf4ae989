package mocks

import (
	"path/filepath"
	"sort"

	"github.com/mcdonaldj/epubtidy/internal/ports"
)

// MockArchiver implements ports.Archiver for testing. When FS is set,
// Extract materializes Tree into it under ScratchDir and Pack writes
// PackOutput at the destination, so a transaction can run end to end in
// memory.
type MockArchiver struct {
	// FS receives extracted entries and packed output (optional)
	FS *MockFileSystem
	// ScratchDir is returned by Extract
	ScratchDir string
	// Tree maps slash-separated entry names to contents
	Tree map[string]string
	// PackOutput is written at the Pack destination
	PackOutput []byte
	// Errors maps method names to errors
	Errors map[string]error
	// Panics lists method names that panic instead of returning
	Panics map[string]bool
	// ListResults maps zip paths to entry listings
	ListResults map[string][]ports.EntryInfo
	// ReadResults maps "zipPath:name" to content
	ReadResults map[string][]byte

	// Call tracking
	ExtractCalls []string
	PackCalls    []PackCall
}

// PackCall records parameters of a Pack call.
type PackCall struct {
	ScratchDir string
	DestPath   string
}

// NewMockArchiver creates a new mock archiver.
func NewMockArchiver() *MockArchiver {
	return &MockArchiver{
		ScratchDir:  "/scratch",
		Tree:        make(map[string]string),
		PackOutput:  []byte("packed"),
		Errors:      make(map[string]error),
		Panics:      make(map[string]bool),
		ListResults: make(map[string][]ports.EntryInfo),
		ReadResults: make(map[string][]byte),
	}
}

// Extract materializes Tree under ScratchDir.
func (m *MockArchiver) Extract(zipPath string) (string, error) {
	m.ExtractCalls = append(m.ExtractCalls, zipPath)
	if m.Panics["Extract"] {
		panic("mock archiver: Extract")
	}
	if err, ok := m.Errors["Extract"]; ok {
		return "", err
	}
	if m.FS != nil {
		m.FS.Stats[m.ScratchDir] = &MockFileInfo{FileName: filepath.Base(m.ScratchDir), Dir: true}
		for name, content := range m.Tree {
			m.FS.Files[filepath.Join(m.ScratchDir, filepath.FromSlash(name))] = []byte(content)
		}
	}
	return m.ScratchDir, nil
}

// Pack writes PackOutput at destPath.
func (m *MockArchiver) Pack(scratchDir, destPath string) (int, error) {
	m.PackCalls = append(m.PackCalls, PackCall{ScratchDir: scratchDir, DestPath: destPath})
	if m.Panics["Pack"] {
		panic("mock archiver: Pack")
	}
	if err, ok := m.Errors["Pack"]; ok {
		return 0, err
	}
	if m.FS != nil {
		m.FS.Files[destPath] = append([]byte(nil), m.PackOutput...)
	}
	return len(m.Tree), nil
}

// List returns the configured listing, or one built from Tree.
func (m *MockArchiver) List(zipPath string) ([]ports.EntryInfo, error) {
	if err, ok := m.Errors["List"]; ok {
		return nil, err
	}
	if result, ok := m.ListResults[zipPath]; ok {
		return result, nil
	}
	names := make([]string, 0, len(m.Tree))
	for name := range m.Tree {
		names = append(names, name)
	}
	sort.Strings(names)
	entries := make([]ports.EntryInfo, 0, len(names))
	for _, name := range names {
		entries = append(entries, ports.EntryInfo{Name: name, Size: int64(len(m.Tree[name]))})
	}
	return entries, nil
}

// ReadFile returns the configured content for an entry.
func (m *MockArchiver) ReadFile(zipPath, name string) ([]byte, error) {
	if err, ok := m.Errors["ReadFile"]; ok {
		return nil, err
	}
	if content, ok := m.ReadResults[zipPath+":"+name]; ok {
		return content, nil
	}
	if content, ok := m.Tree[name]; ok {
		return []byte(content), nil
	}
	return nil, ports.ErrEntryIO
}

// Compile-time check that MockArchiver implements ports.Archiver.
var _ ports.Archiver = (*MockArchiver)(nil)
