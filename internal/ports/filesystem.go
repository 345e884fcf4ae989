// Package ports defines interfaces (contracts) for external dependencies.
// These enable dependency injection and testability via mock implementations.
package ports

import (
	"os"
)

// FileSystem abstracts the filesystem operations used to discover books,
// rewrite scratch entries and commit replacements.
// Production code uses OSFileSystem adapter; tests use MockFileSystem.
type FileSystem interface {
	// ReadDir reads the named directory and returns directory entries
	// sorted by filename.
	ReadDir(name string) ([]os.DirEntry, error)

	// Stat returns file info for the named file.
	Stat(name string) (os.FileInfo, error)

	// MkdirAll creates a directory along with any necessary parents.
	MkdirAll(path string, perm os.FileMode) error

	// WriteFile writes data to the named file, creating it if necessary.
	WriteFile(name string, data []byte, perm os.FileMode) error

	// WriteTemp writes data to a new file in dir whose name is built from
	// pattern (a "*" is replaced by a random string) and returns its path.
	// An existing file is never overwritten.
	WriteTemp(dir, pattern string, data []byte, perm os.FileMode) (string, error)

	// ReadFile reads the named file and returns the contents.
	ReadFile(name string) ([]byte, error)

	// Remove removes the named file or empty directory.
	Remove(name string) error

	// RemoveAll removes path and any children it contains.
	RemoveAll(path string) error

	// Rename renames (moves) oldpath to newpath, replacing newpath.
	// Within one filesystem volume this is the atomic commit step.
	Rename(oldpath, newpath string) error

	// Chmod changes the mode of the named file.
	Chmod(name string, mode os.FileMode) error

	// Walk walks the file tree rooted at root in lexical order, calling fn
	// for each file or directory.
	Walk(root string, fn WalkFunc) error
}

// WalkFunc is the type of function called by Walk.
type WalkFunc func(path string, info os.FileInfo, err error) error
