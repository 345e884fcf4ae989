// Package osfs provides the ports.FileSystem adapter backed by the os package.
package osfs

import (
	"os"
	"path/filepath"

	"github.com/mcdonaldj/epubtidy/internal/ports"
)

// OSFileSystem implements ports.FileSystem on the local disk.
type OSFileSystem struct{}

// New creates a new OSFileSystem adapter.
func New() *OSFileSystem {
	return &OSFileSystem{}
}

func (f *OSFileSystem) ReadDir(name string) ([]os.DirEntry, error) { return os.ReadDir(name) }
func (f *OSFileSystem) Stat(name string) (os.FileInfo, error)      { return os.Stat(name) }
func (f *OSFileSystem) ReadFile(name string) ([]byte, error)       { return os.ReadFile(name) }
func (f *OSFileSystem) Remove(name string) error                   { return os.Remove(name) }
func (f *OSFileSystem) RemoveAll(path string) error                { return os.RemoveAll(path) }
func (f *OSFileSystem) Chmod(name string, mode os.FileMode) error  { return os.Chmod(name, mode) }

func (f *OSFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// WriteFile writes data and flushes it to stable storage before returning,
// so a following Rename never publishes an empty file after a crash.
func (f *OSFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	file, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// WriteTemp creates a uniquely named file in dir (os.CreateTemp opens it
// with O_EXCL), writes and syncs data, then applies perm.
func (f *OSFileSystem) WriteTemp(dir, pattern string, data []byte, perm os.FileMode) (string, error) {
	file, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", err
	}
	name := file.Name()
	fail := func(err error) (string, error) {
		_ = file.Close()
		_ = os.Remove(name)
		return "", err
	}
	if _, err := file.Write(data); err != nil {
		return fail(err)
	}
	if err := file.Sync(); err != nil {
		return fail(err)
	}
	if err := file.Chmod(perm); err != nil {
		return fail(err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(name)
		return "", err
	}
	return name, nil
}

// Rename moves oldpath over newpath. os.Rename maps to rename(2), which is
// atomic when both paths are on the same volume.
func (f *OSFileSystem) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}

// Walk walks the tree rooted at root. Symlinks are reported, never followed.
func (f *OSFileSystem) Walk(root string, fn ports.WalkFunc) error {
	return filepath.Walk(root, filepath.WalkFunc(fn))
}

// Compile-time check that OSFileSystem implements ports.FileSystem.
var _ ports.FileSystem = (*OSFileSystem)(nil)
