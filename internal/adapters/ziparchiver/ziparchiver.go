// Package ziparchiver provides an archiver adapter using the archive/zip package.
//
// Deflate is served by github.com/klauspost/compress/flate, registered on
// every reader and writer the adapter opens.
package ziparchiver

import (
	"archive/zip"
	"hash/crc32"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/flate"
	"gitlab.com/tozd/go/errors"

	"github.com/mcdonaldj/epubtidy/internal/ports"
)

// MaxDecompressSize is the default maximum allowed uncompressed entry size
// (1GB). This prevents decompression bomb attacks (G110).
const MaxDecompressSize = 1 << 30

// Options tunes a ZipArchiver.
type Options struct {
	// CompressionLevel is the flate level for deflated entries: 1-9, 0 for
	// none, or -1 for the library default.
	CompressionLevel int
	// TempDir is where scratch directories are created. Empty means
	// os.TempDir().
	TempDir string
	// MaxEntrySize rejects archives holding a larger entry. Zero means
	// MaxDecompressSize.
	MaxEntrySize uint64
}

// ZipArchiver implements ports.Archiver using archive/zip.
type ZipArchiver struct {
	opts Options
}

// New creates a new ZipArchiver adapter with default options.
func New() *ZipArchiver {
	return NewWithOptions(Options{CompressionLevel: flate.DefaultCompression})
}

// NewWithOptions creates a ZipArchiver with explicit options.
func NewWithOptions(opts Options) *ZipArchiver {
	if opts.MaxEntrySize == 0 {
		opts.MaxEntrySize = MaxDecompressSize
	}
	return &ZipArchiver{opts: opts}
}

func openReader(zipPath string) (*zip.ReadCloser, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		if r != nil {
			_ = r.Close()
		}
		return nil, errors.Errorf("%w: %s: %w", ports.ErrNotAnArchive, zipPath, err)
	}
	r.RegisterDecompressor(zip.Deflate, flate.NewReader)
	return r, nil
}

// Extract validates the archive at zipPath and extracts it into a fresh
// scratch directory. Nothing is created when validation fails.
func (a *ZipArchiver) Extract(zipPath string) (string, error) {
	r, err := openReader(zipPath)
	if err != nil {
		return "", err
	}
	defer func() { _ = r.Close() }()

	for _, f := range r.File {
		if err := a.validate(f); err != nil {
			return "", errors.Errorf("%w: %s: %w", ports.ErrNotAnArchive, zipPath, err)
		}
	}

	scratch, err := os.MkdirTemp(a.opts.TempDir, "epubtidy-*")
	if err != nil {
		return "", errors.Errorf("creating scratch directory: %w", err)
	}

	if err := extractAll(r.File, scratch); err != nil {
		_ = os.RemoveAll(scratch)
		return "", errors.Errorf("%w: %s: %w", ports.ErrNotAnArchive, zipPath, err)
	}

	return scratch, nil
}

// validate rejects entries that cannot be extracted safely.
func (a *ZipArchiver) validate(f *zip.File) error {
	// SECURITY: Block symlinks to prevent symlink attacks
	if f.Mode()&os.ModeSymlink != 0 {
		return errors.Errorf("symlink entries not supported: %s", f.Name)
	}

	// SECURITY: Check for ZipSlip vulnerability. Where '\' is not a path
	// separator it is an ordinary name byte and survives the round trip, so
	// such entries are only refused on Windows.
	name := strings.TrimSuffix(f.Name, "/")
	if name == "" || (filepath.Separator == '\\' && strings.Contains(name, `\`)) || !filepath.IsLocal(filepath.FromSlash(name)) {
		return errors.Errorf("invalid entry path (path traversal detected): %q", f.Name)
	}

	if f.UncompressedSize64 > a.opts.MaxEntrySize {
		return errors.Errorf("entry too large: %s: %d bytes exceeds limit of %d bytes",
			f.Name, f.UncompressedSize64, a.opts.MaxEntrySize)
	}
	return nil
}

func extractAll(files []*zip.File, destDir string) error {
	// Get cleaned absolute path for destination
	absDestDir, err := filepath.Abs(destDir)
	if err != nil {
		return errors.Errorf("resolving destination path: %w", err)
	}
	absDestDir = filepath.Clean(absDestDir)

	for _, f := range files {
		fpath := filepath.Join(absDestDir, filepath.FromSlash(f.Name))
		if !isWithinDir(absDestDir, fpath) {
			return errors.Errorf("invalid entry path (path traversal detected): %q", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(fpath, 0o755); err != nil {
				return errors.Errorf("creating directory %s: %w", f.Name, err)
			}
			continue
		}

		// Create parent directories
		if err := os.MkdirAll(filepath.Dir(fpath), 0o755); err != nil {
			return errors.Errorf("creating parent directory for %s: %w", f.Name, err)
		}

		if err := extractFile(f, fpath); err != nil {
			return errors.Errorf("extracting %s: %w", f.Name, err)
		}
	}
	return nil
}

// extractFile extracts a single file from the zip, keeping its permission
// bits (always owner read/write) and modification time.
func extractFile(f *zip.File, destPath string) error {
	declaredSize := f.UncompressedSize64

	outFile, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode().Perm()|0o600)
	if err != nil {
		return err
	}
	defer func() { _ = outFile.Close() }()

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	// Use LimitReader to enforce size limit during decompression
	// Add 1 byte to detect if actual size exceeds declared size
	limitedReader := io.LimitReader(rc, int64(declaredSize)+1)
	written, err := io.Copy(outFile, limitedReader)
	if err != nil {
		return err
	}

	// Check if more data was available than declared (corrupted/malicious zip)
	if written > int64(declaredSize) {
		return errors.New("decompressed size exceeds declared size")
	}

	if err := outFile.Close(); err != nil {
		return err
	}
	if !f.Modified.IsZero() {
		_ = os.Chtimes(destPath, f.Modified, f.Modified)
	}
	return nil
}

// isWithinDir checks if the target path is within the base directory.
func isWithinDir(absBaseDir, targetPath string) bool {
	absTarget, err := filepath.Abs(targetPath)
	if err != nil {
		return false
	}
	absTarget = filepath.Clean(absTarget)

	return strings.HasPrefix(absTarget, absBaseDir+string(filepath.Separator)) ||
		absTarget == absBaseDir
}

// Pack writes the tree under scratchDir to a new archive at destPath.
// A root-level mimetype file goes first, stored; everything else follows in
// lexical order, deflated. destPath must not exist.
// Returns the number of entries written.
func (a *ZipArchiver) Pack(scratchDir, destPath string) (n int, err error) {
	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, errors.Errorf("%w: creating %s: %w", ports.ErrPack, destPath, err)
	}
	defer func() {
		if err != nil {
			_ = out.Close()
			_ = os.Remove(destPath)
			err = errors.Errorf("%w: %s: %w", ports.ErrPack, destPath, err)
			n = 0
		}
	}()

	w := zip.NewWriter(out)
	level := a.opts.CompressionLevel
	w.RegisterCompressor(zip.Deflate, func(dst io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(dst, level)
	})

	mimetypePath := filepath.Join(scratchDir, ports.MimetypeName)
	wroteMimetype := false
	if info, statErr := os.Stat(mimetypePath); statErr == nil && info.Mode().IsRegular() {
		if err := writeStored(w, mimetypePath); err != nil {
			_ = w.Close()
			return 0, err
		}
		wroteMimetype = true
		n++
	}

	walkErr := filepath.Walk(scratchDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == scratchDir || (wroteMimetype && path == mimetypePath) {
			return nil
		}

		relPath, err := filepath.Rel(scratchDir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(relPath)

		if info.IsDir() {
			empty, err := isEmptyDir(path)
			if err != nil || !empty {
				return err
			}
			// Empty directories need an explicit entry to survive
			if _, err := w.CreateHeader(&zip.FileHeader{Name: name + "/", Method: zip.Store, Modified: info.ModTime()}); err != nil {
				return err
			}
			n++
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		// Create file header
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = name
		header.Method = zip.Deflate

		writer, err := w.CreateHeader(header)
		if err != nil {
			return err
		}
		if err := copyFile(writer, path); err != nil {
			return errors.Errorf("adding %s: %w", name, err)
		}
		n++
		return nil
	})
	if walkErr != nil {
		_ = w.Close()
		return 0, walkErr
	}

	// Close zip writer first to flush data
	if err := w.Close(); err != nil {
		return 0, errors.Errorf("closing zip writer: %w", err)
	}
	if err := out.Sync(); err != nil {
		return 0, errors.Errorf("syncing: %w", err)
	}
	if err := out.Close(); err != nil {
		return 0, errors.Errorf("closing zip file: %w", err)
	}

	return n, nil
}

// writeStored adds the mimetype entry uncompressed, with no extra field and
// no data descriptor, so readers can sniff it at a fixed offset.
func writeStored(w *zip.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Errorf("reading %s: %w", ports.MimetypeName, err)
	}
	header := &zip.FileHeader{
		Name:               ports.MimetypeName,
		Method:             zip.Store,
		CRC32:              crc32.ChecksumIEEE(data),
		CompressedSize64:   uint64(len(data)),
		UncompressedSize64: uint64(len(data)),
	}
	writer, err := w.CreateRaw(header)
	if err != nil {
		return errors.Errorf("adding %s: %w", ports.MimetypeName, err)
	}
	if _, err := writer.Write(data); err != nil {
		return errors.Errorf("adding %s: %w", ports.MimetypeName, err)
	}
	return nil
}

func copyFile(dst io.Writer, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	_, err = io.Copy(dst, file)
	return err
}

func isEmptyDir(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return false, err
	}
	return len(entries) == 0, nil
}

// List returns the archive's entries in central directory order.
func (a *ZipArchiver) List(zipPath string) ([]ports.EntryInfo, error) {
	r, err := openReader(zipPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	entries := make([]ports.EntryInfo, 0, len(r.File))
	for _, f := range r.File {
		// Safe conversion: check for overflow before uint64 -> int64
		size := int64(0)
		if f.UncompressedSize64 <= math.MaxInt64 {
			size = int64(f.UncompressedSize64)
		}
		entries = append(entries, ports.EntryInfo{
			Name:   f.Name,
			Method: f.Method,
			Size:   size,
			CRC32:  f.CRC32,
			IsDir:  f.FileInfo().IsDir(),
		})
	}

	return entries, nil
}

// ReadFile reads the contents of a named entry from inside a zip archive.
func (a *ZipArchiver) ReadFile(zipPath, name string) ([]byte, error) {
	r, err := openReader(zipPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	for _, f := range r.File {
		if f.Name != name {
			continue
		}
		if f.UncompressedSize64 > a.opts.MaxEntrySize {
			return nil, errors.Errorf("entry too large: %s", name)
		}
		rc, err := f.Open()
		if err != nil {
			return nil, errors.Errorf("opening %s: %w", name, err)
		}
		defer func() { _ = rc.Close() }()

		return io.ReadAll(io.LimitReader(rc, int64(f.UncompressedSize64)+1))
	}

	return nil, errors.Errorf("entry not found in archive: %s: %w", name, os.ErrNotExist)
}

// Compile-time check that ZipArchiver implements ports.Archiver.
var _ ports.Archiver = (*ZipArchiver)(nil)
