package ports

// MimetypeName is the reserved entry that must lead an EPUB container,
// stored without compression.
const MimetypeName = "mimetype"

// Archiver abstracts container (zip) operations for testability.
// Production code uses ZipArchiver adapter; tests use MockArchiver.
type Archiver interface {
	// Extract validates the archive at zipPath and materializes every entry
	// under a fresh scratch directory, which it returns.
	// Fails with ErrNotAnArchive without creating anything when the archive
	// is malformed; removes its own scratch directory on any later failure.
	Extract(zipPath string) (scratchDir string, err error)

	// Pack writes the tree under scratchDir into a new archive at destPath.
	// A root-level mimetype entry is written first and stored.
	// Returns the number of entries written. On failure no file is left at
	// destPath and the error wraps ErrPack.
	Pack(scratchDir, destPath string) (entries int, err error)

	// List returns the archive's entries in central directory order.
	List(zipPath string) ([]EntryInfo, error)

	// ReadFile reads the contents of a named entry from inside an archive.
	ReadFile(zipPath, name string) ([]byte, error)
}

// EntryInfo contains metadata about an entry in an archive.
type EntryInfo struct {
	Name   string
	Method uint16
	Size   int64
	CRC32  uint32
	IsDir  bool
}

// Stored reports whether the entry is written without compression.
func (e EntryInfo) Stored() bool {
	return e.Method == 0
}
