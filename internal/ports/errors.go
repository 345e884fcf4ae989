package ports

import "gitlab.com/tozd/go/errors"

// Error kinds shared by the adapters and the transaction. Callers match them
// with errors.Is; adapters wrap the underlying cause.
var (
	// ErrNotAnArchive indicates a malformed or unreadable container.
	ErrNotAnArchive = errors.Base("not a valid archive")

	// ErrEntryIO indicates a read or write failure on a single entry.
	ErrEntryIO = errors.Base("entry i/o failed")

	// ErrPack indicates the replacement archive could not be written.
	ErrPack = errors.Base("repacking failed")

	// ErrCommit indicates the replacement could not be moved over the original.
	ErrCommit = errors.Base("replacing original failed")

	// ErrUnexpected indicates a failure outside the modelled states.
	ErrUnexpected = errors.Base("unexpected failure")
)
