package tidy

import (
	"gitlab.com/tozd/go/errors"

	"github.com/mcdonaldj/epubtidy/internal/ports"
)

// Error kinds reported by Process. Match them with errors.Is.
var (
	ErrNotAnArchive = ports.ErrNotAnArchive
	ErrEntryIO      = ports.ErrEntryIO
	ErrPack         = ports.ErrPack
	ErrCommit       = ports.ErrCommit
	ErrUnexpected   = ports.ErrUnexpected
)

// classify wraps err with kind unless it already carries a known kind.
func classify(err error, kind error) error {
	for _, known := range []error{ErrNotAnArchive, ErrPack, ErrCommit, ErrUnexpected} {
		if errors.Is(err, known) {
			return err
		}
	}
	return errors.Errorf("%w: %w", kind, err)
}
