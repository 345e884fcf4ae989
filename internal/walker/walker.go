// Package walker rewrites the text assets of an extracted container.
//
// The walker visits every regular file under a scratch tree, selects entries
// with a Predicate, runs a TransformFunc over their decoded text and writes
// back only the entries whose text changed. Failures on individual entries
// are recorded and never stop the walk.
package walker

import (
	"fmt"
	"os"
	"path/filepath"

	"gitlab.com/tozd/go/errors"

	"github.com/mcdonaldj/epubtidy/internal/ports"
)

// TransformFunc maps an entry's text to its replacement. It must be pure:
// the walker only compares input and output to detect a change.
type TransformFunc func(content string) string

// Outcome aggregates the walk over a whole container.
type Outcome int

const (
	NoMatchingEntries Outcome = iota
	NoChangesNeeded
	ChangesApplied
)

func (o Outcome) String() string {
	switch o {
	case NoMatchingEntries:
		return "no matching entries"
	case NoChangesNeeded:
		return "no changes needed"
	case ChangesApplied:
		return "changes applied"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// EntryError records a failure on one entry. It matches ports.ErrEntryIO.
type EntryError struct {
	Path string // slash-separated path relative to the scratch root
	Err  error
}

func (e EntryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Unwrap exposes both the entry-level kind and the cause.
func (e EntryError) Unwrap() []error {
	return []error{ports.ErrEntryIO, e.Err}
}

// Change is the before/after text of a rewritten entry, kept when
// Options.Capture is set.
type Change struct {
	Path   string
	Before string
	After  string
}

// Result is the outcome of one walk.
type Result struct {
	Matched   int          // entries selected by the predicate
	Rewritten []string     // entries whose content changed, in walk order
	Failures  []EntryError // per-entry read/write failures
	Warnings  []string     // non-fatal notes, e.g. bytes dropped while decoding
	Changes   []Change
}

// Outcome classifies the walk.
func (r Result) Outcome() Outcome {
	switch {
	case r.Matched == 0:
		return NoMatchingEntries
	case len(r.Rewritten) > 0:
		return ChangesApplied
	default:
		return NoChangesNeeded
	}
}

// Failed reports whether any entry failed.
func (r Result) Failed() bool {
	return len(r.Failures) > 0
}

// Options configures a Walker.
type Options struct {
	// Capture keeps the before/after text of every rewritten entry.
	Capture bool
}

// Walker applies a transform to the matching entries of a scratch tree.
type Walker struct {
	fs   ports.FileSystem
	opts Options
}

// New creates a Walker over fs.
func New(fs ports.FileSystem, opts Options) *Walker {
	return &Walker{fs: fs, opts: opts}
}

// tempPattern builds the name of the sibling file an entry is written to
// before it is renamed into place. WriteTemp never reuses an existing name,
// so entries that happen to look like temporaries are left alone.
func tempPattern(name string) string {
	return "." + name + ".*.epubtidy"
}

// Transform walks root, rewriting every entry accepted by match whose text
// changes under transform.
func (w *Walker) Transform(root string, match Predicate, transform TransformFunc) Result {
	var res Result

	walkErr := w.fs.Walk(root, func(path string, info os.FileInfo, err error) error {
		name := relName(root, path)
		if err != nil {
			// An unreadable directory hides its children; record and skip it.
			if path != root {
				res.Failures = append(res.Failures, EntryError{Path: name, Err: err})
			}
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() || !info.Mode().IsRegular() {
			return nil
		}
		if !match(name) {
			return nil
		}
		res.Matched++
		w.rewrite(&res, path, name, info.Mode().Perm(), transform)
		return nil
	})
	if walkErr != nil {
		res.Failures = append(res.Failures, EntryError{Path: ".", Err: errors.WithStack(walkErr)})
	}

	return res
}

func (w *Walker) rewrite(res *Result, path, name string, perm os.FileMode, transform TransformFunc) {
	data, err := w.fs.ReadFile(path)
	if err != nil {
		res.Failures = append(res.Failures, EntryError{Path: name, Err: errors.Errorf("reading: %w", err)})
		return
	}

	text, dropped := decode(data)
	out := transform(text)
	if out == text {
		return
	}

	if perm == 0 {
		perm = 0o644
	}
	tmp, err := w.fs.WriteTemp(filepath.Dir(path), tempPattern(filepath.Base(path)), []byte(out), perm)
	if err != nil {
		res.Failures = append(res.Failures, EntryError{Path: name, Err: errors.Errorf("writing: %w", err)})
		return
	}
	if err := w.fs.Rename(tmp, path); err != nil {
		_ = w.fs.Remove(tmp)
		res.Failures = append(res.Failures, EntryError{Path: name, Err: errors.Errorf("replacing: %w", err)})
		return
	}

	if dropped > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s: dropped %d invalid byte(s) while decoding", name, dropped))
	}
	res.Rewritten = append(res.Rewritten, name)
	if w.opts.Capture {
		res.Changes = append(res.Changes, Change{Path: name, Before: text, After: out})
	}
}

// relName returns path relative to root with forward slashes, the form
// entries have inside the archive.
func relName(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
