// Package tidy runs the replace transaction over a book: extract the
// archive, rewrite matching entries, repack, and rename the result over the
// original. The original is only ever touched by that final rename.
package tidy

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/mcdonaldj/epubtidy/internal/journal"
	"github.com/mcdonaldj/epubtidy/internal/metrics"
	"github.com/mcdonaldj/epubtidy/internal/ports"
	"github.com/mcdonaldj/epubtidy/internal/walker"
)

// PendingSuffix ends the name of the repacked archive while it waits to be
// renamed over the original.
const PendingSuffix = ".tmpzip"

// Result describes one finished transaction.
type Result struct {
	Book      string
	State     State // Committed, Failed, or Walked when nothing was replaced
	FailedAt  State // the state the transaction was in when it failed
	Outcome   walker.Outcome
	Rewritten []string
	Failures  []walker.EntryError
	Warnings  []string
	Changes   []walker.Change
	Entries   int
	DryRun    bool
	Duration  time.Duration
	Err       error
}

// OK reports whether the transaction finished without a transaction-level
// error. Per-entry failures do not count.
func (r Result) OK() bool {
	return r.Err == nil
}

// Replaced reports whether the book on disk was replaced.
func (r Result) Replaced() bool {
	return r.State == Committed
}

// Status is a short label for logs and metrics.
func (r Result) Status() string {
	switch {
	case r.Err != nil:
		return "failed"
	case r.Outcome == walker.ChangesApplied:
		return "changed"
	default:
		return "unchanged"
	}
}

// JournalWriter persists one entry per processed book.
type JournalWriter interface {
	Record(entry journal.Entry) error
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger for state transitions.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *Service) { s.metrics = r }
}

// WithJournal records every non-dry-run transaction.
func WithJournal(j JournalWriter) Option {
	return func(s *Service) { s.journal = j }
}

// WithTextfile records into p and writes it to path after every Run.
func WithTextfile(p *metrics.Prom, path string) Option {
	return func(s *Service) {
		s.metrics = p
		s.metricsFile = path
		s.textfile = p.WriteTextfile
	}
}

// WithDryRun stops every transaction after the walk. The scratch copy is
// rewritten and discarded; the book is never replaced.
func WithDryRun(dryRun bool) Option {
	return func(s *Service) { s.dryRun = dryRun }
}

// WithCapture keeps the before/after text of rewritten entries in the result.
func WithCapture(capture bool) Option {
	return func(s *Service) { s.capture = capture }
}

// WithIDFunc replaces the generator of pending output names.
func WithIDFunc(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// WithDigest sets the function used to fingerprint a book for the journal.
func WithDigest(digest func(path string) (string, error)) Option {
	return func(s *Service) { s.digest = digest }
}

// Service provides the replace transaction with injected dependencies.
type Service struct {
	fs        ports.FileSystem
	archiver  ports.Archiver
	walker    *walker.Walker
	match     walker.Predicate
	transform walker.TransformFunc

	log         zerolog.Logger
	metrics     metrics.Recorder
	journal     JournalWriter
	metricsFile string
	textfile    func(path string) error
	newID       func() string
	digest      func(path string) (string, error)
	dryRun      bool
	capture     bool
}

// NewService creates a transaction service with the given dependencies.
func NewService(fs ports.FileSystem, archiver ports.Archiver, match walker.Predicate, transform walker.TransformFunc, opts ...Option) *Service {
	s := &Service{
		fs:        fs,
		archiver:  archiver,
		match:     match,
		transform: transform,
		log:       zerolog.Nop(),
		metrics:   metrics.Noop{},
		newID:     uuid.NewString,
		digest:    journal.ComputeBLAKE3,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.walker = walker.New(fs, walker.Options{Capture: s.capture || s.dryRun})
	return s
}

// DryRun reports whether the service leaves books untouched.
func (s *Service) DryRun() bool {
	return s.dryRun
}

// Process runs one transaction over book. It never panics and never leaves
// scratch or pending files behind; the returned Result carries any error.
// Panics in the journal or metrics hooks are logged and do not alter the
// result.
func (s *Service) Process(book string) (res Result) {
	start := time.Now()
	res = Result{Book: book, State: Idle, DryRun: s.dryRun}
	log := s.log.With().Str("book", book).Logger()

	var scratch, pending, before string

	defer func() {
		if r := recover(); r != nil {
			s.fail(&res, errors.Errorf("%w: panic: %v", ErrUnexpected, r), ErrUnexpected)
		}
		s.cleanup(log, scratch, pending)
		res.Duration = time.Since(start)
		s.finish(log, &res, before)
	}()

	info, err := s.fs.Stat(book)
	if err != nil {
		s.fail(&res, errors.Errorf("reading %s: %w", book, err), ErrNotAnArchive)
		return res
	}
	if !info.Mode().IsRegular() {
		s.fail(&res, errors.Errorf("%s is not a regular file", book), ErrNotAnArchive)
		return res
	}
	if s.journal != nil && !s.dryRun {
		before = s.fingerprint(log, book)
	}

	scratch, err = s.archiver.Extract(book)
	if err != nil {
		scratch = ""
		s.fail(&res, err, ErrNotAnArchive)
		return res
	}
	s.transition(log, &res, Extracted)

	walked := s.walker.Transform(scratch, s.match, s.transform)
	res.Outcome = walked.Outcome()
	res.Rewritten = walked.Rewritten
	res.Failures = walked.Failures
	res.Warnings = walked.Warnings
	res.Changes = walked.Changes
	for _, f := range walked.Failures {
		log.Warn().Str("entry", f.Path).Err(f.Err).Msg("entry skipped")
	}
	for _, w := range walked.Warnings {
		log.Warn().Msg(w)
	}
	s.transition(log, &res, Walked)

	if res.Outcome != walker.ChangesApplied || s.dryRun {
		return res
	}

	pending = fmt.Sprintf("%s.%s%s", book, s.newID(), PendingSuffix)
	res.Entries, err = s.archiver.Pack(scratch, pending)
	if err != nil {
		s.fail(&res, err, ErrPack)
		return res
	}
	s.transition(log, &res, Packed)

	if err := s.fs.Chmod(pending, info.Mode().Perm()); err != nil {
		s.fail(&res, errors.Errorf("setting permissions: %w", err), ErrCommit)
		return res
	}
	if err := s.fs.Rename(pending, book); err != nil {
		s.fail(&res, errors.Errorf("renaming over %s: %w", book, err), ErrCommit)
		return res
	}
	pending = ""
	s.transition(log, &res, Committed)

	return res
}

// Run processes books one after another.
func (s *Service) Run(books []string) []Result {
	results := make([]Result, 0, len(books))
	for _, book := range books {
		results = append(results, s.Process(book))
	}
	if s.metricsFile != "" && s.textfile != nil {
		if err := s.textfile(s.metricsFile); err != nil {
			s.log.Warn().Err(err).Str("path", s.metricsFile).Msg("writing metrics failed")
		}
	}
	return results
}

func (s *Service) transition(log zerolog.Logger, res *Result, to State) {
	log.Debug().Str("from", res.State.String()).Str("state", to.String()).Msg("transition")
	res.State = to
}

func (s *Service) fail(res *Result, err error, kind error) {
	res.FailedAt = res.State
	res.State = Failed
	res.Err = classify(err, kind)
}

// cleanup removes the scratch tree and any pending output that was not
// consumed by the rename.
func (s *Service) cleanup(log zerolog.Logger, scratch, pending string) {
	if scratch != "" {
		if err := s.fs.RemoveAll(scratch); err != nil {
			log.Warn().Err(err).Str("path", scratch).Msg("removing scratch directory failed")
		}
	}
	if pending != "" {
		if err := s.fs.Remove(pending); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("path", pending).Msg("removing pending output failed")
		}
	}
}

func (s *Service) fingerprint(log zerolog.Logger, book string) string {
	sum, err := s.digest(book)
	if err != nil {
		log.Debug().Err(err).Msg("fingerprint unavailable")
		return ""
	}
	return sum
}

func (s *Service) finish(log zerolog.Logger, res *Result, before string) {
	rewritten := 0
	if res.Replaced() {
		rewritten = len(res.Rewritten)
	}
	s.guard(log, "recording metrics", func() {
		s.metrics.ObserveBook(res.Status(), rewritten, len(res.Failures), res.Duration.Seconds())
	})

	event := log.Info()
	if res.Err != nil {
		event = log.Error().Err(res.Err).Str("failed_at", res.FailedAt.String())
	}
	event.Str("state", res.State.String()).
		Str("outcome", res.Outcome.String()).
		Int("rewritten", len(res.Rewritten)).
		Dur("duration", res.Duration).
		Msg("book processed")

	if s.journal == nil || s.dryRun {
		return
	}
	s.guard(log, "recording journal entry", func() { s.record(log, res, before) })
}

// guard runs a post-transaction hook. The result is already decided, so a
// panicking hook is logged and otherwise ignored.
func (s *Service) guard(log zerolog.Logger, what string, hook func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Str("panic", fmt.Sprint(r)).Msg(what + " panicked")
		}
	}()
	hook()
}

func (s *Service) record(log zerolog.Logger, res *Result, before string) {
	entry := journal.Entry{
		Book:       res.Book,
		Outcome:    res.Status(),
		Rewritten:  res.Rewritten,
		Before:     before,
		After:      before,
		Entries:    res.Entries,
		DurationMS: res.Duration.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	if res.Err != nil {
		entry.Error = res.Err.Error()
		entry.Rewritten = nil
	}
	if res.Replaced() {
		entry.After = s.fingerprint(log, res.Book)
	}
	if err := s.journal.Record(entry); err != nil {
		log.Warn().Err(err).Msg("recording journal entry failed")
	}
}
