package tidy

import (
	"gitlab.com/tozd/go/errors"

	"github.com/mcdonaldj/epubtidy/internal/adapters/osfs"
	"github.com/mcdonaldj/epubtidy/internal/adapters/ziparchiver"
	"github.com/mcdonaldj/epubtidy/internal/config"
	"github.com/mcdonaldj/epubtidy/internal/cssrule"
	"github.com/mcdonaldj/epubtidy/internal/journal"
	"github.com/mcdonaldj/epubtidy/internal/metrics"
	"github.com/mcdonaldj/epubtidy/internal/walker"
)

// DefaultJournalPath is used when the journal is enabled without a path.
const DefaultJournalPath = "~/.epubtidy/journal.json"

// NewDefaultService creates a transaction service with real production
// dependencies configured from cfg. opts are applied after the
// config-derived options.
func NewDefaultService(cfg *config.Config, opts ...Option) (*Service, error) {
	rule, err := cssrule.New(cfg.Properties, cfg.Declarations)
	if err != nil {
		return nil, errors.Errorf("building rule: %w", err)
	}
	match, err := Predicate(cfg)
	if err != nil {
		return nil, err
	}

	var defaults []Option
	if cfg.Journal.Enabled {
		path := cfg.Journal.Path
		if path == "" {
			path = DefaultJournalPath
		}
		path, err = config.ExpandPath(path)
		if err != nil {
			return nil, err
		}
		defaults = append(defaults, WithJournal(&journal.Store{Path: path, KeepLast: cfg.Journal.KeepLast}))
	}
	if cfg.MetricsFile != "" {
		path, err := config.ExpandPath(cfg.MetricsFile)
		if err != nil {
			return nil, err
		}
		defaults = append(defaults, WithTextfile(metrics.NewProm("epubtidy"), path))
	}

	archiver := ziparchiver.NewWithOptions(ziparchiver.Options{CompressionLevel: cfg.CompressionLevel})
	return NewService(osfs.New(), archiver, match, rule.Clean, append(defaults, opts...)...), nil
}

// Predicate builds the entry selector from the configured extensions and
// include globs.
func Predicate(cfg *config.Config) (walker.Predicate, error) {
	include, err := walker.Globs(cfg.Include)
	if err != nil {
		return nil, err
	}
	return walker.All(walker.Extensions(cfg.Extensions...), include), nil
}

// Summary counts the results of a batch.
type Summary struct {
	Attempted int
	Succeeded int // includes books that needed no change
	Changed   int
	Failed    int
}

// Summarize counts results.
func Summarize(results []Result) Summary {
	var sum Summary
	for _, r := range results {
		sum.Attempted++
		if !r.OK() {
			sum.Failed++
			continue
		}
		sum.Succeeded++
		if r.Outcome == walker.ChangesApplied {
			sum.Changed++
		}
	}
	return sum
}
