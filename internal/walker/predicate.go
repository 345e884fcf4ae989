package walker

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"
)

// Predicate selects entries by their slash-separated path inside the
// container.
type Predicate func(name string) bool

// Extensions matches entries whose extension equals one of exts, ignoring
// case. A missing leading dot is added.
func Extensions(exts ...string) Predicate {
	want := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		want[e] = true
	}
	return func(name string) bool {
		return want[strings.ToLower(path.Ext(name))]
	}
}

// Globs matches entries against doublestar patterns ("OEBPS/**/*.css").
// An empty pattern list matches everything.
func Globs(patterns []string) (Predicate, error) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, errors.Errorf("invalid include pattern %q", p)
		}
	}
	if len(patterns) == 0 {
		return func(string) bool { return true }, nil
	}
	return func(name string) bool {
		for _, p := range patterns {
			if ok, _ := doublestar.Match(p, name); ok {
				return true
			}
		}
		return false
	}, nil
}

// All matches entries accepted by every predicate.
func All(preds ...Predicate) Predicate {
	return func(name string) bool {
		for _, p := range preds {
			if !p(name) {
				return false
			}
		}
		return true
	}
}
