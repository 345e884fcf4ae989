// Package cssrule strips unwanted declarations from stylesheet text.
//
// A Rule removes every declaration whose property is listed in Properties,
// whatever its value, and every declaration listed verbatim in Declarations
// (for example "display: block"). Property names only match at a declaration
// boundary, so removing "color" leaves "background-color" alone.
package cssrule

import (
	"regexp"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// DefaultProperties are removed whatever their value.
var DefaultProperties = []string{
	"text-indent",
	"line-height",
	"font-size",
	"height",
	"font-family",
	"color",
}

// DefaultDeclarations are removed only when the value matches.
var DefaultDeclarations = []string{
	"display: block",
}

// Rule is a compiled declaration stripper. The zero value is not usable;
// construct one with New.
type Rule struct {
	pattern      *regexp.Regexp
	properties   []string
	declarations []string
}

// New compiles a rule from property names and property/value declarations.
func New(properties, declarations []string) (*Rule, error) {
	var alts []string

	var names, kept []string
	for _, p := range properties {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !validProperty(p) {
			return nil, errors.Errorf("invalid property name %q", p)
		}
		names = append(names, regexp.QuoteMeta(p))
		kept = append(kept, p)
	}
	if len(names) > 0 {
		alts = append(alts, `(?:`+strings.Join(names, "|")+`)\s*:\s*[^;{}]*;`)
	}

	for _, d := range declarations {
		prop, value, ok := strings.Cut(d, ":")
		prop, value = strings.TrimSpace(prop), strings.TrimSpace(value)
		if !ok || prop == "" || value == "" {
			return nil, errors.Errorf("declaration %q must have the form \"property: value\"", d)
		}
		if !validProperty(prop) {
			return nil, errors.Errorf("invalid property name %q", prop)
		}
		alts = append(alts, regexp.QuoteMeta(prop)+`\s*:\s*`+valuePattern(value)+`\s*;`)
	}

	if len(alts) == 0 {
		return nil, errors.New("rule has nothing to remove")
	}

	// The leading group anchors the match at a declaration boundary and is
	// put back by the replacement.
	pattern, err := regexp.Compile(`(?i)(^|[^-\w])(?:` + strings.Join(alts, "|") + `)`)
	if err != nil {
		return nil, errors.Errorf("compiling rule: %w", err)
	}

	return &Rule{
		pattern:      pattern,
		properties:   kept,
		declarations: append([]string(nil), declarations...),
	}, nil
}

// Clean returns css with every matching declaration removed.
// Clean(Clean(x)) == Clean(x) for every x.
func (r *Rule) Clean(css string) string {
	out := css
	// A match consumes the ';' that would anchor an adjacent declaration,
	// so repeat until nothing else matches.
	for {
		next := r.pattern.ReplaceAllString(out, "${1}")
		if next == out {
			return out
		}
		out = next
	}
}

// Apply returns the cleaned css and whether anything was removed.
func (r *Rule) Apply(css string) (string, bool) {
	out := r.Clean(css)
	return out, out != css
}

// Describe lists what the rule removes, for display.
func (r *Rule) Describe() string {
	parts := append([]string(nil), r.properties...)
	parts = append(parts, r.declarations...)
	return strings.Join(parts, ", ")
}

func validProperty(p string) bool {
	for _, c := range p {
		if !(c == '-' || c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}

// valuePattern matches value with any run of whitespace between its words.
func valuePattern(value string) string {
	words := strings.Fields(value)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(words, `\s+`)
}
