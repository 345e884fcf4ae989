// Package preview turns captured entry rewrites into line diffs.
package preview

import (
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/mcdonaldj/epubtidy/internal/walker"
)

// DiffLine represents a single line in the diff output
type DiffLine struct {
	LineNum1 int    // Line number before (0 if added)
	LineNum2 int    // Line number after (0 if deleted)
	Type     rune   // '+' added, '-' deleted, ' ' unchanged
	Content  string // Line content
}

// FileDiff is the diff of one rewritten entry.
type FileDiff struct {
	Path     string
	Lines    []DiffLine
	Removed  []string // declaration text removed, in order
	IsBinary bool
}

// Added counts '+' lines.
func (d FileDiff) Added() int { return d.count('+') }

// Deleted counts '-' lines.
func (d FileDiff) Deleted() int { return d.count('-') }

func (d FileDiff) count(kind rune) int {
	n := 0
	for _, l := range d.Lines {
		if l.Type == kind {
			n++
		}
	}
	return n
}

// Changes diffs every captured change.
func Changes(changes []walker.Change) []FileDiff {
	diffs := make([]FileDiff, 0, len(changes))
	for _, c := range changes {
		diffs = append(diffs, Compute(c))
	}
	return diffs
}

// Compute diffs one captured change.
func Compute(c walker.Change) FileDiff {
	d := FileDiff{Path: c.Path}
	if IsBinaryContent(c.Before) || IsBinaryContent(c.After) {
		d.IsBinary = true
		return d
	}
	d.Lines = Lines(c.Before, c.After)
	d.Removed = Removed(c.Before, c.After)
	return d
}

// Lines computes a line-by-line diff.
func Lines(before, after string) []DiffLine {
	dmp := diffmatchpatch.New()
	chars1, chars2, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(chars1, chars2, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var lines []DiffLine
	n1, n2 := 0, 0
	for _, diff := range diffs {
		for _, text := range splitLines(diff.Text) {
			switch diff.Type {
			case diffmatchpatch.DiffEqual:
				n1++
				n2++
				lines = append(lines, DiffLine{LineNum1: n1, LineNum2: n2, Type: ' ', Content: text})
			case diffmatchpatch.DiffDelete:
				n1++
				lines = append(lines, DiffLine{LineNum1: n1, Type: '-', Content: text})
			case diffmatchpatch.DiffInsert:
				n2++
				lines = append(lines, DiffLine{LineNum2: n2, Type: '+', Content: text})
			}
		}
	}
	return lines
}

// OnlyChanges drops unchanged lines.
func OnlyChanges(lines []DiffLine) []DiffLine {
	var out []DiffLine
	for _, l := range lines {
		if l.Type != ' ' {
			out = append(out, l)
		}
	}
	return out
}

// Removed returns the fragments deleted between before and after, trimmed.
// Insertions are ignored: a stripping rule only ever deletes.
func Removed(before, after string) []string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, after, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var removed []string
	for _, diff := range diffs {
		if diff.Type != diffmatchpatch.DiffDelete {
			continue
		}
		if text := strings.TrimSpace(diff.Text); text != "" {
			removed = append(removed, text)
		}
	}
	return removed
}

// splitLines splits diff text into lines without the trailing empty element
// a final newline would produce.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

// IsBinaryContent checks if content appears to be binary
func IsBinaryContent(content string) bool {
	if len(content) == 0 {
		return false
	}
	// Check first 8000 bytes for null bytes or invalid UTF-8
	checkLen := len(content)
	if checkLen > 8000 {
		checkLen = 8000
	}
	sample := content[:checkLen]

	if strings.Contains(sample, "\x00") {
		return true
	}

	// A cut in the middle of a rune is not binary
	for i := 0; i < utf8.UTFMax && len(sample) > 0 && !utf8.ValidString(sample); i++ {
		sample = sample[:len(sample)-1]
	}
	return !utf8.ValidString(sample)
}
