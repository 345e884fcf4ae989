package preview

import (
	"strings"
	"testing"

	"github.com/mcdonaldj/epubtidy/internal/walker"
)

func TestLines(t *testing.T) {
	before := "p { color: red; }\nh1 { margin: 0; }\nh2 { font-size: 2em; }\n"
	after := "p {  }\nh1 { margin: 0; }\nh2 {  }\n"

	lines := Lines(before, after)

	expected := []DiffLine{
		{LineNum1: 1, Type: '-', Content: "p { color: red; }"},
		{LineNum2: 1, Type: '+', Content: "p {  }"},
		{LineNum1: 2, LineNum2: 2, Type: ' ', Content: "h1 { margin: 0; }"},
		{LineNum1: 3, Type: '-', Content: "h2 { font-size: 2em; }"},
		{LineNum2: 3, Type: '+', Content: "h2 {  }"},
	}
	if len(lines) != len(expected) {
		t.Fatalf("Lines returned %d lines, expected %d: %+v", len(lines), len(expected), lines)
	}
	for i := range expected {
		if lines[i] != expected[i] {
			t.Errorf("Lines[%d] = %+v, expected %+v", i, lines[i], expected[i])
		}
	}

	changed := OnlyChanges(lines)
	if len(changed) != 4 {
		t.Errorf("OnlyChanges = %d lines, expected 4", len(changed))
	}
}

func TestLinesIdentical(t *testing.T) {
	lines := Lines("a\nb", "a\nb")
	for _, l := range lines {
		if l.Type != ' ' {
			t.Errorf("unexpected change %+v", l)
		}
	}
	if len(lines) != 2 {
		t.Errorf("Lines = %d, expected 2", len(lines))
	}
}

func TestRemoved(t *testing.T) {
	removed := Removed("p { color: red; }", "p {  }")
	if len(removed) != 1 || removed[0] != "color: red;" {
		t.Errorf("Removed = %q, expected [\"color: red;\"]", removed)
	}

	if got := Removed("same", "same"); len(got) != 0 {
		t.Errorf("Removed(same) = %q, expected none", got)
	}
}

func TestCompute(t *testing.T) {
	d := Compute(walker.Change{Path: "OEBPS/a.css", Before: "p { color: red; }\n", After: "p {  }\n"})

	if d.Path != "OEBPS/a.css" {
		t.Errorf("Path = %q", d.Path)
	}
	if d.Added() != 1 || d.Deleted() != 1 {
		t.Errorf("Added/Deleted = %d/%d, expected 1/1", d.Added(), d.Deleted())
	}
	if len(d.Removed) != 1 || !strings.Contains(d.Removed[0], "color") {
		t.Errorf("Removed = %q", d.Removed)
	}

	bin := Compute(walker.Change{Path: "x.css", Before: "a\x00b", After: "ab"})
	if !bin.IsBinary || bin.Lines != nil {
		t.Errorf("binary change should not be diffed: %+v", bin)
	}

	all := Changes([]walker.Change{{Path: "a"}, {Path: "b"}})
	if len(all) != 2 || all[1].Path != "b" {
		t.Errorf("Changes = %+v", all)
	}
}

func TestIsBinaryContent(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected bool
	}{
		{"empty", "", false},
		{"css", "p { margin: 0; }", false},
		{"utf-8", "p::after { content: \"→\"; }", false},
		{"null byte", "abc\x00def", true},
		{"invalid utf-8", "abc\xffdef", true},
		{"rune cut at sample end", strings.Repeat("a", 7999) + "é", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsBinaryContent(tt.content); got != tt.expected {
				t.Errorf("IsBinaryContent = %v, expected %v", got, tt.expected)
			}
		})
	}
}
