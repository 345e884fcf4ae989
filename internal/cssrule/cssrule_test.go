package cssrule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultRule(t *testing.T) *Rule {
	t.Helper()
	rule, err := New(DefaultProperties, DefaultDeclarations)
	require.NoError(t, err)
	return rule
}

func TestDefaultRuleClean(t *testing.T) {
	rule := defaultRule(t)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "strips listed properties",
			in:   "p { color: red; text-indent: 2em; }",
			want: "p {   }",
		},
		{
			name: "declaration-only input",
			in:   "color: red; text-indent: 2em;",
			want: " ",
		},
		{
			name: "adjacent declarations without whitespace",
			in:   "p{color:red;color:blue;margin:0;}",
			want: "p{margin:0;}",
		},
		{
			name: "case insensitive",
			in:   "p { COLOR: Red; Font-Family: serif; }",
			want: "p {   }",
		},
		{
			name: "keeps compound property names",
			in:   "p { background-color: red; max-height: 10px; border-color: blue; }",
			want: "p { background-color: red; max-height: 10px; border-color: blue; }",
		},
		{
			name: "display block only",
			in:   "div { display: block; } span { display: inline; }",
			want: "div {  } span { display: inline; }",
		},
		{
			name: "display block with odd spacing",
			in:   "div{display :  block ;}",
			want: "div{}",
		},
		{
			name: "important values are removed too",
			in:   "p { line-height: 1.5 !important; }",
			want: "p {  }",
		},
		{
			name: "declaration without semicolon is kept",
			in:   "p { color: red }",
			want: "p { color: red }",
		},
		{
			name: "selectors are not touched",
			in:   ".color:hover { margin: 0; }",
			want: ".color:hover { margin: 0; }",
		},
		{
			name: "multi-line stylesheet",
			in:   "h1 {\n  font-size: 2em;\n  margin: 0;\n}\n",
			want: "h1 {\n  \n  margin: 0;\n}\n",
		},
		{
			name: "empty input",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rule.Clean(tt.in))
		})
	}
}

func TestCleanIsIdempotent(t *testing.T) {
	rule := defaultRule(t)
	inputs := []string{
		"p{color:red;color:blue;}",
		"a { height: 1px; line-height: 2; } b { display: block; }",
		"plain text without declarations",
	}
	for _, in := range inputs {
		once := rule.Clean(in)
		assert.Equal(t, once, rule.Clean(once), "input %q", in)
	}
}

func TestApplyReportsChange(t *testing.T) {
	rule := defaultRule(t)

	out, changed := rule.Apply("p { color: red; }")
	assert.True(t, changed)
	assert.Equal(t, "p {  }", out)

	out, changed = rule.Apply("p { margin: 0; }")
	assert.False(t, changed)
	assert.Equal(t, "p { margin: 0; }", out)
}

func TestNewCustomRule(t *testing.T) {
	rule, err := New([]string{"margin"}, []string{"font-weight: bold"})
	require.NoError(t, err)

	assert.Equal(t, "p { color: red;  }", rule.Clean("p { color: red; margin: 0 auto; }"))
	assert.Equal(t, "b {  }", rule.Clean("b { font-weight:   bold; }"))
	assert.Equal(t, "b { font-weight: normal; }", rule.Clean("b { font-weight: normal; }"))
	assert.Equal(t, "margin, font-weight: bold", rule.Describe())
}

func TestNewRejectsBadInput(t *testing.T) {
	tests := []struct {
		name         string
		properties   []string
		declarations []string
	}{
		{"nothing to remove", nil, nil},
		{"blank properties only", []string{" ", ""}, nil},
		{"bad property name", []string{"col(or"}, nil},
		{"declaration without value", nil, []string{"display:"}},
		{"declaration without colon", nil, []string{"display block"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.properties, tt.declarations)
			assert.Error(t, err)
		})
	}
}
