package speech

import (
	"strings"
	"testing"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "The reef is dying.", "The reef is dying."},
		{"parenthesis", "Coral reefs (see Figure 1) are fragile.", "Coral reefs are fragile."},
		{"brackets", "The author [Smith, 2004] argues this.", "The author argues this."},
		{"braces", "Answer {A} is correct.", "Answer is correct."},
		{"all kinds", "One (a) two [b] three {c} four", "One two three four"},
		{"whitespace", "  too   many\n\tspaces  ", "too many spaces"},
		{"leading aside", "(Note) Read carefully.", "Read carefully."},
		{"unmatched open", "left ( open", "left ( open"},
		{"nested parens", "a ((b)) c", "a) c"},
		{"only aside", "(nothing else)", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.input); got != tt.expected {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCleanIdempotent(t *testing.T) {
	inputs := []string{
		"The (first) passage [ref] is {x} here.",
		"{a(}b)c}",
		"[x(y]z)",
		"( [ ) ]",
		"  spaced   out  (aside)  text ",
		"no brackets at all",
		"((double)) [[double]] {{double}}",
	}

	for _, in := range inputs {
		once := Clean(in)
		if twice := Clean(once); twice != once {
			t.Errorf("Clean not idempotent for %q: %q then %q", in, once, twice)
		}
		for _, pair := range []string{"()", "[]", "{}"} {
			open := strings.IndexByte(once, pair[0])
			if open >= 0 && strings.IndexByte(once[open:], pair[1]) >= 0 {
				t.Errorf("Clean(%q) = %q still holds a %s span", in, once, pair)
			}
		}
	}
}
