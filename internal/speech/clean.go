package speech

import (
	"regexp"
	"strings"
)

// Bracketed asides are not read aloud. Each pattern also eats the
// whitespace run in front of the aside.
var asidePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\s*\([^)]*\)`),
	regexp.MustCompile(`\s*\[[^\]]*\]`),
	regexp.MustCompile(`\s*\{[^}]*\}`),
}

// Clean strips (...), [...] and {...} spans from text and collapses
// whitespace. It is the form of the text that is sent to the engine.
func Clean(text string) string {
	for _, re := range asidePatterns {
		text = re.ReplaceAllString(text, "")
	}
	return strings.Join(strings.Fields(text), " ")
}
