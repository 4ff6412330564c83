package engine

import (
	"strings"

	"golang.org/x/text/language"
)

// canonicalLang turns platform language codes such as "en-gb" or
// "en_GB" into BCP 47 form ("en-GB"). Unparseable codes are returned
// with underscores replaced.
func canonicalLang(raw string) string {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), "_", "-")
	if raw == "" {
		return ""
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return raw
	}
	return tag.String()
}
