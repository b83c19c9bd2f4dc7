package utils

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// SanitizeText strips any markup from user supplied free text and trims it.
// The result is plain text (entities decoded), not HTML. Output longer than
// maxRunes is cut on a rune boundary; maxRunes <= 0 disables the limit.
func SanitizeText(s string, maxRunes int) string {
	s = strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
	if maxRunes > 0 && utf8.RuneCountInString(s) > maxRunes {
		s = string([]rune(s)[:maxRunes])
	}
	return s
}

// IsBlank reports whether s has no visible content once markup is removed.
func IsBlank(s string) bool {
	return SanitizeText(s, 0) == ""
}
