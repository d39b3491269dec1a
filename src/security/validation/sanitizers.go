package validation

import (
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

var strictHTMLPolicy = bluemonday.StrictPolicy() // removes all HTML tags

// SanitizeText removes all HTML tags and attributes from an input string.
// bluemonday escapes the remaining text, so entities are folded back for
// plain values such as "R&D".
func SanitizeText(s string) string {
	cleaned := strictHTMLPolicy.Sanitize(s)
	return strings.NewReplacer("&amp;", "&", "&#39;", "'", "&#34;", "\"", "&lt;", "<", "&gt;", ">").Replace(cleaned)
}

// SanitizeForFormulaInjection prepends a single quote if the string starts with a formula character.
// This prevents CSV Injection (Formula Injection) in Excel/Sheets.
func SanitizeForFormulaInjection(s string) string {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) == 0 {
		return s
	}

	switch trimmed[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

// StripUnprintable removes non-printable characters, allowing common whitespace
// like space, tab, newline, and carriage return.
func StripUnprintable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\t' || r == '\n' || r == '\r' {
			return r
		}
		return -1
	}, s)
}

// CleanFilterValue normalizes an incoming filter value. Values are matched
// by exact equality and never rendered, so markup-like text such as "<1Y"
// is kept verbatim.
func CleanFilterValue(s string) string {
	return strings.TrimSpace(StripUnprintable(s))
}
