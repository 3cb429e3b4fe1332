package mapper

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Ellipsis marks a truncated abstract.
const Ellipsis = "..."

// yearRegex finds a 19xx or 20xx year that is not part of a longer digit run.
// "2023年" and "2023-05" match; "12023" does not.
var yearRegex = regexp.MustCompile(`(?:^|[^0-9])((?:19|20)[0-9]{2})(?:[^0-9]|$)`)

// ExtractYear returns the first year found in text.
func ExtractYear(text string) (string, bool) {
	m := yearRegex.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Truncate cuts s to at most limit runes, appending Ellipsis when it cut.
// A non-positive limit disables truncation.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i] + Ellipsis
		}
		n++
	}
	return s
}

// IsHTTPURL reports whether s starts with an http:// or https:// scheme.
func IsHTTPURL(s string) bool {
	l := strings.ToLower(s)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}
