package domain

import "strings"

// NormalizeSearchTerm lowercases a user-supplied search keyword, trims it
// and collapses inner whitespace runs to one space.
func NormalizeSearchTerm(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
