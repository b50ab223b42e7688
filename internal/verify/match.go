package verify

import "strings"

// Normalize collapses whitespace runs and lower-cases s.
func Normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// CommandsMatch reports whether input is the expected command up to
// whitespace and case. Commands with the same effect but different text
// do not match.
func CommandsMatch(input, expected string) bool {
	return Normalize(input) == Normalize(expected)
}
