// Package strings holds small text helpers for user-facing and log output.
package strings

import (
	"strings"
)

// MaxDescriptionLen bounds provider supplied descriptions in messages.
const MaxDescriptionLen = 200

// MinTruncateLen is the smallest maxLen SingleLine accepts.
const MinTruncateLen = 4

// SingleLine collapses all whitespace in s to single spaces and truncates
// the result to maxLen runes, ending with "..." when cut. maxLen below
// MinTruncateLen is raised to it.
func SingleLine(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}

// MaskToken returns a form of a bearer token that is safe to log: its
// first and last four characters. Tokens of twelve characters or fewer are
// masked completely.
func MaskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
