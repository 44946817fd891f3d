package classify

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// containsToken reports whether token occurs in s as a standalone word.
// Matching is case-sensitive; a hit inside a longer word ("SUCCESSOR",
// "successfully") does not count. Boundaries are string edges or any
// non-alphanumeric rune.
func containsToken(s, token string) bool {
	if token == "" {
		return false
	}
	for start := 0; start+len(token) <= len(s); {
		i := strings.Index(s[start:], token)
		if i < 0 {
			return false
		}
		i += start
		if boundaryBefore(s, i) && boundaryAfter(s, i+len(token)) {
			return true
		}
		start = i + 1
	}
	return false
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
