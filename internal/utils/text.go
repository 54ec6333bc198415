package utils

import "strings"

// ContainsAny reports whether s contains any of the tokens, ignoring case.
func ContainsAny(s string, tokens ...string) bool {
	lower := strings.ToLower(s)
	for _, tok := range tokens {
		if strings.Contains(lower, strings.ToLower(tok)) {
			return true
		}
	}
	return false
}

// FirstMatch returns the first token (in table order) found in s, ignoring case.
func FirstMatch(s string, tokens ...string) (string, bool) {
	lower := strings.ToLower(s)
	for _, tok := range tokens {
		if strings.Contains(lower, strings.ToLower(tok)) {
			return tok, true
		}
	}
	return "", false
}

// TrimPrefixFold strips prefix from s when s starts with it, ignoring case.
func TrimPrefixFold(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return s, false
}
