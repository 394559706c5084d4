package policy

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// folder performs Unicode case folding, so "STRASSE" matches a blocklisted
// "straße" and Cyrillic or Turkish casing pairs compare correctly where
// strings.ToLower would not.
var folder = cases.Fold()

// MatchesBlocklist reports whether any word of text equals a blocklist
// entry, compared case-insensitively. Matching is exact-word: a blocklisted
// "cash" does not match "cashier".
func MatchesBlocklist(text string, blocklist []string) bool {
	if text == "" || len(blocklist) == 0 {
		return false
	}

	folded := make(map[string]struct{}, len(blocklist))
	for _, w := range blocklist {
		if w == "" {
			continue
		}
		folded[folder.String(w)] = struct{}{}
	}
	if len(folded) == 0 {
		return false
	}

	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range words {
		if _, hit := folded[folder.String(w)]; hit {
			return true
		}
	}
	return false
}
