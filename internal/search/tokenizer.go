package search

import (
	"sort"
	"strings"
)

const minTokenLen = 3

// TokenSet is the normalized, stopword-filtered word set extracted from one
// text field. It is a pure projection of the text and is never persisted.
type TokenSet map[string]struct{}

// Tokenize lowercases text, treats every rune outside [a-z0-9] as a word
// separator, and keeps words of three or more characters that are not
// English stopwords. Non-Latin text therefore tokenizes to an empty or
// near-empty set; that asymmetry is what pushes such queries onto the
// substring path.
func Tokenize(text string) TokenSet {
	stop := Stopwords("english")
	tokens := make(TokenSet)
	var word strings.Builder
	flush := func() {
		if word.Len() == 0 {
			return
		}
		w := word.String()
		word.Reset()
		if len(w) < minTokenLen {
			return
		}
		if _, skip := stop[w]; skip {
			return
		}
		tokens[w] = struct{}{}
	}
	for _, r := range text {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			word.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			word.WriteRune(r - 'A' + 'a')
		default:
			flush()
		}
	}
	flush()
	return tokens
}

// Intersect returns the tokens present in both sets, sorted so that the
// rendered common_terms string is deterministic.
func (ts TokenSet) Intersect(other TokenSet) []string {
	var common []string
	for t := range ts {
		if _, ok := other[t]; ok {
			common = append(common, t)
		}
	}
	sort.Strings(common)
	return common
}
