package search

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/paperdesk/paperdesk/internal/textindex"
)

// Highlight markers and window sizes are part of the observable contract:
// persisted history and the UI both assume these exact literals.
const (
	MarkOpen  = "<mark>"
	MarkClose = "</mark>"
	Ellipsis  = "..."

	// indexedWindow is the context kept on each side of an indexed match.
	indexedWindow = 30
	// substringBefore/substringWindow shape the marker-less excerpt cut
	// around a substring match: a 60-rune window starting 30 runes before
	// the first occurrence, clamped to the start of the field.
	substringBefore = 30
	substringWindow = 60
)

// HighlightSnippet cuts a bounded excerpt around the first match location,
// wrapping the matched bytes in <mark> markers and signalling truncation
// with ellipses. With no locations it falls back to the head of the text.
func HighlightSnippet(text string, spans []textindex.Span) string {
	if len(spans) == 0 {
		return headSnippet(text, 2*indexedWindow)
	}
	first := spans[0]
	if first.Start < 0 || first.End > len(text) || first.Start >= first.End {
		return headSnippet(text, 2*indexedWindow)
	}

	start := first.Start
	for i := 0; i < indexedWindow && start > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:start])
		start -= size
	}
	end := first.End
	for i := 0; i < indexedWindow && end < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[end:])
		end += size
	}

	var b strings.Builder
	if start > 0 {
		b.WriteString(Ellipsis)
	}
	b.WriteString(text[start:first.Start])
	b.WriteString(MarkOpen)
	b.WriteString(text[first.Start:first.End])
	b.WriteString(MarkClose)
	b.WriteString(text[first.End:end])
	if end < len(text) {
		b.WriteString(Ellipsis)
	}
	return b.String()
}

// WindowSnippet cuts the fixed substring-match excerpt: substringWindow
// runes starting substringBefore runes before the first case-insensitive
// occurrence of query, clamped to the start of text. No markers are added;
// callers wrap the match themselves if they need highlighting.
func WindowSnippet(text, query string) string {
	runes := []rune(text)
	idx := runeIndexFold(runes, []rune(query))
	if idx < 0 {
		return headSnippet(text, substringWindow)
	}
	start := idx - substringBefore
	if start < 0 {
		start = 0
	}
	end := start + substringWindow
	if end > len(runes) {
		end = len(runes)
	}
	return string(runes[start:end])
}

func headSnippet(text string, window int) string {
	runes := []rune(text)
	if len(runes) <= window {
		return text
	}
	return string(runes[:window]) + Ellipsis
}

// runeIndexFold finds the first occurrence of needle in haystack comparing
// rune-by-rune with simple case folding, returning a rune offset.
func runeIndexFold(haystack, needle []rune) int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return -1
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j, r := range needle {
			if unicode.ToLower(haystack[i+j]) != unicode.ToLower(r) {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
