package search

// HasLatin reports whether the query contains at least one ASCII letter.
// This single predicate picks the matching strategy for the whole query:
// Latin queries go to the text index, everything else to the substring
// path. It is deliberately not a language detector.
func HasLatin(query string) bool {
	for _, r := range query {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			return true
		}
	}
	return false
}
