package search

// Static per-language stopword tables. The tokenizer consumes the English
// set; the Japanese set is kept for the substring-search UI layer, which
// can use it to grey out filler-only queries.
var stopwordTables = map[string]map[string]struct{}{
	"english":  english,
	"japanese": japanese,
}

// Stopwords returns the exclusion set for a language name, or nil when the
// language has no table.
func Stopwords(lang string) map[string]struct{} {
	return stopwordTables[lang]
}

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

var english = wordSet(
	// articles
	"the", "a", "an",
	// be
	"is", "am", "are", "was", "were", "be", "been", "being",
	// auxiliaries
	"have", "has", "had", "having", "do", "does", "did", "doing",
	"will", "would", "shall", "should", "can", "could", "may", "might", "must",
	// pronouns
	"i", "you", "he", "she", "it", "we", "they",
	"me", "him", "her", "us", "them",
	"my", "your", "his", "its", "our", "their",
	"mine", "yours", "hers", "ours", "theirs",
	"myself", "yourself", "himself", "herself", "itself", "ourselves", "themselves",
	// interrogatives
	"what", "which", "who", "whom", "whose", "where", "when", "why", "how",
	// conjunctions
	"and", "or", "but", "nor", "so", "for", "yet",
	"if", "because", "as", "since", "while", "although", "though",
	// prepositions
	"in", "on", "at", "to", "from", "by", "with", "about", "into", "through",
	"during", "before", "after", "above", "below", "between", "under", "over",
	"of", "up", "down", "out", "off",
	// other frequent words
	"this", "that", "these", "those",
	"all", "some", "any", "no", "not", "none",
	"more", "most", "less", "least",
	"very", "too", "much", "many", "few", "little",
	"such", "same", "other", "another",
	"than", "then", "there", "here",
	"now", "just", "also", "only", "even",
	"get", "got", "make", "made", "take", "taken",
	"go", "went", "gone", "come", "came",
	"see", "saw", "seen", "know", "knew", "known",
	"think", "thought", "say", "said",
	"use", "used", "using",
	// low-signal words in academic writing
	"study", "paper", "research", "result", "method",
	"approach", "work", "show", "present", "propose",
	"etc", "via", "thus", "hence", "therefore",
)

var japanese = wordSet(
	"の", "に", "は", "を", "た", "が", "で", "て", "と", "し",
	"れ", "さ", "ある", "いる", "も", "する", "から", "な",
	"こと", "として", "い", "や", "れる", "など", "なっ",
	"ない", "この", "ため", "その", "あっ", "よう", "また",
	"もの", "という", "あり", "まで", "られ", "なる", "へ",
	"か", "だ", "これ", "によって", "により", "おり", "より",
	"による", "ず", "なり", "られる", "において", "ば", "なかっ",
)
