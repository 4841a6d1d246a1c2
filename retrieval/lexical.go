package retrieval

import "strings"

// Scoring weights for the lexical relevance function.
const (
	titlePhraseWeight = 0.3  // full query found in the title
	titleWordWeight   = 0.2  // per query word found in the title
	contentWordWeight = 0.1  // per query word found in the content
	keywordWeight     = 0.15 // per specialization keyword found in the content
)

// LexicalScore computes the deterministic relevance of a document for a
// query. Query words shorter than four characters are ignored; repeated
// query words count each time they appear. The result is clamped to
// [0, 1] and never decreases as matching signals are added.
func LexicalScore(query, title, content string, keywords []string) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return 0
	}
	t := strings.ToLower(title)
	c := strings.ToLower(content)

	score := 0.0
	if strings.Contains(t, q) {
		score += titlePhraseWeight
	}
	for _, w := range strings.Fields(q) {
		if len(w) <= 3 {
			continue
		}
		if strings.Contains(t, w) {
			score += titleWordWeight
		}
		if strings.Contains(c, w) {
			score += contentWordWeight
		}
	}
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(c, kw) {
			score += keywordWeight
		}
	}

	if score > 1 {
		score = 1
	}
	return score
}
