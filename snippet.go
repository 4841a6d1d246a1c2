package regsage

import (
	"strings"
	"unicode"
)

// snippetMaxLen is the approximate maximum character length for a snippet.
const snippetMaxLen = 300

// documentSnippet returns a short excerpt of a search hit's content,
// preferring the sentences that overlap the query. When nothing overlaps
// (semantic hits often match without sharing words), it falls back to the
// opening of the document.
func documentSnippet(content string, queryWords map[string]bool) string {
	if s := extractSnippet(content, queryWords); s != "" {
		return s
	}
	return leadingSnippet(content)
}

// extractSnippet returns the 1-2 most query-relevant sentences from
// content based on word overlap. Returns empty string if no sentence
// shares a significant word with the query.
func extractSnippet(content string, queryWords map[string]bool) string {
	if len(queryWords) == 0 || content == "" {
		return ""
	}

	sentences := snippetSplitSentences(content)
	if len(sentences) == 0 {
		return ""
	}

	scores := make([]int, len(sentences))
	bestIdx, bestScore := 0, 0
	for i, s := range sentences {
		overlap := 0
		for w := range significantWords(s) {
			if queryWords[w] {
				overlap++
			}
		}
		scores[i] = overlap
		if overlap > bestScore {
			bestScore = overlap
			bestIdx = i
		}
	}
	if bestScore == 0 {
		return ""
	}

	result := sentences[bestIdx]

	// Extend with the better-scoring neighbour when it fits.
	if len(result) < snippetMaxLen {
		candidateIdx, candidateScore := -1, 0
		for _, adj := range []int{bestIdx + 1, bestIdx - 1} {
			if adj >= 0 && adj < len(sentences) && scores[adj] > candidateScore {
				candidateScore = scores[adj]
				candidateIdx = adj
			}
		}
		if candidateIdx >= 0 {
			combined := result + " " + sentences[candidateIdx]
			if candidateIdx < bestIdx {
				combined = sentences[candidateIdx] + " " + result
			}
			if len(combined) <= snippetMaxLen {
				result = combined
			}
		}
	}

	return result
}

// leadingSnippet truncates content to snippetMaxLen on a word boundary.
func leadingSnippet(content string) string {
	content = strings.TrimSpace(content)
	if len(content) <= snippetMaxLen {
		return content
	}
	cut := strings.LastIndex(content[:snippetMaxLen], " ")
	if cut <= 0 {
		cut = snippetMaxLen
	}
	return content[:cut]
}

// significantWords returns the set of lowercased words >= 4 characters,
// excluding common stop words.
func significantWords(text string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(w) >= 4 && !snippetStopWords[w] {
			words[w] = true
		}
	}
	return words
}

// snippetSplitSentences splits text into sentences at period/question/exclamation
// boundaries followed by whitespace or end of string.
func snippetSplitSentences(text string) []string {
	var sentences []string
	var cur strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		cur.WriteRune(runes[i])
		if runes[i] == '.' || runes[i] == '?' || runes[i] == '!' {
			if i+1 >= len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' || runes[i+1] == '\t' {
				s := strings.TrimSpace(cur.String())
				if s != "" {
					sentences = append(sentences, s)
				}
				cur.Reset()
			}
		}
	}
	if cur.Len() > 0 {
		s := strings.TrimSpace(cur.String())
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// snippetStopWords is a set of common English stop words to exclude from
// overlap matching.
var snippetStopWords = map[string]bool{
	"that": true, "this": true, "with": true, "from": true,
	"have": true, "been": true, "were": true, "they": true,
	"their": true, "will": true, "would": true, "could": true,
	"should": true, "about": true, "which": true, "there": true,
	"these": true, "those": true, "then": true, "than": true,
	"them": true, "what": true, "when": true, "where": true,
	"your": true, "more": true, "some": true, "such": true,
	"only": true, "also": true, "very": true, "just": true,
	"into": true, "over": true, "each": true, "does": true,
	"most": true, "after": true, "before": true, "other": true,
	"being": true, "same": true, "both": true, "between": true,
}
