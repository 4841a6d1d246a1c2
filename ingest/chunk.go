package ingest

import (
	"fmt"
	"strings"
)

const (
	// charsPerToken is the length heuristic used throughout: roughly
	// one token per four characters of English text.
	charsPerToken = 4

	// maxDocTokens is the estimated size above which a document is
	// split into chunks before embedding.
	maxDocTokens = 7000

	// chunkTokens is the target estimated size of each chunk.
	chunkTokens = 6000
)

// approxTokens estimates the token count of text from its byte length.
func approxTokens(text string) int {
	return len(text) / charsPerToken
}

// needsSplit reports whether content is too large to embed whole.
func needsSplit(content string) bool {
	return approxTokens(content) > maxDocTokens
}

// splitContent breaks content into chunks of at most chunkTokens
// estimated tokens each, accumulating whole sentences. Content that
// fits in a single chunk is returned as-is. A sentence longer than the
// chunk target is cut at fixed size.
func splitContent(content string) []string {
	if !needsSplit(content) {
		return []string{content}
	}

	maxChars := chunkTokens * charsPerToken
	sentences := splitSentences(content)
	if len(sentences) == 0 {
		return splitFixed(content, maxChars)
	}

	var chunks []string
	var current strings.Builder
	for _, sent := range sentences {
		if len(sent) > maxChars {
			if current.Len() > 0 {
				chunks = append(chunks, strings.TrimSpace(current.String()))
				current.Reset()
			}
			chunks = append(chunks, splitFixed(sent, maxChars)...)
			continue
		}
		if current.Len() > 0 && current.Len()+1+len(sent) > maxChars {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sent)
	}
	if current.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}
	return chunks
}

// chunkTitle returns the display title for chunk i (1-based) of n.
func chunkTitle(title string, i, n int) string {
	return fmt.Sprintf("%s (Part %d/%d)", title, i, n)
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// splitSentences is a simple sentence tokeniser.  It splits on
// period/question-mark/exclamation followed by whitespace or end of
// string, while trying not to split on abbreviations.
func splitSentences(text string) []string {
	var sentences []string
	var cur strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		cur.WriteRune(runes[i])
		if runes[i] == '.' || runes[i] == '?' || runes[i] == '!' {
			// Look ahead: if next char is whitespace or end of string,
			// treat as sentence boundary (simple heuristic).
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

// splitFixed cuts text into pieces of at most maxChars bytes, breaking
// at the last space within the window when one exists.
func splitFixed(text string, maxChars int) []string {
	var pieces []string
	for len(text) > maxChars {
		cut := maxChars
		if idx := strings.LastIndex(text[:maxChars], " "); idx > 0 {
			cut = idx
		}
		piece := strings.TrimSpace(text[:cut])
		if piece != "" {
			pieces = append(pieces, piece)
		}
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		pieces = append(pieces, text)
	}
	return pieces
}
