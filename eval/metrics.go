package eval

import (
	"strings"
	"unicode"

	"github.com/regsage/regsage"
)

// normalizeLLMText normalizes Unicode characters commonly inserted by LLMs
// so that substring matching works reliably. Handles:
//   - Unicode whitespace → ASCII space (U+202F, U+00A0, etc.)
//   - Unicode hyphens → ASCII hyphen (U+2010 through U+2014)
//   - Strips zero-width characters (U+200B, U+200C, U+200D, U+FEFF)
func normalizeLLMText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		case r == '\u2010' || r == '\u2011' || r == '\u2012' || r == '\u2013' || r == '\u2014':
			b.WriteByte('-')
		case r == '\u200B' || r == '\u200C' || r == '\u200D' || r == '\uFEFF':
			// strip zero-width characters
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// combinedAnswer joins every agent answer and the master summary into one
// text for fact matching. Per-agent boundaries do not matter to the
// metrics; a fact found anywhere in the result counts.
func combinedAnswer(result *regsage.QueryResult) string {
	if result == nil {
		return ""
	}
	var parts []string
	for _, resp := range result.Responses {
		if resp.Answer != "" {
			parts = append(parts, resp.Answer)
		}
	}
	if result.MasterSummary != "" {
		parts = append(parts, result.MasterSummary)
	}
	return strings.Join(parts, "\n\n")
}

// computeFactCoverage checks if expected facts appear in the combined answer.
// Each fact may contain pipe-separated alternatives (e.g. "banned|prohibited"),
// where matching any alternative counts as a hit for that fact.
func computeFactCoverage(result *regsage.QueryResult, expectedFacts []string) float64 {
	text := combinedAnswer(result)
	if text == "" || len(expectedFacts) == 0 {
		return 0
	}

	normalized := normalizeLLMText(strings.ToLower(text))
	// Prepare a version with spaces collapsed for matching facts like "5%" against "5 %"
	spaceless := strings.ReplaceAll(normalized, " ", "")
	// Prepare a version with hyphens and spaces stripped so "high-risk" matches "high risk"
	hyphenless := strings.ReplaceAll(strings.ReplaceAll(normalized, "-", ""), " ", "")
	found := 0
	for _, fact := range expectedFacts {
		alternatives := strings.Split(fact, "|")
		for _, alt := range alternatives {
			alt = strings.TrimSpace(alt)
			if alt == "" {
				continue
			}
			normAlt := normalizeLLMText(strings.ToLower(alt))
			normAltNoSpace := strings.ReplaceAll(normAlt, " ", "")
			normAltNoHyphen := strings.ReplaceAll(strings.ReplaceAll(normAlt, "-", ""), " ", "")
			if strings.Contains(normalized, normAlt) ||
				strings.Contains(spaceless, normAltNoSpace) ||
				strings.Contains(hyphenless, normAltNoHyphen) {
				found++
				break
			}
		}
	}

	return float64(found) / float64(len(expectedFacts))
}

// computeRoutingAccuracy measures routing recall: the fraction of expected
// jurisdictions the router actually selected. Tests without routing
// expectations score 1.0 so they never fail on routing.
func computeRoutingAccuracy(result *regsage.QueryResult, expectedAgents []string) float64 {
	if len(expectedAgents) == 0 {
		return 1.0
	}
	if result == nil {
		return 0
	}

	selected := make(map[string]bool, len(result.RoutingInfo.SelectedJurisdictions))
	for _, id := range result.RoutingInfo.SelectedJurisdictions {
		selected[strings.ToLower(id)] = true
	}

	found := 0
	for _, id := range expectedAgents {
		if selected[strings.ToLower(id)] {
			found++
		}
	}
	return float64(found) / float64(len(expectedAgents))
}

// computeGroundingRate measures the fraction of agent responses backed by
// at least one retrieved source. Responses without sources were answered
// from model memory alone.
func computeGroundingRate(result *regsage.QueryResult) float64 {
	if result == nil || len(result.Responses) == 0 {
		return 0
	}
	grounded := 0
	for _, resp := range result.Responses {
		if len(resp.Sources) > 0 {
			grounded++
		}
	}
	return float64(grounded) / float64(len(result.Responses))
}
