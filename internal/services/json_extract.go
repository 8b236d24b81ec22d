package services

import (
	"regexp"
	"strings"
)

// extractStrategy attempts to pull a JSON object candidate out of noisy
// completion text. Strategies are pure; ok is false when nothing was found.
type extractStrategy func(text string) (candidate string, ok bool)

// insightExtractionChain is tried in order; the first success wins.
var insightExtractionChain = []extractStrategy{
	extractFencedBlock,
	extractBraceSpan,
	extractInsightsPattern,
}

// extractJSONCandidate runs the strategy chain over the text.
func extractJSONCandidate(text string) (string, bool) {
	for _, strategy := range insightExtractionChain {
		if candidate, ok := strategy(text); ok {
			return candidate, true
		}
	}
	return "", false
}

var fencedBlockPatterns = []*regexp.Regexp{
	regexp.MustCompile("(?si)```json\\s*(.*?)\\s*```"),
	regexp.MustCompile("(?s)```\\s*(.*?)\\s*```"),
}

// extractFencedBlock takes the contents of the first markdown code fence if
// they look like a JSON object.
func extractFencedBlock(text string) (string, bool) {
	for _, pattern := range fencedBlockPatterns {
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		candidate := strings.TrimSpace(m[1])
		if strings.HasPrefix(candidate, "{") && strings.HasSuffix(candidate, "}") {
			return candidate, true
		}
	}
	return "", false
}

// extractBraceSpan takes the substring from the first "{" to the last "}"
// when the brace counts balance.
func extractBraceSpan(text string) (string, bool) {
	first := strings.Index(text, "{")
	last := strings.LastIndex(text, "}")
	if first == -1 || last == -1 || last <= first {
		return "", false
	}
	candidate := text[first : last+1]
	if strings.Count(candidate, "{") != strings.Count(candidate, "}") {
		return "", false
	}
	return candidate, true
}

var insightsPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?s)\{[^}]*"insights"[^}]*\[[^\]]*\][^}]*\}`),
	regexp.MustCompile(`(?s)\{.*?"insights".*?\}`),
}

// extractInsightsPattern anchors a last-resort search on the "insights"
// keyword.
func extractInsightsPattern(text string) (string, bool) {
	for _, pattern := range insightsPatterns {
		if m := pattern.FindString(text); m != "" {
			return m, true
		}
	}
	return "", false
}
