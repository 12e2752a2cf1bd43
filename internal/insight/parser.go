// Package insight turns hosted-LLM output into bounded suggestion lists.
// The model returns free-form text with no structured output, so all
// structure is imposed here by best-effort parsing; anything unusable
// degrades to the fixed fallback content.
package insight

import (
	"regexp"
	"strings"
)

var (
	bulletRe = regexp.MustCompile(`^\s*[*•-]+\s*`)
	labelRe  = regexp.MustCompile(`(?i)^insights:\s*`)
	boldRe   = regexp.MustCompile(`\*\*`)
	numberRe = regexp.MustCompile(`^\s*\d+[.)]\s*`)
)

// CleanSuggestion strips markdown bold markers, leading bullet or number
// markers and a leading "Insights:" label from one line of model output.
func CleanSuggestion(line string) string {
	s := boldRe.ReplaceAllString(line, "")
	s = bulletRe.ReplaceAllString(s, "")
	s = numberRe.ReplaceAllString(s, "")
	s = labelRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// ParseSuggestions splits raw model text into at most max cleaned,
// non-empty suggestion lines.
func ParseSuggestions(text string, max int) []string {
	if max < 1 {
		max = 1
	}

	suggestions := make([]string, 0, max)
	for _, line := range strings.Split(text, "\n") {
		cleaned := CleanSuggestion(line)
		if cleaned == "" {
			continue
		}
		suggestions = append(suggestions, cleaned)
		if len(suggestions) == max {
			break
		}
	}
	return suggestions
}
