package agent

import (
	"regexp"
	"strings"
)

var (
	// Reasoning models wrap their scratchpad in <think> tags; strip it
	// before looking for the real answer.
	thinkTagRe = regexp.MustCompile(`(?s)<think>.*?</think>`)

	thinkingRe = regexp.MustCompile(`(?is)THINKING\s*[:：](.*?)(?:SAY\s*[:：]|$)`)
	sayRe      = regexp.MustCompile(`(?is)SAY\s*[:：](.*)`)
)

// parsedResponse splits a structured reply into the model's private
// reasoning and its public statement.
type parsedResponse struct {
	Thinking string
	Content  string
}

// parseStructured extracts the THINKING/SAY sections from a reply.
// Untagged replies are treated as pure content.
func parseStructured(response string) parsedResponse {
	response = thinkTagRe.ReplaceAllString(response, "")

	var parsed parsedResponse
	parsed.Content = strings.TrimSpace(response)

	if m := thinkingRe.FindStringSubmatch(response); m != nil {
		parsed.Thinking = strings.TrimSpace(m[1])
	}
	if m := sayRe.FindStringSubmatch(response); m != nil {
		parsed.Content = strings.TrimSpace(m[1])
	} else if parsed.Thinking != "" {
		// Tagged thinking but no SAY section: whatever follows the
		// thinking block is the statement.
		rest := thinkingRe.ReplaceAllString(response, "")
		parsed.Content = strings.TrimSpace(rest)
	}

	parsed.Content = cleanStatement(parsed.Content)
	return parsed
}

// cleanStatement removes markdown fences and stray quoting that models
// like to wrap answers in.
func cleanStatement(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, `"`, "")
	s = strings.ReplaceAll(s, "'", "")
	return strings.TrimSpace(s)
}

// matchCandidate resolves a free-form ballot reply to one of the
// candidates. Exact match wins, then a substring scan; an unmatched
// reply is returned as-is for the caller to reject.
func matchCandidate(response string, candidates []string) string {
	response = strings.TrimSpace(thinkTagRe.ReplaceAllString(response, ""))

	if m := sayRe.FindStringSubmatch(response); m != nil {
		response = strings.TrimSpace(m[1])
	}
	cleaned := cleanStatement(response)

	for _, c := range candidates {
		if strings.EqualFold(cleaned, c) {
			return c
		}
	}
	for _, c := range candidates {
		if containsFold(cleaned, c) {
			return c
		}
	}

	// Models sometimes prefix the name with a verdict.
	for _, prefix := range []string{"i vote for", "i vote", "vote for", "vote", "eliminate"} {
		if rest, ok := cutPrefixFold(cleaned, prefix); ok {
			rest = strings.TrimSpace(rest)
			for _, c := range candidates {
				if strings.EqualFold(rest, c) || containsFold(rest, c) {
					return c
				}
			}
		}
	}

	return cleaned
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return s, false
}
