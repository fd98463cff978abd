package model

import (
	"regexp"
	"slices"
	"strings"
)

var (
	issueRefPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:^|[\s(])#(\d+)\b`),
		regexp.MustCompile(`(?i)\b(?:fix(?:es|ed)?|close[sd]?|resolve[sd]?|implement[s]?)\s+#?(\d+)\b`),
	}
	ticketRefPattern = regexp.MustCompile(`\b([A-Z][A-Z0-9]+-\d+)\b`)
)

// ExtractIssueRefs finds issue ("#123") and ticket ("PROJ-12") references in free text.
// The result is deduplicated and keeps first-seen order.
func ExtractIssueRefs(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	type hit struct {
		pos int
		ref string
	}
	var hits []hit

	for _, pattern := range issueRefPatterns {
		for _, m := range pattern.FindAllStringSubmatchIndex(text, -1) {
			hits = append(hits, hit{pos: m[2], ref: "#" + text[m[2]:m[3]]})
		}
	}
	for _, m := range ticketRefPattern.FindAllStringSubmatchIndex(text, -1) {
		hits = append(hits, hit{pos: m[2], ref: text[m[2]:m[3]]})
	}

	slices.SortStableFunc(hits, func(a, b hit) int { return a.pos - b.pos })

	seen := make(map[string]struct{}, len(hits))
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		if _, ok := seen[h.ref]; ok {
			continue
		}
		seen[h.ref] = struct{}{}
		out = append(out, h.ref)
	}
	return out
}
