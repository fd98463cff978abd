package llmcontext

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/maxbolgarin/logze/v2"
)

// IgnoreMatcher excludes files by glob. "**" spans directories, so "**/b.ts" matches "b.ts" too.
// Matching is case-sensitive.
type IgnoreMatcher struct {
	patterns []string
}

// NewIgnoreMatcher merges pattern sets, dropping blanks, duplicates and invalid globs.
func NewIgnoreMatcher(log logze.Logger, sets ...[]string) *IgnoreMatcher {
	m := &IgnoreMatcher{}
	seen := make(map[string]struct{})
	for _, set := range sets {
		for _, p := range set {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			if !doublestar.ValidatePattern(p) {
				log.Warn("invalid ignore pattern, skipping", "pattern", p)
				continue
			}
			m.patterns = append(m.patterns, p)
		}
	}
	return m
}

// Match returns the first pattern matching path.
func (m *IgnoreMatcher) Match(path string) (string, bool) {
	path = strings.TrimPrefix(path, "./")
	for _, p := range m.patterns {
		if ok, _ := doublestar.Match(p, path); ok {
			return p, true
		}
	}
	return "", false
}

// Patterns returns the effective pattern list.
func (m *IgnoreMatcher) Patterns() []string {
	return m.patterns
}

// ParseList splits a comma separated CLI value.
func ParseList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
