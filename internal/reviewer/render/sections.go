package render

import (
	"slices"
	"strings"

	"github.com/maxbolgarin/errm"
)

// Section is one optional block of the rendered report
type Section string

const (
	SectionSummary    Section = "summary"
	SectionPositive   Section = "positive"
	SectionCounts     Section = "counts"
	SectionActionable Section = "actionable"
	SectionDetails    Section = "details"
	SectionScore      Section = "score"
)

var supportedSections = []Section{
	SectionSummary,
	SectionPositive,
	SectionCounts,
	SectionActionable,
	SectionDetails,
	SectionScore,
}

// DefaultSections returns every section in render order.
func DefaultSections() []Section {
	return slices.Clone(supportedSections)
}

// ParseSections parses a comma separated section list. "all" or empty input selects every section.
func ParseSections(list string) ([]Section, error) {
	list = strings.TrimSpace(list)
	if list == "" || strings.EqualFold(list, "all") {
		return DefaultSections(), nil
	}

	var out []Section
	for _, part := range strings.Split(list, ",") {
		s := Section(strings.ToLower(strings.TrimSpace(part)))
		if s == "" {
			continue
		}
		if !slices.Contains(supportedSections, s) {
			return nil, errm.New("unknown section %q, supported: %v", s, supportedSections)
		}
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out, nil
}
