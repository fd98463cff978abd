package model

import (
	"slices"
	"strings"

	"github.com/maxbolgarin/errm"
)

// Granularity defines whether comments are anchored to lines or to whole files
type Granularity string

const (
	GranularityLine Granularity = "line"
	GranularityFile Granularity = "file"
)

// Category is an opaque review category label, e.g. SECURITY
type Category string

// Severity is an opaque severity label, e.g. CRITICAL
type Severity string

// ReviewComment is one piece of feedback on a file
type ReviewComment struct {
	// Line is 0 when the comment is not anchored to a line
	Line          int      `json:"line,omitempty"`
	CurrentCode   string   `json:"currentCode"`
	SuggestedCode string   `json:"suggestedCode"`
	Reason        string   `json:"reason"`
	Category      Category `json:"category"`
	Severity      Severity `json:"severity"`
}

// FileReview holds all comments for a single file
type FileReview struct {
	FilePath string          `json:"filePath"`
	Comments []ReviewComment `json:"comments"`
}

// StructuredReview is the validated model output
type StructuredReview struct {
	OverallSummary   string       `json:"overallSummary"`
	PositiveFeedback []string     `json:"positiveFeedback"`
	Files            []FileReview `json:"files"`
}

// CommentCount returns the number of comments across all files.
func (r StructuredReview) CommentCount() int {
	var n int
	for _, f := range r.Files {
		n += len(f.Comments)
	}
	return n
}

// Taxonomy is the category and severity vocabulary declared to the model.
// Values outside of it are still accepted from the model and rendered as-is.
type Taxonomy struct {
	Categories []string `yaml:"categories" env:"REVIEW_TAXONOMY_CATEGORIES" env-separator:","`
	Severities []string `yaml:"severities" env:"REVIEW_TAXONOMY_SEVERITIES" env-separator:","`
	// Actionable severities feed the actionable items table and the quality score
	Actionable []string `yaml:"actionable" env:"REVIEW_TAXONOMY_ACTIONABLE" env-separator:","`
}

const (
	TaxonomyDefault = "default"
	TaxonomyLegacy  = "legacy"
)

// DefaultTaxonomy returns the current category and severity set.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		Categories: []string{"SECURITY", "PERFORMANCE", "READABILITY", "BUG", "DESIGN", "REFACTOR", "STYLE"},
		Severities: []string{"CRITICAL", "HIGH", "MEDIUM", "LOW", "INFO"},
		Actionable: []string{"CRITICAL", "HIGH"},
	}
}

// LegacyTaxonomy returns the early single-axis vocabulary.
// Categories and severities share the same labels there.
func LegacyTaxonomy() Taxonomy {
	labels := []string{"CRITICAL", "IMPROVEMENT", "STYLE", "QUESTION", "PRAISE", "LEARNING"}
	return Taxonomy{
		Categories: labels,
		Severities: labels,
		Actionable: []string{"CRITICAL"},
	}
}

// TaxonomyByName resolves a preset name.
func TaxonomyByName(name string) (Taxonomy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", TaxonomyDefault:
		return DefaultTaxonomy(), nil
	case TaxonomyLegacy:
		return LegacyTaxonomy(), nil
	default:
		return Taxonomy{}, errm.New("unknown taxonomy preset: %s", name)
	}
}

// IsEmpty reports whether no vocabulary is configured.
func (t Taxonomy) IsEmpty() bool {
	return len(t.Categories) == 0 && len(t.Severities) == 0 && len(t.Actionable) == 0
}

// IsActionable reports whether the severity is in the actionable set.
// Comparison is case-insensitive because models are inconsistent with casing.
func (t Taxonomy) IsActionable(s Severity) bool {
	return slices.ContainsFunc(t.Actionable, func(a string) bool {
		return strings.EqualFold(a, strings.TrimSpace(string(s)))
	})
}
