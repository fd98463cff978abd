package reviewer

import (
	"slices"
	"strings"

	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/falcon/internal/model"
	"github.com/maxbolgarin/falcon/internal/reviewer/llmcontext"
	"github.com/maxbolgarin/falcon/internal/reviewer/render"
	"github.com/maxbolgarin/lang"
)

const (
	startMarkerSummary = "<!-- falcon:summary-start -->"
	endMarkerSummary   = "<!-- falcon:summary-end -->"

	defaultReviewPrompt  = "Review this PR for best practices."
	defaultSummaryPrompt = "Summarize the changes in this pull request for a reviewer."
	defaultStyleGuide    = "Follow the established idioms and the widely accepted style guide of the language used in each file."
)

var supportedGranularities = []model.Granularity{model.GranularityLine, model.GranularityFile}

type Config struct {
	Context llmcontext.Config `yaml:"context"`

	Granularity model.Granularity `yaml:"review_level" env:"REVIEW_LEVEL"`
	Language    model.Language    `yaml:"language" env:"REVIEW_LANGUAGE"`
	// Sections is a comma separated list of report sections, empty means all
	Sections string `yaml:"sections" env:"REVIEW_SECTIONS"`

	// TaxonomyPreset is used when Taxonomy is not set explicitly: default or legacy
	TaxonomyPreset string         `yaml:"taxonomy_preset" env:"REVIEW_TAXONOMY"`
	Taxonomy       model.Taxonomy `yaml:"taxonomy"`

	Prompt        string `yaml:"prompt" env:"REVIEW_PROMPT"`
	SummaryPrompt string `yaml:"summary_prompt" env:"REVIEW_SUMMARY_PROMPT"`
	StyleGuide    string `yaml:"style_guide" env:"REVIEW_STYLE_GUIDE"`

	// BaseBranch overrides the base branch reported by the provider
	BaseBranch string `yaml:"base_branch" env:"REVIEW_BASE_BRANCH"`
	// UpdateBody writes the summary into the pull request body instead of a comment
	UpdateBody bool `yaml:"update_body" env:"REVIEW_UPDATE_BODY"`

	Verbose bool `yaml:"verbose" env:"REVIEW_VERBOSE"`
}

func (c *Config) PrepareAndValidate() error {
	c.Granularity = model.Granularity(strings.ToLower(string(c.Granularity)))
	c.Granularity = lang.Check(c.Granularity, model.GranularityFile)
	if !slices.Contains(supportedGranularities, c.Granularity) {
		return errm.New("invalid review level %q, expected line or file", c.Granularity)
	}

	c.Language = lang.Check(c.Language, model.LanguageEnglish)

	if _, err := render.ParseSections(c.Sections); err != nil {
		return err
	}

	if c.Taxonomy.IsEmpty() {
		taxonomy, err := model.TaxonomyByName(c.TaxonomyPreset)
		if err != nil {
			return err
		}
		c.Taxonomy = taxonomy
	}

	c.Prompt = lang.Check(strings.TrimSpace(c.Prompt), defaultReviewPrompt)
	c.SummaryPrompt = lang.Check(strings.TrimSpace(c.SummaryPrompt), defaultSummaryPrompt)
	c.StyleGuide = lang.Check(strings.TrimSpace(c.StyleGuide), defaultStyleGuide)

	c.Context.Verbose = c.Verbose
	return c.Context.PrepareAndValidate()
}
