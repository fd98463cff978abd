// Package prompts renders review inputs into deterministic model prompts.
package prompts

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/falcon/internal/model"
	"github.com/maxbolgarin/lang"
)

// Config controls the shape of the composed prompts
type Config struct {
	Granularity model.Granularity
	Language    model.Language
	Taxonomy    model.Taxonomy
}

// ReviewInput is everything that goes into a review prompt
type ReviewInput struct {
	PullRequest *model.PullRequest
	Metadata    model.Metadata
	UserPrompt  string
	StyleGuide  string
	Files       []model.FileChange
}

// SummaryInput is everything that goes into a summary prompt
type SummaryInput struct {
	PullRequest *model.PullRequest
	Metadata    model.Metadata
	UserPrompt  string
	Files       []model.FileChange
}

// Composer builds prompts. Output depends only on its input: no clocks, no randomness,
// files sorted by path.
type Composer struct {
	cfg      Config
	language LanguageConfig
}

// NewComposer creates a new prompt composer
func NewComposer(cfg Config) *Composer {
	cfg.Granularity = lang.Check(cfg.Granularity, model.GranularityFile)
	if cfg.Taxonomy.IsEmpty() {
		cfg.Taxonomy = model.DefaultTaxonomy()
	}
	return &Composer{
		cfg:      cfg,
		language: GetLanguage(cfg.Language),
	}
}

// Schema returns the review schema declared to the model.
func (c *Composer) Schema() *model.Schema {
	return ReviewSchema(c.cfg.Granularity, c.cfg.Taxonomy)
}

// ComposeReview renders the review prompt. Segment order is fixed:
// persona and instructions, output schema, PR context, user context, per-file blocks.
func (c *Composer) ComposeReview(in ReviewInput) (model.Prompt, error) {
	userPrompt := strings.TrimSpace(in.UserPrompt)
	if userPrompt == "" {
		return model.Prompt{}, ErrMissingPrompt
	}
	styleGuide := strings.TrimSpace(in.StyleGuide)
	if styleGuide == "" && in.Metadata.ReviewPrompt() == "" {
		return model.Prompt{}, ErrMissingStyleGuide
	}
	if len(in.Files) == 0 {
		return model.Prompt{}, ErrNoFiles
	}

	schema := c.Schema()
	schemaText, err := MarshalSchema(schema)
	if err != nil {
		return model.Prompt{}, errm.Wrap(err, "failed to render schema")
	}

	system := fmt.Sprintf(reviewSystemPromptTemplate,
		lang.If(c.cfg.Granularity == model.GranularityLine, lineGranularityInstructions, fileGranularityInstructions),
		c.language.Instructions,
	)

	var b strings.Builder
	c.writeSchema(&b, schemaText)
	c.writePullRequest(&b, in.PullRequest, in.Metadata)
	c.writeUserContext(&b, userPrompt, styleGuide, in.Metadata.ReviewPrompt())
	c.writeFiles(&b, in.Files, true)

	return model.Prompt{
		SystemPrompt: strings.TrimSpace(system),
		UserPrompt:   strings.TrimRight(b.String(), "\n"),
		Schema:       schema,
		Language:     c.language.Language,
	}, nil
}

// ComposeSummary renders the summary prompt. The answer is free-form markdown, no schema.
func (c *Composer) ComposeSummary(in SummaryInput) (model.Prompt, error) {
	userPrompt := strings.TrimSpace(in.UserPrompt)
	if userPrompt == "" && in.Metadata.SummaryPrompt() == "" {
		return model.Prompt{}, ErrMissingPrompt
	}
	if len(in.Files) == 0 {
		return model.Prompt{}, ErrNoFiles
	}

	system := fmt.Sprintf(summarySystemPromptTemplate, c.language.Instructions)

	var b strings.Builder
	c.writePullRequest(&b, in.PullRequest, in.Metadata)

	b.WriteString("## Instructions\n\n")
	if userPrompt != "" {
		b.WriteString("User request:\n")
		b.WriteString(fenced("text", userPrompt))
		b.WriteString("\n\n")
	}
	if custom := in.Metadata.SummaryPrompt(); custom != "" {
		b.WriteString("Repository instructions:\n")
		b.WriteString(fenced("text", custom))
		b.WriteString("\n\n")
	}

	c.writeFiles(&b, in.Files, false)

	return model.Prompt{
		SystemPrompt: strings.TrimSpace(system),
		UserPrompt:   strings.TrimRight(b.String(), "\n"),
		Language:     c.language.Language,
	}, nil
}

func (c *Composer) writeSchema(b *strings.Builder, schemaText string) {
	b.WriteString("## Output schema\n\n")
	b.WriteString("The JSON object must conform to this JSON schema:\n")
	b.WriteString(fenced("json", schemaText))
	b.WriteString("\n")
	if len(c.cfg.Taxonomy.Categories) > 0 {
		b.WriteString("Categories: ")
		b.WriteString(strings.Join(c.cfg.Taxonomy.Categories, ", "))
		b.WriteString("\n")
	}
	if len(c.cfg.Taxonomy.Severities) > 0 {
		b.WriteString("Severities (most to least severe): ")
		b.WriteString(strings.Join(c.cfg.Taxonomy.Severities, ", "))
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func (c *Composer) writePullRequest(b *strings.Builder, pr *model.PullRequest, md model.Metadata) {
	b.WriteString("## Pull request\n\n")
	if pr != nil {
		writeField(b, "Title", oneLine(pr.Title))
		writeField(b, "Author", lang.Check(pr.Author.Username, pr.Author.Name))
		if pr.BaseBranch != "" || pr.SourceBranch != "" {
			writeField(b, "Branches", oneLine(pr.SourceBranch)+" -> "+oneLine(pr.BaseBranch))
		}
		writeField(b, "Labels", strings.Join(pr.Labels, ", "))
		writeField(b, "Related issues", strings.Join(pr.RelatedIssues, ", "))
	}
	if info := md.ProjectInfo; info != nil {
		var parts []string
		if info.Language != "" {
			parts = append(parts, "language: "+oneLine(info.Language))
		}
		if info.ProjectType != "" {
			parts = append(parts, "type: "+oneLine(info.ProjectType))
		}
		if info.Framework != "" {
			parts = append(parts, "framework: "+oneLine(info.Framework))
		}
		writeField(b, "Project", strings.Join(parts, ", "))
	}
	if pr != nil && strings.TrimSpace(pr.Body) != "" {
		b.WriteString("Description:\n")
		b.WriteString(fenced("text", pr.Body))
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func (c *Composer) writeUserContext(b *strings.Builder, userPrompt, styleGuide, repoPrompt string) {
	b.WriteString("## Reviewer instructions\n\n")
	b.WriteString("User request:\n")
	b.WriteString(fenced("text", userPrompt))
	b.WriteString("\n\n")
	if styleGuide != "" {
		b.WriteString("Style guide:\n")
		b.WriteString(fenced("text", styleGuide))
		b.WriteString("\n\n")
	}
	if repoPrompt != "" {
		b.WriteString("Repository instructions:\n")
		b.WriteString(fenced("text", repoPrompt))
		b.WriteString("\n\n")
	}
}

func (c *Composer) writeFiles(b *strings.Builder, files []model.FileChange, withContent bool) {
	sorted := slices.Clone(files)
	slices.SortStableFunc(sorted, func(a, b model.FileChange) int {
		return strings.Compare(a.FilePath, b.FilePath)
	})

	fmt.Fprintf(b, "## Changed files (%d)\n\n", len(sorted))

	for _, f := range sorted {
		fmt.Fprintf(b, "### File: %s (%s)\n", oneLine(f.FilePath), lang.Check(string(f.Status), string(model.FileModified)))
		if f.PreviousFilePath != "" {
			writeField(b, "Previous path", oneLine(f.PreviousFilePath))
		}
		if len(f.ChangedLines) > 0 {
			writeField(b, "Changed lines", joinInts(f.ChangedLines))
		}
		b.WriteString("Diff:\n")
		b.WriteString(fenced("diff", f.FileDiff))
		b.WriteString("\n")

		if withContent {
			if f.NewContent != "" {
				b.WriteString("Full content (new version):\n")
				b.WriteString(fenced("", c.content(f.NewContent)))
				b.WriteString("\n")
			}
			if f.OldContent != "" {
				b.WriteString("Full content (old version):\n")
				b.WriteString(fenced("", f.OldContent))
				b.WriteString("\n")
			}
			related := slices.Clone(f.Related)
			slices.SortStableFunc(related, func(a, b model.RelatedFile) int {
				return strings.Compare(a.Path, b.Path)
			})
			for _, r := range related {
				fmt.Fprintf(b, "Related file %s:\n", oneLine(r.Path))
				b.WriteString(fenced("", r.Content))
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
	}
}

// content numbers lines for line granularity so the model can cite them.
func (c *Composer) content(text string) string {
	if c.cfg.Granularity != model.GranularityLine {
		return text
	}
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	width := len(strconv.Itoa(len(lines)))

	var b strings.Builder
	b.Grow(len(text) + len(lines)*(width+3))
	for i, line := range lines {
		num := strconv.Itoa(i + 1)
		b.WriteString(strings.Repeat(" ", width-len(num)))
		b.WriteString(num)
		b.WriteString(" | ")
		b.WriteString(line)
		if i < len(lines)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func writeField(b *strings.Builder, name, value string) {
	if value == "" {
		return
	}
	b.WriteString(name)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\n")
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}
