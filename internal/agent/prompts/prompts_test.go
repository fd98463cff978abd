package prompts

import (
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/maxbolgarin/falcon/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reviewInput() ReviewInput {
	return ReviewInput{
		PullRequest: &model.PullRequest{
			Title:         "Add retry to client",
			Body:          "Fixes #12\n```go\nfmt.Println(1)\n```",
			BaseBranch:    "main",
			SourceBranch:  "feature/retry",
			Author:        model.User{Username: "octo"},
			Labels:        []string{"backend", "needs-review"},
			RelatedIssues: []string{"#12"},
		},
		Metadata: model.Metadata{
			ProjectInfo: &model.ProjectInfo{Language: "Go", Framework: "none"},
		},
		UserPrompt: "Review this PR for best practices.",
		StyleGuide: "Prefer early returns.",
		Files: []model.FileChange{
			{
				FilePath:     "z/last.go",
				Status:       model.FileModified,
				FileDiff:     "@@ -1,1 +1,2 @@\n a\n+b",
				ChangedLines: []int{2},
				NewContent:   "a\nb\n",
			},
			{
				FilePath:     "a/first.go",
				Status:       model.FileAdded,
				FileDiff:     "@@ -0,0 +1,1 @@\n+x",
				ChangedLines: []int{1},
				NewContent:   "x\n",
			},
		},
	}
}

func TestComposeReviewIsDeterministic(t *testing.T) {
	c := NewComposer(Config{Granularity: model.GranularityLine})

	first, err := c.ComposeReview(reviewInput())
	require.NoError(t, err)
	second, err := c.ComposeReview(reviewInput())
	require.NoError(t, err)

	assert.Equal(t, first.SystemPrompt, second.SystemPrompt)
	assert.Equal(t, first.UserPrompt, second.UserPrompt)
	assert.Equal(t, first.Text(), second.Text())
}

func TestComposeReviewSegmentOrder(t *testing.T) {
	c := NewComposer(Config{})

	p, err := c.ComposeReview(reviewInput())
	require.NoError(t, err)

	assert.Contains(t, p.SystemPrompt, "Senior Software Engineer")
	assert.Contains(t, p.SystemPrompt, "OUTPUT RULES")

	text := p.UserPrompt
	order := []string{
		"## Output schema",
		"## Pull request",
		"Title: Add retry to client",
		"## Reviewer instructions",
		"Review this PR for best practices.",
		"Prefer early returns.",
		"## Changed files (2)",
		"### File: a/first.go (added)",
		"### File: z/last.go (modified)",
	}
	last := -1
	for _, marker := range order {
		idx := strings.Index(text, marker)
		require.NotEqual(t, -1, idx, "missing %q", marker)
		assert.Greater(t, idx, last, "%q is out of order", marker)
		last = idx
	}

	assert.Contains(t, text, "Author: octo")
	assert.Contains(t, text, "Labels: backend, needs-review")
	assert.Contains(t, text, "Related issues: #12")
	assert.Contains(t, text, "Project: language: Go, framework: none")
	assert.Contains(t, text, "Categories: SECURITY, PERFORMANCE")
}

func TestComposeReviewSortsWithoutMutatingInput(t *testing.T) {
	in := reviewInput()
	c := NewComposer(Config{})

	_, err := c.ComposeReview(in)
	require.NoError(t, err)

	assert.Equal(t, "z/last.go", in.Files[0].FilePath)
	assert.Equal(t, "a/first.go", in.Files[1].FilePath)
}

func TestComposeReviewEscapesFences(t *testing.T) {
	in := reviewInput()
	in.UserPrompt = "Check this ```` block"
	c := NewComposer(Config{})

	p, err := c.ComposeReview(in)
	require.NoError(t, err)

	assert.NotContains(t, p.UserPrompt, "fmt.Println(1)\n```")
	assert.Contains(t, p.UserPrompt, "\\`\\`\\`go")
	assert.Contains(t, p.UserPrompt, "Check this \\`\\`\\`\\` block")

	// the schema fence must survive intact after the escaped description
	assert.Contains(t, p.UserPrompt, "```json\n{")
}

func TestComposeReviewGranularity(t *testing.T) {
	line := NewComposer(Config{Granularity: model.GranularityLine})
	file := NewComposer(Config{Granularity: model.GranularityFile})

	lp, err := line.ComposeReview(reviewInput())
	require.NoError(t, err)
	fp, err := file.ComposeReview(reviewInput())
	require.NoError(t, err)

	lineComment := lp.Schema.Properties["files"].Items.Properties["comments"].Items
	fileComment := fp.Schema.Properties["files"].Items.Properties["comments"].Items

	assert.Contains(t, lineComment.Required, "line")
	assert.Contains(t, lineComment.Properties, "line")
	assert.NotContains(t, fileComment.Required, "line")
	assert.NotContains(t, fileComment.Properties, "line")
	for _, field := range []string{"currentCode", "suggestedCode", "reason"} {
		assert.Contains(t, lineComment.Required, field)
		assert.Contains(t, fileComment.Required, field)
	}
	for _, field := range []string{"category", "severity"} {
		assert.Contains(t, lineComment.Properties, field)
		assert.NotContains(t, lineComment.Required, field)
		assert.NotContains(t, fileComment.Required, field)
	}

	assert.Contains(t, lp.SystemPrompt, "REVIEW GRANULARITY: line")
	assert.Contains(t, fp.SystemPrompt, "REVIEW GRANULARITY: file")

	// numbered content only for line granularity
	assert.Contains(t, lp.UserPrompt, "1 | a\n2 | b")
	assert.NotContains(t, fp.UserPrompt, "1 | a")
}

func TestComposeReviewInputErrors(t *testing.T) {
	c := NewComposer(Config{})

	in := reviewInput()
	in.UserPrompt = "  "
	_, err := c.ComposeReview(in)
	assert.ErrorIs(t, err, ErrMissingPrompt)
	assert.True(t, IsInputError(err))

	in = reviewInput()
	in.StyleGuide = ""
	_, err = c.ComposeReview(in)
	assert.ErrorIs(t, err, ErrMissingStyleGuide)

	in.Metadata.CustomPrompts = &model.CustomPrompts{Review: "Focus on SQL"}
	p, err := c.ComposeReview(in)
	require.NoError(t, err)
	assert.Contains(t, p.UserPrompt, "Repository instructions:\n```text\nFocus on SQL\n```")

	in = reviewInput()
	in.Files = nil
	_, err = c.ComposeReview(in)
	assert.ErrorIs(t, err, ErrNoFiles)
}

func TestComposeSummary(t *testing.T) {
	c := NewComposer(Config{Language: model.LanguageRussian})
	in := reviewInput()

	p, err := c.ComposeSummary(SummaryInput{
		PullRequest: in.PullRequest,
		UserPrompt:  "Summarize the change",
		Files:       in.Files,
	})
	require.NoError(t, err)
	assert.Nil(t, p.Schema)
	assert.Equal(t, model.LanguageRussian, p.Language)
	assert.Contains(t, p.SystemPrompt, "technical writer")
	assert.Contains(t, p.UserPrompt, "Summarize the change")
	assert.NotContains(t, p.UserPrompt, "Full content")
	assert.Less(t, strings.Index(p.UserPrompt, "a/first.go"), strings.Index(p.UserPrompt, "z/last.go"))

	_, err = c.ComposeSummary(SummaryInput{Files: in.Files})
	assert.ErrorIs(t, err, ErrMissingPrompt)

	_, err = c.ComposeSummary(SummaryInput{
		Metadata: model.Metadata{CustomPrompts: &model.CustomPrompts{Summary: "Short"}},
	})
	assert.ErrorIs(t, err, ErrNoFiles)
}

func TestEscapeFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"`inline` and ``two``", "`inline` and ``two``"},
		{"```", "\\`\\`\\`"},
		{"a ```go\nx\n``` b", "a \\`\\`\\`go\nx\n\\`\\`\\` b"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EscapeFences(tt.in))
	}
}

func TestMarshalSchemaSortedKeys(t *testing.T) {
	s := ReviewSchema(model.GranularityLine, model.DefaultTaxonomy())
	text, err := MarshalSchema(s)
	require.NoError(t, err)

	assert.Less(t, strings.Index(text, `"files"`), strings.Index(text, `"overallSummary"`))
	assert.NotContains(t, text, "Ordering")

	var decoded map[string]any
	require.NoError(t, jsoniter.UnmarshalFromString(text, &decoded))
	assert.Equal(t, "object", decoded["type"])
}

func TestGetLanguageFallback(t *testing.T) {
	assert.Equal(t, model.LanguageEnglish, GetLanguage("xx").Language)
	assert.Equal(t, model.LanguageGerman, GetLanguage(model.LanguageGerman).Language)
}
