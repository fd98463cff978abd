package reviewer

import (
	"context"
	"strings"

	"github.com/maxbolgarin/erro"
	"github.com/maxbolgarin/falcon/internal/agent/prompts"
)

const summaryHeader = "### Falcon AI Summary"

// Summarize writes a free-form summary of the pull request, either into the body
// inside a marked section or as a comment.
func (r *Reviewer) Summarize(ctx context.Context) (Outcome, error) {
	s := r.newRun("summary")

	prc, err := r.fetchContext(ctx, s)
	if err != nil {
		return s.abort(err)
	}

	s.enter(StateFiltering)
	files, err := r.filter(ctx, s, prc, false)
	if err != nil {
		return s.abort(err)
	}

	s.enter(StateComposing)
	prompt, err := r.composer.ComposeSummary(prompts.SummaryInput{
		PullRequest: prc.pr,
		Metadata:    prc.metadata,
		UserPrompt:  r.cfg.SummaryPrompt,
		Files:       files,
	})
	if err != nil {
		return s.abort(err)
	}

	s.enter(StateInvoking)
	raw, err := r.model.Generate(ctx, prompt)
	if err != nil {
		return s.abort(erro.Wrap(err, "failed to generate summary"))
	}

	s.enter(StateValidating)
	summary := cleanSummary(raw)
	if summary == "" {
		return s.abort(ErrEmptyReport)
	}

	s.enter(StateRendering)
	post := r.provider.PostReview
	doc := summaryHeader + "\n\n" + summary + "\n"
	if r.cfg.UpdateBody {
		post = r.provider.UpdatePullRequestBody
		doc = updateBodyWithSummary(prc.pr.Body, summary)
	}

	s.enter(StatePublishing)
	if err := r.publish(ctx, doc, post); err != nil {
		return s.abort(erro.Wrap(err, "failed to publish summary"))
	}

	return s.done(doc)
}

// cleanSummary unwraps a summary the model put into a single markdown fence.
func cleanSummary(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	nl := strings.IndexByte(s, '\n')
	if nl == -1 {
		return s
	}
	inner := strings.TrimSuffix(s[nl+1:], "```")
	// a closing fence of an inner block means the fence was not a wrapper
	if strings.Contains(inner, "```") {
		return s
	}
	return strings.TrimSpace(inner)
}

// updateBodyWithSummary replaces the marked summary section of the body,
// or appends a new one below the author's text.
func updateBodyWithSummary(body, summary string) string {
	var section strings.Builder
	section.Grow(len(summary) + len(startMarkerSummary) + len(endMarkerSummary) + len(summaryHeader) + 8)
	section.WriteString(startMarkerSummary)
	section.WriteString("\n")
	section.WriteString(summaryHeader)
	section.WriteString("\n\n")
	section.WriteString(summary)
	section.WriteString("\n")
	section.WriteString(endMarkerSummary)

	startPos := strings.Index(body, startMarkerSummary)
	if startPos != -1 {
		if endRel := strings.Index(body[startPos:], endMarkerSummary); endRel != -1 {
			endPos := startPos + endRel + len(endMarkerSummary)
			return body[:startPos] + section.String() + body[endPos:]
		}
	}

	if strings.TrimSpace(body) == "" {
		return section.String()
	}
	return strings.TrimRight(body, "\n") + "\n\n---\n\n" + section.String()
}
