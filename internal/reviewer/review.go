package reviewer

import (
	"context"
	"io"
	"strings"

	"github.com/maxbolgarin/erro"
	"github.com/maxbolgarin/falcon/internal/agent/prompts"
)

// Review runs a structured code review and posts the rendered report at most once.
// The returned error is nil for graceful aborts, check Outcome.State for the result.
func (r *Reviewer) Review(ctx context.Context) (Outcome, error) {
	s := r.newRun("review")

	prc, err := r.fetchContext(ctx, s)
	if err != nil {
		return s.abort(err)
	}

	s.enter(StateFiltering)
	files, err := r.filter(ctx, s, prc, true)
	if err != nil {
		return s.abort(err)
	}

	s.enter(StateComposing)
	prompt, err := r.composer.ComposeReview(prompts.ReviewInput{
		PullRequest: prc.pr,
		Metadata:    prc.metadata,
		UserPrompt:  r.cfg.Prompt,
		StyleGuide:  r.cfg.StyleGuide,
		Files:       files,
	})
	if err != nil {
		return s.abort(err)
	}
	r.logFlow(s.log, "prompt composed", "prompt_length", len(prompt.Text()))

	s.enter(StateInvoking)
	raw, err := r.model.Generate(ctx, prompt)
	if err != nil {
		return s.abort(erro.Wrap(err, "failed to generate review"))
	}

	s.enter(StateValidating)
	review, report, err := r.validator.Validate(raw)
	s.outcome.Report = report
	if err != nil {
		return s.abort(err)
	}
	s.outcome.Stats.Comments = review.CommentCount()

	s.enter(StateRendering)
	doc := r.renderer.Render(review, prc.pr.SourceCommit)
	if strings.TrimSpace(doc) == "" {
		return s.abort(ErrEmptyReport)
	}

	s.enter(StatePublishing)
	if err := r.publish(ctx, doc, r.provider.PostReview); err != nil {
		return s.abort(erro.Wrap(err, "failed to post review"))
	}

	return s.done(doc)
}

// publish posts doc once, or writes it to the dry run writer.
func (r *Reviewer) publish(ctx context.Context, doc string, post func(context.Context, string) error) error {
	if r.dryRun != nil {
		_, err := io.WriteString(r.dryRun, doc)
		return err
	}
	return post(ctx, doc)
}
