package reviewer

import (
	"context"
	"strings"

	"github.com/maxbolgarin/abstract"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/erro"
	"github.com/maxbolgarin/falcon/internal/model"
	"github.com/maxbolgarin/falcon/internal/model/interfaces"
	"github.com/maxbolgarin/falcon/internal/reviewer/diffparser"
	"github.com/maxbolgarin/falcon/internal/reviewer/llmcontext"
	"github.com/maxbolgarin/falcon/internal/vcs"
	"github.com/maxbolgarin/lang"
)

// pullRequestContext is what the fetching step produces
type pullRequestContext struct {
	pr       *model.PullRequest
	base     string
	head     string
	diff     string
	metadata model.Metadata
}

// fetchContext loads PR details first, then the diff and repository metadata concurrently.
// Metadata is optional, a failure there is only logged.
func (r *Reviewer) fetchContext(ctx context.Context, s *run) (*pullRequestContext, error) {
	pr, err := r.provider.GetPullRequestDetails(ctx)
	if err != nil {
		return nil, erro.Wrap(err, "failed to get pull request details")
	}
	if pr == nil {
		return nil, erro.New("provider returned no pull request")
	}

	base := lang.Check(r.cfg.BaseBranch, pr.BaseBranch)
	if base == "" {
		return nil, ErrNoBaseBranch
	}
	head := lang.Check(pr.SourceCommit, pr.SourceBranch)

	s.log = s.log.WithFields(
		"pr", pr.ID,
		"base", base,
		"head", lang.TruncateString(head, 8),
	)
	s.log.Infof("starting pull request run: %s", pr.Title)

	out := &pullRequestContext{pr: pr, base: base, head: head}

	var diffErr error
	waiterSet := abstract.NewWaiterSet(s.log)
	waiterSet.Add(ctx, func(ctx context.Context) error {
		out.diff, diffErr = r.loadDiff(ctx, base, head)
		return diffErr
	})
	waiterSet.Add(ctx, func(ctx context.Context) error {
		metadata, err := r.provider.GetMetadata(ctx, head)
		if err != nil {
			s.log.Warn("failed to load repository metadata, continuing without it", "error", err)
			return nil
		}
		out.metadata = metadata
		return nil
	})
	if err := waiterSet.Await(ctx); err != nil {
		if diffErr != nil {
			return nil, diffErr
		}
		return nil, err
	}

	if strings.TrimSpace(out.diff) == "" {
		return nil, ErrEmptyDiff
	}
	r.logFlow(s.log, "fetched pull request context", "diff_length", len(out.diff))

	return out, nil
}

func (r *Reviewer) loadDiff(ctx context.Context, base, head string) (string, error) {
	if r.vcs == nil {
		diff, err := r.provider.GetPullRequestDiff(ctx)
		if err != nil {
			return "", erro.Wrap(err, "failed to get pull request diff")
		}
		return diff, nil
	}

	if err := r.vcs.FetchBranch(ctx, base); err != nil {
		return "", erro.Wrap(err, "failed to fetch base branch "+base)
	}
	diff, err := r.vcs.Diff(ctx, base, lang.Check(head, "HEAD"))
	if err != nil {
		return "", erro.Wrap(err, "failed to diff against base branch "+base)
	}
	return diff, nil
}

// filter parses the diff and keeps the files that survive ignore patterns.
// Content is loaded only when withContent is set.
func (r *Reviewer) filter(ctx context.Context, s *run, prc *pullRequestContext, withContent bool) ([]model.FileChange, error) {
	changes := diffparser.Parse(prc.diff)
	s.outcome.Stats.ChangedFiles = len(changes)
	if len(changes) == 0 {
		return nil, ErrNothingToReview
	}

	req := llmcontext.Request{
		Changes: changes,
		Ignore:  prc.metadata.IgnoreFiles,
	}
	if withContent {
		req.HeadRef = prc.head
		req.BaseRef = prc.base
	}

	res, err := r.assembler.Assemble(ctx, req)
	if err != nil {
		return nil, erro.Wrap(err, "failed to assemble context")
	}
	s.outcome.Stats.IgnoredFiles = len(res.Ignored)
	s.outcome.Stats.FailedFetches = len(res.Failed)
	s.outcome.Stats.ReviewedFiles = len(res.Files)

	if len(res.Files) == 0 {
		return nil, ErrNothingToReview
	}
	r.logFlow(s.log, "files selected", "files", len(res.Files), "ignored", len(res.Ignored))

	return res.Files, nil
}

// vcsFetcher reads file content from a local repository
type vcsFetcher struct {
	vcs interfaces.VersionControl
}

// GetFileContent treats a path missing at ref as empty, like the hosting providers do
func (f vcsFetcher) GetFileContent(ctx context.Context, path, ref string) (string, error) {
	content, err := f.vcs.ShowFileAtRef(ctx, ref, path)
	if errm.Is(err, vcs.ErrFileNotFound) {
		return "", nil
	}
	return content, err
}
