// Package local reviews the checked out branch of a local repository and prints results.
package local

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-isatty"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/falcon/internal/model"
	"github.com/maxbolgarin/falcon/internal/model/interfaces"
	"github.com/maxbolgarin/falcon/internal/provider/common"
	"github.com/maxbolgarin/falcon/internal/vcs"
	"github.com/maxbolgarin/lang"
	"github.com/maxbolgarin/logze/v2"
)

var _ interfaces.CodeProvider = (*Provider)(nil)

const wordWrap = 100

// Provider treats the current branch as a pull request against a base branch
type Provider struct {
	repo   *vcs.Repository
	config model.ProviderConfig
	out    io.Writer
	styled bool
	log    logze.Logger
}

// Option configures a Provider
type Option func(*Provider)

// WithOutput sets where reviews are printed, stdout by default.
func WithOutput(w io.Writer) Option {
	return func(p *Provider) {
		p.out = w
		p.styled = isTerminal(w)
	}
}

// WithRepository uses an already opened repository instead of opening WorkDir.
func WithRepository(repo *vcs.Repository) Option {
	return func(p *Provider) {
		p.repo = repo
	}
}

// New creates a local provider for the repository in config.WorkDir
func New(config model.ProviderConfig, opts ...Option) (*Provider, error) {
	p := &Provider{
		config: config,
		out:    os.Stdout,
		styled: isTerminal(os.Stdout),
		log:    logze.With("provider", "local", "component", "provider"),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.repo == nil {
		repo, err := vcs.Open(lang.Check(config.WorkDir, "."), vcs.WithToken(config.Token))
		if err != nil {
			return nil, errm.Wrap(err, "failed to open local repository")
		}
		p.repo = repo
	}

	return p, nil
}

// Repository returns the underlying repository
func (p *Provider) Repository() *vcs.Repository {
	return p.repo
}

// GetPullRequestDetails describes HEAD as a pull request
func (p *Provider) GetPullRequestDetails(_ context.Context) (*model.PullRequest, error) {
	head, err := p.repo.Head()
	if err != nil {
		return nil, errm.Wrap(err, "failed to read HEAD")
	}

	return &model.PullRequest{
		Title:         head.Subject,
		Body:          head.Body,
		BaseBranch:    lang.Check(p.config.BaseBranch, p.repo.DefaultBranch()),
		SourceBranch:  head.Branch,
		SourceCommit:  head.Hash,
		Author:        model.User{Username: head.Email, Name: head.Author},
		RelatedIssues: model.ExtractIssueRefs(head.Subject + "\n" + head.Body),
	}, nil
}

// GetPullRequestDiff diffs HEAD against the base branch
func (p *Provider) GetPullRequestDiff(ctx context.Context) (string, error) {
	base := lang.Check(p.config.BaseBranch, p.repo.DefaultBranch())
	if base == "" {
		return "", errm.New("base branch is required for local review")
	}
	return p.repo.Diff(ctx, base, "HEAD")
}

// GetFileContent reads a file at ref, a file missing there is empty
func (p *Provider) GetFileContent(ctx context.Context, path, ref string) (string, error) {
	content, err := p.repo.ShowFileAtRef(ctx, ref, path)
	if errm.Is(err, vcs.ErrFileNotFound) {
		return "", nil
	}
	return content, err
}

// GetMetadata reads the repository metadata file at ref
func (p *Provider) GetMetadata(ctx context.Context, ref string) (model.Metadata, error) {
	return common.LoadMetadata(ctx, p, ref)
}

// PostReview prints the review
func (p *Provider) PostReview(_ context.Context, markdown string) error {
	return p.print(markdown)
}

// UpdatePullRequestBody prints the description there is no pull request to put it in
func (p *Provider) UpdatePullRequestBody(_ context.Context, body string) error {
	return p.print(body)
}

// Permalink is not supported for local repositories
func (p *Provider) Permalink(string, string, int) string {
	return ""
}

func (p *Provider) print(markdown string) error {
	text := markdown
	if p.styled {
		text = render(markdown)
	}
	if _, err := io.WriteString(p.out, text); err != nil {
		return errm.Wrap(err, "failed to print review")
	}
	return nil
}

func render(markdown string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wordWrap),
		glamour.WithEmoji(),
	)
	if err != nil {
		return markdown
	}
	styled, err := r.Render(markdown)
	if err != nil {
		return markdown
	}
	return styled
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
