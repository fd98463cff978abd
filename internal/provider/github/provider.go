package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/go-github/v57/github"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/falcon/internal/model"
	"github.com/maxbolgarin/falcon/internal/model/interfaces"
	"github.com/maxbolgarin/falcon/internal/provider/common"
	"github.com/maxbolgarin/logze/v2"
	"golang.org/x/oauth2"
)

var _ interfaces.CodeProvider = (*Provider)(nil)

const (
	defaultWebURL = "https://github.com"
)

// Provider implements the CodeProvider interface for one GitHub pull request
type Provider struct {
	client *github.Client
	config model.ProviderConfig
	target model.Target
	webURL string
	log    logze.Logger
}

// New creates a new GitHub provider
func New(config model.ProviderConfig, target model.Target) (*Provider, error) {
	if config.Token == "" {
		return nil, errm.New("GitHub token is required")
	}
	if target.Owner == "" || target.Repo == "" || target.Number <= 0 {
		return nil, errm.New("owner, repo and pull request number are required for GitHub, got %s", target.String())
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: config.Token},
	)
	tc := oauth2.NewClient(context.Background(), ts)

	client := github.NewClient(tc)
	webURL := defaultWebURL

	// GitHub Enterprise
	if config.BaseURL != "" && config.BaseURL != defaultWebURL {
		var err error
		client, err = github.NewClient(tc).WithEnterpriseURLs(config.BaseURL, config.BaseURL)
		if err != nil {
			return nil, errm.Wrap(err, "failed to create GitHub Enterprise client")
		}
		webURL = webRoot(config.BaseURL)
	}

	return &Provider{
		client: client,
		config: config,
		target: target,
		webURL: webURL,
		log:    logze.With("provider", "github", "component", "provider", "pr", target.String()),
	}, nil
}

// GetPullRequestDetails retrieves the pull request
func (p *Provider) GetPullRequestDetails(ctx context.Context) (*model.PullRequest, error) {
	pr, _, err := p.client.PullRequests.Get(ctx, p.target.Owner, p.target.Repo, p.target.Number)
	if err != nil {
		return nil, errm.Wrap(err, "failed to get pull request from GitHub")
	}

	labels := make([]string, 0, len(pr.Labels))
	for _, l := range pr.Labels {
		labels = append(labels, l.GetName())
	}

	return &model.PullRequest{
		ID:           pr.GetNumber(),
		Title:        pr.GetTitle(),
		Body:         pr.GetBody(),
		BaseBranch:   pr.GetBase().GetRef(),
		SourceBranch: pr.GetHead().GetRef(),
		SourceCommit: pr.GetHead().GetSHA(),
		Owner:        p.target.Owner,
		Repo:         p.target.Repo,
		Author: model.User{
			ID:       strconv.FormatInt(pr.GetUser().GetID(), 10),
			Username: pr.GetUser().GetLogin(),
			Name:     pr.GetUser().GetName(),
		},
		Labels:        labels,
		RelatedIssues: model.ExtractIssueRefs(pr.GetTitle() + "\n" + pr.GetBody()),
		URL:           pr.GetHTMLURL(),
	}, nil
}

// GetPullRequestDiff returns the unified diff of the pull request
func (p *Provider) GetPullRequestDiff(ctx context.Context) (string, error) {
	diff, _, err := p.client.PullRequests.GetRaw(ctx, p.target.Owner, p.target.Repo, p.target.Number, github.RawOptions{Type: github.Diff})
	if err != nil {
		return "", errm.Wrap(err, "failed to get pull request diff from GitHub")
	}
	return diff, nil
}

// GetFileContent returns the file at ref, or an empty string if it does not exist there
func (p *Provider) GetFileContent(ctx context.Context, path, ref string) (string, error) {
	file, _, resp, err := p.client.Repositories.GetContents(ctx, p.target.Owner, p.target.Repo, path,
		&github.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return "", nil
		}
		return "", errm.Wrap(err, "failed to get file content from GitHub")
	}
	if file == nil {
		// directory
		return "", nil
	}

	content, err := file.GetContent()
	if err != nil {
		return "", errm.Wrap(err, "failed to decode file content")
	}
	return content, nil
}

// GetMetadata reads the repository metadata file at ref
func (p *Provider) GetMetadata(ctx context.Context, ref string) (model.Metadata, error) {
	return common.LoadMetadata(ctx, p, ref)
}

// PostReview posts markdown as a pull request comment
func (p *Provider) PostReview(ctx context.Context, markdown string) error {
	comment, _, err := p.client.Issues.CreateComment(ctx, p.target.Owner, p.target.Repo, p.target.Number,
		&github.IssueComment{Body: github.String(markdown)})
	if err != nil {
		return errm.Wrap(err, "failed to create pull request comment")
	}
	p.log.Info("review posted", "comment_id", comment.GetID())
	return nil
}

// UpdatePullRequestBody replaces the pull request description
func (p *Provider) UpdatePullRequestBody(ctx context.Context, body string) error {
	_, _, err := p.client.PullRequests.Edit(ctx, p.target.Owner, p.target.Repo, p.target.Number,
		&github.PullRequest{Body: github.String(body)})
	if err != nil {
		return errm.Wrap(err, "failed to update pull request description")
	}
	p.log.Info("pull request description updated")
	return nil
}

// Permalink links to a line of a file at commit
func (p *Provider) Permalink(path, commit string, line int) string {
	if commit == "" || path == "" {
		return ""
	}
	link := fmt.Sprintf("%s/%s/%s/blob/%s/%s", p.webURL, p.target.Owner, p.target.Repo, commit, strings.TrimPrefix(path, "/"))
	if line > 0 {
		link += "#L" + strconv.Itoa(line)
	}
	return link
}

// webRoot turns an API base URL like https://ghe.corp/api/v3/ into https://ghe.corp
func webRoot(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(baseURL, "/")
	}
	return u.Scheme + "://" + u.Host
}
