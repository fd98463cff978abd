package bitbucket

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/maxbolgarin/cliex"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/falcon/internal/model"
	"github.com/maxbolgarin/falcon/internal/model/interfaces"
	"github.com/maxbolgarin/falcon/internal/provider/common"
	"github.com/maxbolgarin/logze/v2"
)

var _ interfaces.CodeProvider = (*Provider)(nil)

const (
	defaultBaseURL = "https://api.bitbucket.org/2.0"
	defaultWebURL  = "https://bitbucket.org"
)

// Provider implements the CodeProvider interface for one Bitbucket Cloud pull request
type Provider struct {
	client *cliex.HTTP
	config model.ProviderConfig
	target model.Target
	webURL string
	log    logze.Logger
}

// New creates a new Bitbucket provider.
// Target.Owner is the workspace and Target.Repo is the repository slug.
func New(config model.ProviderConfig, target model.Target) (*Provider, error) {
	if config.Token == "" && (config.Username == "" || config.AppPassword == "") {
		return nil, errm.New("Bitbucket token or username with app password is required")
	}
	if target.Owner == "" || target.Repo == "" || target.Number <= 0 {
		return nil, errm.New("workspace, repo slug and pull request number are required for Bitbucket, got %s", target.String())
	}
	log := logze.With("provider", "bitbucket", "component", "provider", "pr", target.String())

	baseURL := defaultBaseURL
	webURL := defaultWebURL
	if config.BaseURL != "" {
		baseURL = strings.TrimSuffix(config.BaseURL, "/")
		webURL = webRoot(baseURL)
	}

	cli, err := cliex.New(cliex.WithBaseURL(baseURL), cliex.WithLogger(log))
	if err != nil {
		return nil, errm.Wrap(err, "failed to create Bitbucket client")
	}
	if config.Username != "" && config.AppPassword != "" {
		cli.C().SetBasicAuth(config.Username, config.AppPassword)
	} else {
		cli.C().SetAuthToken(config.Token)
	}

	return &Provider{
		client: cli,
		config: config,
		target: target,
		webURL: webURL,
		log:    log,
	}, nil
}

func (p *Provider) pullRequestPath(suffix string) string {
	return fmt.Sprintf("repositories/%s/%s/pullrequests/%d%s", p.target.Owner, p.target.Repo, p.target.Number, suffix)
}

// GetPullRequestDetails retrieves the pull request
func (p *Provider) GetPullRequestDetails(ctx context.Context) (*model.PullRequest, error) {
	var pr pullRequest
	if _, err := p.client.Get(ctx, p.pullRequestPath(""), &pr); err != nil {
		return nil, errm.Wrap(err, "failed to get pull request from Bitbucket")
	}

	return &model.PullRequest{
		ID:           pr.ID,
		Title:        pr.Title,
		Body:         pr.Description,
		BaseBranch:   pr.Destination.Branch.Name,
		SourceBranch: pr.Source.Branch.Name,
		SourceCommit: pr.Source.Commit.Hash,
		Owner:        p.target.Owner,
		Repo:         p.target.Repo,
		Author: model.User{
			ID:       pr.Author.UUID,
			Username: pr.Author.Nickname,
			Name:     pr.Author.DisplayName,
		},
		RelatedIssues: model.ExtractIssueRefs(pr.Title + "\n" + pr.Description),
		URL:           pr.Links.HTML.Href,
	}, nil
}

// GetPullRequestDiff returns the unified diff of the pull request
func (p *Provider) GetPullRequestDiff(ctx context.Context) (string, error) {
	resp, err := p.client.Get(ctx, p.pullRequestPath("/diff"))
	if err != nil {
		return "", errm.Wrap(err, "failed to get diff from Bitbucket")
	}
	return string(resp.Body()), nil
}

// GetFileContent returns the file at ref, or an empty string if it does not exist there
func (p *Provider) GetFileContent(ctx context.Context, path, ref string) (string, error) {
	apiURL := fmt.Sprintf("repositories/%s/%s/src/%s/%s", p.target.Owner, p.target.Repo, url.PathEscape(ref), strings.TrimPrefix(path, "/"))

	resp, err := p.client.Get(ctx, apiURL)
	if errm.Is(err, cliex.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", errm.Wrap(err, "failed to get file content from Bitbucket")
	}
	return string(resp.Body()), nil
}

// GetMetadata reads the repository metadata file at ref
func (p *Provider) GetMetadata(ctx context.Context, ref string) (model.Metadata, error) {
	return common.LoadMetadata(ctx, p, ref)
}

// PostReview posts markdown as a pull request comment
func (p *Provider) PostReview(ctx context.Context, markdown string) error {
	req := commentRequest{Content: content{Raw: markdown}}
	if _, err := p.client.Post(ctx, p.pullRequestPath("/comments"), req); err != nil {
		return errm.Wrap(err, "failed to create comment")
	}
	p.log.Info("review posted")
	return nil
}

// UpdatePullRequestBody replaces the pull request description
func (p *Provider) UpdatePullRequestBody(ctx context.Context, body string) error {
	if _, err := p.client.Put(ctx, p.pullRequestPath(""), updateRequest{Description: body}); err != nil {
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
	link := fmt.Sprintf("%s/%s/%s/src/%s/%s", p.webURL, p.target.Owner, p.target.Repo, commit, strings.TrimPrefix(path, "/"))
	if line > 0 {
		link += "#lines-" + strconv.Itoa(line)
	}
	return link
}

// webRoot turns an API URL like https://api.bitbucket.example/2.0 into https://bitbucket.example
func webRoot(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return baseURL
	}
	return u.Scheme + "://" + strings.TrimPrefix(u.Host, "api.")
}
