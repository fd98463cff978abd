package gitlab

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/falcon/internal/model"
	"github.com/maxbolgarin/falcon/internal/model/interfaces"
	"github.com/maxbolgarin/falcon/internal/provider/common"
	"github.com/maxbolgarin/lang"
	"github.com/maxbolgarin/logze/v2"
	gitlab "gitlab.com/gitlab-org/api/client-go"
)

const (
	defaultBaseURL = "https://gitlab.com"
	diffsPerPage   = 100
)

var _ interfaces.CodeProvider = (*Provider)(nil)

// Provider implements the CodeProvider interface for one GitLab merge request.
// Target.Owner is the namespace (group path) and Target.Repo is the project path.
type Provider struct {
	client *gitlab.Client
	config model.ProviderConfig
	target model.Target
	webURL string
	log    logze.Logger
}

// New creates a new GitLab provider
func New(config model.ProviderConfig, target model.Target) (*Provider, error) {
	if config.Token == "" {
		return nil, errm.New("GitLab token is required")
	}
	if target.Owner == "" || target.Repo == "" || target.Number <= 0 {
		return nil, errm.New("namespace, project and merge request number are required for GitLab, got %s", target.String())
	}

	baseURL := lang.Check(config.BaseURL, defaultBaseURL)
	client, err := gitlab.NewClient(config.Token, gitlab.WithBaseURL(baseURL))
	if err != nil {
		return nil, errm.Wrap(err, "failed to create GitLab client")
	}

	return &Provider{
		client: client,
		config: config,
		target: target,
		webURL: webRoot(baseURL),
		log:    logze.With("provider", "gitlab", "component", "provider", "pr", target.String()),
	}, nil
}

// GetPullRequestDetails retrieves the merge request
func (p *Provider) GetPullRequestDetails(ctx context.Context) (*model.PullRequest, error) {
	mr, _, err := p.client.MergeRequests.GetMergeRequest(p.target.ProjectID(), p.target.Number, nil, gitlab.WithContext(ctx))
	if err != nil {
		return nil, errm.Wrap(err, "failed to get merge request from GitLab")
	}

	out := &model.PullRequest{
		ID:            mr.IID,
		Title:         mr.Title,
		Body:          mr.Description,
		BaseBranch:    mr.TargetBranch,
		SourceBranch:  mr.SourceBranch,
		SourceCommit:  mr.SHA,
		Owner:         p.target.Owner,
		Repo:          p.target.Repo,
		Labels:        []string(mr.Labels),
		RelatedIssues: model.ExtractIssueRefs(mr.Title + "\n" + mr.Description),
		URL:           mr.WebURL,
	}
	if mr.Author != nil {
		out.Author = model.User{
			ID:       strconv.Itoa(mr.Author.ID),
			Username: mr.Author.Username,
			Name:     mr.Author.Name,
		}
	}
	return out, nil
}

// GetPullRequestDiff builds a unified diff with git headers from the merge request diffs
func (p *Provider) GetPullRequestDiff(ctx context.Context) (string, error) {
	opts := &gitlab.ListMergeRequestDiffsOptions{
		ListOptions: gitlab.ListOptions{PerPage: diffsPerPage},
	}

	var out strings.Builder
	for {
		diffs, resp, err := p.client.MergeRequests.ListMergeRequestDiffs(p.target.ProjectID(), p.target.Number, opts, gitlab.WithContext(ctx))
		if err != nil {
			return "", errm.Wrap(err, "failed to list merge request diffs")
		}
		for _, d := range diffs {
			writeFileDiff(&out, d)
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return out.String(), nil
}

// GetFileContent returns the file at ref, or an empty string if it does not exist there
func (p *Provider) GetFileContent(ctx context.Context, path, ref string) (string, error) {
	raw, resp, err := p.client.RepositoryFiles.GetRawFile(p.target.ProjectID(), path,
		&gitlab.GetRawFileOptions{Ref: gitlab.Ptr(ref)}, gitlab.WithContext(ctx))
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return "", nil
		}
		return "", errm.Wrap(err, "failed to get file content from GitLab")
	}
	return string(raw), nil
}

// GetMetadata reads the repository metadata file at ref
func (p *Provider) GetMetadata(ctx context.Context, ref string) (model.Metadata, error) {
	return common.LoadMetadata(ctx, p, ref)
}

// PostReview posts markdown as a merge request note
func (p *Provider) PostReview(ctx context.Context, markdown string) error {
	note, _, err := p.client.Notes.CreateMergeRequestNote(p.target.ProjectID(), p.target.Number,
		&gitlab.CreateMergeRequestNoteOptions{Body: gitlab.Ptr(markdown)}, gitlab.WithContext(ctx))
	if err != nil {
		return errm.Wrap(err, "failed to create merge request note")
	}
	p.log.Info("review posted", "note_id", note.ID)
	return nil
}

// UpdatePullRequestBody replaces the merge request description
func (p *Provider) UpdatePullRequestBody(ctx context.Context, body string) error {
	_, _, err := p.client.MergeRequests.UpdateMergeRequest(p.target.ProjectID(), p.target.Number,
		&gitlab.UpdateMergeRequestOptions{Description: gitlab.Ptr(body)}, gitlab.WithContext(ctx))
	if err != nil {
		return errm.Wrap(err, "failed to update merge request description")
	}
	p.log.Info("merge request description updated")
	return nil
}

// Permalink links to a line of a file at commit
func (p *Provider) Permalink(path, commit string, line int) string {
	if commit == "" || path == "" {
		return ""
	}
	link := fmt.Sprintf("%s/%s/-/blob/%s/%s", p.webURL, p.target.ProjectID(), commit, strings.TrimPrefix(path, "/"))
	if line > 0 {
		link += "#L" + strconv.Itoa(line)
	}
	return link
}

// writeFileDiff adds git headers to a GitLab diff fragment, which starts at the first hunk
func writeFileDiff(out *strings.Builder, d *gitlab.MergeRequestDiff) {
	oldPath := lang.Check(d.OldPath, d.NewPath)
	newPath := lang.Check(d.NewPath, d.OldPath)

	fmt.Fprintf(out, "diff --git a/%s b/%s\n", oldPath, newPath)
	switch {
	case d.NewFile:
		fmt.Fprintf(out, "new file mode %s\n", lang.Check(d.BMode, "100644"))
	case d.DeletedFile:
		fmt.Fprintf(out, "deleted file mode %s\n", lang.Check(d.AMode, "100644"))
	case d.RenamedFile:
		fmt.Fprintf(out, "rename from %s\nrename to %s\n", oldPath, newPath)
	}

	if d.Diff == "" {
		return
	}
	out.WriteString("--- " + lang.If(d.NewFile, "/dev/null", "a/"+oldPath) + "\n")
	out.WriteString("+++ " + lang.If(d.DeletedFile, "/dev/null", "b/"+newPath) + "\n")
	out.WriteString(d.Diff)
	if !strings.HasSuffix(d.Diff, "\n") {
		out.WriteString("\n")
	}
}

func webRoot(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(baseURL, "/")
	}
	return u.Scheme + "://" + u.Host
}
