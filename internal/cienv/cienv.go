// Package cienv finds the pull request a CI job was started for.
package cienv

import (
	"os"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/falcon/internal/model"
	"github.com/maxbolgarin/lang"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	GitHubActions     = "github"
	BitbucketPipeline = "bitbucket"
	GitLabCI          = "gitlab"

	defaultCommand = model.ModeReview
)

// Context is what the CI environment tells about the run
type Context struct {
	Target model.Target
	// Command is the comment body that triggered the job, or "review"
	Command string
}

// Mode returns the run mode requested by the command
func (c Context) Mode() string {
	return model.ModeFromCommand(c.Command)
}

// Getenv reads an environment variable, os.Getenv in production
type Getenv func(key string) string

// Detect returns the context of a supported CI environment.
// ok is false outside of CI or when the job is not tied to a pull request.
func Detect(getenv Getenv) (ctx Context, ok bool, err error) {
	switch {
	case getenv("GITHUB_ACTIONS") == "true" && getenv("GITHUB_EVENT_PATH") != "":
		return detectGitHub(getenv("GITHUB_EVENT_PATH"))
	case getenv("BITBUCKET_BUILD_NUMBER") != "":
		return fromVariables(BitbucketPipeline, getenv,
			getenv("BITBUCKET_PULL_REQUEST_ID"), getenv("BITBUCKET_REPO_OWNER"), getenv("BITBUCKET_REPO_SLUG"))
	case getenv("GITLAB_CI") == "true":
		return fromVariables(GitLabCI, getenv,
			getenv("CI_MERGE_REQUEST_IID"), getenv("CI_PROJECT_NAMESPACE"), getenv("CI_PROJECT_NAME"))
	}
	return Context{}, false, nil
}

type githubEvent struct {
	PullRequest *struct {
		Number int `json:"number"`
	} `json:"pull_request"`
	Issue *struct {
		Number int `json:"number"`
	} `json:"issue"`
	Comment *struct {
		Body string `json:"body"`
	} `json:"comment"`
	Repository *struct {
		Name  string `json:"name"`
		Owner struct {
			Login string `json:"login"`
		} `json:"owner"`
	} `json:"repository"`
}

func detectGitHub(eventPath string) (Context, bool, error) {
	data, err := os.ReadFile(eventPath)
	if err != nil {
		return Context{}, false, errm.Wrap(err, "failed to read GitHub event")
	}

	var event githubEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return Context{}, false, errm.Wrap(err, "failed to parse GitHub event")
	}

	var number int
	switch {
	case event.PullRequest != nil && event.PullRequest.Number > 0:
		number = event.PullRequest.Number
	case event.Issue != nil:
		number = event.Issue.Number
	}
	if number <= 0 || event.Repository == nil {
		return Context{}, false, nil
	}

	command := defaultCommand
	if event.Comment != nil {
		command = event.Comment.Body
	}

	return Context{
		Target: model.Target{
			Provider: GitHubActions,
			Owner:    event.Repository.Owner.Login,
			Repo:     event.Repository.Name,
			Number:   number,
		},
		Command: command,
	}, true, nil
}

// fromVariables builds a context from plain job variables, the command comes from FALCON_COMMAND
func fromVariables(provider string, getenv Getenv, id, owner, repo string) (Context, bool, error) {
	if id == "" || owner == "" || repo == "" {
		return Context{}, false, nil
	}
	number, err := strconv.Atoi(strings.TrimSpace(id))
	if err != nil {
		return Context{}, false, errm.Wrap(err, "invalid pull request id "+id)
	}

	return Context{
		Target: model.Target{
			Provider: provider,
			Owner:    owner,
			Repo:     repo,
			Number:   number,
		},
		Command: lang.Check(getenv("FALCON_COMMAND"), defaultCommand),
	}, true, nil
}
