package interfaces

import (
	"context"

	"github.com/maxbolgarin/falcon/internal/model"
)

// CodeProvider defines the operations the review pipeline needs from a hosted Git provider.
// One instance serves exactly one pull request.
type CodeProvider interface {
	GetPullRequestDetails(ctx context.Context) (*model.PullRequest, error)
	GetPullRequestDiff(ctx context.Context) (string, error)
	// GetFileContent returns an empty string and no error when the file does not exist at ref
	GetFileContent(ctx context.Context, path, ref string) (string, error)
	// GetMetadata returns empty metadata when the repository has no metadata file
	GetMetadata(ctx context.Context, ref string) (model.Metadata, error)

	PostReview(ctx context.Context, markdown string) error
	UpdatePullRequestBody(ctx context.Context, body string) error

	// Permalink returns a link to a line of a file at commit, or an empty string when not supported
	Permalink(path, commit string, line int) string
}

// WebhookSource is implemented by providers that can act as a webhook event source.
type WebhookSource interface {
	ValidateWebhook(payload []byte, token string) error
	ParseWebhookEvent(payload []byte) (*model.CodeEvent, error)
	IsReviewEvent(event *model.CodeEvent) bool
}

// LanguageModel generates a raw text answer for a prompt.
// When prompt.Schema is set the answer is expected to be JSON, but it is not trusted to be.
type LanguageModel interface {
	Generate(ctx context.Context, prompt model.Prompt) (string, error)
}

// AgentAPI defines the interface for calling LLM AI models
type AgentAPI interface {
	CallAPI(ctx context.Context, req model.APIRequest) (model.APIResponse, error)
}

// VersionControl runs git operations against a local repository.
type VersionControl interface {
	FetchBranch(ctx context.Context, name string) error
	Diff(ctx context.Context, baseRef, headRef string) (string, error)
	ShowFileAtRef(ctx context.Context, ref, path string) (string, error)
}
