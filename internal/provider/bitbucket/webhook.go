package bitbucket

import (
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/falcon/internal/model"
	"github.com/maxbolgarin/falcon/internal/model/interfaces"
	"github.com/maxbolgarin/falcon/internal/provider/common"
	"github.com/maxbolgarin/logze/v2"
)

var _ interfaces.WebhookSource = (*Webhook)(nil)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SignatureHeader carries the payload signature
const SignatureHeader = "X-Hub-Signature"

// Webhook parses and filters Bitbucket webhook deliveries
type Webhook struct {
	config model.ProviderConfig
	filter common.EventFilter
	log    logze.Logger
}

// NewWebhook creates a Bitbucket webhook source
func NewWebhook(config model.ProviderConfig) *Webhook {
	return &Webhook{
		config: config,
		filter: common.EventFilter{
			PullRequestTypes: []string{"pullrequest"},
			CommentTypes:     []string{"pullrequest_comment"},
			Actions:          []string{"opened"},
			BotUsername:      config.BotUsername,
		},
		log: logze.With("provider", "bitbucket", "component", "webhook"),
	}
}

// ValidateWebhook checks the HMAC signature of the payload
func (w *Webhook) ValidateWebhook(payload []byte, signature string) error {
	return common.ValidateHMAC(payload, signature, w.config.WebhookSecret)
}

// ParseWebhookEvent parses a pullrequest:* delivery.
// Bitbucket payloads carry no action, it is derived from the pull request state.
func (w *Webhook) ParseWebhookEvent(payload []byte) (*model.CodeEvent, error) {
	var p webhookPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, errm.Wrap(err, "failed to parse Bitbucket webhook payload")
	}
	if p.PullRequest == nil {
		return &model.CodeEvent{Type: "unknown"}, nil
	}

	workspace, slug, _ := strings.Cut(p.Repository.FullName, "/")
	event := &model.CodeEvent{
		Type:   "pullrequest",
		Action: actionFromState(p.PullRequest.State),
		Target: model.Target{
			Provider: "bitbucket",
			Owner:    workspace,
			Repo:     slug,
			Number:   p.PullRequest.ID,
		},
		Title: p.PullRequest.Title,
		User: model.User{
			ID:       p.Actor.UUID,
			Username: p.Actor.Nickname,
			Name:     p.Actor.DisplayName,
		},
	}
	for _, r := range p.PullRequest.Reviewers {
		event.Reviewers = append(event.Reviewers, r.Nickname)
	}
	if p.Comment != nil {
		event.Type = "pullrequest_comment"
		event.Action = "created"
		event.Comment = p.Comment.Content.Raw
	}

	return event, nil
}

// IsReviewEvent reports whether the event should start a run
func (w *Webhook) IsReviewEvent(event *model.CodeEvent) bool {
	return w.filter.IsReviewEvent(w.log, event)
}

func actionFromState(state string) string {
	switch strings.ToUpper(state) {
	case "OPEN":
		return "opened"
	case "MERGED":
		return "merged"
	case "DECLINED":
		return "declined"
	default:
		return strings.ToLower(state)
	}
}
