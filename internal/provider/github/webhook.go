package github

import (
	"strconv"

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
const SignatureHeader = "X-Hub-Signature-256"

// Webhook parses and filters GitHub webhook deliveries
type Webhook struct {
	config model.ProviderConfig
	filter common.EventFilter
	log    logze.Logger
}

// NewWebhook creates a GitHub webhook source
func NewWebhook(config model.ProviderConfig) *Webhook {
	return &Webhook{
		config: config,
		filter: common.EventFilter{
			PullRequestTypes: []string{"pull_request"},
			CommentTypes:     []string{"issue_comment"},
			Actions: []string{
				"opened",
				"reopened",
				"synchronize",
				"review_requested",
				"ready_for_review",
			},
			BotUsername: config.BotUsername,
		},
		log: logze.With("provider", "github", "component", "webhook"),
	}
}

// ValidateWebhook checks the X-Hub-Signature-256 value
func (w *Webhook) ValidateWebhook(payload []byte, signature string) error {
	return common.ValidateHMAC(payload, signature, w.config.WebhookSecret)
}

// ParseWebhookEvent parses a pull_request or issue_comment delivery
func (w *Webhook) ParseWebhookEvent(payload []byte) (*model.CodeEvent, error) {
	var p webhookPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, errm.Wrap(err, "failed to parse GitHub webhook payload")
	}

	event := &model.CodeEvent{
		Action: p.Action,
		Target: model.Target{
			Provider: "github",
			Owner:    p.Repository.Owner.Login,
			Repo:     p.Repository.Name,
		},
		User: model.User{
			ID:       formatID(p.Sender.ID),
			Username: p.Sender.Login,
			Name:     p.Sender.Name,
		},
	}

	switch {
	case p.Comment != nil && p.Issue != nil:
		event.Type = "issue_comment"
		event.Comment = p.Comment.Body
		event.Title = p.Issue.Title
		if p.Issue.PullRequest != nil {
			event.Target.Number = p.Issue.Number
		}

	case p.PullRequest != nil:
		event.Type = "pull_request"
		event.Title = p.PullRequest.Title
		event.Target.Number = p.PullRequest.Number
		for _, r := range p.PullRequest.RequestedReviewers {
			event.Reviewers = append(event.Reviewers, r.Login)
		}
		if p.RequestedReviewer != nil {
			event.Reviewers = append(event.Reviewers, p.RequestedReviewer.Login)
		}

	default:
		event.Type = "unknown"
	}

	return event, nil
}

// IsReviewEvent reports whether the event should start a run
func (w *Webhook) IsReviewEvent(event *model.CodeEvent) bool {
	return w.filter.IsReviewEvent(w.log, event)
}

func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
