package gitlab

import (
	"crypto/subtle"
	"strconv"
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

// TokenHeader carries the shared webhook secret
const TokenHeader = "X-Gitlab-Token"

// Webhook parses and filters GitLab webhook deliveries
type Webhook struct {
	config model.ProviderConfig
	filter common.EventFilter
	log    logze.Logger
}

// NewWebhook creates a GitLab webhook source
func NewWebhook(config model.ProviderConfig) *Webhook {
	return &Webhook{
		config: config,
		filter: common.EventFilter{
			PullRequestTypes: []string{"merge_request"},
			CommentTypes:     []string{"note"},
			Actions:          []string{"open", "reopen", "update"},
			BotUsername:      config.BotUsername,
		},
		log: logze.With("provider", "gitlab", "component", "webhook"),
	}
}

// ValidateWebhook compares the X-Gitlab-Token value with the configured secret
func (w *Webhook) ValidateWebhook(_ []byte, token string) error {
	if w.config.WebhookSecret == "" {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(w.config.WebhookSecret)) != 1 {
		return errm.New("invalid webhook token")
	}
	return nil
}

// ParseWebhookEvent parses a merge_request or note delivery
func (w *Webhook) ParseWebhookEvent(payload []byte) (*model.CodeEvent, error) {
	var p webhookPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, errm.Wrap(err, "failed to parse GitLab webhook payload")
	}

	namespace, project := splitProjectPath(p.Project.PathWithNamespace)
	event := &model.CodeEvent{
		Type:   p.ObjectKind,
		Action: p.ObjectAttributes.Action,
		Target: model.Target{
			Provider: "gitlab",
			Owner:    namespace,
			Repo:     project,
		},
		User: model.User{
			ID:       formatID(p.User.ID),
			Username: p.User.Username,
			Name:     p.User.Name,
		},
	}
	for _, r := range p.Reviewers {
		event.Reviewers = append(event.Reviewers, r.Username)
	}

	switch p.ObjectKind {
	case "merge_request":
		event.Target.Number = p.ObjectAttributes.IID
		event.Title = p.ObjectAttributes.Title
	case "note":
		event.Comment = p.ObjectAttributes.Note
		if p.ObjectAttributes.NoteableType == "MergeRequest" && p.MergeRequest != nil {
			event.Target.Number = p.MergeRequest.IID
			event.Title = p.MergeRequest.Title
		}
	}

	return event, nil
}

// IsReviewEvent reports whether the event should start a run
func (w *Webhook) IsReviewEvent(event *model.CodeEvent) bool {
	return w.filter.IsReviewEvent(w.log, event)
}

// splitProjectPath splits "group/sub/project" into "group/sub" and "project"
func splitProjectPath(path string) (string, string) {
	i := strings.LastIndex(path, "/")
	if i == -1 {
		return "", path
	}
	return path[:i], path[i+1:]
}

func formatID(id int) string {
	if id == 0 {
		return ""
	}
	return strconv.Itoa(id)
}
