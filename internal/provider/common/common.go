// Package common holds helpers shared by code providers.
package common

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"

	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/falcon/internal/model"
	"github.com/maxbolgarin/logze/v2"
)

// CommandPrefix starts a comment that asks the bot to run
const CommandPrefix = "/falcon"

// ContentFetcher reads a file at a ref, missing files yield an empty string
type ContentFetcher interface {
	GetFileContent(ctx context.Context, path, ref string) (string, error)
}

// LoadMetadata reads the repository metadata file at ref.
// A missing file gives empty metadata.
func LoadMetadata(ctx context.Context, f ContentFetcher, ref string) (model.Metadata, error) {
	content, err := f.GetFileContent(ctx, model.MetadataFile, ref)
	if err != nil {
		return model.Metadata{}, errm.Wrap(err, "failed to read "+model.MetadataFile)
	}
	return model.ParseMetadata([]byte(content))
}

// ValidateHMAC checks a hex encoded HMAC-SHA256 signature of payload, with or without the "sha256=" prefix.
// An empty secret disables validation.
func ValidateHMAC(payload []byte, signature, secret string) error {
	if secret == "" {
		return nil
	}
	if signature == "" {
		return errm.New("missing webhook signature")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(strings.TrimPrefix(signature, "sha256="))) {
		return errm.New("webhook signature verification failed")
	}
	return nil
}

// EventFilter decides which webhook events should start a run
type EventFilter struct {
	PullRequestTypes []string
	CommentTypes     []string
	Actions          []string
	BotUsername      string
}

// IsReviewEvent reports whether event is a relevant pull request event or a command comment.
// Events from the bot itself are ignored to avoid loops.
func (f EventFilter) IsReviewEvent(log logze.Logger, event *model.CodeEvent) bool {
	if event == nil || event.Target.Number <= 0 {
		log.Debug("ignoring event without pull request")
		return false
	}
	if f.BotUsername != "" && event.User.Username == f.BotUsername {
		log.Debug("ignoring event from bot user")
		return false
	}

	if slices.Contains(f.CommentTypes, event.Type) {
		if !strings.HasPrefix(strings.TrimSpace(event.Comment), CommandPrefix) {
			log.Debug("ignoring comment without command")
			return false
		}
		return true
	}

	if !slices.Contains(f.PullRequestTypes, event.Type) {
		log.Debug("ignoring non-pull request event", "event_type", event.Type)
		return false
	}
	if !slices.Contains(f.Actions, event.Action) {
		log.Debug("ignoring irrelevant action", "action", event.Action)
		return false
	}

	if event.Action == "review_requested" && f.BotUsername != "" {
		if !slices.Contains(event.Reviewers, f.BotUsername) {
			log.Debug("bot not in reviewers list for review_requested action")
			return false
		}
		log.Info("bot was added as reviewer, triggering review")
	}

	return true
}
