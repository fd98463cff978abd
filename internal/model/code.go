package model

import (
	"fmt"
	"strconv"
	"strings"
)

// ProviderConfig represents provider-specific configuration
type ProviderConfig struct {
	BaseURL       string
	Token         string
	Username      string
	AppPassword   string
	WebhookSecret string
	BotUsername   string
	// WorkDir and BaseBranch are used by the local provider only
	WorkDir    string
	BaseBranch string
}

// Target identifies a single pull request on a provider
type Target struct {
	Provider string
	Owner    string
	Repo     string
	Number   int
}

// ProjectID returns "owner/repo".
func (t Target) ProjectID() string {
	return t.Owner + "/" + t.Repo
}

func (t Target) String() string {
	return fmt.Sprintf("%s:%s/%s#%s", t.Provider, t.Owner, t.Repo, strconv.Itoa(t.Number))
}

// User represents a user across different providers
type User struct {
	ID       string
	Username string
	Name     string
}

// PullRequest is the metadata describing the reviewed pull request.
// It is fetched once per run and never mutated afterwards.
type PullRequest struct {
	ID            int
	Title         string
	Body          string
	BaseBranch    string
	SourceBranch  string
	SourceCommit  string
	Owner         string
	Repo          string
	Author        User
	Labels        []string
	RelatedIssues []string
	URL           string
}

// FileStatus represents the kind of change made to a file
type FileStatus string

const (
	FileAdded    FileStatus = "added"
	FileModified FileStatus = "modified"
	FileDeleted  FileStatus = "deleted"
	FileRenamed  FileStatus = "renamed"
)

// FileChange is one file touched by a pull request
type FileChange struct {
	FilePath         string
	PreviousFilePath string
	Status           FileStatus
	FileDiff         string
	// ChangedLines are 1-based line numbers of added lines in the new version
	ChangedLines []int

	OldContent string
	NewContent string

	Related []RelatedFile
}

// RelatedFile is advisory content of a file connected to a change
type RelatedFile struct {
	Path    string
	Content string
}

// Run modes selected by a command
const (
	ModeReview  = "review"
	ModeSummary = "summary"
)

// CodeEvent represents a webhook event from any provider
type CodeEvent struct {
	Type      string
	Action    string
	Target    Target
	Title     string
	User      User
	Reviewers []string
	// Comment is the body of the comment that triggered the event, if any
	Comment string
}

// Mode returns the run mode requested by the event.
func (e CodeEvent) Mode() string {
	return ModeFromCommand(e.Comment)
}

// ModeFromCommand maps a free-form command (a comment body or a CI variable) to a run mode.
// Anything that mentions "summary" asks for a summary, everything else is a review.
func ModeFromCommand(command string) string {
	if strings.Contains(strings.ToLower(command), ModeSummary) {
		return ModeSummary
	}
	return ModeReview
}
