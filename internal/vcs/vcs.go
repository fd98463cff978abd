// Package vcs reads diffs and file contents from a local git repository.
package vcs

import (
	"context"
	"errors"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/falcon/internal/model/interfaces"
	"github.com/maxbolgarin/lang"
	"github.com/maxbolgarin/logze/v2"
)

var _ interfaces.VersionControl = (*Repository)(nil)

const defaultRemote = "origin"

// Commit describes a commit of the repository
type Commit struct {
	Hash    string
	Branch  string
	Subject string
	Body    string
	Author  string
	Email   string
}

// Repository runs git operations on an opened repository
type Repository struct {
	repo   *git.Repository
	remote string
	auth   transport.AuthMethod
	log    logze.Logger
}

// Option configures a Repository
type Option func(*Repository)

// WithRemote sets the remote used for fetching, "origin" by default.
func WithRemote(name string) Option {
	return func(r *Repository) {
		r.remote = lang.Check(name, defaultRemote)
	}
}

// WithToken authenticates fetches over HTTPS with a token.
func WithToken(token string) Option {
	return func(r *Repository) {
		if token != "" {
			r.auth = &http.BasicAuth{Username: "x-access-token", Password: token}
		}
	}
}

// Open opens the repository containing dir
func Open(dir string, opts ...Option) (*Repository, error) {
	repo, err := git.PlainOpenWithOptions(lang.Check(dir, "."), &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, gitError("failed to open repository at "+dir, err)
	}
	return New(repo, opts...), nil
}

// New wraps an already opened repository
func New(repo *git.Repository, opts ...Option) *Repository {
	r := &Repository{
		repo:   repo,
		remote: defaultRemote,
		log:    logze.With("component", "vcs"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FetchBranch updates the remote tracking ref of a branch.
// Without a configured remote an existing local branch is enough.
func (r *Repository) FetchBranch(ctx context.Context, name string) error {
	if name == "" {
		return gitError("fetch", errors.New("empty branch name"))
	}

	if _, err := r.repo.Remote(r.remote); err != nil {
		if _, lerr := r.repo.Reference(plumbing.NewBranchReferenceName(name), true); lerr == nil {
			r.log.Debug("no remote configured, using local branch", "branch", name)
			return nil
		}
		return gitError("failed to find remote "+r.remote, err)
	}

	spec := config.RefSpec("+refs/heads/" + name + ":refs/remotes/" + r.remote + "/" + name)
	err := r.repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: r.remote,
		RefSpecs:   []config.RefSpec{spec},
		Auth:       r.auth,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return gitError("failed to fetch branch "+name, err)
	}

	r.log.Debug("fetched branch", "branch", name, "remote", r.remote)
	return nil
}

// Diff returns the unified diff of headRef against the merge base of baseRef and headRef,
// the same changes "git diff base...head" shows.
func (r *Repository) Diff(ctx context.Context, baseRef, headRef string) (string, error) {
	base, err := r.commit(baseRef)
	if err != nil {
		return "", err
	}
	head, err := r.commit(headRef)
	if err != nil {
		return "", err
	}

	bases, err := base.MergeBase(head)
	if err != nil {
		return "", gitError("failed to find merge base of "+baseRef+" and "+headRef, err)
	}
	if len(bases) == 0 {
		return "", gitError("diff", errors.New("no common ancestor of "+baseRef+" and "+headRef))
	}

	patch, err := bases[0].PatchContext(ctx, head)
	if err != nil {
		return "", gitError("failed to diff "+baseRef+"..."+headRef, err)
	}
	return patch.String(), nil
}

// ShowFileAtRef returns the content of path at ref.
// A path missing at ref fails with ErrFileNotFound.
func (r *Repository) ShowFileAtRef(_ context.Context, ref, path string) (string, error) {
	c, err := r.commit(ref)
	if err != nil {
		return "", err
	}

	file, err := c.File(strings.TrimPrefix(path, "/"))
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return "", errm.Wrap(ErrFileNotFound, path+" at "+ref)
		}
		return "", gitError("failed to read "+path+" at "+ref, err)
	}

	content, err := file.Contents()
	if err != nil {
		return "", gitError("failed to read "+path+" at "+ref, err)
	}
	return content, nil
}

// Head describes the checked out commit
func (r *Repository) Head() (Commit, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return Commit{}, gitError("failed to resolve HEAD", err)
	}
	c, err := r.repo.CommitObject(ref.Hash())
	if err != nil {
		return Commit{}, gitError("failed to read HEAD commit", err)
	}

	subject, body, _ := strings.Cut(strings.TrimSpace(c.Message), "\n")
	out := Commit{
		Hash:    c.Hash.String(),
		Subject: strings.TrimSpace(subject),
		Body:    strings.TrimSpace(body),
		Author:  c.Author.Name,
		Email:   c.Author.Email,
	}
	if ref.Name().IsBranch() {
		out.Branch = ref.Name().Short()
	}
	return out, nil
}

// DefaultBranch guesses the base branch: the first of main and master that exists.
func (r *Repository) DefaultBranch() string {
	for _, name := range []string{"main", "master"} {
		if _, err := r.commit(name); err == nil {
			return name
		}
	}
	return ""
}

// commit resolves ref, preferring the remote tracking branch refreshed by FetchBranch
func (r *Repository) commit(ref string) (*object.Commit, error) {
	candidates := []string{ref}
	if ref != "HEAD" && !plumbing.IsHash(ref) {
		candidates = []string{r.remote + "/" + ref, ref}
	}

	var lastErr error
	for _, candidate := range candidates {
		hash, err := r.repo.ResolveRevision(plumbing.Revision(candidate))
		if err != nil {
			lastErr = err
			continue
		}
		c, err := r.repo.CommitObject(*hash)
		if err != nil {
			return nil, gitError("failed to read commit "+ref, err)
		}
		return c, nil
	}
	return nil, gitError("failed to resolve "+ref, lastErr)
}
