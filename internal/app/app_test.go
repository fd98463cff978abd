package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/maxbolgarin/falcon/internal/agent"
	"github.com/maxbolgarin/falcon/internal/config"
	"github.com/maxbolgarin/falcon/internal/model"
	"github.com/maxbolgarin/falcon/internal/provider"
	"github.com/maxbolgarin/falcon/internal/reviewer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModel struct {
	answer  string
	prompts []model.Prompt
}

func (f *fakeModel) Generate(_ context.Context, prompt model.Prompt) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.answer, nil
}

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	commit := func(path, content, msg string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, path), []byte(content), 0o644))
		_, err := wt.Add(path)
		require.NoError(t, err)
		_, err = wt.Commit(msg, &git.CommitOptions{
			Author: &object.Signature{Name: "Dev", Email: "dev@example.com", When: time.Now()},
		})
		require.NoError(t, err)
	}

	commit("main.go", "package main\n", "init")
	require.NoError(t, wt.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName("topic"), Create: true}))
	commit("main.go", "package main\n\nfunc main() {}\n", "Add main")
	commit("go.sum", "example.com/x v1.0.0 h1:abc\n", "Add go.sum")

	return dir
}

func localConfig(dir string) config.Config {
	cfg := config.Config{
		Provider: provider.Config{Type: provider.Local, WorkDir: dir},
		Agent:    agent.Config{Type: agent.Gemini, APIKey: "test"},
	}
	cfg.Reviewer.Context.IgnoreFiles = []string{"go.sum"}
	return cfg
}

func TestRunLocalReview(t *testing.T) {
	dir := initRepo(t)
	lm := &fakeModel{answer: `{
		"overallSummary": "Adds an entry point.",
		"files": [{"filePath": "main.go", "comments": [
			{"line": 3, "currentCode": "func main() {}", "reason": "Empty main", "category": "DESIGN", "severity": "LOW"}
		]}]
	}`}
	var out bytes.Buffer

	f, err := New(context.Background(), localConfig(dir), WithLanguageModel(lm), WithOutput(&out))
	require.NoError(t, err)

	outcome, err := f.Run(context.Background(), model.Target{}, model.ModeReview)
	require.NoError(t, err)
	assert.Equal(t, reviewer.StateDone, outcome.State)
	assert.Equal(t, 2, outcome.Stats.ChangedFiles)
	assert.Equal(t, 1, outcome.Stats.ReviewedFiles)
	assert.Equal(t, 1, outcome.Stats.IgnoredFiles)

	require.Len(t, lm.prompts, 1)
	assert.NotNil(t, lm.prompts[0].Schema)
	assert.Contains(t, lm.prompts[0].UserPrompt, "main.go")
	assert.NotContains(t, lm.prompts[0].UserPrompt, "h1:abc")

	assert.Contains(t, out.String(), "Adds an entry point.")
	assert.Contains(t, out.String(), "Empty main")
}

func TestRunLocalSummaryDryRun(t *testing.T) {
	dir := initRepo(t)
	lm := &fakeModel{answer: "Adds a main function."}
	var out, dry bytes.Buffer

	f, err := New(context.Background(), localConfig(dir), WithLanguageModel(lm), WithOutput(&out), WithDryRun(&dry))
	require.NoError(t, err)

	outcome, err := f.Run(context.Background(), model.Target{}, model.ModeSummary)
	require.NoError(t, err)
	assert.Equal(t, reviewer.StateDone, outcome.State)
	assert.Empty(t, out.String())
	assert.Contains(t, dry.String(), "Adds a main function.")
	assert.Nil(t, lm.prompts[0].Schema)
}

func TestNewInvalidConfig(t *testing.T) {
	cfg := localConfig(t.TempDir())
	cfg.Agent.Type = "unknown"

	_, err := New(context.Background(), cfg, WithLanguageModel(&fakeModel{}))
	require.Error(t, err)
}
