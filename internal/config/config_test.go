package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/falcon/internal/agent"
	"github.com/maxbolgarin/falcon/internal/model"
	"github.com/maxbolgarin/falcon/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
provider:
  type: gitlab
  token: glpat-test
  base_url: https://gitlab.example.com
agent:
  type: openai
  api_key: sk-test
  model: gpt-4o
  retry_delay: 2s
reviewer:
  review_level: line
  sections: summary,comments
  context:
    ignore_files:
      - "**/*.lock"
      - "vendor/**"
server:
  address: 127.0.0.1:9000
debug: true
`

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "falcon.yml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, provider.GitLab, cfg.Provider.Type)
	assert.Equal(t, "glpat-test", cfg.Provider.Token)
	assert.Equal(t, agent.OpenAI, cfg.Agent.Type)
	assert.Equal(t, 2*time.Second, cfg.Agent.RetryDelay)
	assert.Equal(t, model.GranularityLine, cfg.Reviewer.Granularity)
	assert.Equal(t, []string{"**/*.lock", "vendor/**"}, cfg.Reviewer.Context.IgnoreFiles)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Address)
	assert.True(t, cfg.Debug)

	require.NoError(t, cfg.PrepareAndValidate())
	assert.NotEmpty(t, cfg.Reviewer.Prompt)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "falcon.yml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))
	t.Setenv("AGENT_MODEL", "gpt-4.1")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4.1", cfg.Agent.Model)
}

func TestLoadEnvOnly(t *testing.T) {
	t.Setenv("PROVIDER_TYPE", "bitbucket")
	t.Setenv("REVIEW_IGNORE_FILES", "*.md,docs/**")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, provider.Bitbucket, cfg.Provider.Type)
	assert.Equal(t, []string{"*.md", "docs/**"}, cfg.Reviewer.Context.IgnoreFiles)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
	assert.True(t, errm.Is(err, ErrConfigNotFound))
}

func TestPrepareAndValidateInvalid(t *testing.T) {
	cfg := Config{
		Provider: provider.Config{Type: provider.Local},
		Agent:    agent.Config{Type: agent.Gemini, APIKey: "k"},
	}
	cfg.Reviewer.Granularity = "paragraph"

	err := cfg.PrepareAndValidate()
	require.Error(t, err)
	assert.True(t, errm.Is(err, ErrInvalidConfig))
}
