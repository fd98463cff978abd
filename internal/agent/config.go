package agent

import (
	"os"
	"slices"
	"time"

	"github.com/maxbolgarin/erro"
	"github.com/maxbolgarin/lang"
)

const (
	defaultTemperature = 0.2
	defaultMaxTokens   = 16000
	defaultTimeout     = 3 * time.Minute
	defaultMaxRetries  = 3
	defaultRetryDelay  = 5 * time.Second
)

// AgentType represents the type of AI agent
type AgentType string

// SupportedAgentTypes defines the supported AI agent types
const (
	Gemini AgentType = "gemini"
	OpenAI AgentType = "openai"
	Claude AgentType = "claude"
)

var supportedAgentTypes = []AgentType{Gemini, OpenAI, Claude}

var apiKeyEnv = map[AgentType]string{
	Gemini: "GEMINI_API_KEY",
	OpenAI: "OPENAI_API_KEY",
	Claude: "ANTHROPIC_API_KEY",
}

// Config represents AI agent configuration
type Config struct {
	Type        AgentType `yaml:"type" env:"AGENT_TYPE"` // gemini, openai, claude
	APIKey      string    `yaml:"api_key" env:"AGENT_API_KEY"`
	Model       string    `yaml:"model" env:"AGENT_MODEL"`
	Temperature float32   `yaml:"temperature" env:"AGENT_TEMPERATURE"`
	MaxTokens   int       `yaml:"max_tokens" env:"AGENT_MAX_TOKENS"`

	BaseURL    string        `yaml:"base_url" env:"AGENT_BASE_URL"` // Azure OpenAI, local models, etc.
	ProxyURL   string        `yaml:"proxy_url" env:"AGENT_PROXY_URL"`
	MaxRetries int           `yaml:"max_retries" env:"AGENT_MAX_RETRIES"`
	RetryDelay time.Duration `yaml:"retry_delay" env:"AGENT_RETRY_DELAY"`
	Timeout    time.Duration `yaml:"timeout" env:"AGENT_TIMEOUT"`
	IsTest     bool          `yaml:"is_test" env:"AGENT_IS_TEST"`
}

func (c *Config) PrepareAndValidate() error {
	c.Type = lang.Check(c.Type, Gemini)
	if !slices.Contains(supportedAgentTypes, c.Type) {
		return erro.New("invalid agent type: " + string(c.Type))
	}
	c.APIKey = lang.Check(c.APIKey, os.Getenv(apiKeyEnv[c.Type]))
	if c.APIKey == "" {
		return erro.New("api key is required, set it in config or " + apiKeyEnv[c.Type])
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return erro.New("temperature must be between 0 and 2")
	}
	if c.MaxRetries < 0 {
		return erro.New("max retries must not be negative")
	}

	c.Temperature = lang.Check(c.Temperature, defaultTemperature)
	c.MaxTokens = lang.Check(c.MaxTokens, defaultMaxTokens)
	c.Timeout = lang.Check(c.Timeout, defaultTimeout)
	c.MaxRetries = lang.Check(c.MaxRetries, defaultMaxRetries)
	c.RetryDelay = lang.Check(c.RetryDelay, defaultRetryDelay)

	return nil
}
