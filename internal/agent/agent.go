// Package agent adapts the model backends to the LanguageModel used by the reviewer.
package agent

import (
	"context"
	"strings"
	"time"

	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/falcon/internal/agent/claude"
	"github.com/maxbolgarin/falcon/internal/agent/common"
	"github.com/maxbolgarin/falcon/internal/agent/gemini"
	"github.com/maxbolgarin/falcon/internal/agent/openai"
	"github.com/maxbolgarin/falcon/internal/model"
	"github.com/maxbolgarin/falcon/internal/model/interfaces"
	"github.com/maxbolgarin/lang"
	"github.com/maxbolgarin/logze/v2"
)

const jsonResponseType = "application/json"

var _ interfaces.LanguageModel = (*Agent)(nil)

// Agent sends prompts to one backend and retries rate limited calls
type Agent struct {
	cfg Config
	log logze.Logger
	api interfaces.AgentAPI
}

// New creates an agent for the configured backend
func New(ctx context.Context, cfg Config) (*Agent, error) {
	if err := cfg.PrepareAndValidate(); err != nil {
		return nil, errm.Wrap(err, "validate config")
	}

	modelCfg := model.ModelConfig{
		APIKey:   cfg.APIKey,
		Model:    cfg.Model,
		URL:      cfg.BaseURL,
		ProxyURL: cfg.ProxyURL,
		Timeout:  cfg.Timeout,
		IsTest:   cfg.IsTest,
	}

	var (
		api interfaces.AgentAPI
		err error
	)
	switch cfg.Type {
	case Gemini:
		api, err = gemini.New(ctx, modelCfg)
	case OpenAI:
		api, err = openai.New(ctx, modelCfg)
	case Claude:
		api, err = claude.New(ctx, modelCfg)
	default:
		return nil, errm.New("unsupported agent type: %s", cfg.Type)
	}
	if err != nil {
		return nil, errm.Wrap(err, "failed to create agent")
	}

	return newAgent(cfg, api), nil
}

// NewWithAPI creates an agent over an existing backend
func NewWithAPI(cfg Config, api interfaces.AgentAPI) (*Agent, error) {
	if api == nil {
		return nil, errm.New("agent api is required")
	}
	if err := cfg.PrepareAndValidate(); err != nil {
		return nil, errm.Wrap(err, "validate config")
	}
	return newAgent(cfg, api), nil
}

func newAgent(cfg Config, api interfaces.AgentAPI) *Agent {
	return &Agent{
		cfg: cfg,
		api: api,
		log: logze.With("component", "agent", "type", cfg.Type),
	}
}

// Generate returns the raw answer of the model. Rate limited and overloaded calls are
// repeated up to MaxRetries times with a growing delay.
func (a *Agent) Generate(ctx context.Context, prompt model.Prompt) (string, error) {
	req := model.APIRequest{
		Prompt:       prompt.UserPrompt,
		SystemPrompt: prompt.SystemPrompt,
		MaxTokens:    a.cfg.MaxTokens,
		Temperature:  a.cfg.Temperature,
		ResponseType: lang.If(prompt.Schema != nil, jsonResponseType, "text/plain"),
		Schema:       prompt.Schema,
	}

	for attempt := 0; ; attempt++ {
		resp, err := a.api.CallAPI(ctx, req)
		if err == nil {
			if strings.TrimSpace(resp.Content) == "" {
				return "", common.ErrEmptyAnswer
			}
			a.log.Debug("model answered",
				"prompt_tokens", resp.PromptTokens,
				"completion_tokens", resp.CompletionTokens,
				"attempt", attempt+1,
			)
			return resp.Content, nil
		}

		if !common.IsRetryable(err) || attempt >= a.cfg.MaxRetries {
			return "", errm.Wrap(err, "failed to call API")
		}

		delay := a.cfg.RetryDelay * time.Duration(attempt+1)
		a.log.Warn("model call failed, retrying", "error", err, "attempt", attempt+1, "delay", delay.String())

		if err := sleep(ctx, delay); err != nil {
			return "", errm.Wrap(err, "retry interrupted")
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
