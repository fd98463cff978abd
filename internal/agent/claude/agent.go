package claude

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/maxbolgarin/erro"
	"github.com/maxbolgarin/falcon/internal/agent/common"
	"github.com/maxbolgarin/falcon/internal/model"
	"github.com/maxbolgarin/falcon/internal/model/interfaces"
	"github.com/maxbolgarin/lang"
)

const (
	defaultModel     = "claude-sonnet-4-0"
	defaultMaxTokens = 8192
)

var _ interfaces.AgentAPI = (*Agent)(nil)

// Agent calls the Anthropic messages API
type Agent struct {
	client anthropic.Client
	cfg    model.ModelConfig
}

// New creates a new Claude agent
func New(ctx context.Context, cfg model.ModelConfig) (*Agent, error) {
	if cfg.APIKey == "" {
		return nil, erro.New("Claude API key is required")
	}
	cfg.Model = lang.Check(cfg.Model, defaultModel)

	httpClient, err := common.HTTPClient(cfg.ProxyURL, cfg.Timeout)
	if err != nil {
		return nil, err
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.URL != "" {
		opts = append(opts, option.WithBaseURL(cfg.URL))
	}

	agent := &Agent{
		client: anthropic.NewClient(opts...),
		cfg:    cfg,
	}

	if cfg.IsTest {
		if err := agent.testConnection(ctx); err != nil {
			return nil, erro.Wrap(err, "failed to connect to Claude API")
		}
	}

	return agent, nil
}

// CallAPI makes a messages request and joins the text blocks of the answer.
// Claude has no JSON mode, the schema is carried by the prompt.
func (a *Agent) CallAPI(ctx context.Context, req model.APIRequest) (model.APIResponse, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(a.cfg.Model),
		MaxTokens:   int64(lang.Check(req.MaxTokens, defaultMaxTokens)),
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt))},
		Temperature: anthropic.Float(float64(req.Temperature)),
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}

	message, err := a.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return model.APIResponse{}, common.FromStatus("Claude", apiErr.StatusCode, err)
		}
		return model.APIResponse{}, erro.Wrap(err, "failed to make API request")
	}

	var content strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	return model.APIResponse{
		CreateTime:       time.Now(),
		Content:          content.String(),
		PromptTokens:     int(message.Usage.InputTokens),
		CompletionTokens: int(message.Usage.OutputTokens),
		TotalTokens:      int(message.Usage.InputTokens + message.Usage.OutputTokens),
	}, nil
}

func (a *Agent) testConnection(ctx context.Context) error {
	_, err := a.CallAPI(ctx, model.APIRequest{
		Prompt:      "Respond with 'OK' if you can understand this message.",
		MaxTokens:   10,
		Temperature: 0.5,
	})
	return err
}
