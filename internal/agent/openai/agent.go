package openai

import (
	"context"
	"errors"
	"time"

	"github.com/maxbolgarin/erro"
	"github.com/maxbolgarin/falcon/internal/agent/common"
	"github.com/maxbolgarin/falcon/internal/model"
	"github.com/maxbolgarin/falcon/internal/model/interfaces"
	"github.com/maxbolgarin/lang"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const (
	defaultModel = "gpt-4o-mini"
)

var _ interfaces.AgentAPI = (*Agent)(nil)

// Agent calls the OpenAI chat completions API or a compatible endpoint
type Agent struct {
	client openai.Client
	cfg    model.ModelConfig
}

// New creates a new OpenAI agent
func New(ctx context.Context, cfg model.ModelConfig) (*Agent, error) {
	if cfg.APIKey == "" {
		return nil, erro.New("OpenAI API key is required")
	}
	cfg.Model = lang.Check(cfg.Model, defaultModel)

	httpClient, err := common.HTTPClient(cfg.ProxyURL, cfg.Timeout)
	if err != nil {
		return nil, err
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		// retries are done by the caller
		option.WithMaxRetries(0),
	}
	if cfg.URL != "" {
		opts = append(opts, option.WithBaseURL(cfg.URL))
	}

	agent := &Agent{
		client: openai.NewClient(opts...),
		cfg:    cfg,
	}

	if cfg.IsTest {
		if err := agent.testConnection(ctx); err != nil {
			return nil, erro.Wrap(err, "failed to connect to OpenAI API")
		}
	}

	return agent, nil
}

// CallAPI makes a chat completion request.
// A request schema switches the response format to a JSON object; the schema itself travels in the prompt.
func (a *Agent) CallAPI(ctx context.Context, req model.APIRequest) (model.APIResponse, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:       a.cfg.Model,
		Messages:    messages,
		Temperature: openai.Float(float64(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Schema != nil || req.ResponseType == "application/json" {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	completion, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return model.APIResponse{}, common.FromStatus("OpenAI", apiErr.StatusCode, err)
		}
		return model.APIResponse{}, erro.Wrap(err, "failed to make API request")
	}

	if len(completion.Choices) == 0 {
		return model.APIResponse{}, erro.New("no choices in OpenAI response")
	}

	return model.APIResponse{
		CreateTime:       time.Unix(completion.Created, 0),
		Content:          completion.Choices[0].Message.Content,
		PromptTokens:     int(completion.Usage.PromptTokens),
		CompletionTokens: int(completion.Usage.CompletionTokens),
		TotalTokens:      int(completion.Usage.TotalTokens),
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
