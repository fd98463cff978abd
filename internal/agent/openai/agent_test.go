package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/falcon/internal/agent/common"
	"github.com/maxbolgarin/falcon/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completionResponse = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"created": 1700000000,
	"model": "gpt-4o-mini",
	"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "{\"overallSummary\":\"ok\"}"}}],
	"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
}`

func TestCallAPI(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completionResponse)
	}))
	defer srv.Close()

	a, err := New(context.Background(), model.ModelConfig{APIKey: "sk-test", URL: srv.URL + "/"})
	require.NoError(t, err)

	resp, err := a.CallAPI(context.Background(), model.APIRequest{
		SystemPrompt: "sys",
		Prompt:       "user",
		MaxTokens:    100,
		Schema:       &model.Schema{Type: model.SchemaObject},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"overallSummary":"ok"}`, resp.Content)
	assert.Equal(t, 15, resp.TotalTokens)

	assert.Equal(t, defaultModel, got["model"])
	assert.Equal(t, map[string]any{"type": "json_object"}, got["response_format"])
	messages, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "user", messages[1].(map[string]any)["role"])
}

func TestCallAPIRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error": {"message": "slow down", "type": "rate_limit"}}`)
	}))
	defer srv.Close()

	a, err := New(context.Background(), model.ModelConfig{APIKey: "sk-test", URL: srv.URL + "/"})
	require.NoError(t, err)

	_, err = a.CallAPI(context.Background(), model.APIRequest{Prompt: "user"})
	require.Error(t, err)
	assert.True(t, errm.Is(err, common.ErrRateLimited))
}
