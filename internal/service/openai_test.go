package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weatheragent/internal/config"
)

func newLLMServer(t *testing.T, status int, body string, inspect func(req ChatCompletionRequest)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		raw, _ := io.ReadAll(r.Body)
		var req ChatCompletionRequest
		assert.NoError(t, json.Unmarshal(raw, &req))
		if inspect != nil {
			inspect(req)
		}

		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testLLMConfig(base string) config.LLMConfig {
	return config.LLMConfig{
		APIKey:          "sk-test",
		APIBase:         base,
		ChatModel:       "gpt-4o-mini",
		ChatTemperature: 0.2,
		ChatMaxTokens:   256,
		ChatExtraBody:   `{"chat_template_kwargs":{"thinking":false}}`,
		Timeout:         5,
		Enabled:         true,
	}
}

func TestOpenAIClient_Chat(t *testing.T) {
	srv := newLLMServer(t, http.StatusOK,
		`{"choices":[{"index":0,"message":{"role":"assistant","content":"Sunny in Paris."},"finish_reason":"stop"}]}`,
		func(req ChatCompletionRequest) {
			assert.Equal(t, "gpt-4o-mini", req.Model)
			assert.InDelta(t, 0.2, req.Temperature, 1e-9)
			assert.Equal(t, 256, req.MaxTokens)
			assert.Contains(t, req.ExtraBody, "chat_template_kwargs")
			if assert.Len(t, req.Messages, 2) {
				assert.Equal(t, RoleUser, req.Messages[0].Role)
				assert.Equal(t, RoleAssistant, req.Messages[1].Role)
			}
		})

	client := NewOpenAIClient(testLLMConfig(srv.URL), nil)
	got, err := client.Chat(context.Background(), []ChatMessage{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Sunny in Paris.", got)
}

func TestOpenAIClient_Complete(t *testing.T) {
	srv := newLLMServer(t, http.StatusOK,
		`{"choices":[{"message":{"content":"Tokyo"}}]}`,
		func(req ChatCompletionRequest) {
			if assert.Len(t, req.Messages, 1) {
				assert.Equal(t, "which city?", req.Messages[0].Content)
			}
		})

	client := NewOpenAIClient(testLLMConfig(srv.URL), nil)
	got, err := client.Complete(context.Background(), "which city?")
	require.NoError(t, err)
	assert.Equal(t, "Tokyo", got)
}

func TestOpenAIClient_ErrorStatus(t *testing.T) {
	srv := newLLMServer(t, http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, nil)

	client := NewOpenAIClient(testLLMConfig(srv.URL), nil)
	_, err := client.Complete(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestOpenAIClient_Disabled(t *testing.T) {
	cfg := testLLMConfig("http://localhost")
	cfg.Enabled = false
	client := NewOpenAIClient(cfg, nil)

	assert.False(t, client.IsEnabled())
	_, err := client.Complete(context.Background(), "x")
	assert.ErrorIs(t, err, ErrLLMDisabled)
	assert.ErrorIs(t, client.Ping(context.Background()), ErrLLMDisabled)
}

func TestOpenAIClient_Ping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient(testLLMConfig(srv.URL), nil)
	assert.NoError(t, client.Ping(context.Background()))
}

func TestCompletionParsers(t *testing.T) {
	openai := &OpenAICompletionParser{}
	c, err := openai.ParseCompletion([]byte(`{"choices":[{"message":{"content":"hi"},"finish_reason":"stop"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "hi", c.Content)
	assert.Equal(t, "stop", c.FinishReason)

	_, err = openai.ParseCompletion([]byte(`{"choices":[]}`))
	assert.Error(t, err)

	nvidia := &NVIDIACompletionParser{}
	c, err = nvidia.ParseCompletion([]byte(`{"choices":[{"message":{"content":"<think>user wants Paris</think>\nParis"}}]}`))
	require.NoError(t, err)
	assert.Equal(t, "Paris", c.Content)
	assert.Equal(t, "user wants Paris", c.ThinkingContent)

	c, err = nvidia.ParseCompletion([]byte(`{"choices":[{"message":{"content":"Lima","reasoning_content":"thinking..."}}]}`))
	require.NoError(t, err)
	assert.Equal(t, "Lima", c.Content)
	assert.Equal(t, "thinking...", c.ThinkingContent)

	assert.True(t, IsNVIDIAProvider("https://integrate.api.nvidia.com/v1"))
	assert.True(t, IsOpenAIProvider("https://api.openai.com/v1"))
}
