package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"weatheragent/internal/config"
)

// OpenAIClient handles OpenAI-compatible API interactions
type OpenAIClient struct {
	config     config.LLMConfig
	httpClient *http.Client
	parser     CompletionParser // Provider-specific response parsing
	circuit    *gobreaker.CircuitBreaker
	extraBody  map[string]any
	logger     *zap.Logger
}

// NewOpenAIClient creates a new OpenAI-compatible client with auto-detection of provider
func NewOpenAIClient(cfg config.LLMConfig, logger *zap.Logger) *OpenAIClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.With(zap.String("component", "llm"))
	cfg.APIBase = strings.TrimRight(cfg.APIBase, "/")

	// Auto-detect provider based on base URL
	var parser CompletionParser
	if IsNVIDIAProvider(cfg.APIBase) {
		parser = &NVIDIACompletionParser{}
		log.Info("detected NVIDIA API provider (supports reasoning/thinking)")
	} else if IsOpenAIProvider(cfg.APIBase) {
		parser = &OpenAICompletionParser{}
		log.Info("detected OpenAI API provider")
	} else {
		// Default to OpenAI format for unknown providers
		parser = &OpenAICompletionParser{}
		log.Info("using standard OpenAI format", zap.String("api_base", cfg.APIBase))
	}

	var extraBody map[string]any
	if cfg.ChatExtraBody != "" {
		if err := json.Unmarshal([]byte(cfg.ChatExtraBody), &extraBody); err != nil {
			log.Warn("failed to parse OPENAI_CHAT_EXTRA_BODY", zap.Error(err))
			extraBody = nil
		}
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &OpenAIClient{
		config:    cfg,
		parser:    parser,
		extraBody: extraBody,
		logger:    log,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		circuit: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "llm",
			MaxRequests: 3,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("circuit breaker state change",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		}),
	}
}

// IsEnabled returns whether the client is configured and ready
func (c *OpenAIClient) IsEnabled() bool {
	return c.config.Enabled
}

// ChatCompletionRequest represents a chat completion request
type ChatCompletionRequest struct {
	Model       string         `json:"model"`
	Messages    []ChatMessage  `json:"messages"`
	Temperature float64        `json:"temperature,omitempty"`
	TopP        float64        `json:"top_p,omitempty"` // For DeepSeek/NVIDIA API
	MaxTokens   int            `json:"max_tokens,omitempty"`
	ExtraBody   map[string]any `json:"extra_body,omitempty"` // For DeepSeek: {"chat_template_kwargs": {"thinking":True}}
}

// ChatCompletion performs a chat completion request
func (c *OpenAIClient) ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*Completion, error) {
	if !c.config.Enabled {
		return nil, ErrLLMDisabled
	}

	// Use configured model if not specified
	if req.Model == "" {
		req.Model = c.config.ChatModel
	}

	// Apply default parameters from config
	if req.Temperature == 0 && c.config.ChatTemperature > 0 {
		req.Temperature = c.config.ChatTemperature
	}
	if req.TopP == 0 && c.config.ChatTopP > 0 {
		req.TopP = c.config.ChatTopP
	}
	if req.MaxTokens == 0 && c.config.ChatMaxTokens > 0 {
		req.MaxTokens = c.config.ChatMaxTokens
	}
	if req.ExtraBody == nil {
		req.ExtraBody = c.extraBody
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/chat/completions", c.config.APIBase)
	result, err := c.circuit.Execute(func() (interface{}, error) {
		return c.post(ctx, url, reqBody)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("LLM circuit breaker open: %w", err)
		}
		return nil, err
	}

	completion, err := c.parser.ParseCompletion(result.([]byte))
	if err != nil {
		return nil, fmt.Errorf("failed to parse completion: %w", err)
	}
	if completion.ThinkingContent != "" {
		c.logger.Debug("model reasoning", zap.Int("thinking_chars", len(completion.ThinkingContent)))
	}

	return completion, nil
}

func (c *OpenAIClient) post(ctx context.Context, url string, reqBody []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.config.APIKey))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// Complete sends a single user instruction
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.Chat(ctx, []ChatMessage{{Role: RoleUser, Content: prompt}})
}

// Chat sends an ordered message sequence and returns the assistant text
func (c *OpenAIClient) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	completion, err := c.ChatCompletion(ctx, ChatCompletionRequest{Messages: messages})
	if err != nil {
		return "", err
	}
	return completion.Content, nil
}

// Ping lists models to verify the key and base URL
func (c *OpenAIClient) Ping(ctx context.Context) error {
	if !c.config.Enabled {
		return ErrLLMDisabled
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.APIBase+"/models", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.config.APIKey))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API ping failed with status %d", resp.StatusCode)
	}
	return nil
}
