package service

import (
	"context"
	"errors"
)

// ErrLLMDisabled is returned when no API key is configured.
var ErrLLMDisabled = errors.New("LLM API is not enabled (missing API key)")

// Chat roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents a single message in the conversation
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LLM is the completion interface the pipeline depends on
type LLM interface {
	// Complete sends a single user instruction and returns the completion text
	Complete(ctx context.Context, prompt string) (string, error)

	// Chat sends an ordered, role-tagged message sequence
	Chat(ctx context.Context, messages []ChatMessage) (string, error)

	// IsEnabled returns whether the client is configured and ready
	IsEnabled() bool
}

// Completion is a provider-neutral view of one chat completion
type Completion struct {
	Content string

	// Thinking/reasoning content (provider-specific, e.g., DeepSeek)
	ThinkingContent string

	FinishReason string
}

// CompletionParser extracts the assistant message from a provider response body
type CompletionParser interface {
	ParseCompletion(body []byte) (*Completion, error)
}

// Ensure OpenAIClient implements LLM
var _ LLM = (*OpenAIClient)(nil)
