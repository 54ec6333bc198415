package service

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// OpenAICompletionParser parses standard OpenAI chat completion responses
type OpenAICompletionParser struct{}

// ParseCompletion reads choices[0].message from a standard response
func (p *OpenAICompletionParser) ParseCompletion(body []byte) (*Completion, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid completion response JSON")
	}

	choice := gjson.GetBytes(body, "choices.0")
	if !choice.Exists() {
		return nil, fmt.Errorf("completion response has no choices")
	}

	return &Completion{
		Content:      choice.Get("message.content").String(),
		FinishReason: choice.Get("finish_reason").String(),
	}, nil
}

// IsOpenAIProvider checks if the base URL is official OpenAI API
func IsOpenAIProvider(baseURL string) bool {
	return strings.Contains(baseURL, "api.openai.com")
}
