package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

var thinkBlockRe = regexp.MustCompile(`(?s)<think>(.*?)</think>`)

// NVIDIACompletionParser parses NVIDIA/DeepSeek responses that carry reasoning output
type NVIDIACompletionParser struct{}

// ParseCompletion separates reasoning_content and inline <think> blocks from the answer
func (p *NVIDIACompletionParser) ParseCompletion(body []byte) (*Completion, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid completion response JSON")
	}

	choice := gjson.GetBytes(body, "choices.0")
	if !choice.Exists() {
		return nil, fmt.Errorf("completion response has no choices")
	}

	content := choice.Get("message.content").String()
	thinking := choice.Get("message.reasoning_content").String()

	if m := thinkBlockRe.FindStringSubmatch(content); m != nil {
		if thinking == "" {
			thinking = strings.TrimSpace(m[1])
		}
		content = thinkBlockRe.ReplaceAllString(content, "")
	}

	return &Completion{
		Content:         strings.TrimSpace(content),
		ThinkingContent: thinking,
		FinishReason:    choice.Get("finish_reason").String(),
	}, nil
}

// IsNVIDIAProvider checks if the base URL is NVIDIA API
func IsNVIDIAProvider(baseURL string) bool {
	return strings.Contains(baseURL, "integrate.api.nvidia.com")
}
