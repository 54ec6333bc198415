package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"weatheragent/internal/metrics"
	"weatheragent/internal/model"
)

// ExplanationGenerator writes the final answer conditioned on prior turns
type ExplanationGenerator struct {
	llm     LLM
	history HistoryReader
	window  int
	logger  *zap.Logger
}

// NewExplanationGenerator creates a generator reading window turns of history
func NewExplanationGenerator(llm LLM, history HistoryReader, window int, logger *zap.Logger) *ExplanationGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if window <= 0 {
		window = 5
	}
	return &ExplanationGenerator{
		llm:     llm,
		history: history,
		window:  window,
		logger:  logger.With(zap.String("component", "explanation")),
	}
}

// Generate returns the trimmed completion text.
func (g *ExplanationGenerator) Generate(
	ctx context.Context,
	query string,
	intent *model.QueryIntent,
	bundle model.WeatherBundle,
	sessionID string,
) (string, error) {
	defer metrics.ObserveStage("explain", time.Now())

	turns, err := g.history.Recent(ctx, sessionID, g.window)
	if err != nil {
		metrics.ObserveUpstreamError("history")
		return "", fmt.Errorf("failed to load chat history: %w", err)
	}

	prompt, err := buildExplanationPrompt(query, intent, bundle, turns)
	if err != nil {
		return "", err
	}

	messages := make([]ChatMessage, 0, len(turns)*2+1)
	for _, turn := range turns {
		messages = append(messages,
			ChatMessage{Role: RoleUser, Content: turn.UserMessage},
			ChatMessage{Role: RoleAssistant, Content: turn.AIResponse},
		)
	}
	messages = append(messages, ChatMessage{Role: RoleUser, Content: prompt})

	answer, err := g.llm.Chat(ctx, messages)
	if err != nil {
		metrics.ObserveUpstreamError("llm")
		return "", fmt.Errorf("explanation generation failed: %w", err)
	}

	answer = strings.TrimSpace(answer)
	g.logger.Debug("generated explanation", zap.Int("chars", len(answer)), zap.Int("history_turns", len(turns)))
	return answer, nil
}

func buildExplanationPrompt(query string, intent *model.QueryIntent, bundle model.WeatherBundle, turns []model.Turn) (string, error) {
	var chat strings.Builder
	if len(turns) > 0 {
		chat.WriteString(explanationChatHeader)
		for _, turn := range turns {
			fmt.Fprintf(&chat, "User: %s\n", turn.UserMessage)
			fmt.Fprintf(&chat, "AI: %s\n", turn.AIResponse)
		}
	}

	intentJSON, err := json.MarshalIndent(intent, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal intent: %w", err)
	}
	bundleJSON, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal weather data: %w", err)
	}

	var followUp string
	if intent.IsFollowUp {
		followUp = followUpNote
		if intent.SpecificTime != "" {
			followUp += fmt.Sprintf(followUpTimeNote, intent.SpecificTime)
		}
	}

	return fmt.Sprintf(explanationPromptTemplate, query, chat.String(), intentJSON, bundleJSON, followUp), nil
}
