package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"weatheragent/internal/metrics"
	"weatheragent/internal/model"
	"weatheragent/internal/utils"
)

// IntentExtractor turns free text into a QueryIntent using the LLM
type IntentExtractor struct {
	llm    LLM
	logger *zap.Logger
}

// NewIntentExtractor creates a new intent extractor
func NewIntentExtractor(llm LLM, logger *zap.Logger) *IntentExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IntentExtractor{
		llm:    llm,
		logger: logger.With(zap.String("component", "intent_extractor")),
	}
}

// Extract asks the model for a JSON intent. Unparseable output falls back to
// FallbackIntent; only transport failures are returned as errors.
func (e *IntentExtractor) Extract(ctx context.Context, query string, vocabulary []string) (*model.QueryIntent, error) {
	defer metrics.ObserveStage("extract", time.Now())

	if len(vocabulary) == 0 {
		vocabulary = model.QueryTypeNames()
	}
	prompt := fmt.Sprintf(extractIntentPromptTemplate, query, quoteList(vocabulary))

	content, err := e.llm.Complete(ctx, prompt)
	if err != nil {
		metrics.ObserveUpstreamError("llm")
		return nil, fmt.Errorf("intent extraction failed: %w", err)
	}

	intent, ok := ParseIntent(content)
	if ok {
		EnrichFollowUp(intent, query)
	} else {
		e.logger.Warn("could not parse intent JSON, using fallback",
			zap.String("completion", truncate(content, 200)))
		intent = FallbackIntent(query)
	}
	e.logger.Debug("extracted intent",
		zap.Strings("cities", intent.Cities),
		zap.String("time_context", intent.TimeContext),
		zap.Bool("is_follow_up", intent.IsFollowUp))

	return intent, nil
}

// ParseIntent reads a completion, fenced or not, into a normalized intent.
// Anything other than a JSON object is rejected.
func ParseIntent(content string) (*model.QueryIntent, bool) {
	var intent model.QueryIntent
	if err := utils.ParseAIJSONObject(utils.StripCodeFence(content), &intent); err != nil {
		return nil, false
	}
	intent.Normalize()
	return &intent, true
}

// FallbackIntent is the deterministic intent used when the model output is not
// a JSON object. It is never enriched with a follow-up time.
func FallbackIntent(query string) *model.QueryIntent {
	return &model.QueryIntent{
		Cities:             []string{},
		QueryTypes:         []string{"current"},
		TimeContext:        model.TimeCurrent,
		SpecificConditions: []string{},
		ComparisonType:     model.ComparisonNone,
		IsFollowUp:         utils.ContainsAny(query, followUpTokens...),
	}
}

// EnrichFollowUp pins a future time context onto a city-less follow-up.
func EnrichFollowUp(intent *model.QueryIntent, query string) {
	if !intent.IsFollowUp || intent.HasCities() {
		return
	}
	if tok, ok := utils.FirstMatch(query, futureTimeTokens...); ok {
		intent.TimeContext = model.TimeFuture
		intent.SpecificTime = tok
	}
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = "'" + item + "'"
	}
	return strings.Join(quoted, ", ")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
