package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"weatheragent/internal/metrics"
	"weatheragent/internal/model"
	"weatheragent/internal/utils"
)

// CitySource says where the resolved city list came from
type CitySource string

const (
	CitySourceQuery   CitySource = "query"
	CitySourceHistory CitySource = "history"
	CitySourceMemory  CitySource = "memory"
	CitySourceNone    CitySource = "none"
)

// HistoryReader is the read side of the chat history store
type HistoryReader interface {
	Recent(ctx context.Context, sessionID string, limit int) ([]model.Turn, error)
}

// ContextResolver fills in missing cities from history and session memory
type ContextResolver struct {
	llm     LLM
	history HistoryReader
	memory  *CityMemory
	window  int
	logger  *zap.Logger
}

// NewContextResolver creates a resolver reading window turns of history
func NewContextResolver(llm LLM, history HistoryReader, memory *CityMemory, window int, logger *zap.Logger) *ContextResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if memory == nil {
		memory = NewCityMemory()
	}
	if window <= 0 {
		window = 5
	}
	return &ContextResolver{
		llm:     llm,
		history: history,
		memory:  memory,
		window:  window,
		logger:  logger.With(zap.String("component", "context_resolver")),
	}
}

// Resolve mutates intent.Cities when it can and reports the source.
// CitySourceNone means the caller must answer with the no-city response.
// A failed city inference call is returned as an error.
func (r *ContextResolver) Resolve(ctx context.Context, intent *model.QueryIntent, query, sessionID string) (CitySource, error) {
	defer metrics.ObserveStage("resolve", time.Now())

	source := CitySourceQuery
	if !intent.HasCities() && intent.IsFollowUp {
		city, ok, err := r.inferFromHistory(ctx, query, sessionID)
		if err != nil {
			return CitySourceNone, err
		}
		if ok {
			intent.Cities = []string{city}
			source = CitySourceHistory
		}
	}

	if !intent.HasCities() {
		cities, ok := r.memory.Get(sessionID)
		if !ok {
			metrics.ObserveCitySource(string(CitySourceNone))
			return CitySourceNone, nil
		}
		intent.Cities = cities
		r.logger.Info("used cities from session memory",
			zap.String("session_id", sessionID), zap.Strings("cities", cities))
		metrics.ObserveCitySource(string(CitySourceMemory))
		return CitySourceMemory, nil
	}

	r.memory.Set(sessionID, intent.Cities)
	metrics.ObserveCitySource(string(source))
	return source, nil
}

// inferFromHistory asks the model which city the recent turns point to.
// An unreadable history counts as empty; a model failure is returned.
func (r *ContextResolver) inferFromHistory(ctx context.Context, query, sessionID string) (string, bool, error) {
	turns, err := r.history.Recent(ctx, sessionID, r.window)
	if err != nil {
		metrics.ObserveUpstreamError("history")
		r.logger.Warn("history unavailable for city inference", zap.Error(err))
		return "", false, nil
	}
	if len(turns) == 0 {
		return "", false, nil
	}

	var b strings.Builder
	b.WriteString(historyContextHeader)
	// most recent first
	for i := len(turns) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "User: %s\n", turns[i].UserMessage)
	}

	answer, err := r.llm.Complete(ctx, fmt.Sprintf(cityFromHistoryPromptTemplate, b.String(), query))
	if err != nil {
		metrics.ObserveUpstreamError("llm")
		return "", false, fmt.Errorf("city inference failed: %w", err)
	}
	r.logger.Debug("city inference answer", zap.String("answer", answer))

	city, ok := CleanCityAnswer(answer)
	if ok {
		r.logger.Info("inferred city from history", zap.String("city", city))
	}
	return city, ok, nil
}

// CleanCityAnswer post-processes a free-text city answer. It rejects "None",
// disclaimers and anything not between 2 and 49 characters.
func CleanCityAnswer(raw string) (string, bool) {
	city := strings.TrimSpace(raw)
	city = strings.TrimRightFunc(city, unicode.IsPunct)
	city = strings.TrimSpace(city)
	if city == "" {
		return "", false
	}

	for _, prefix := range cityPrefixes {
		if rest, ok := utils.TrimPrefixFold(city, prefix); ok {
			city = strings.TrimSpace(rest)
		}
	}
	if strings.EqualFold(city, cityInferenceNoneAnswer) {
		return "", false
	}

	if utils.ContainsAny(city, disclaimerTokens...) {
		return "", false
	}
	if n := utf8.RuneCountInString(city); n <= 1 || n >= 50 {
		return "", false
	}
	return city, true
}
