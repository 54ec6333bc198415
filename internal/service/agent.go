package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"weatheragent/internal/metrics"
	"weatheragent/internal/model"
)

// HistoryStore is the chat history the agent reads, appends to and clears
type HistoryStore interface {
	HistoryReader
	Append(ctx context.Context, sessionID, userMessage, aiResponse string) error
	Clear(ctx context.Context, sessionID string) (bool, error)
}

// WeatherAgent sequences the conversational weather pipeline
type WeatherAgent struct {
	guard     *DomainGuard // nil when the guard is disabled
	extractor *IntentExtractor
	resolver  *ContextResolver
	fetcher   *WeatherFetcher
	explainer *ExplanationGenerator
	history   HistoryStore
	memory    *CityMemory
	timeout   time.Duration
	logger    *zap.Logger
}

// AgentOptions tunes a WeatherAgent
type AgentOptions struct {
	HistoryWindow      int
	DomainGuardEnabled bool
	Units              string
	QueryTimeout       time.Duration
	Memory             *CityMemory
}

// NewWeatherAgent wires the pipeline stages around one LLM, weather provider and history store
func NewWeatherAgent(
	llm LLM,
	provider WeatherProvider,
	history HistoryStore,
	opts AgentOptions,
	logger *zap.Logger,
) *WeatherAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	memory := opts.Memory
	if memory == nil {
		memory = NewCityMemory()
	}

	var guard *DomainGuard
	if opts.DomainGuardEnabled {
		guard = NewDomainGuard(llm, logger)
	}

	return &WeatherAgent{
		guard:     guard,
		extractor: NewIntentExtractor(llm, logger),
		resolver:  NewContextResolver(llm, history, memory, opts.HistoryWindow, logger),
		fetcher:   NewWeatherFetcher(provider, opts.Units, logger),
		explainer: NewExplanationGenerator(llm, history, opts.HistoryWindow, logger),
		history:   history,
		memory:    memory,
		timeout:   opts.QueryTimeout,
		logger:    logger.With(zap.String("component", "agent")),
	}
}

// Memory exposes the session city memory for the sweep job
func (a *WeatherAgent) Memory() *CityMemory {
	return a.memory
}

// ProcessQuery runs one request through the pipeline. The first terminal
// branch wins: empty, off-domain, no city, or a full answer.
func (a *WeatherAgent) ProcessQuery(ctx context.Context, query, sessionID string) (*model.WeatherQueryResponse, error) {
	defer metrics.ObserveStage("total", time.Now())

	if strings.TrimSpace(query) == "" {
		a.logger.Warn("empty query received", zap.String("session_id", sessionID))
		metrics.ObserveQuery(metrics.OutcomeEmpty)
		return &model.WeatherQueryResponse{
			Query:          "",
			ProcessedQuery: emptyQueryProcessed,
			WeatherData:    model.WeatherBundle{},
			AIExplanation:  emptyQueryExplanation,
			SessionID:      sessionID,
		}, nil
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	resp, outcome, err := a.run(ctx, query, sessionID)
	if err != nil {
		metrics.ObserveQuery(metrics.OutcomeError)
		a.logger.Error("query pipeline failed",
			zap.String("session_id", sessionID), zap.String("query", query), zap.Error(err))
		return nil, err
	}
	metrics.ObserveQuery(outcome)
	return resp, nil
}

func (a *WeatherAgent) run(ctx context.Context, query, sessionID string) (*model.WeatherQueryResponse, string, error) {
	if a.guard != nil {
		relevant, err := a.guard.IsRelevant(ctx, query)
		if err != nil {
			return nil, "", err
		}
		if !relevant {
			if err := a.persist(ctx, sessionID, query, offDomainExplanation); err != nil {
				return nil, "", err
			}
			return a.terminal(query, offDomainProcessed, offDomainExplanation, sessionID), metrics.OutcomeOffDomain, nil
		}
	}

	intent, err := a.extractor.Extract(ctx, query, model.QueryTypeNames())
	if err != nil {
		return nil, "", err
	}

	source, err := a.resolver.Resolve(ctx, intent, query, sessionID)
	if err != nil {
		return nil, "", err
	}
	if source == CitySourceNone {
		a.logger.Warn("no city specified in query or recent context", zap.String("session_id", sessionID))
		if err := a.persist(ctx, sessionID, query, noCityExplanation); err != nil {
			return nil, "", err
		}
		return a.terminal(query, noCityProcessed, noCityExplanation, sessionID), metrics.OutcomeNoCity, nil
	}

	bundle, err := a.fetcher.Fetch(ctx, intent)
	if err != nil {
		return nil, "", err
	}

	explanation, err := a.explainer.Generate(ctx, query, intent, bundle, sessionID)
	if err != nil {
		return nil, "", err
	}

	if err := a.persist(ctx, sessionID, query, explanation); err != nil {
		return nil, "", err
	}

	return &model.WeatherQueryResponse{
		Query:          query,
		ProcessedQuery: ProcessedQuerySummary(intent),
		WeatherData:    bundle,
		AIExplanation:  explanation,
		SessionID:      sessionID,
	}, metrics.OutcomeAnswered, nil
}

func (a *WeatherAgent) persist(ctx context.Context, sessionID, userMessage, aiResponse string) error {
	start := time.Now()
	defer metrics.ObserveStage("persist", start)

	if err := a.history.Append(ctx, sessionID, userMessage, aiResponse); err != nil {
		metrics.ObserveUpstreamError("history")
		return fmt.Errorf("failed to save chat turn: %w", err)
	}
	return nil
}

func (a *WeatherAgent) terminal(query, processed, explanation, sessionID string) *model.WeatherQueryResponse {
	return &model.WeatherQueryResponse{
		Query:          query,
		ProcessedQuery: processed,
		WeatherData:    model.WeatherBundle{},
		AIExplanation:  explanation,
		SessionID:      sessionID,
	}
}

// ProcessedQuerySummary renders the resolved cities, query types and time context.
func ProcessedQuerySummary(intent *model.QueryIntent) string {
	timeContext := intent.TimeContext
	if timeContext == "" {
		timeContext = "N/A"
	}
	return fmt.Sprintf("Analyzed query for cities: %s; Types: %s; Time: %s",
		strings.Join(intent.Cities, ", "),
		strings.Join(intent.QueryTypes, ", "),
		timeContext)
}

// ClearHistory deletes a session's turns and forgets its cities.
func (a *WeatherAgent) ClearHistory(ctx context.Context, sessionID string) (bool, error) {
	ok, err := a.history.Clear(ctx, sessionID)
	if err != nil {
		metrics.ObserveUpstreamError("history")
		return false, err
	}
	a.memory.Forget(sessionID)
	a.logger.Info("cleared chat history", zap.String("session_id", sessionID))
	return ok, nil
}

// History returns up to limit turns of a session, oldest first.
func (a *WeatherAgent) History(ctx context.Context, sessionID string, limit int) ([]model.Turn, error) {
	return a.history.Recent(ctx, sessionID, limit)
}
