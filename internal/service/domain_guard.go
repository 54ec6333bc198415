package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"weatheragent/internal/metrics"
)

// DomainGuard classifies whether an utterance belongs to the weather assistant
type DomainGuard struct {
	llm    LLM
	logger *zap.Logger
}

// NewDomainGuard creates a new domain guard
func NewDomainGuard(llm LLM, logger *zap.Logger) *DomainGuard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DomainGuard{
		llm:    llm,
		logger: logger.With(zap.String("component", "domain_guard")),
	}
}

// IsRelevant returns false only on an explicit "no"; unclear answers pass.
func (d *DomainGuard) IsRelevant(ctx context.Context, query string) (bool, error) {
	defer metrics.ObserveStage("guard", time.Now())

	answer, err := d.llm.Complete(ctx, fmt.Sprintf(domainGuardPromptTemplate, query))
	if err != nil {
		metrics.ObserveUpstreamError("llm")
		return false, fmt.Errorf("domain check failed: %w", err)
	}

	verdict := firstWord(answer)
	switch verdict {
	case "yes", "true":
		return true, nil
	case "no", "false":
		d.logger.Info("query classified off-domain", zap.String("query", query))
		return false, nil
	default:
		d.logger.Warn("ambiguous domain verdict, treating as relevant", zap.String("answer", answer))
		return true, nil
	}
}

func firstWord(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
