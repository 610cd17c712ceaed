package budget

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/dietwatch/internal/domain"
	"github.com/kailas-cloud/dietwatch/internal/metrics"
)

// Checker is the budget contract the summarizer decorator needs.
type Checker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
	RemainingDaily() int64
	RemainingMonthly() int64
}

// Summarizer enforces a token budget around another summarizer.
// Transport metrics stay in the wrapped summarizer; this layer owns the budget gauge.
type Summarizer struct {
	inner    domain.Summarizer
	provider string
	budget   Checker
	logger   *zap.Logger
}

// NewSummarizer wraps inner with budget enforcement.
func NewSummarizer(inner domain.Summarizer, provider string, budget Checker, logger *zap.Logger) *Summarizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Summarizer{inner: inner, provider: provider, budget: budget, logger: logger}
}

// Summarize checks the budget, delegates, and records the tokens spent.
func (s *Summarizer) Summarize(ctx context.Context, prompt string) (domain.SummaryResult, error) {
	if err := s.budget.Check(ctx); err != nil {
		s.logger.Warn("Summarization budget exceeded", zap.String("provider", s.provider), zap.Error(err))
		return domain.SummaryResult{}, fmt.Errorf("budget check: %w", err)
	}

	res, err := s.inner.Summarize(ctx, prompt)
	if err != nil {
		return domain.SummaryResult{}, err //nolint:wrapcheck // inner errors are already classified
	}

	if tokens := int64(res.PromptTokens + res.CompletionTokens); tokens > 0 {
		s.budget.Record(tokens)
		g := metrics.SummarizationBudgetTokensRemaining
		g.WithLabelValues(s.provider, "daily").Set(float64(s.budget.RemainingDaily()))
		g.WithLabelValues(s.provider, "monthly").Set(float64(s.budget.RemainingMonthly()))
	}
	return res, nil
}

// HealthCheck delegates to the wrapped summarizer when it supports one.
func (s *Summarizer) HealthCheck(ctx context.Context) error {
	if hc, ok := s.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // passthrough
	}
	return nil
}
