// Package openai implements domain.Summarizer over an OpenAI-compatible chat completion API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/dietwatch/internal/domain"
	"github.com/kailas-cloud/dietwatch/internal/metrics"
)

const systemPrompt = "あなたは日本の国会審議を中立的に要約するアナリストです。指示された出力形式を厳守してください。"

// Summarizer calls a chat completion model once per prompt.
type Summarizer struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
	provider    string
	logger      *zap.Logger
}

// Config holds the summarization provider settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
	Provider    string
	Logger      *zap.Logger
}

// NewSummarizer creates an OpenAI-compatible summarizer. An empty BaseURL keeps the OpenAI default.
func NewSummarizer(cfg *Config) *Summarizer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	provider := cfg.Provider
	if provider == "" {
		provider = "openai"
	}

	return &Summarizer{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		provider:    provider,
		logger:      logger,
	}
}

// Summarize implements domain.Summarizer.
func (s *Summarizer) Summarize(ctx context.Context, prompt string) (domain.SummaryResult, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	}

	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		classified := parseAPIError(err)
		errType := "api_error"
		if errors.Is(classified, domain.ErrSummarizationQuota) {
			errType = "quota"
		}
		metrics.SummarizationRequestsTotal.WithLabelValues(s.provider, s.model, "error").Inc()
		metrics.SummarizationErrorsTotal.WithLabelValues(s.provider, s.model, errType).Inc()
		s.logger.Warn("summarization failed", zap.String("model", s.model), zap.Error(err))
		return domain.SummaryResult{}, classified
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		metrics.SummarizationRequestsTotal.WithLabelValues(s.provider, s.model, "error").Inc()
		metrics.SummarizationErrorsTotal.WithLabelValues(s.provider, s.model, "empty_response").Inc()
		return domain.SummaryResult{}, fmt.Errorf("empty completion response: %w", domain.ErrSummarization)
	}

	metrics.SummarizationRequestsTotal.WithLabelValues(s.provider, s.model, "success").Inc()
	metrics.SummarizationRequestDuration.WithLabelValues(s.provider, s.model).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.SummarizationTokensTotal.WithLabelValues(s.provider, s.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.SummarizationTokensTotal.WithLabelValues(s.provider, s.model, "completion").
			Add(float64(resp.Usage.CompletionTokens))
	}

	model := resp.Model
	if model == "" {
		model = s.model
	}
	return domain.SummaryResult{
		Text:             strings.TrimSpace(resp.Choices[0].Message.Content),
		Model:            model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (s *Summarizer) HealthCheck(ctx context.Context) error {
	if _, err := s.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

var quotaCodes = map[string]struct{}{
	"insufficient_quota":  {},
	"rate_limit_exceeded": {},
	"rate_limit_error":    {},
}

// parseAPIError classifies a provider error. Rate limits and exhausted quota map to
// domain.ErrSummarizationQuota, everything else to domain.ErrSummarization.
func parseAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		wrap := domain.ErrSummarization
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests || isQuotaCode(apiErr.Code) || isQuotaCode(apiErr.Type) {
			wrap = domain.ErrSummarizationQuota
		}
		return fmt.Errorf("summarization API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		wrap := domain.ErrSummarization
		if reqErr.HTTPStatusCode == http.StatusTooManyRequests {
			wrap = domain.ErrSummarizationQuota
		}
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("summarization API error %d: %s: %w", reqErr.HTTPStatusCode, detail, wrap)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("summarization timed out: %w", domain.ErrSummarization)
	}
	return fmt.Errorf("summarization request failed: %v: %w", err, domain.ErrSummarization)
}

func isQuotaCode(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	_, hit := quotaCodes[s]
	return hit
}

// extractDetail reads "detail" or "message" from a JSON error body of OpenAI-compatible gateways.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &parsed) != nil {
		return ""
	}
	if parsed.Detail != "" {
		return parsed.Detail
	}
	return parsed.Message
}
