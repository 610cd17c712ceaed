package domain

import "context"

// KeyPrefix namespaces every key written to the shared key-value store.
const KeyPrefix = "dietwatch:"

// Summarizer is the text-in/text-out contract of the summarization collaborator.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (SummaryResult, error)
}

// HealthChecker verifies collaborator availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// SummaryResult carries the raw model output and token usage.
type SummaryResult struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
}
