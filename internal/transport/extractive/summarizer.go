// Package extractive implements domain.Summarizer offline with LexRank+MMR sentence extraction.
// It needs no API key and is meant as a fallback when no model endpoint is configured.
package extractive

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ramenjuniti/lexrankmmr"

	"github.com/kailas-cloud/dietwatch/internal/domain"
	"github.com/kailas-cloud/dietwatch/internal/domain/prompt"
	"github.com/kailas-cloud/dietwatch/internal/metrics"
)

// ModelName is reported as SummaryResult.Model.
const ModelName = "lexrankmmr"

const (
	headlineRunes = prompt.DefaultHeadlineChars
	summaryRunes  = prompt.DefaultSummaryChars
	minLineRunes  = 5
)

var (
	// "○山田太郎君　" style speaker markers at the start of NDL speech bodies.
	reSpeakerMark = regexp.MustCompile(`^[○◯〇][^\s　]*[\s　]+`)
	reSymbolOnly  = regexp.MustCompile(`^[[:punct:][:space:]]*$`)
)

// Summarizer extracts the most central sentences of the transcript.
type Summarizer struct {
	sentences int
}

// New creates a summarizer returning at most sentences sentences (default 3).
func New(sentences int) *Summarizer {
	if sentences <= 0 {
		sentences = 3
	}
	return &Summarizer{sentences: sentences}
}

// Summarize implements domain.Summarizer. The reply follows the 見出し/要約 format that
// prompt.ParseResponse understands.
func (s *Summarizer) Summarize(ctx context.Context, p string) (domain.SummaryResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.SummaryResult{}, fmt.Errorf("summarize: %v: %w", err, domain.ErrSummarization)
	}

	subject, transcript, ok := prompt.SplitPrompt(p)
	if !ok {
		transcript = p
	}

	start := time.Now()
	sentences, err := s.extract(transcript)
	if err != nil {
		metrics.SummarizationRequestsTotal.WithLabelValues("extractive", ModelName, "error").Inc()
		metrics.SummarizationErrorsTotal.WithLabelValues("extractive", ModelName, "extract_error").Inc()
		return domain.SummaryResult{}, fmt.Errorf("extract sentences: %v: %w", err, domain.ErrSummarization)
	}
	if len(sentences) == 0 {
		metrics.SummarizationRequestsTotal.WithLabelValues("extractive", ModelName, "error").Inc()
		metrics.SummarizationErrorsTotal.WithLabelValues("extractive", ModelName, "empty_response").Inc()
		return domain.SummaryResult{}, fmt.Errorf("no extractable sentences: %w", domain.ErrSummarization)
	}
	metrics.SummarizationRequestsTotal.WithLabelValues("extractive", ModelName, "success").Inc()
	metrics.SummarizationRequestDuration.WithLabelValues("extractive", ModelName).Observe(time.Since(start).Seconds())

	summary := strings.Join(sentences, "。") + "。"
	if subject != "" {
		summary = subject + "は「" + summary + "」と述べている。"
	}

	text := fmt.Sprintf("見出し: %s\n要約: %s", truncate(sentences[0], headlineRunes), truncate(summary, summaryRunes))
	return domain.SummaryResult{Text: text, Model: ModelName}, nil
}

// HealthCheck always succeeds.
func (s *Summarizer) HealthCheck(context.Context) error { return nil }

func (s *Summarizer) extract(transcript string) ([]string, error) {
	clean := normalizeText(transcript)
	if clean == "" {
		return nil, nil
	}

	data, err := lexrankmmr.New(
		lexrankmmr.MaxLines(s.sentences),
		lexrankmmr.MaxCharacters(100000),
	)
	if err != nil {
		return nil, fmt.Errorf("init lexrankmmr: %w", err)
	}
	if err := data.Summarize(clean); err != nil {
		return nil, fmt.Errorf("lexrankmmr: %w", err)
	}

	out := make([]string, 0, len(data.LineLimitedSummary))
	for _, sc := range data.LineLimitedSummary {
		if sent := strings.TrimSpace(sc.Sentence); sent != "" {
			out = append(out, sent)
		}
	}
	return out, nil
}

// normalizeText drops the "{speaker}（{date}）: " prefixes and speaker marks, splits on
// sentence punctuation and rejoins with "。" which lexrankmmr uses as its delimiter.
func normalizeText(transcript string) string {
	var bodies []string
	for _, line := range strings.Split(transcript, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if _, body, ok := strings.Cut(line, "）: "); ok {
			line = body
		}
		bodies = append(bodies, reSpeakerMark.ReplaceAllString(line, ""))
	}

	replacer := strings.NewReplacer("。", "\n", "！", "\n", "？", "\n", "!", "\n", "?", "\n")
	var valid []string
	for _, sent := range strings.Split(replacer.Replace(strings.Join(bodies, "\n")), "\n") {
		sent = strings.TrimSpace(sent)
		if sent == "" || reSymbolOnly.MatchString(sent) || utf8.RuneCountInString(sent) < minLineRunes {
			continue
		}
		valid = append(valid, sent)
	}
	if len(valid) == 0 {
		return ""
	}
	return strings.Join(valid, "。") + "。"
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
