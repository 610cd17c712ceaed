// Package digest orchestrates a speech digest: speaker resolution, fan-out search,
// merging, summarization and presentation.
package digest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/dietwatch/internal/domain"
	"github.com/kailas-cloud/dietwatch/internal/domain/highlight"
	"github.com/kailas-cloud/dietwatch/internal/domain/legislator"
	"github.com/kailas-cloud/dietwatch/internal/domain/prompt"
	"github.com/kailas-cloud/dietwatch/internal/domain/roster"
	"github.com/kailas-cloud/dietwatch/internal/domain/speech"
	"github.com/kailas-cloud/dietwatch/internal/logger"
	"github.com/kailas-cloud/dietwatch/internal/metrics"
)

// DefaultConcurrency bounds in-flight speech queries per run.
const DefaultConcurrency = 4

// Service runs digests.
type Service struct {
	roster      RosterSource
	resolver    SpeakerResolver
	searcher    Searcher
	summarizer  Summarizer
	builder     *prompt.Builder
	concurrency int
	logger      *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithConcurrency overrides the fan-out limit. Non-positive values are ignored.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithLogger sets the fallback logger used when the context carries none.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a digest service. builder may be nil for defaults.
func New(
	rs RosterSource,
	resolver SpeakerResolver,
	searcher Searcher,
	summarizer Summarizer,
	builder *prompt.Builder,
	opts ...Option,
) *Service {
	if builder == nil {
		builder = prompt.NewBuilder(0, 0)
	}
	s := &Service{
		roster:      rs,
		resolver:    resolver,
		searcher:    searcher,
		summarizer:  summarizer,
		builder:     builder,
		concurrency: DefaultConcurrency,
		logger:      zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run executes a digest.
//
// Selection and roster failures return a nil Digest. Once searching has started the
// Digest is always returned, together with domain.ErrEmptyResult when nothing was
// found or a summarization error when the model call failed.
func (s *Service) Run(ctx context.Context, req Request) (*Digest, error) {
	runID := uuid.NewString()
	log := logger.FromContext(ctx, s.logger).With(zap.String("run_id", runID))

	filter, err := speech.NewFilter(req.Keywords, req.From, req.Until)
	if err != nil {
		s.outcome("error")
		return nil, fmt.Errorf("build filter: %w", err)
	}

	ix, err := s.roster.Load(ctx)
	if err != nil {
		s.outcome("error")
		return nil, fmt.Errorf("load roster: %w", err)
	}

	speakers, err := s.resolver.Resolve(ix, req.Legislator, req.Party)
	if err != nil {
		s.outcome("error")
		return nil, fmt.Errorf("resolve speakers: %w", err)
	}

	d := &Digest{
		RunID:    runID,
		Speakers: speakers,
		Keywords: filter.Keywords(),
	}
	d.SubjectKind, d.Subject = subjectOf(req, speakers)

	log.Info("digest started",
		zap.String("subject", d.Subject),
		zap.String("subject_kind", string(d.SubjectKind)),
		zap.Strings("speakers", speakers),
		zap.Strings("keywords", d.Keywords),
	)

	batches, diags, err := s.fanOut(ctx, filter, speakers)
	if err != nil {
		s.outcome("error")
		return nil, err
	}
	d.Diagnostics = diags
	for _, dg := range diags {
		log.Warn("speech query failed",
			zap.String("speaker", dg.Speaker),
			zap.String("keyword", dg.Keyword),
			zap.Int("status", dg.StatusCode),
			zap.String("message", dg.Message),
		)
	}

	records := speech.Merge(batches...)
	if len(records) == 0 {
		s.outcome("empty")
		log.Info("digest empty", zap.Int("failed_queries", len(diags)))
		return d, domain.ErrEmptyResult
	}
	d.Excerpts = excerpts(ix, records, d.Keywords)

	res, err := s.summarizer.Summarize(ctx, s.builder.Build(d.SubjectKind, d.Subject, d.Keywords, records))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSummarizationQuota):
			s.outcome("quota")
		case errors.Is(err, domain.ErrSummarization):
			s.outcome("summarization_error")
		default:
			s.outcome("summarization_error")
			err = fmt.Errorf("%w: %w", domain.ErrSummarization, err)
		}
		log.Warn("summarization failed", zap.Int("records", len(records)), zap.Error(err))
		return d, fmt.Errorf("summarize: %w", err)
	}

	parsed := prompt.ParseResponse(res.Text)
	d.Headline = parsed.Headline
	d.Summary = parsed.Summary
	d.Stance = parsed.Score
	d.Model = res.Model

	s.outcome("ok")
	log.Info("digest finished",
		zap.Int("records", len(records)),
		zap.Int("failed_queries", len(diags)),
		zap.String("model", res.Model),
		zap.Int("prompt_tokens", res.PromptTokens),
	)
	return d, nil
}

// fanOut queries every (keyword, speaker) pair on a bounded pool. Batches are
// indexed keyword-major so merge order does not depend on completion order.
// Pair failures become diagnostics; only cancellation of ctx fails the run.
func (s *Service) fanOut(
	ctx context.Context, filter speech.Filter, speakers []string,
) ([][]speech.Record, []Diagnostic, error) {
	keywords := filter.Keywords()
	n := len(keywords) * len(speakers)
	batches := make([][]speech.Record, n)
	failures := make([]error, n)

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for ki, kw := range keywords {
		for si, sp := range speakers {
			i := ki*len(speakers) + si
			q := filter.QueryFor(sp, kw)
			g.Go(func() error {
				recs, err := s.searcher.Search(ctx, q)
				if err != nil {
					failures[i] = err
					return nil
				}
				batches[i] = recs
				return nil
			})
		}
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("search speeches: %w", err)
	}

	var diags []Diagnostic
	for i, err := range failures {
		if err == nil {
			continue
		}
		diags = append(diags, diagnostic(keywords[i/len(speakers)], speakers[i%len(speakers)], err))
	}
	return batches, diags, nil
}

func diagnostic(keyword, speaker string, err error) Diagnostic {
	dg := Diagnostic{Speaker: speaker, Keyword: keyword, Message: err.Error()}
	var upErr *domain.UpstreamRequestError
	if errors.As(err, &upErr) {
		dg.StatusCode = upErr.StatusCode
		if upErr.Err != nil {
			dg.Message = upErr.Err.Error()
		}
	}
	return dg
}

func subjectOf(req Request, speakers []string) (prompt.SubjectKind, string) {
	if !legislator.IsUnset(req.Legislator) {
		return prompt.SubjectLegislator, speakers[0]
	}
	return prompt.SubjectParty, strings.TrimSpace(req.Party)
}

func excerpts(ix *roster.Index, records []speech.Record, keywords []string) []Excerpt {
	out := make([]Excerpt, 0, len(records))
	for _, r := range records {
		e := Excerpt{
			SpeechID:        r.SpeechID,
			Speaker:         r.Speaker,
			SpeakerPosition: r.SpeakerPosition,
			Date:            r.Date,
			Meeting:         r.MeetingName(),
			MeetingURL:      r.MeetingURL,
			Speech:          r.Speech,
			Highlighted:     highlight.HTML(r.Speech, keywords),
			Hits:            highlight.Count(r.Speech, keywords),
		}
		if matches := ix.FindByName(r.Speaker); len(matches) == 1 {
			e.Party = matches[0].Party
		}
		out = append(out, e)
	}
	return out
}

func (s *Service) outcome(o string) {
	metrics.DigestsTotal.WithLabelValues(o).Inc()
}
