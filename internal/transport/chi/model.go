package chi

import (
	"github.com/kailas-cloud/dietwatch/internal/domain/legislator"
	digestuc "github.com/kailas-cloud/dietwatch/internal/usecase/digest"
)

// ErrorCode is the machine-readable error identifier in API responses.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest            ErrorCode = "bad_request"
	ErrorCodeValidationFailed      ErrorCode = "validation_failed"
	ErrorCodeUnauthorized          ErrorCode = "unauthorized"
	ErrorCodeNotFound              ErrorCode = "not_found"
	ErrorCodeMethodNotAllowed      ErrorCode = "method_not_allowed"
	ErrorCodeDataSourceUnavailable ErrorCode = "data_source_unavailable"
	ErrorCodeSummarizationQuota    ErrorCode = "summarization_quota_exceeded"
	ErrorCodeSummarizationFailed   ErrorCode = "summarization_failed"
	ErrorCodeInternalError         ErrorCode = "internal_error"
)

// Digest statuses.
const (
	DigestStatusOK      = "ok"
	DigestStatusEmpty   = "empty"
	DigestStatusPartial = "partial"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// PartyList is the body of GET /api/v1/parties.
type PartyList struct {
	Items []string `json:"items"`
}

// LegislatorList is the body of GET /api/v1/legislators.
type LegislatorList struct {
	Items []legislator.Legislator `json:"items"`
}

// DigestRequest is the body of POST /api/v1/digests. Dates use YYYY-MM-DD.
type DigestRequest struct {
	Legislator string   `json:"legislator"`
	Party      string   `json:"party"`
	Keywords   []string `json:"keywords"`
	From       string   `json:"from,omitempty"`
	Until      string   `json:"until,omitempty"`
}

// StanceView renders a stance score.
type StanceView struct {
	Score float64 `json:"score"`
	Label string  `json:"label"`
	Bar   string  `json:"bar"`
}

// ExcerptView is one speech in a digest reply.
type ExcerptView struct {
	SpeechID        string `json:"speech_id"`
	Speaker         string `json:"speaker"`
	Party           string `json:"party,omitempty"`
	SpeakerPosition string `json:"speaker_position,omitempty"`
	Date            string `json:"date"`
	Meeting         string `json:"meeting"`
	MeetingURL      string `json:"meeting_url,omitempty"`
	Speech          string `json:"speech"`
	Highlighted     string `json:"highlighted"`
	Hits            int    `json:"hits"`
}

// DiagnosticView reports a failed speech query.
type DiagnosticView struct {
	Speaker    string `json:"speaker"`
	Keyword    string `json:"keyword"`
	StatusCode int    `json:"status_code,omitempty"`
	Message    string `json:"message"`
}

// DigestResponse is the body of POST /api/v1/digests. Code and Message are set when
// the run stopped short of a summary.
type DigestResponse struct {
	Status      string           `json:"status"`
	Code        ErrorCode        `json:"code,omitempty"`
	Message     string           `json:"message,omitempty"`
	RunID       string           `json:"run_id"`
	SubjectKind string           `json:"subject_kind"`
	Subject     string           `json:"subject"`
	Speakers    []string         `json:"speakers"`
	Keywords    []string         `json:"keywords"`
	Headline    string           `json:"headline,omitempty"`
	Summary     string           `json:"summary,omitempty"`
	Stance      *StanceView      `json:"stance,omitempty"`
	Model       string           `json:"model,omitempty"`
	Excerpts    []ExcerptView    `json:"excerpts"`
	Diagnostics []DiagnosticView `json:"diagnostics"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

const stanceBarWidth = 11

func digestToResponse(d *digestuc.Digest, status string) DigestResponse {
	resp := DigestResponse{
		Status:      status,
		RunID:       d.RunID,
		SubjectKind: string(d.SubjectKind),
		Subject:     d.Subject,
		Speakers:    d.Speakers,
		Keywords:    d.Keywords,
		Headline:    d.Headline,
		Summary:     d.Summary,
		Model:       d.Model,
		Excerpts:    make([]ExcerptView, 0, len(d.Excerpts)),
		Diagnostics: make([]DiagnosticView, 0, len(d.Diagnostics)),
	}
	if d.Stance != nil {
		resp.Stance = &StanceView{
			Score: float64(*d.Stance),
			Label: d.Stance.Label(),
			Bar:   d.Stance.Bar(stanceBarWidth),
		}
	}
	for _, e := range d.Excerpts {
		resp.Excerpts = append(resp.Excerpts, ExcerptView(e))
	}
	for _, dg := range d.Diagnostics {
		resp.Diagnostics = append(resp.Diagnostics, DiagnosticView(dg))
	}
	return resp
}
