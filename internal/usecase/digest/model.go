package digest

import (
	"time"

	"github.com/kailas-cloud/dietwatch/internal/domain/prompt"
	"github.com/kailas-cloud/dietwatch/internal/domain/stance"
)

// Request is a single digest selection.
// Legislator wins over Party. Zero From/Until leave the range open.
type Request struct {
	Legislator string
	Party      string
	Keywords   []string
	From       time.Time
	Until      time.Time
}

// Excerpt is a merged speech record prepared for display.
type Excerpt struct {
	SpeechID        string
	Speaker         string
	Party           string // set only when the speaker matches exactly one roster row
	SpeakerPosition string
	Date            string
	Meeting         string
	MeetingURL      string
	Speech          string
	Highlighted     string // HTML with <mark> hits
	Hits            int
}

// Diagnostic reports a failed (speaker, keyword) query that did not stop the run.
type Diagnostic struct {
	Speaker    string
	Keyword    string
	StatusCode int
	Message    string
}

// Digest is the outcome of a run. Headline, Summary and Stance are empty when
// summarization did not succeed.
type Digest struct {
	RunID       string
	SubjectKind prompt.SubjectKind
	Subject     string
	Speakers    []string
	Keywords    []string
	Headline    string
	Summary     string
	Stance      *stance.Score
	Model       string
	Excerpts    []Excerpt
	Diagnostics []Diagnostic
}
