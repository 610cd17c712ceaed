// Package prompt formats aggregated speeches into a summarization prompt and parses
// the model's reply.
package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/dietwatch/internal/domain/speech"
)

// SubjectKind tells whether the digest is about one legislator or a whole party.
type SubjectKind string

const (
	// SubjectLegislator is an explicitly selected legislator.
	SubjectLegislator SubjectKind = "legislator"
	// SubjectParty is a party-level selection.
	SubjectParty SubjectKind = "party"
)

func (k SubjectKind) label() string {
	if k == SubjectParty {
		return "政党"
	}
	return "議員"
}

// Defaults for Builder.
const (
	DefaultMaxRecords      = 10
	DefaultMaxChars        = 8000
	DefaultHeadlineChars   = 20
	DefaultSummaryChars    = 200
	headlineLabel          = "見出し"
	summaryLabel           = "要約"
	scoreLabel             = "立場スコア"
	transcriptTruncatedTag = "（以下省略）"
	transcriptHeader       = "発言記録:\n"
)

// Builder turns speech records into a prompt for the summarization collaborator.
type Builder struct {
	maxRecords int
	maxChars   int
	withScore  bool
}

// NewBuilder creates a builder. Non-positive limits fall back to the defaults.
func NewBuilder(maxRecords, maxChars int) *Builder {
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Builder{maxRecords: maxRecords, maxChars: maxChars, withScore: true}
}

// WithoutStanceScore drops the stance score line from the instructions.
func (b *Builder) WithoutStanceScore() *Builder {
	b.withScore = false
	return b
}

// transcript formats at most maxRecords records as "{speaker}（{date}）: {speech}\n\n"
// and truncates the result to maxChars runes. The flag reports truncation.
func (b *Builder) transcript(records []speech.Record) (string, bool) {
	n := len(records)
	if n > b.maxRecords {
		n = b.maxRecords
	}

	var sb strings.Builder
	for i := 0; i < n; i++ {
		r := records[i]
		fmt.Fprintf(&sb, "%s（%s）: %s\n\n", r.Speaker, r.Date, r.Speech)
	}

	text := sb.String()
	if utf8.RuneCountInString(text) > b.maxChars {
		return string([]rune(text)[:b.maxChars]), true
	}
	return text, false
}

// Build wraps the transcript in the instruction template.
func (b *Builder) Build(kind SubjectKind, subjectName string, keywords []string, records []speech.Record) string {
	transcript, truncated := b.transcript(records)
	kw := strings.Join(keywords, "、")

	var sb strings.Builder
	fmt.Fprintf(&sb, "以下は%s「%s」の国会での発言記録です（キーワード: %s）。\n\n", kind.label(), subjectName, kw)
	sb.WriteString("指示:\n")
	sb.WriteString("1. 各発言が「質問」か「答弁・政策表明」かを内部で分類してください。分類結果そのものは出力しないでください。\n")
	fmt.Fprintf(&sb, "2. %d文字以内の見出しと、%d文字以内で立場をまとめた要約を作成してください。\n",
		DefaultHeadlineChars, DefaultSummaryChars)
	fmt.Fprintf(&sb, "3. 要約は必ず「%sは」で始めてください。\n", subjectName)
	if b.withScore {
		fmt.Fprintf(&sb, "4. 最後の行に、キーワードに対する立場を -1.0（反対）から 1.0（賛成）の数値で「%s: 数値」の形式で書いてください。\n", scoreLabel)
	}
	sb.WriteString("\n出力形式:\n")
	fmt.Fprintf(&sb, "%s: ...\n%s: %sは...\n", headlineLabel, summaryLabel, subjectName)
	if b.withScore {
		fmt.Fprintf(&sb, "%s: 0.0\n", scoreLabel)
	}
	sb.WriteString("\n")
	sb.WriteString(transcriptHeader)
	sb.WriteString(transcript)
	if truncated {
		sb.WriteString(transcriptTruncatedTag)
		sb.WriteString("\n")
	}
	return sb.String()
}

// SplitPrompt recovers the subject name and the transcript section from a prompt made by Build.
// ok is false when p was not produced by Build.
func SplitPrompt(p string) (subject, transcript string, ok bool) {
	_, after, found := strings.Cut(p, "「")
	if !found {
		return "", "", false
	}
	subject, _, found = strings.Cut(after, "」")
	if !found {
		return "", "", false
	}
	idx := strings.LastIndex(p, "\n"+transcriptHeader)
	if idx < 0 {
		return "", "", false
	}
	transcript = p[idx+1+len(transcriptHeader):]
	transcript = strings.TrimSuffix(strings.TrimRight(transcript, "\n"), transcriptTruncatedTag)
	return subject, transcript, true
}
