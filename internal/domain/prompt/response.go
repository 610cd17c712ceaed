package prompt

import (
	"strconv"
	"strings"

	"github.com/kailas-cloud/dietwatch/internal/domain/stance"
)

// Response is the structured form of a model reply.
type Response struct {
	Headline string
	Summary  string
	Score    *stance.Score
}

// ParseResponse extracts the headline, summary and stance score lines.
// Labels accept both ':' and '：'. A reply without a summary label is kept whole
// as the summary, minus any recognised headline and score lines.
func ParseResponse(text string) Response {
	var resp Response
	var rest []string
	inSummary := false

	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(strings.Trim(line, "*#"))
		if v, ok := cutLabel(trimmed, headlineLabel); ok {
			resp.Headline = v
			inSummary = false
			continue
		}
		if v, ok := cutLabel(trimmed, scoreLabel); ok {
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				s := stance.New(f)
				resp.Score = &s
			}
			inSummary = false
			continue
		}
		if v, ok := cutLabel(trimmed, summaryLabel); ok {
			resp.Summary = v
			inSummary = true
			continue
		}
		if inSummary && trimmed != "" {
			resp.Summary += trimmed
			continue
		}
		if trimmed != "" {
			rest = append(rest, trimmed)
		}
	}

	if resp.Summary == "" {
		resp.Summary = strings.Join(rest, "\n")
	}
	return resp
}

func cutLabel(line, label string) (string, bool) {
	after, ok := strings.CutPrefix(line, label)
	if !ok {
		return "", false
	}
	after = strings.TrimSpace(strings.TrimLeft(after, "*"))
	for _, sep := range []string{":", "："} {
		if v, ok := strings.CutPrefix(after, sep); ok {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}
