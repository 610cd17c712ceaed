package speech

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/dietwatch/internal/domain"
)

// MaxKeywords is the largest number of keywords a single search accepts.
const MaxKeywords = 3

// DateLayout is the wire format of filter dates.
const DateLayout = "2006-01-02"

// Filter is the per-request search filter shared by every (speaker, keyword) query.
// A zero From or Until leaves that bound open. From > Until is not rejected.
type Filter struct {
	keywords []string
	from     time.Time
	until    time.Time
}

// NewFilter trims keywords, drops blanks and duplicates (first position kept) and
// validates the 1..MaxKeywords bound.
func NewFilter(keywords []string, from, until time.Time) (Filter, error) {
	seen := make(map[string]struct{}, len(keywords))
	kws := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		kws = append(kws, k)
	}

	if len(kws) == 0 {
		return Filter{}, domain.NewSelectionError("at least one keyword is required")
	}
	if len(kws) > MaxKeywords {
		return Filter{}, domain.NewSelectionError(fmt.Sprintf("at most %d keywords are allowed", MaxKeywords))
	}

	return Filter{keywords: kws, from: from, until: until}, nil
}

// Keywords returns a copy of the normalized keywords in input order.
func (f Filter) Keywords() []string {
	out := make([]string, len(f.keywords))
	copy(out, f.keywords)
	return out
}

// From returns the lower date bound (zero = open).
func (f Filter) From() time.Time { return f.from }

// Until returns the upper date bound (zero = open).
func (f Filter) Until() time.Time { return f.until }

// Query is a single upstream request: one subject and one keyword.
// Speaker takes precedence over Party when both are set.
type Query struct {
	Speaker string
	Party   string
	Keyword string
	From    time.Time
	Until   time.Time
}

// QueryFor builds the upstream query for a speaker and keyword under this filter.
func (f Filter) QueryFor(speaker, keyword string) Query {
	return Query{Speaker: speaker, Keyword: keyword, From: f.from, Until: f.until}
}

// Subject returns the speaker or, failing that, the party the query targets.
func (q Query) Subject() string {
	if q.Speaker != "" {
		return q.Speaker
	}
	return q.Party
}

// FormatDate renders t as YYYY-MM-DD, or "" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// Searcher runs a single speech query against the speech corpus.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Record, error)
}
