// Package highlight marks keyword occurrences inside speech text.
package highlight

import (
	"html"
	"regexp"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Marker wraps each hit. Escape, when set, is applied to every text segment
// (hits included) before the markers are inserted.
type Marker struct {
	Open   string
	Close  string
	Escape func(string) string
}

// HTMLMarker wraps hits in <mark> and HTML-escapes the text.
var HTMLMarker = Marker{Open: "<mark>", Close: "</mark>", Escape: html.EscapeString}

var htmlPolicy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("mark")
	return p
}()

type span struct{ start, end int }

// Render marks every case-insensitive, non-overlapping occurrence of each keyword.
// Keywords are applied in order; a later keyword never marks inside a span that an
// earlier keyword already claimed. Blank keywords are ignored.
func Render(text string, keywords []string, m Marker) string {
	spans := find(text, keywords)
	if len(spans) == 0 {
		if m.Escape != nil {
			return m.Escape(text)
		}
		return text
	}

	esc := m.Escape
	if esc == nil {
		esc = func(s string) string { return s }
	}

	var b strings.Builder
	b.Grow(len(text) + len(spans)*(len(m.Open)+len(m.Close)))
	pos := 0
	for _, s := range spans {
		b.WriteString(esc(text[pos:s.start]))
		b.WriteString(m.Open)
		b.WriteString(esc(text[s.start:s.end]))
		b.WriteString(m.Close)
		pos = s.end
	}
	b.WriteString(esc(text[pos:]))
	return b.String()
}

// HTML renders text with <mark> hits and sanitizes the result so that only <mark>
// survives as markup.
func HTML(text string, keywords []string) string {
	return htmlPolicy.Sanitize(Render(text, keywords, HTMLMarker))
}

// Count returns how many spans Render would mark.
func Count(text string, keywords []string) int {
	return len(find(text, keywords))
}

func find(text string, keywords []string) []span {
	if text == "" {
		return nil
	}

	var spans []span
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(kw))
		if err != nil {
			continue
		}
		for _, loc := range re.FindAllStringIndex(text, -1) {
			s := span{start: loc[0], end: loc[1]}
			if s.end <= s.start || overlaps(spans, s) {
				continue
			}
			spans = append(spans, s)
		}
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	return spans
}

func overlaps(spans []span, s span) bool {
	for _, o := range spans {
		if s.start < o.end && o.start < s.end {
			return true
		}
	}
	return false
}
