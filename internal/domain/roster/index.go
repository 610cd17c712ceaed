// Package roster indexes the legislator table for name, party and reading lookups.
package roster

import (
	"sort"
	"strings"

	"golang.org/x/text/width"

	"github.com/kailas-cloud/dietwatch/internal/domain/legislator"
)

// DefaultPriorityParties is the fixed preference order for the party list.
var DefaultPriorityParties = []string{
	"自由民主党",
	"立憲民主党",
	"日本維新の会",
	"公明党",
	"国民民主党",
	"日本共産党",
	"れいわ新選組",
	"社会民主党",
	"参政党",
}

// Index is an immutable, read-only view over the roster.
type Index struct {
	rows     []legislator.Legislator
	byName   map[string][]int
	priority []string
}

// Option configures an Index.
type Option func(*Index)

// WithPriorityParties overrides the party preference order.
func WithPriorityParties(parties []string) Option {
	return func(ix *Index) {
		if len(parties) > 0 {
			ix.priority = append([]string(nil), parties...)
		}
	}
}

// New builds an index over rows. Row order is preserved as roster order.
func New(rows []legislator.Legislator, opts ...Option) *Index {
	ix := &Index{
		rows:     make([]legislator.Legislator, len(rows)),
		byName:   make(map[string][]int, len(rows)),
		priority: DefaultPriorityParties,
	}
	copy(ix.rows, rows)
	for i, r := range ix.rows {
		key := legislator.NormalizeName(r.Name)
		ix.byName[key] = append(ix.byName[key], i)
	}
	for _, o := range opts {
		o(ix)
	}
	return ix
}

// Len returns the number of roster rows.
func (ix *Index) Len() int { return len(ix.rows) }

// FindByName returns every row whose name equals name after space normalization.
// Comparison is otherwise exact and case-sensitive.
func (ix *Index) FindByName(name string) []legislator.Legislator {
	idx := ix.byName[legislator.NormalizeName(name)]
	if len(idx) == 0 {
		return nil
	}
	out := make([]legislator.Legislator, 0, len(idx))
	for _, i := range idx {
		out = append(out, ix.rows[i])
	}
	return out
}

// Members returns the rows of a party in roster order.
func (ix *Index) Members(party string) []legislator.Legislator {
	party = strings.TrimSpace(party)
	var out []legislator.Legislator
	for _, r := range ix.rows {
		if r.Party == party {
			out = append(out, r)
		}
	}
	return out
}

// FindByPartyAndReading filters by party (empty = any) and by a partial,
// case-insensitive match of query against name or reading (empty = all).
// Results are sorted by reading, then name.
func (ix *Index) FindByPartyAndReading(party, query string) []legislator.Legislator {
	party = strings.TrimSpace(party)
	q := matchKey(query)

	var out []legislator.Legislator
	for _, r := range ix.rows {
		if party != "" && r.Party != party {
			continue
		}
		if q != "" && !strings.Contains(matchKey(r.Name), q) && !strings.Contains(matchKey(r.Yomi), q) {
			continue
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Yomi != out[j].Yomi {
			return out[i].Yomi < out[j].Yomi
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// PartiesOrderedByPreference lists priority parties present in the roster first,
// then the remaining parties by descending member count, ties by name.
func (ix *Index) PartiesOrderedByPreference() []string {
	counts := make(map[string]int)
	for _, r := range ix.rows {
		if r.Party == "" {
			continue
		}
		counts[r.Party]++
	}

	out := make([]string, 0, len(counts))
	seen := make(map[string]struct{}, len(counts))
	for _, p := range ix.priority {
		if _, ok := counts[p]; !ok {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}

	rest := make([]string, 0, len(counts))
	for p := range counts {
		if _, ok := seen[p]; !ok {
			rest = append(rest, p)
		}
	}
	sort.Slice(rest, func(i, j int) bool {
		if counts[rest[i]] != counts[rest[j]] {
			return counts[rest[i]] > counts[rest[j]]
		}
		return rest[i] < rest[j]
	})

	return append(out, rest...)
}

// matchKey folds a value for partial matching: spaces stripped, width folded, lower-cased.
func matchKey(s string) string {
	s = legislator.NormalizeName(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	return strings.ToLower(width.Fold.String(s))
}
