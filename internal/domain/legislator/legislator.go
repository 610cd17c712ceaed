// Package legislator holds the roster row type and name normalization.
package legislator

import "strings"

// Unspecified is the sentinel selection value meaning "no choice made".
const Unspecified = "指定しない"

// Legislator is a single roster row.
// Name is the join key back from speech records and is not guaranteed to be unique.
type Legislator struct {
	Name     string `json:"name"`
	Yomi     string `json:"yomi,omitempty"`
	Party    string `json:"party,omitempty"`
	House    string `json:"house,omitempty"`
	Position string `json:"position,omitempty"`
}

// New builds a Legislator with name and reading normalized and other fields trimmed.
func New(name, yomi, party, house, position string) Legislator {
	return Legislator{
		Name:     NormalizeName(name),
		Yomi:     NormalizeName(yomi),
		Party:    strings.TrimSpace(party),
		House:    strings.TrimSpace(house),
		Position: strings.TrimSpace(position),
	}
}

// Influential reports whether the legislator carries a rank or position.
func (l Legislator) Influential() bool {
	return strings.TrimSpace(l.Position) != ""
}

// NormalizeName strips half-width (U+0020) and full-width (U+3000) spaces.
func NormalizeName(s string) string {
	if !strings.ContainsAny(s, " 　") {
		return s
	}
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '　' {
			return -1
		}
		return r
	}, s)
}

// IsUnset reports whether a selection value is empty after normalization or the sentinel.
func IsUnset(s string) bool {
	n := NormalizeName(strings.TrimSpace(s))
	return n == "" || n == Unspecified
}
