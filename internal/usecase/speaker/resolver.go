// Package speaker turns a legislator or party selection into the speakers to query.
package speaker

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/dietwatch/internal/domain"
	"github.com/kailas-cloud/dietwatch/internal/domain/legislator"
	"github.com/kailas-cloud/dietwatch/internal/domain/roster"
)

// DefaultMaxSpeakers caps party-level selections.
const DefaultMaxSpeakers = 5

// Resolver picks the speakers for a selection.
type Resolver struct {
	maxSpeakers int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMaxSpeakers overrides the party-level cap. Non-positive values are ignored.
func WithMaxSpeakers(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxSpeakers = n
		}
	}
}

// NewResolver creates a resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{maxSpeakers: DefaultMaxSpeakers}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve returns the ordered speaker names for a selection.
// An explicit name always wins and is returned normalized without a roster lookup.
// Otherwise the party's members are used, restricted to those holding a position when
// any does, deduplicated and capped in roster order.
func (r *Resolver) Resolve(ix *roster.Index, explicitName, party string) ([]string, error) {
	if !legislator.IsUnset(explicitName) {
		return []string{legislator.NormalizeName(strings.TrimSpace(explicitName))}, nil
	}

	if legislator.IsUnset(party) {
		return nil, domain.NewSelectionError("no speaker or party specified")
	}
	party = strings.TrimSpace(party)

	members := ix.Members(party)
	if len(members) == 0 {
		return nil, domain.NewSelectionError(fmt.Sprintf("party %q has no members in the roster", party))
	}

	pool := influential(members)
	if len(pool) == 0 {
		pool = members
	}

	names := make([]string, 0, min(len(pool), r.maxSpeakers))
	seen := make(map[string]struct{}, len(pool))
	for _, m := range pool {
		if len(names) == r.maxSpeakers {
			break
		}
		if _, dup := seen[m.Name]; dup {
			continue
		}
		seen[m.Name] = struct{}{}
		names = append(names, m.Name)
	}
	return names, nil
}

func influential(members []legislator.Legislator) []legislator.Legislator {
	var out []legislator.Legislator
	for _, m := range members {
		if m.Influential() {
			out = append(out, m)
		}
	}
	return out
}
