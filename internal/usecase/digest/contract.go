package digest

import (
	"context"

	"github.com/kailas-cloud/dietwatch/internal/domain"
	"github.com/kailas-cloud/dietwatch/internal/domain/roster"
	"github.com/kailas-cloud/dietwatch/internal/domain/speech"
)

// RosterSource provides the current legislator index.
type RosterSource interface {
	Load(ctx context.Context) (*roster.Index, error)
}

// SpeakerResolver turns a selection into speaker names.
type SpeakerResolver interface {
	Resolve(ix *roster.Index, explicitName, party string) ([]string, error)
}

// Searcher runs one speech query.
type Searcher = speech.Searcher

// Summarizer turns a prompt into model text.
type Summarizer = domain.Summarizer
