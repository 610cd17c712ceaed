package health

import (
	"context"

	"github.com/kailas-cloud/dietwatch/internal/domain/roster"
)

// RosterLoader loads the legislator index.
type RosterLoader interface {
	Load(ctx context.Context) (*roster.Index, error)
}

// CachePinger checks speech cache availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// SummarizerChecker checks summarization provider availability.
type SummarizerChecker interface {
	HealthCheck(ctx context.Context) error
}
