package chi

import (
	"context"

	"github.com/kailas-cloud/dietwatch/internal/domain/roster"
	digestuc "github.com/kailas-cloud/dietwatch/internal/usecase/digest"
	healthuc "github.com/kailas-cloud/dietwatch/internal/usecase/health"
)

// RosterSource provides the legislator index for the lookup endpoints.
type RosterSource interface {
	Load(ctx context.Context) (*roster.Index, error)
}

// DigestRunner executes a digest run.
type DigestRunner interface {
	Run(ctx context.Context, req digestuc.Request) (*digestuc.Digest, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
