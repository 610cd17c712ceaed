package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional collaborator is failing.
	Degraded Status = "degraded"
	// Unhealthy indicates the roster cannot be served.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names used as Report.Checks keys.
const (
	ComponentRoster     = "roster"
	ComponentCache      = "cache"
	ComponentSummarizer = "summarizer"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	roster     RosterLoader
	cache      CachePinger
	summarizer SummarizerChecker
}

// New creates a Service. cache and summarizer can be nil.
func New(roster RosterLoader, cache CachePinger, summarizer SummarizerChecker) *Service {
	return &Service{roster: roster, cache: cache, summarizer: summarizer}
}

// Check runs every configured probe. A roster failure makes the service unhealthy,
// any other failure degrades it.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, 3)
	status := Healthy

	if _, err := s.roster.Load(ctx); err != nil {
		checks[ComponentRoster] = CheckError
		status = Unhealthy
	} else {
		checks[ComponentRoster] = CheckOK
	}

	probe := func(name string, fn func(context.Context) error) {
		if err := fn(ctx); err != nil {
			checks[name] = CheckError
			if status == Healthy {
				status = Degraded
			}
			return
		}
		checks[name] = CheckOK
	}
	if s.cache != nil {
		probe(ComponentCache, s.cache.Ping)
	}
	if s.summarizer != nil {
		probe(ComponentSummarizer, s.summarizer.HealthCheck)
	}

	return Report{Status: status, Checks: checks}
}
