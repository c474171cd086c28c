package health

import "context"

// CachePinger checks shared cache availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// SummaryChecker checks review summary provider availability.
type SummaryChecker interface {
	HealthCheck(ctx context.Context) error
}
