package session

import (
	"context"

	"github.com/kailas-cloud/geogrub/internal/domain"
)

// Resolver turns location text into a coordinate.
type Resolver interface {
	Resolve(ctx context.Context, query string) (domain.Coordinate, error)
}

// Searcher aggregates nearby places around a resolved center.
type Searcher interface {
	Search(ctx context.Context, query string, center domain.Coordinate, opts domain.SearchOptions) ([]domain.PlaceSummary, error)
}
