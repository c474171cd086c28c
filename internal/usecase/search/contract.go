package search

import (
	"context"

	"github.com/kailas-cloud/geogrub/internal/domain"
)

// NearbySearcher fetches one page of nearby results. A non-success status
// comes back in the page; errors are transport failures.
type NearbySearcher interface {
	NearbySearch(ctx context.Context, req domain.NearbyRequest) (domain.NearbyPage, error)
}

// ResultCache memoizes complete result sets.
type ResultCache interface {
	ResultsOf(ctx context.Context, key string) ([]domain.PlaceSummary, bool)
	StoreResults(ctx context.Context, key string, results []domain.PlaceSummary)
}
