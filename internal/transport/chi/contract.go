package chi

import (
	"context"

	"github.com/kailas-cloud/geogrub/internal/domain"
	healthuc "github.com/kailas-cloud/geogrub/internal/usecase/health"
	sessionuc "github.com/kailas-cloud/geogrub/internal/usecase/session"
)

// Sessions runs resolve-then-search.
type Sessions interface {
	Search(ctx context.Context, req sessionuc.Request) (sessionuc.Result, error)
	Start(ctx context.Context, req sessionuc.Request, deliver func(sessionuc.Result, error)) uint64
	Latest() uint64
}

// ResultReader exposes result sets cached by earlier searches.
type ResultReader interface {
	Cached(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.PlaceSummary, error)
}

// Locator approximates the caller's position.
type Locator interface {
	NearMe(ctx context.Context) (string, domain.Coordinate, error)
}

// Details fetches enriched place records.
type Details interface {
	Fetch(ctx context.Context, placeID string) (domain.PlaceDetail, error)
	Summarize(ctx context.Context, placeID string) (string, error)
	SummaryEnabled() bool
}

// Photos downloads and caches place photos.
type Photos interface {
	Fetch(ctx context.Context, ref string, maxWidth int) (domain.ImageBlob, bool)
}

// Favorites is the saved-places store.
type Favorites interface {
	Add(ctx context.Context, detail domain.PlaceDetail) error
	Remove(ctx context.Context, placeID string) error
	Toggle(ctx context.Context, detail domain.PlaceDetail) (bool, error)
	Contains(placeID string) bool
	List() []domain.PlaceDetail
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
