package detail

import (
	"context"

	"github.com/kailas-cloud/geogrub/internal/domain"
)

// Provider fetches place details. A non-success status comes back in the
// page; errors are transport failures.
type Provider interface {
	Details(ctx context.Context, placeID string) (domain.DetailPage, error)
}

// Summarizer condenses reviews into a short paragraph.
type Summarizer interface {
	Summarize(ctx context.Context, place string, reviews []domain.Review) (string, error)
}
