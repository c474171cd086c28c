package favorites

import (
	"context"

	"github.com/kailas-cloud/geogrub/internal/domain"
)

// Backend stores the whole favorites set.
type Backend interface {
	Load(ctx context.Context) ([]domain.PlaceDetail, error)
	Save(ctx context.Context, items []domain.PlaceDetail) error
	// Location names the backing file or database for error reports.
	Location() string
}
