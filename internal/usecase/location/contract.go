package location

import (
	"context"

	"github.com/kailas-cloud/geogrub/internal/domain"
)

// Geocoder resolves normalized address text. found is false when the
// provider has no match; err reports transport failures only.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (c domain.Coordinate, found bool, err error)
}

// Locator approximates the caller's own position.
type Locator interface {
	Locate(ctx context.Context) (domain.Coordinate, error)
}

// CoordinateCache memoizes resolved queries.
type CoordinateCache interface {
	CoordinateOf(ctx context.Context, query string) (domain.Coordinate, bool)
	StoreCoordinate(ctx context.Context, query string, c domain.Coordinate)
}
