package photo

import (
	"context"

	"github.com/kailas-cloud/geogrub/internal/domain"
)

// PhotoProvider downloads provider-resampled photo bytes.
type PhotoProvider interface {
	Photo(ctx context.Context, ref string, maxWidth int) (domain.Photo, error)
}

// ImageCache memoizes decoded photos by (ref, width).
type ImageCache interface {
	ImageOf(ctx context.Context, ref string, width int) (domain.ImageBlob, bool)
	StoreImage(ctx context.Context, blob domain.ImageBlob)
}
