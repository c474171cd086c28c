package photo

import (
	"bytes"
	"context"
	"image"
	// Registered decoders for the formats the photo endpoint serves.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"go.uber.org/zap"
	_ "golang.org/x/image/webp"

	"github.com/kailas-cloud/geogrub/internal/domain"
)

// Service downloads and decodes place photos. Failures degrade to "no image"
// and are not cached, so the next access retries.
type Service struct {
	provider PhotoProvider
	cache    ImageCache
	logger   *zap.Logger
}

// New creates an image service.
func New(provider PhotoProvider, cache ImageCache, logger *zap.Logger) *Service {
	return &Service{provider: provider, cache: cache, logger: logger}
}

// Fetch returns the photo ref resampled to maxWidth, false when it is
// unavailable.
func (s *Service) Fetch(ctx context.Context, ref string, maxWidth int) (domain.ImageBlob, bool) {
	if ref == "" || maxWidth <= 0 {
		return domain.ImageBlob{}, false
	}

	if blob, ok := s.cache.ImageOf(ctx, ref, maxWidth); ok {
		return blob, true
	}

	photo, err := s.provider.Photo(ctx, ref, maxWidth)
	if err != nil {
		s.logger.Warn("Photo download failed", zap.String("ref", ref), zap.Int("width", maxWidth), zap.Error(err))
		return domain.ImageBlob{}, false
	}

	img, format, err := image.Decode(bytes.NewReader(photo.Data))
	if err != nil {
		s.logger.Warn("Photo decode failed",
			zap.String("ref", ref),
			zap.String("content_type", photo.ContentType),
			zap.Error(err),
		)
		return domain.ImageBlob{}, false
	}

	contentType := photo.ContentType
	if contentType == "" {
		contentType = "image/" + format
	}

	blob := domain.ImageBlob{
		Ref:         ref,
		Width:       maxWidth,
		ContentType: contentType,
		Format:      format,
		Data:        photo.Data,
		Image:       img,
	}
	s.cache.StoreImage(ctx, blob)
	return blob, true
}
