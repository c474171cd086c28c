package detail

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/geogrub/internal/domain"
)

// NoReviews is the summary of a place nobody has reviewed yet.
const NoReviews = "No reviews to summarize yet."

// Service fetches place details. Details are never cached: hours and
// reviews change.
type Service struct {
	provider   Provider
	summarizer Summarizer
}

// New creates a detail service. summarizer can be nil.
func New(provider Provider, summarizer Summarizer) *Service {
	return &Service{provider: provider, summarizer: summarizer}
}

// Fetch returns the full detail of a place.
func (s *Service) Fetch(ctx context.Context, placeID string) (domain.PlaceDetail, error) {
	if strings.TrimSpace(placeID) == "" {
		return domain.PlaceDetail{}, fmt.Errorf("%w: place id is required", domain.ErrInvalidInput)
	}

	page, err := s.provider.Details(ctx, placeID)
	if err != nil {
		return domain.PlaceDetail{}, &domain.DetailError{
			PlaceID:         placeID,
			ProviderFailure: domain.TransportFailure(domain.HTTPStatusOf(err), err),
		}
	}
	if page.Status != domain.StatusOK {
		return domain.PlaceDetail{}, &domain.DetailError{
			PlaceID:         placeID,
			ProviderFailure: domain.StatusFailure(page.Status),
		}
	}

	d := page.Result
	if len(d.PhotoRefs) > domain.MaxPhotoRefs {
		d.PhotoRefs = d.PhotoRefs[:domain.MaxPhotoRefs]
	}
	return d, nil
}

// Summarize fetches a place and summarizes its reviews.
func (s *Service) Summarize(ctx context.Context, placeID string) (string, error) {
	if s.summarizer == nil {
		return "", domain.ErrSummaryDisabled
	}
	d, err := s.Fetch(ctx, placeID)
	if err != nil {
		return "", err
	}
	if len(d.Reviews) == 0 {
		return NoReviews, nil
	}
	summary, err := s.summarizer.Summarize(ctx, d.Name, d.Reviews)
	if err != nil {
		return "", fmt.Errorf("summarize %q: %w", placeID, err)
	}
	return summary, nil
}

// SummaryEnabled reports whether Summarize can succeed.
func (s *Service) SummaryEnabled() bool {
	return s.summarizer != nil
}
