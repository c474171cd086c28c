package favorites

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/geogrub/internal/domain"
)

// Service is the in-memory favorites set backed by durable storage.
// Every mutation rewrites the whole stored set.
type Service struct {
	backend Backend
	logger  *zap.Logger

	mu    sync.RWMutex
	items []domain.PlaceDetail
}

// New creates a favorites service. Call Load before use.
func New(backend Backend, logger *zap.Logger) *Service {
	return &Service{backend: backend, logger: logger}
}

// Load replaces the in-memory set with the stored one. Read or parse
// failures yield an empty set.
func (s *Service) Load(ctx context.Context) []domain.PlaceDetail {
	loaded, err := s.backend.Load(ctx)
	if err != nil {
		s.logger.Warn("Failed to load favorites, starting empty",
			zap.String("location", s.backend.Location()),
			zap.Error(err),
		)
		loaded = nil
	}

	items := make([]domain.PlaceDetail, 0, len(loaded))
	seen := make(map[string]struct{}, len(loaded))
	for _, d := range loaded {
		if _, dup := seen[d.PlaceID]; dup || d.PlaceID == "" {
			continue
		}
		seen[d.PlaceID] = struct{}{}
		items = append(items, d)
	}

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()

	return slices.Clone(items)
}

// Add appends detail and saves. Adding a place that is already a favorite
// does nothing.
func (s *Service) Add(ctx context.Context, detail domain.PlaceDetail) error {
	if strings.TrimSpace(detail.PlaceID) == "" {
		return fmt.Errorf("%w: place id is required", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexLocked(detail.PlaceID) >= 0 {
		return nil
	}
	s.items = append(s.items, detail)
	return s.saveLocked(ctx)
}

// Remove deletes placeID and saves. Removing an absent place does nothing.
func (s *Service) Remove(ctx context.Context, placeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(placeID)
	if i < 0 {
		return nil
	}
	s.items = slices.Delete(s.items, i, i+1)
	return s.saveLocked(ctx)
}

// Toggle adds detail when absent and removes it otherwise. It reports
// whether the place is a favorite afterwards.
func (s *Service) Toggle(ctx context.Context, detail domain.PlaceDetail) (bool, error) {
	if strings.TrimSpace(detail.PlaceID) == "" {
		return false, fmt.Errorf("%w: place id is required", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexLocked(detail.PlaceID); i >= 0 {
		s.items = slices.Delete(s.items, i, i+1)
		return false, s.saveLocked(ctx)
	}
	s.items = append(s.items, detail)
	return true, s.saveLocked(ctx)
}

// Contains reports whether placeID is a favorite.
func (s *Service) Contains(placeID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexLocked(placeID) >= 0
}

// List returns the favorites in insertion order.
func (s *Service) List() []domain.PlaceDetail {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := slices.Clone(s.items)
	if out == nil {
		out = []domain.PlaceDetail{}
	}
	return out
}

// Save writes the current set.
func (s *Service) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx)
}

func (s *Service) saveLocked(ctx context.Context) error {
	if err := s.backend.Save(ctx, slices.Clone(s.items)); err != nil {
		s.logger.Error("Failed to save favorites",
			zap.String("location", s.backend.Location()),
			zap.Int("count", len(s.items)),
			zap.Error(err),
		)
		return &domain.PersistError{Op: domain.PersistWrite, Path: s.backend.Location(), Err: err}
	}
	return nil
}

func (s *Service) indexLocked(placeID string) int {
	return slices.IndexFunc(s.items, func(d domain.PlaceDetail) bool { return d.PlaceID == placeID })
}
