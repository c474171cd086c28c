package cache

import (
	"context"
	"slices"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/geogrub/internal/domain"
)

// Tier names used as the "tier" metric label.
const (
	TierCoordinate = "coordinate"
	TierResults    = "results"
	TierImage      = "image"
)

// Layer bundles the three independent caches. Each tier synchronizes itself;
// there is no cross-tier consistency.
type Layer struct {
	coords  Tier[string, domain.Coordinate]
	results Tier[string, []domain.PlaceSummary]
	images  Tier[domain.ImageKey, domain.ImageBlob]
	total   *prometheus.CounterVec
}

// Option customizes a Layer.
type Option func(*Layer)

// WithCoordinateTier replaces the coordinate tier.
func WithCoordinateTier(t Tier[string, domain.Coordinate]) Option {
	return func(l *Layer) { l.coords = t }
}

// WithResultTier replaces the result-set tier.
func WithResultTier(t Tier[string, []domain.PlaceSummary]) Option {
	return func(l *Layer) { l.results = t }
}

// WithCounter records hits and misses on a counter vec labelled (tier, result).
func WithCounter(total *prometheus.CounterVec) Option {
	return func(l *Layer) { l.total = total }
}

// New creates a Layer of in-memory tiers. maxEntries <= 0 keeps every entry.
func New(maxEntries int, opts ...Option) *Layer {
	l := &Layer{
		coords:  NewMemo[string, domain.Coordinate](maxEntries),
		results: NewMemo[string, []domain.PlaceSummary](maxEntries),
		images:  NewMemo[domain.ImageKey, domain.ImageBlob](maxEntries),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CoordinateOf returns the coordinate a query string resolved to.
func (l *Layer) CoordinateOf(ctx context.Context, query string) (domain.Coordinate, bool) {
	c, ok := l.coords.Get(ctx, query)
	l.observe(TierCoordinate, ok)
	return c, ok
}

// StoreCoordinate memoizes a resolved coordinate.
func (l *Layer) StoreCoordinate(ctx context.Context, query string, c domain.Coordinate) {
	l.coords.Put(ctx, query, c)
}

// ResultsOf returns the result set stored under key. The returned slice is a
// copy; callers may reorder it freely.
func (l *Layer) ResultsOf(ctx context.Context, key string) ([]domain.PlaceSummary, bool) {
	rs, ok := l.results.Get(ctx, key)
	l.observe(TierResults, ok)
	if !ok {
		return nil, false
	}
	return slices.Clone(rs), true
}

// StoreResults memoizes a complete result set.
func (l *Layer) StoreResults(ctx context.Context, key string, results []domain.PlaceSummary) {
	l.results.Put(ctx, key, slices.Clone(results))
}

// ImageOf returns the blob decoded for (ref, width).
func (l *Layer) ImageOf(ctx context.Context, ref string, width int) (domain.ImageBlob, bool) {
	b, ok := l.images.Get(ctx, domain.ImageKey{Ref: ref, Width: width})
	l.observe(TierImage, ok)
	return b, ok
}

// StoreImage memoizes a decoded blob under its (ref, width) key.
func (l *Layer) StoreImage(ctx context.Context, blob domain.ImageBlob) {
	l.images.Put(ctx, blob.Key(), blob)
}

func (l *Layer) observe(tier string, hit bool) {
	if l.total == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	l.total.WithLabelValues(tier, result).Inc()
}
