package search

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/geogrub/internal/domain"
	"github.com/kailas-cloud/geogrub/internal/metrics"
)

const (
	// DefaultCategory is the place type searched for.
	DefaultCategory = "restaurant"
	// DefaultRadiusMeters is used when a search does not set a radius.
	DefaultRadiusMeters = 5000
	// DefaultPageDelay is how long a continuation token needs before the
	// provider accepts it. Shorter configured delays are raised to it.
	DefaultPageDelay = 2 * time.Second
)

// Config holds aggregator settings.
type Config struct {
	Category     string
	RadiusMeters int
	// MaxPages caps pages for searches that leave it at 0. Zero here or a
	// negative request value follows every continuation token.
	MaxPages  int
	PageDelay time.Duration
	// KeyIncludesParams keys cached result sets by query, radius and page cap
	// instead of the query alone.
	KeyIncludesParams bool
}

// Service aggregates paginated nearby-search results.
type Service struct {
	provider NearbySearcher
	cache    ResultCache
	cfg      Config
	sleep    func(ctx context.Context, d time.Duration) error
	logger   *zap.Logger
}

// New creates a search aggregator.
func New(provider NearbySearcher, cache ResultCache, cfg Config, logger *zap.Logger) *Service {
	if cfg.Category == "" {
		cfg.Category = DefaultCategory
	}
	if cfg.RadiusMeters <= 0 {
		cfg.RadiusMeters = DefaultRadiusMeters
	}
	if cfg.PageDelay < DefaultPageDelay {
		cfg.PageDelay = DefaultPageDelay
	}
	return &Service{
		provider: provider,
		cache:    cache,
		cfg:      cfg,
		sleep:    sleepContext,
		logger:   logger,
	}
}

// Search returns every place near center, following continuation tokens up
// to opts.MaxPages. The complete set is cached under the query string, and a
// cached set is returned without touching the provider even if center differs.
func (s *Service) Search(
	ctx context.Context, query string, center domain.Coordinate, opts domain.SearchOptions,
) ([]domain.PlaceSummary, error) {
	opts = s.withDefaults(opts)
	key := s.CacheKey(query, opts)

	if cached, ok := s.cache.ResultsOf(ctx, key); ok {
		return cached, nil
	}

	results, err := s.fetchAll(ctx, center, opts)
	if err != nil {
		return nil, err
	}

	s.cache.StoreResults(ctx, key, results)
	s.logger.Debug("Search aggregated",
		zap.String("query", query),
		zap.Int("results", len(results)),
	)
	return results, nil
}

// Cached returns the result set a previous Search stored for query. When
// keys include params and opts leaves MaxPages unset, an all-pages set for
// the same query and radius also answers.
func (s *Service) Cached(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.PlaceSummary, error) {
	unset := opts.MaxPages == 0
	opts = s.withDefaults(opts)
	if results, ok := s.cache.ResultsOf(ctx, s.CacheKey(query, opts)); ok {
		return results, nil
	}
	if s.cfg.KeyIncludesParams && unset && opts.MaxPages > 0 {
		opts.MaxPages = -1
		if results, ok := s.cache.ResultsOf(ctx, s.CacheKey(query, opts)); ok {
			return results, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrNotCached, query)
}

// CacheKey returns the result-set key for a query. With params included,
// every uncapped page count renders as "all".
func (s *Service) CacheKey(query string, opts domain.SearchOptions) string {
	if !s.cfg.KeyIncludesParams {
		return query
	}
	pages := "all"
	if opts.MaxPages > 0 {
		pages = strconv.Itoa(opts.MaxPages)
	}
	return fmt.Sprintf("%s|%d|%s", query, opts.RadiusMeters, pages)
}

func (s *Service) fetchAll(
	ctx context.Context, center domain.Coordinate, opts domain.SearchOptions,
) ([]domain.PlaceSummary, error) {
	var (
		results []domain.PlaceSummary
		token   string
		pages   int
	)

	for {
		page, err := s.provider.NearbySearch(ctx, domain.NearbyRequest{
			Center:       center,
			RadiusMeters: opts.RadiusMeters,
			Category:     s.cfg.Category,
			PageToken:    token,
		})
		if err != nil {
			return nil, &domain.SearchError{
				ProviderFailure: domain.TransportFailure(domain.HTTPStatusOf(err), err),
			}
		}
		if page.Status != domain.StatusOK && page.Status != domain.StatusZeroResults {
			return nil, &domain.SearchError{ProviderFailure: domain.StatusFailure(page.Status)}
		}

		pages++
		metrics.SearchPagesTotal.Inc()
		for _, p := range page.Results {
			results = append(results, p.WithDistanceFrom(center))
		}

		if page.NextPageToken == "" || (opts.MaxPages > 0 && pages >= opts.MaxPages) {
			break
		}
		if err := s.sleep(ctx, s.cfg.PageDelay); err != nil {
			return nil, fmt.Errorf("wait for page %d: %w", pages+1, err)
		}
		token = page.NextPageToken
	}

	if results == nil {
		results = []domain.PlaceSummary{}
	}
	return results, nil
}

func (s *Service) withDefaults(opts domain.SearchOptions) domain.SearchOptions {
	if opts.RadiusMeters <= 0 {
		opts.RadiusMeters = s.cfg.RadiusMeters
	}
	if opts.MaxPages == 0 {
		opts.MaxPages = s.cfg.MaxPages
	}
	return opts
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
