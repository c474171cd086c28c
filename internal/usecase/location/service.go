package location

import (
	"context"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/geogrub/internal/domain"
)

// DefaultCountrySuffix disambiguates bare city or postal-code input.
const DefaultCountrySuffix = "USA"

// Service turns location text into a coordinate.
type Service struct {
	cache         CoordinateCache
	geocoder      Geocoder
	locator       Locator
	countrySuffix string
	logger        *zap.Logger
}

// New creates a location service. locator can be nil, which disables NearMe.
func New(cache CoordinateCache, geocoder Geocoder, locator Locator, countrySuffix string, logger *zap.Logger) *Service {
	return &Service{
		cache:         cache,
		geocoder:      geocoder,
		locator:       locator,
		countrySuffix: countrySuffix,
		logger:        logger,
	}
}

// Resolve returns the coordinate for query. Results are memoized under the
// exact query string, so a repeated query never reaches the network.
func (s *Service) Resolve(ctx context.Context, query string) (domain.Coordinate, error) {
	if strings.TrimSpace(query) == "" {
		return domain.Coordinate{}, &domain.ResolutionError{Kind: domain.ResolutionNotFound, Query: query}
	}

	if c, ok := s.cache.CoordinateOf(ctx, query); ok {
		return c, nil
	}

	if c, ok := ParseCoordinate(query); ok {
		s.cache.StoreCoordinate(ctx, query, c)
		return c, nil
	}

	normalized := Normalize(query, s.countrySuffix)
	c, found, err := s.geocoder.Geocode(ctx, normalized)
	if err != nil {
		s.logger.Warn("Geocoding failed", zap.String("query", normalized), zap.Error(err))
		return domain.Coordinate{}, &domain.ResolutionError{
			Kind:  domain.ResolutionProviderUnavailable,
			Query: query,
			Err:   err,
		}
	}
	if !found {
		return domain.Coordinate{}, &domain.ResolutionError{Kind: domain.ResolutionNotFound, Query: query}
	}

	s.cache.StoreCoordinate(ctx, query, c)
	return c, nil
}

// NearMe approximates the caller's position and returns it as a query string
// that Resolve parses without geocoding.
func (s *Service) NearMe(ctx context.Context) (string, domain.Coordinate, error) {
	if s.locator == nil {
		return "", domain.Coordinate{}, &domain.ResolutionError{Kind: domain.ResolutionProviderUnavailable}
	}
	c, err := s.locator.Locate(ctx)
	if err != nil {
		return "", domain.Coordinate{}, &domain.ResolutionError{
			Kind: domain.ResolutionProviderUnavailable,
			Err:  err,
		}
	}
	return c.Query(), c, nil
}

// ParseCoordinate accepts exactly two comma-separated decimal numbers.
func ParseCoordinate(query string) (domain.Coordinate, bool) {
	parts := strings.Split(query, ",")
	if len(parts) != 2 {
		return domain.Coordinate{}, false
	}
	lat, ok := parseDecimal(parts[0])
	if !ok {
		return domain.Coordinate{}, false
	}
	lng, ok := parseDecimal(parts[1])
	if !ok {
		return domain.Coordinate{}, false
	}
	return domain.Coordinate{Lat: lat, Lng: lng}, true
}

// Normalize trims query and appends the country suffix when it has no comma.
func Normalize(query, countrySuffix string) string {
	q := strings.TrimSpace(query)
	if countrySuffix != "" && !strings.Contains(q, ",") {
		q += ", " + countrySuffix
	}
	return q
}

// parseDecimal accepts plain decimal notation only: an optional sign,
// digits and at most one point. Hex, exponent, inf and nan forms fall
// through to geocoding.
func parseDecimal(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	digits := strings.TrimLeft(s, "+-")
	if len(s)-len(digits) > 1 || strings.Count(digits, ".") > 1 ||
		strings.Trim(digits, "0123456789.") != "" || strings.Trim(digits, ".") == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
