// Package nominatim resolves free-form addresses with the OSM Nominatim API.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/geogrub/internal/domain"
	"github.com/kailas-cloud/geogrub/internal/metrics"
)

const (
	// DefaultBaseURL is the public Nominatim instance.
	DefaultBaseURL = "https://nominatim.openstreetmap.org"
	// DefaultUserAgent identifies the application, as the usage policy requires.
	DefaultUserAgent = "geogrub/1.0"

	providerName = "nominatim"
)

type result struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocoder looks up the first Nominatim match for a query.
type Geocoder struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// Config holds the geocoder settings.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// NewGeocoder creates a Nominatim geocoder.
func NewGeocoder(cfg Config) *Geocoder {
	g := &Geocoder{
		baseURL:    DefaultBaseURL,
		userAgent:  DefaultUserAgent,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	if cfg.BaseURL != "" {
		g.baseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.UserAgent != "" {
		g.userAgent = cfg.UserAgent
	}
	if cfg.Timeout > 0 {
		g.httpClient.Timeout = cfg.Timeout
	}
	return g
}

// Geocode returns the coordinate of the best match. found is false when
// Nominatim has no match; err is set only for transport or decode failures.
func (g *Geocoder) Geocode(ctx context.Context, query string) (c domain.Coordinate, found bool, err error) {
	start := time.Now()
	defer func() { metrics.ObserveProviderRequest(providerName, "geocode", start, err) }()

	u := g.baseURL + "/search?" + url.Values{
		"q":      {query},
		"format": {"json"},
		"limit":  {"1"},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.Coordinate{}, false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return domain.Coordinate{}, false, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Coordinate{}, false, &domain.HTTPStatusError{Provider: providerName, StatusCode: resp.StatusCode}
	}

	var results []result
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return domain.Coordinate{}, false, fmt.Errorf("decoding geocoding response: %w", err)
	}
	if len(results) == 0 {
		return domain.Coordinate{}, false, nil
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return domain.Coordinate{}, false, fmt.Errorf("invalid latitude %q: %w", results[0].Lat, err)
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return domain.Coordinate{}, false, fmt.Errorf("invalid longitude %q: %w", results[0].Lon, err)
	}
	return domain.Coordinate{Lat: lat, Lng: lng}, true, nil
}
