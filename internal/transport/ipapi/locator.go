// Package ipapi approximates the caller's position from its public IP.
package ipapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kailas-cloud/geogrub/internal/domain"
	"github.com/kailas-cloud/geogrub/internal/metrics"
)

// DefaultBaseURL is the free ip-api endpoint.
const DefaultBaseURL = "http://ip-api.com"

const providerName = "ipapi"

var errLookupFailed = errors.New("ip lookup failed")

type response struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Locator resolves the server's public IP to a coordinate.
type Locator struct {
	baseURL    string
	httpClient *http.Client
}

// NewLocator creates a Locator. An empty baseURL uses DefaultBaseURL.
func NewLocator(baseURL string, timeout time.Duration) *Locator {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Locator{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Locate returns the approximate coordinate of the public IP.
func (l *Locator) Locate(ctx context.Context) (c domain.Coordinate, err error) {
	start := time.Now()
	defer func() { metrics.ObserveProviderRequest(providerName, "locate", start, err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/json", nil)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("creating request: %w", err)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("ip lookup request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Coordinate{}, &domain.HTTPStatusError{Provider: providerName, StatusCode: resp.StatusCode}
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.Coordinate{}, fmt.Errorf("decoding ip lookup: %w", err)
	}
	if body.Status != "success" {
		return domain.Coordinate{}, fmt.Errorf("%w: %s", errLookupFailed, body.Message)
	}
	return domain.Coordinate{Lat: body.Lat, Lng: body.Lon}, nil
}
