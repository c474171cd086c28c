// Package places is a client for the Google Places web service: nearby
// search, place details and photos.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/geogrub/internal/domain"
	"github.com/kailas-cloud/geogrub/internal/metrics"
)

const (
	// DefaultBaseURL is the Places web service root.
	DefaultBaseURL = "https://maps.googleapis.com/maps/api/place"
	// DefaultTimeout bounds a single provider request.
	DefaultTimeout = 15 * time.Second

	providerName = "places"

	// maxPhotoBytes caps a downloaded photo.
	maxPhotoBytes = 20 << 20
)

// DetailFields are the fields requested from the details endpoint.
var DetailFields = []string{
	"place_id", "name", "formatted_address", "formatted_phone_number", "website",
	"rating", "price_level", "reviews", "photos", "opening_hours", "types", "vicinity",
}

// Client talks to the Places web service. It never retries.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithRateLimit throttles outbound requests. Zero or less disables throttling.
func WithRateLimit(requestsPerSecond float64) ClientOption {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = nil
			return
		}
		burst := max(int(requestsPerSecond), 1)
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
}

// WithLogger sets a logger.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Places client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NearbySearch fetches a single page. A non-OK status is returned in the page,
// not as an error; errors are transport failures only.
func (c *Client) NearbySearch(ctx context.Context, req domain.NearbyRequest) (domain.NearbyPage, error) {
	params := url.Values{}
	if req.PageToken != "" {
		// Google ignores the other parameters when a page token is present.
		params.Set("pagetoken", req.PageToken)
	} else {
		params.Set("location", req.Center.String())
		params.Set("radius", strconv.Itoa(req.RadiusMeters))
		if req.Category != "" {
			params.Set("type", req.Category)
		}
	}

	var resp nearbyResponse
	if err := c.getJSON(ctx, "nearby", "/nearbysearch/json", params, &resp); err != nil {
		return domain.NearbyPage{}, err
	}

	page := domain.NearbyPage{
		Status:        resp.Status,
		NextPageToken: resp.NextPageToken,
		Results:       make([]domain.PlaceSummary, 0, len(resp.Results)),
	}
	for i := range resp.Results {
		page.Results = append(page.Results, resp.Results[i].summary())
	}
	return page, nil
}

// Details fetches full detail for one place.
func (c *Client) Details(ctx context.Context, placeID string) (domain.DetailPage, error) {
	params := url.Values{
		"place_id": {placeID},
		"fields":   {strings.Join(DetailFields, ",")},
	}

	var resp detailsResponse
	if err := c.getJSON(ctx, "details", "/details/json", params, &resp); err != nil {
		return domain.DetailPage{}, err
	}
	return domain.DetailPage{Status: resp.Status, Result: resp.Result.detail()}, nil
}

// Photo downloads a photo resampled by the provider to maxWidth.
func (c *Client) Photo(ctx context.Context, ref string, maxWidth int) (domain.Photo, error) {
	params := url.Values{
		"maxwidth":       {strconv.Itoa(maxWidth)},
		"photoreference": {ref},
	}

	start := time.Now()
	resp, err := c.do(ctx, "/photo", params)
	if err != nil {
		metrics.ObserveProviderRequest(providerName, "photo", start, err)
		return domain.Photo{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes))
	if err != nil {
		err = fmt.Errorf("read photo body: %w", err)
	}
	metrics.ObserveProviderRequest(providerName, "photo", start, err)
	if err != nil {
		return domain.Photo{}, err
	}
	return domain.Photo{ContentType: resp.Header.Get("Content-Type"), Data: data}, nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, params url.Values, out any) error {
	start := time.Now()
	resp, err := c.do(ctx, path, params)
	if err != nil {
		metrics.ObserveProviderRequest(providerName, op, start, err)
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		err = fmt.Errorf("decode %s response: %w", op, err)
		metrics.ObserveProviderRequest(providerName, op, start, err)
		return err
	}
	metrics.ObserveProviderRequest(providerName, op, start, nil)
	return nil
}

// do issues a GET and returns the response only when it is 200; the caller
// closes the body.
func (c *Client) do(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	params.Set("key", c.apiKey)
	reqURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	c.logger.Debug("Places request", zap.String("path", path))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("places request %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &domain.HTTPStatusError{Provider: providerName, StatusCode: resp.StatusCode}
	}
	return resp, nil
}
