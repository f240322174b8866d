package mapbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/incident-lookup-service/internal/domain"
	"github.com/couchcryptid/incident-lookup-service/internal/observability"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the Mapbox forward geocoding endpoint.
	DefaultBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

	provider = "mapbox"

	// minRelevance rejects fuzzy matches; Mapbox returns a best guess for
	// almost any query.
	minRelevance = 0.5
)

// Client implements domain.Geocoder using the Mapbox Geocoding API.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// Options configures a Client. RateLimit is in requests per second.
type Options struct {
	BaseURL   string
	Token     string
	Timeout   time.Duration
	RateLimit float64
}

// NewClient creates a Mapbox geocoding client.
func NewClient(opts Options, metrics *observability.Metrics, logger *slog.Logger) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		token: opts.Token,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		baseURL: baseURL,
		limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		metrics: metrics,
		logger:  logger,
	}
}

// Geocode converts a free-form address to coordinates. No feature, or only
// low-relevance features, yields domain.ErrAddressNotFound.
func (c *Client) Geocode(ctx context.Context, address string) (domain.GeocodingResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		c.metrics.GeocodeRequests.WithLabelValues(provider, "error").Inc()
		return domain.GeocodingResult{}, fmt.Errorf("mapbox rate limit: %w", err)
	}

	u := fmt.Sprintf("%s/%s.json", c.baseURL, url.PathEscape(address))
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
		"types":        {"address,poi,neighborhood,place"},
	}

	start := time.Now()
	result, err := c.doRequest(ctx, u+"?"+params.Encode())
	c.metrics.GeocodeAPIDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, domain.ErrAddressNotFound):
		c.metrics.GeocodeRequests.WithLabelValues(provider, "not_found").Inc()
		c.logger.Debug("address not found", "provider", provider, "address", address)
	case err != nil:
		c.metrics.GeocodeRequests.WithLabelValues(provider, "error").Inc()
		c.logger.Warn("geocode request failed", "provider", provider, "error", err)
	default:
		c.metrics.GeocodeRequests.WithLabelValues(provider, "success").Inc()
	}
	return result, err
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.GeocodingResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The URL carries the access token; report the transport error alone.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return domain.GeocodingResult{}, fmt.Errorf("forward geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.GeocodingResult{}, fmt.Errorf("mapbox API error: status %d: %s", resp.StatusCode, body)
	}

	var mapboxResp response
	if err := json.NewDecoder(resp.Body).Decode(&mapboxResp); err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("decode response: %w", err)
	}

	if len(mapboxResp.Features) == 0 {
		return domain.GeocodingResult{}, domain.ErrAddressNotFound
	}

	f := mapboxResp.Features[0]
	if f.Relevance < minRelevance || len(f.Center) != 2 {
		return domain.GeocodingResult{}, domain.ErrAddressNotFound
	}
	return domain.GeocodingResult{
		Coordinates: domain.Coordinates{Lat: f.Center[1], Lon: f.Center[0]},
		DisplayName: f.PlaceName,
	}, nil
}

// Mapbox API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	Center    []float64 `json:"center"` // [lon, lat]
	PlaceName string    `json:"place_name"`
	Relevance float64   `json:"relevance"`
}
