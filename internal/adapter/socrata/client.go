package socrata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/incident-lookup-service/internal/domain"
	"github.com/couchcryptid/incident-lookup-service/internal/observability"
)

// appTokenHeader carries the Socrata application token. Requests without it
// still succeed but share a low anonymous rate limit.
const appTokenHeader = "X-App-Token"

// maxErrorBody bounds how much of an error response is kept for diagnostics.
const maxErrorBody = 512

// Client implements domain.IncidentSource against a Socrata resource endpoint.
type Client struct {
	appToken     string
	httpClient   *http.Client
	resourceURL  string
	location     *time.Location
	defaultLimit int
	metrics      *observability.Metrics
	logger       *slog.Logger
}

// Options configures a Client.
type Options struct {
	ResourceURL  string
	AppToken     string
	Timeout      time.Duration
	DefaultLimit int
	Location     *time.Location
}

// NewClient creates a Socrata dataset client.
func NewClient(opts Options, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if opts.AppToken == "" {
		logger.Warn("no dataset app token configured, requests use the anonymous rate limit")
	}
	return &Client{
		appToken: opts.AppToken,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		resourceURL:  opts.ResourceURL,
		location:     opts.Location,
		defaultLimit: opts.DefaultLimit,
		metrics:      metrics,
		logger:       logger,
	}
}

// Fetch queries the dataset with the filter's time cutoff, spatial predicate,
// limit and ordering. Every failure wraps domain.ErrUpstreamUnavailable.
func (c *Client) Fetch(ctx context.Context, filter domain.QueryFilter) ([]domain.RawIncident, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = c.defaultLimit
	}

	params := url.Values{
		"$where": {buildWhere(filter, c.location)},
		"$order": {buildOrder(filter.Order)},
	}
	if limit > 0 {
		params.Set("$limit", strconv.Itoa(limit))
	}

	start := time.Now()
	records, err := c.doRequest(ctx, c.resourceURL+"?"+params.Encode())
	c.metrics.DatasetAPIDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		c.metrics.DatasetRequests.WithLabelValues("error").Inc()
		c.logger.Warn("dataset request failed", "error", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, err)
	}

	c.metrics.DatasetRequests.WithLabelValues("success").Inc()
	c.metrics.DatasetRecords.Add(float64(len(records)))
	c.logger.Debug("dataset request completed",
		"records", len(records),
		"area", filter.Area,
		"order", string(filter.Order),
	)
	return records, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]domain.RawIncident, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.appToken != "" {
		req.Header.Set(appTokenHeader, c.appToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dataset request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("socrata API error: status %d: %s", resp.StatusCode, body)
	}

	var records []domain.RawIncident
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return records, nil
}
