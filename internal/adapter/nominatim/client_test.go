package nominatim

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/incident-lookup-service/internal/domain"
	"github.com/couchcryptid/incident-lookup-service/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testUserAgent     = "pulse-test/1.0"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testClient(baseURL string) (*Client, *observability.Metrics) {
	m := observability.NewMetricsForTesting()
	return NewClient(Options{
		BaseURL:   baseURL,
		UserAgent: testUserAgent,
		Timeout:   5 * time.Second,
		RateLimit: 1000,
	}, m, slog.New(slog.NewTextHandler(io.Discard, nil))), m
}

func TestClient_Geocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "400 Broad St, Seattle, WA", r.URL.Query().Get("q"))
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, testUserAgent, r.Header.Get("User-Agent"))

		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode([]place{{
			Lat:         "47.6205063",
			Lon:         "-122.3492774",
			DisplayName: "Space Needle, 400, Broad Street, Seattle, Washington",
		}}))
	}))
	defer srv.Close()

	c, m := testClient(srv.URL)
	result, err := c.Geocode(context.Background(), "400 Broad St, Seattle, WA")
	require.NoError(t, err)

	assert.InDelta(t, 47.6205063, result.Lat, 1e-9)
	assert.InDelta(t, -122.3492774, result.Lon, 1e-9)
	assert.Contains(t, result.DisplayName, "Space Needle")
	assert.InDelta(t, 1, testutil.ToFloat64(m.GeocodeRequests.WithLabelValues(provider, "success")), 0)
}

func TestClient_Geocode_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	c, m := testClient(srv.URL)
	_, err := c.Geocode(context.Background(), "Nowhere Lane 99999")
	require.ErrorIs(t, err, domain.ErrAddressNotFound)
	assert.InDelta(t, 1, testutil.ToFloat64(m.GeocodeRequests.WithLabelValues(provider, "not_found")), 0)
}

func TestClient_Geocode_Failures(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{name: "server error", body: "boom", code: http.StatusInternalServerError},
		{name: "blocked", body: "usage policy", code: http.StatusForbidden},
		{name: "malformed json", body: `[{`, code: http.StatusOK},
		{name: "bad latitude", body: `[{"lat":"north","lon":"-122.3"}]`, code: http.StatusOK},
		{name: "bad longitude", body: `[{"lat":"47.6","lon":""}]`, code: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c, m := testClient(srv.URL)
			_, err := c.Geocode(context.Background(), "somewhere")
			require.Error(t, err)
			assert.NotErrorIs(t, err, domain.ErrAddressNotFound)
			assert.InDelta(t, 1, testutil.ToFloat64(m.GeocodeRequests.WithLabelValues(provider, "error")), 0)
		})
	}
}

func TestClient_Geocode_RateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[{"lat":"47.6","lon":"-122.3"}]`)
	}))
	defer srv.Close()

	m := observability.NewMetricsForTesting()
	c := NewClient(Options{
		BaseURL:   srv.URL,
		UserAgent: testUserAgent,
		Timeout:   time.Second,
		RateLimit: 0.001,
	}, m, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := c.Geocode(context.Background(), "first")
	require.NoError(t, err, "burst of one lets the first request through")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Geocode(ctx, "second")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}

func TestNewClient_DefaultBaseURL(t *testing.T) {
	c, _ := testClient("")
	assert.Equal(t, DefaultBaseURL, c.baseURL)
}
