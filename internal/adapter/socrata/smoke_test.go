//go:build socrata

package socrata

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/couchcryptid/incident-lookup-service/internal/domain"
	"github.com/couchcryptid/incident-lookup-service/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests hit the live Seattle open data portal. SEATTLE_API_KEY_ID is optional.
// Run with: go test -tags=socrata ./internal/adapter/socrata/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	return NewClient(Options{
		ResourceURL:  "https://data.seattle.gov/resource/tazs-3rd5.json",
		AppToken:     os.Getenv("SEATTLE_API_KEY_ID"),
		Timeout:      45 * time.Second,
		DefaultLimit: 20,
		Location:     loc,
	}, observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSmoke_FetchNearSpaceNeedle(t *testing.T) {
	c := smokeClient(t)
	filter := domain.BuildQuery(domain.QueryParams{
		Center:       &domain.Coordinates{Lat: 47.6205, Lon: -122.3493},
		RadiusMeters: 1000,
		TimeRange:    "1y",
		Limit:        20,
	})

	records, err := c.Fetch(context.Background(), filter)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(records), 20)

	result := domain.Normalize(records, domain.Coordinates{Lat: 47.6205, Lon: -122.3493})
	for _, r := range result.Reports {
		assert.LessOrEqual(t, r.DistanceMeters, 1500, "box corners are at most ~1.41x the radius")
	}
}

func TestSmoke_FetchNeighborhood(t *testing.T) {
	c := smokeClient(t)
	filter := domain.BuildQuery(domain.QueryParams{TimeRange: "1m", Area: "downtown commercial", Limit: 5})

	records, err := c.Fetch(context.Background(), filter)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(records), 5)
}
