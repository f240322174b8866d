// Package geocoding selects the configured geocoder adapter.
package geocoding

import (
	"log/slog"

	"github.com/couchcryptid/incident-lookup-service/internal/adapter/mapbox"
	"github.com/couchcryptid/incident-lookup-service/internal/adapter/nominatim"
	"github.com/couchcryptid/incident-lookup-service/internal/config"
	"github.com/couchcryptid/incident-lookup-service/internal/domain"
	"github.com/couchcryptid/incident-lookup-service/internal/observability"
)

// New returns the geocoder named by cfg.GeocoderProvider. Config validation
// guarantees the provider is known; anything else falls back to Nominatim.
func New(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) domain.Geocoder {
	logger.Info("geocoder configured",
		"provider", cfg.GeocoderProvider,
		"timeout", cfg.GeocoderTimeout,
		"rate_limit", cfg.GeocoderRateLimit,
	)
	if cfg.GeocoderProvider == config.ProviderMapbox {
		return mapbox.NewClient(mapbox.Options{
			BaseURL:   cfg.GeocoderURL,
			Token:     cfg.MapboxToken,
			Timeout:   cfg.GeocoderTimeout,
			RateLimit: cfg.GeocoderRateLimit,
		}, metrics, logger)
	}
	return nominatim.NewClient(nominatim.Options{
		BaseURL:   cfg.GeocoderURL,
		UserAgent: cfg.GeocoderUserAgent,
		Timeout:   cfg.GeocoderTimeout,
		RateLimit: cfg.GeocoderRateLimit,
	}, metrics, logger)
}
