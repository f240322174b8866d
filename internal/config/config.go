package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // DATASET_TIMEZONE must resolve in minimal containers

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Geocoder providers accepted by GEOCODER_PROVIDER.
const (
	ProviderNominatim = "nominatim"
	ProviderMapbox    = "mapbox"
)

const (
	defaultDatasetURL = "https://data.seattle.gov/resource/tazs-3rd5.json"
	maxRadiusMeters   = 5000
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr           string
	LogLevel           string
	LogFormat          string
	ShutdownTimeout    time.Duration
	CORSAllowedOrigins []string
	DefaultRadius      int

	// Incident dataset (Socrata) configuration.
	DatasetURL      string
	DatasetAppToken string
	DatasetTimeout  time.Duration
	DatasetLimit    int
	DatasetLocation *time.Location

	// Geocoding configuration.
	GeocoderProvider  string
	GeocoderURL       string
	GeocoderUserAgent string
	GeocoderTimeout   time.Duration
	GeocoderRateLimit float64
	MapboxToken       string
}

// Load reads configuration from environment variables, applying defaults where unset.
// A .env file in the working directory is honoured when present; real environment
// variables take precedence over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	datasetTimeout, err := parsePositiveDuration("DATASET_TIMEOUT", "45s")
	if err != nil {
		return nil, err
	}
	geocoderTimeout, err := parsePositiveDuration("GEOCODER_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	datasetLimit, err := parsePositiveInt("DATASET_LIMIT", "500")
	if err != nil {
		return nil, err
	}
	defaultRadius, err := parsePositiveInt("DEFAULT_RADIUS", "250")
	if err != nil {
		return nil, err
	}
	if defaultRadius > maxRadiusMeters {
		return nil, fmt.Errorf("invalid DEFAULT_RADIUS: must be at most %d", maxRadiusMeters)
	}

	rateLimit, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("GEOCODER_RATE_LIMIT", "1"), 64)
	if err != nil || rateLimit <= 0 {
		return nil, errors.New("invalid GEOCODER_RATE_LIMIT")
	}

	loc, err := time.LoadLocation(sharedcfg.EnvOrDefault("DATASET_TIMEZONE", "America/Los_Angeles"))
	if err != nil {
		return nil, fmt.Errorf("invalid DATASET_TIMEZONE: %w", err)
	}

	cfg := &Config{
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		CORSAllowedOrigins: parseList(sharedcfg.EnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),
		DefaultRadius:      defaultRadius,

		DatasetURL:      sharedcfg.EnvOrDefault("DATASET_URL", defaultDatasetURL),
		DatasetAppToken: os.Getenv("SEATTLE_API_KEY_ID"),
		DatasetTimeout:  datasetTimeout,
		DatasetLimit:    datasetLimit,
		DatasetLocation: loc,

		GeocoderProvider:  strings.ToLower(sharedcfg.EnvOrDefault("GEOCODER_PROVIDER", ProviderNominatim)),
		GeocoderURL:       os.Getenv("GEOCODER_URL"),
		GeocoderUserAgent: sharedcfg.EnvOrDefault("GEOCODER_USER_AGENT", "emerald-city-pulse"),
		GeocoderTimeout:   geocoderTimeout,
		GeocoderRateLimit: rateLimit,
		MapboxToken:       os.Getenv("MAPBOX_TOKEN"),
	}

	if u, err := url.Parse(cfg.DatasetURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.New("invalid DATASET_URL")
	}
	switch cfg.GeocoderProvider {
	case ProviderNominatim:
	case ProviderMapbox:
		if cfg.MapboxToken == "" {
			return nil, errors.New("GEOCODER_PROVIDER is mapbox but MAPBOX_TOKEN is not set")
		}
	default:
		return nil, fmt.Errorf("invalid GEOCODER_PROVIDER %q: want nominatim or mapbox", cfg.GeocoderProvider)
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		return nil, errors.New("CORS_ALLOWED_ORIGINS must list at least one origin")
	}

	return cfg, nil
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key, fallback string) (int, error) {
	n, err := strconv.Atoi(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
