package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/incident-lookup-service/internal/domain"
	"github.com/couchcryptid/incident-lookup-service/internal/observability"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// User-facing messages for terminal search outcomes.
const (
	MessageAddressNotFound = "address not found"
	MessageUnavailable     = "incident data is temporarily unavailable"
)

// DefaultFailureThreshold is the number of consecutive dataset failures after
// which the searcher reports itself not ready.
const DefaultFailureThreshold = 5

var (
	// ErrMissingAddress is returned for a search without an address. No
	// upstream call is made.
	ErrMissingAddress = errors.New("address is required")

	// ErrInvalidRequest wraps any other rejected search input.
	ErrInvalidRequest = errors.New("invalid search request")
)

// SearchRequest is one inbound search. Zero values select defaults: the
// configured radius and the one-week window.
type SearchRequest struct {
	Address      string `validate:"required,max=512"`
	RadiusMeters int    `validate:"min=1,max=5000"`
	TimeRange    string
	Neighborhood string `validate:"max=128"`
}

// Options tunes a Searcher.
type Options struct {
	// Limit caps records fetched per search; zero leaves it to the source.
	Limit            int
	DefaultRadius    int
	FailureThreshold int
}

// Searcher composes geocoding, query building, fetching and normalization
// into one request/response cycle.
type Searcher struct {
	geocoder domain.Geocoder
	source   domain.IncidentSource
	validate *validator.Validate
	logger   *slog.Logger
	metrics  *observability.Metrics

	limit            int
	defaultRadius    int
	failureThreshold int64

	consecutiveFailures atomic.Int64
}

// New creates a Searcher over the given ports.
func New(g domain.Geocoder, src domain.IncidentSource, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Searcher {
	s := &Searcher{
		geocoder:         g,
		source:           src,
		validate:         validator.New(),
		logger:           logger,
		metrics:          metrics,
		limit:            opts.Limit,
		defaultRadius:    opts.DefaultRadius,
		failureThreshold: int64(opts.FailureThreshold),
	}
	if s.defaultRadius <= 0 {
		s.defaultRadius = domain.DefaultRadiusMeters
	}
	if s.failureThreshold <= 0 {
		s.failureThreshold = DefaultFailureThreshold
	}
	return s
}

// CheckReadiness fails once the dataset has failed failureThreshold times in a
// row. The next successful fetch clears it.
func (s *Searcher) CheckReadiness(_ context.Context) error {
	if n := s.consecutiveFailures.Load(); n >= s.failureThreshold {
		return fmt.Errorf("incident dataset failed %d consecutive requests", n)
	}
	return nil
}

// Search runs one search. The returned error is non-nil only for rejected
// input (ErrMissingAddress or ErrInvalidRequest); every upstream outcome is
// reported through the result's Status.
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (domain.SearchResult, error) {
	req = s.withDefaults(req)
	if err := s.validateRequest(req); err != nil {
		return domain.SearchResult{}, err
	}

	start := time.Now()
	requestID := RequestIDFromContext(ctx)
	logger := s.logger.With(
		"request_id", requestID,
		"address", req.Address,
		"radius", req.RadiusMeters,
		"time_range", req.TimeRange,
	)

	result := s.run(ctx, req, logger)

	elapsed := time.Since(start)
	s.metrics.Searches.WithLabelValues(string(result.Status)).Inc()
	s.metrics.SearchDuration.Observe(elapsed.Seconds())
	logger.Info("search completed",
		"status", string(result.Status),
		"count", len(result.Reports),
		"duration", elapsed,
	)
	return result, nil
}

func (s *Searcher) run(ctx context.Context, req SearchRequest, logger *slog.Logger) domain.SearchResult {
	geo, err := s.geocoder.Geocode(ctx, req.Address)
	if err != nil {
		if errors.Is(err, domain.ErrAddressNotFound) {
			logger.Info("address did not resolve")
		} else {
			logger.Warn("geocoder failed", "error", err)
		}
		return domain.SearchResult{
			Status:  domain.StatusError,
			Reports: []domain.ReportCard{},
			Message: MessageAddressNotFound,
		}
	}
	center := geo.Coordinates

	filter := domain.BuildQuery(domain.QueryParams{
		Center:       &center,
		RadiusMeters: req.RadiusMeters,
		TimeRange:    req.TimeRange,
		Area:         req.Neighborhood,
		Limit:        s.limit,
		Order:        domain.SortOrderFor(req.TimeRange),
	})

	records, err := s.source.Fetch(ctx, filter)
	if err != nil {
		// A caller that went away says nothing about the dataset's health.
		failures := s.consecutiveFailures.Load()
		if ctx.Err() == nil {
			failures = s.consecutiveFailures.Add(1)
		}
		logger.Warn("incident fetch failed", "error", err, "consecutive_failures", failures)
		return domain.SearchResult{
			Status:  domain.StatusUnavailable,
			Reports: []domain.ReportCard{},
			Center:  &center,
			Message: MessageUnavailable,
		}
	}
	s.consecutiveFailures.Store(0)

	result := domain.Normalize(records, center)
	result.Center = &center
	if result.Dropped > 0 {
		s.metrics.ReportsDropped.Add(float64(result.Dropped))
		logger.Debug("dropped records with unusable coordinates",
			"dropped", result.Dropped,
			"fetched", len(records),
		)
	}
	return result
}

func (s *Searcher) withDefaults(req SearchRequest) SearchRequest {
	req.Address = strings.TrimSpace(req.Address)
	req.Neighborhood = strings.TrimSpace(req.Neighborhood)
	req.TimeRange = strings.TrimSpace(req.TimeRange)
	if req.RadiusMeters == 0 {
		req.RadiusMeters = s.defaultRadius
	}
	if req.TimeRange == "" {
		req.TimeRange = domain.DefaultTimeRange
	}
	return req
}

func (s *Searcher) validateRequest(req SearchRequest) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	for _, fe := range fieldErrs {
		if fe.Field() == "Address" && fe.Tag() == "required" {
			return ErrMissingAddress
		}
	}
	fe := fieldErrs[0]
	return fmt.Errorf("%w: %s failed %s=%s", ErrInvalidRequest, fieldName(fe.Field()), fe.Tag(), fe.Param())
}

// fieldName maps struct fields to the parameter names callers use.
func fieldName(field string) string {
	switch field {
	case "RadiusMeters":
		return "radius"
	default:
		return strings.ToLower(field)
	}
}

type requestIDKey struct{}

// WithRequestID returns a context carrying id for search logging.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request ID set by WithRequestID, or a new
// random one.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}
