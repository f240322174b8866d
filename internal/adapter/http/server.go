package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/incident-lookup-service/internal/domain"
	"github.com/couchcryptid/incident-lookup-service/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RequestIDHeader carries the caller's request ID; one is generated when absent.
const RequestIDHeader = "X-Request-ID"

// Searcher runs one incident search.
type Searcher interface {
	Search(ctx context.Context, req pipeline.SearchRequest) (domain.SearchResult, error)
}

// Options configures the HTTP server.
type Options struct {
	AllowedOrigins []string
	// WriteTimeout must cover a geocoder call plus a slow dataset call.
	WriteTimeout time.Duration
}

// Server exposes the search API alongside health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	searcher   Searcher
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /api/search, /healthz, /readyz, and /metrics routes.
func NewServer(addr string, searcher Searcher, ready sharedobs.ReadinessChecker, logger *slog.Logger, opts Options) *Server {
	mux := http.NewServeMux()

	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 60 * time.Second
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s := &Server{
		httpServer: &http.Server{
			Addr: addr,
			Handler: cors.Handler(cors.Options{
				AllowedOrigins: origins,
				AllowedMethods: []string{http.MethodGet, http.MethodOptions},
				AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
				ExposedHeaders: []string{RequestIDHeader},
				MaxAge:         300,
			})(mux),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: writeTimeout,
			IdleTimeout:  60 * time.Second,
		},
		searcher: searcher,
		logger:   logger,
	}

	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, requestID)

	q := r.URL.Query()
	req := pipeline.SearchRequest{
		Address:      q.Get("address"),
		TimeRange:    q.Get("time_range"),
		Neighborhood: q.Get("neighborhood"),
	}
	if raw := q.Get("radius"); raw != "" {
		radius, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "radius must be an integer number of meters")
			return
		}
		req.RadiusMeters = radius
	}

	ctx := pipeline.WithRequestID(r.Context(), requestID)
	result, err := s.searcher.Search(ctx, req)
	if err != nil {
		s.logger.Info("search rejected", "request_id", requestID, "error", err)
		switch {
		case errors.Is(err, pipeline.ErrMissingAddress):
			writeError(w, http.StatusBadRequest, "address is required")
		case errors.Is(err, pipeline.ErrInvalidRequest):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, statusCode(result.Status), result)
}

// statusCode maps a search outcome to its HTTP status.
func statusCode(status domain.Status) int {
	switch status {
	case domain.StatusError:
		return http.StatusNotFound
	case domain.StatusUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusOK
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, domain.SearchResult{
		Status:  domain.StatusError,
		Reports: []domain.ReportCard{},
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
