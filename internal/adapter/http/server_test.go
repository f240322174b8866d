package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	httpadapter "github.com/couchcryptid/incident-lookup-service/internal/adapter/http"
	"github.com/couchcryptid/incident-lookup-service/internal/domain"
	"github.com/couchcryptid/incident-lookup-service/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockSearcher struct {
	result    domain.SearchResult
	err       error
	got       pipeline.SearchRequest
	requestID string
	called    bool
}

func (m *mockSearcher) Search(ctx context.Context, req pipeline.SearchRequest) (domain.SearchResult, error) {
	m.called = true
	m.got = req
	m.requestID = pipeline.RequestIDFromContext(ctx)
	return m.result, m.err
}

func newTestServer(searcher *mockSearcher, readyErr error) *httpadapter.Server {
	return httpadapter.NewServer(":0", searcher, &mockReadiness{err: readyErr},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		httpadapter.Options{AllowedOrigins: []string{"https://pulse.example.com"}})
}

func serve(t *testing.T, srv *httpadapter.Server, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var body map[string]any
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func successResult() domain.SearchResult {
	center := domain.Coordinates{Lat: 47.6205, Lon: -122.3493}
	return domain.SearchResult{
		Status: domain.StatusSuccess,
		Reports: []domain.ReportCard{{
			Category:       "THEFT-SHOPLIFT",
			Group:          domain.GroupProperty,
			FormattedDate:  "Jan 04, 2026, 02:30 PM",
			DistanceLabel:  "312m away",
			DistanceMeters: 312,
			Coords:         [2]float64{47.6211, -122.3452},
		}},
		Center:  &center,
		Dropped: 4,
	}
}

func TestSearch_Success(t *testing.T) {
	searcher := &mockSearcher{result: successResult()}
	srv := newTestServer(searcher, nil)

	req := httptest.NewRequest(http.MethodGet,
		"/api/search?address=400+Broad+St&radius=500&time_range=1m&neighborhood=Belltown", nil)
	req.Header.Set(httpadapter.RequestIDHeader, "req-42")
	rec, body := serve(t, srv, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-42", rec.Header().Get(httpadapter.RequestIDHeader))
	assert.Equal(t, pipeline.SearchRequest{
		Address:      "400 Broad St",
		RadiusMeters: 500,
		TimeRange:    "1m",
		Neighborhood: "Belltown",
	}, searcher.got)
	assert.Equal(t, "req-42", searcher.requestID)

	assert.Equal(t, "success", body["status"])
	assert.Equal(t, map[string]any{"lat": 47.6205, "lon": -122.3493}, body["metadata"])
	assert.NotContains(t, body, "message")
	assert.NotContains(t, body, "Dropped")

	reports, ok := body["reports"].([]any)
	require.True(t, ok)
	require.Len(t, reports, 1)
	card := reports[0].(map[string]any)
	assert.Equal(t, "THEFT-SHOPLIFT", card["type"])
	assert.Equal(t, "property", card["group"])
	assert.Equal(t, "Jan 04, 2026, 02:30 PM", card["date"])
	assert.Equal(t, "312m away", card["distance"])
	assert.InDelta(t, 312, card["raw_dist"], 0)
	assert.Equal(t, []any{47.6211, -122.3452}, card["coords"])
}

func TestSearch_GeneratesRequestID(t *testing.T) {
	searcher := &mockSearcher{result: successResult()}
	srv := newTestServer(searcher, nil)

	rec, _ := serve(t, srv, httptest.NewRequest(http.MethodGet, "/api/search?address=Pike+Place", nil))

	id := rec.Header().Get(httpadapter.RequestIDHeader)
	assert.Len(t, id, 36)
	assert.Equal(t, id, searcher.requestID)
}

func TestSearch_OmittedParamsLeftToSearcher(t *testing.T) {
	searcher := &mockSearcher{result: successResult()}
	srv := newTestServer(searcher, nil)

	serve(t, srv, httptest.NewRequest(http.MethodGet, "/api/search?address=Pike+Place", nil))

	assert.Equal(t, pipeline.SearchRequest{Address: "Pike Place"}, searcher.got)
}

func TestSearch_StatusMapping(t *testing.T) {
	tests := []struct {
		status   domain.Status
		wantCode int
	}{
		{domain.StatusSuccess, http.StatusOK},
		{domain.StatusEmpty, http.StatusOK},
		{domain.StatusError, http.StatusNotFound},
		{domain.StatusUnavailable, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			searcher := &mockSearcher{result: domain.SearchResult{
				Status:  tt.status,
				Reports: []domain.ReportCard{},
				Message: "msg",
			}}
			srv := newTestServer(searcher, nil)

			rec, body := serve(t, srv, httptest.NewRequest(http.MethodGet, "/api/search?address=x", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, string(tt.status), body["status"])
			assert.Equal(t, []any{}, body["reports"])
		})
	}
}

func TestSearch_InputErrors(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		searchErr   error
		wantMessage string
		wantCalled  bool
	}{
		{
			name:        "missing address",
			query:       "",
			searchErr:   pipeline.ErrMissingAddress,
			wantMessage: "address is required",
			wantCalled:  true,
		},
		{
			name:        "non-integer radius",
			query:       "address=x&radius=wide",
			wantMessage: "radius must be an integer number of meters",
		},
		{
			name:        "radius out of range",
			query:       "address=x&radius=9000",
			searchErr:   fmt.Errorf("%w: radius failed max=5000", pipeline.ErrInvalidRequest),
			wantMessage: "invalid search request: radius failed max=5000",
			wantCalled:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := &mockSearcher{err: tt.searchErr}
			srv := newTestServer(searcher, nil)

			rec, body := serve(t, srv, httptest.NewRequest(http.MethodGet, "/api/search?"+tt.query, nil))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "error", body["status"])
			assert.Equal(t, tt.wantMessage, body["message"])
			assert.Equal(t, tt.wantCalled, searcher.called)
		})
	}
}

func TestSearch_UnexpectedError(t *testing.T) {
	srv := newTestServer(&mockSearcher{err: errors.New("boom")}, nil)

	rec, body := serve(t, srv, httptest.NewRequest(http.MethodGet, "/api/search?address=x", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", body["message"])
}

func TestSearch_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(&mockSearcher{}, nil)

	rec, _ := serve(t, srv, httptest.NewRequest(http.MethodPost, "/api/search?address=x", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORS(t *testing.T) {
	srv := newTestServer(&mockSearcher{result: successResult()}, nil)

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/search?address=x", nil)
		req.Header.Set("Origin", "https://pulse.example.com")
		rec, _ := serve(t, srv, req)

		assert.Equal(t, "https://pulse.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), http.CanonicalHeaderKey(httpadapter.RequestIDHeader))
	})

	t.Run("foreign origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/search?address=x", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec, _ := serve(t, srv, req)

		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/search", nil)
		req.Header.Set("Origin", "https://pulse.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		assert.Equal(t, "https://pulse.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Less(t, rec.Code, 300)
	})
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(&mockSearcher{}, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(&mockSearcher{}, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(&mockSearcher{}, fmt.Errorf("incident dataset failed 5 consecutive requests"))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(&mockSearcher{}, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
