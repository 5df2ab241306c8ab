package api_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripscope/tripscope/internal/api"
	"github.com/tripscope/tripscope/internal/api/middleware"
	"github.com/tripscope/tripscope/internal/api/models"
	"github.com/tripscope/tripscope/internal/pipeline"
	"github.com/tripscope/tripscope/internal/provider/resilience"
)

const minimalExport = `{
  "semanticSegments": [
    {
      "startTime": "2024-06-01T08:00:00Z",
      "endTime": "2024-06-01T20:00:00Z",
      "visit": {
        "probability": "0.9",
        "topCandidate": {
          "placeId": "p1",
          "placeLocation": {"latLng": "52.3700°, 4.9000°"}
        }
      }
    }
  ]
}`

func newTestRouter() http.Handler {
	logger := zerolog.New(io.Discard)
	return api.NewRouter(api.RouterConfig{
		Version:   "test",
		BuildTime: "2024-01-01T00:00:00Z",
		Logger:    logger,
		Metrics:   middleware.NewMetrics(),
		Pipeline:  pipeline.New(pipeline.Config{Logger: logger}),
		Registry:  resilience.NewRegistry(),
	})
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	var health models.Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.Equal(t, "test", health.Details["version"])
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tripscope_http_requests_in_flight")
}

func TestAnalyzeEndpoint(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", strings.NewReader(minimalExport))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result pipeline.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 1, result.TotalSegments)
	assert.Len(t, result.EnhancedTrips, 1)
}

func TestAnalyzeEndpoint_InvalidBody(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", strings.NewReader(`{"foo": true}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	var problem models.Problem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, http.StatusBadRequest, problem.Status)
	assert.Equal(t, "/v1/analyze", problem.Instance)
}

func TestProvidersHealthEndpoint(t *testing.T) {
	registry := resilience.NewRegistry()
	registry.Register(resilience.NewCaller(resilience.DefaultCallerConfig("nominatim")))
	registry.Register(resilience.NewCaller(resilience.DefaultCallerConfig("open-meteo")))

	logger := zerolog.New(io.Discard)
	router := api.NewRouter(api.RouterConfig{
		Logger:   logger,
		Pipeline: pipeline.New(pipeline.Config{Logger: logger}),
		Registry: registry,
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/providers/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var health models.ProvidersHealth
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, models.HealthStatusOK, health.Status)
	require.Len(t, health.Providers, 2)
	assert.Equal(t, "nominatim", health.Providers[0].Provider, "providers are sorted by name")
	assert.Equal(t, "closed", health.Providers[0].CircuitState)
}

func TestUnknownRouteReturns404(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
