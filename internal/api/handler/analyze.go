// Package handler provides HTTP handlers for the TripScope API.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/tripscope/tripscope/internal/api/middleware"
	"github.com/tripscope/tripscope/internal/api/response"
	"github.com/tripscope/tripscope/internal/pipeline"
)

// maxExportBytes caps the accepted export size. Multi-year exports run to a
// few hundred megabytes; anything past this is rejected rather than buffered.
const maxExportBytes = 512 << 20

// AnalyzeHandler handles analysis requests.
type AnalyzeHandler struct {
	pipeline *pipeline.Pipeline
	metrics  *middleware.Metrics
	logger   zerolog.Logger
}

// NewAnalyzeHandler creates a new AnalyzeHandler. Metrics may be nil.
func NewAnalyzeHandler(p *pipeline.Pipeline, metrics *middleware.Metrics, logger zerolog.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{
		pipeline: p,
		metrics:  metrics,
		logger:   logger,
	}
}

// Analyze handles POST /v1/analyze. The request body is a raw timeline
// export; the response is the full analysis result.
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	body := http.MaxBytesReader(w, r.Body, maxExportBytes)

	result, err := h.pipeline.Run(r.Context(), body, nil)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.PayloadTooLarge(w, r, "export exceeds the maximum accepted size")
			return
		}
		h.logger.Warn().Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Msg("export rejected")
		response.BadRequest(w, r, "request body is not a valid timeline export")
		return
	}

	if h.metrics != nil {
		h.metrics.AnalysesTotal.Inc()
		h.metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
		h.metrics.SegmentsProcessed.Add(float64(result.ProcessedSegments))
		h.metrics.TripsProduced.Add(float64(len(result.EnhancedTrips)))
	}

	response.JSON(w, r, http.StatusOK, result)
}
