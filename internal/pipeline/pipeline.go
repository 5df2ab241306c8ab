// Package pipeline orchestrates the full analysis run: decode an export,
// parse its segments, group them into trips, enrich, deduplicate, and
// compute statistics.
package pipeline

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"github.com/tripscope/tripscope/internal/enrich"
	"github.com/tripscope/tripscope/internal/stats"
	"github.com/tripscope/tripscope/internal/timeline"
	"github.com/tripscope/tripscope/internal/trip"
)

// Result is the complete output of one analysis run. Basic trips and stats
// reflect the grouped data before enrichment; the enhanced fields hold the
// enriched, deduplicated view.
type Result struct {
	EnhancedTrips []*trip.Trip               `json:"enhancedTrips"`
	EnhancedStats *stats.EnhancedTravelStats `json:"enhancedStats"`
	BasicTrips    []*trip.Trip               `json:"basicTrips"`
	BasicStats    *stats.TravelStats         `json:"basicStats"`

	TotalSegments     int      `json:"totalSegments"`
	ProcessedSegments int      `json:"processedSegments"`
	Errors            []string `json:"errors,omitempty"`
}

// Config carries the pipeline's collaborators.
type Config struct {
	Enricher *enrich.Enricher
	Logger   zerolog.Logger
}

// Pipeline runs analysis passes over timeline exports. Safe for concurrent
// use; each Run is independent.
type Pipeline struct {
	enricher *enrich.Enricher
	logger   zerolog.Logger
}

// New creates a pipeline. The enricher may be nil, in which case trips pass
// through un-enriched and the enhanced view equals the basic one.
func New(cfg Config) *Pipeline {
	return &Pipeline{
		enricher: cfg.Enricher,
		logger:   cfg.Logger.With().Str("component", "pipeline").Logger(),
	}
}

// Run executes a full analysis pass over the export read from r. Parse
// failures of individual segments are collected into Result.Errors rather
// than aborting; only an undecodable export returns an error.
func (p *Pipeline) Run(ctx context.Context, r io.Reader, progress enrich.ProgressFunc) (*Result, error) {
	export, err := timeline.Decode(r)
	if err != nil {
		return nil, err
	}
	return p.RunExport(ctx, export, progress)
}

// RunExport is Run for an already-decoded export.
func (p *Pipeline) RunExport(ctx context.Context, export *timeline.Export, progress enrich.ProgressFunc) (*Result, error) {
	report(progress, 0, "parsing")
	segments, processed, parseErrs := timeline.ParseAll(export)

	p.logger.Info().
		Int("segments", len(export.SemanticSegments)).
		Int("parsed", len(segments)).
		Int("errors", len(parseErrs)).
		Msg("export parsed")

	report(progress, 10, "grouping")
	basic := trip.Group(segments)
	basicStats := stats.Compute(basic)

	// Deduplication mutates merged trips, so the enriched view always works
	// on copies to keep the basic view intact.
	var enriched []*trip.Trip
	if p.enricher != nil {
		enriched = p.enricher.Enrich(ctx, basic, scaleProgress(progress, 10, 90))
	} else {
		enriched = make([]*trip.Trip, len(basic))
		for i, t := range basic {
			clone := *t
			enriched[i] = &clone
		}
	}

	report(progress, 90, "deduplicating")
	deduped := trip.Deduplicate(enriched)

	enhancedStats := stats.ComputeEnhanced(deduped)
	report(progress, 100, "done")

	p.logger.Info().
		Int("trips", len(basic)).
		Int("deduplicated", len(deduped)).
		Msg("analysis complete")

	result := &Result{
		EnhancedTrips:     deduped,
		EnhancedStats:     enhancedStats,
		BasicTrips:        basic,
		BasicStats:        basicStats,
		TotalSegments:     len(export.SemanticSegments),
		ProcessedSegments: processed,
	}
	for _, perr := range parseErrs {
		result.Errors = append(result.Errors, perr.Error())
	}
	return result, nil
}

func report(progress enrich.ProgressFunc, percent int, stage string) {
	if progress != nil {
		progress(percent, stage)
	}
}

// scaleProgress maps the enricher's 0..100 progress into the [lo, hi] band
// of the overall run, keeping the reported percentage monotonic.
func scaleProgress(progress enrich.ProgressFunc, lo, hi int) enrich.ProgressFunc {
	if progress == nil {
		return nil
	}
	return func(percent int, stage string) {
		progress(lo+(hi-lo)*percent/100, stage)
	}
}
