// Package main provides the TripScope command line analyzer. It reads a
// timeline export, runs the full analysis pipeline, and writes the result as
// JSON to stdout while reporting progress on stderr.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/tripscope/tripscope/internal/cache"
	"github.com/tripscope/tripscope/internal/country"
	"github.com/tripscope/tripscope/internal/enrich"
	"github.com/tripscope/tripscope/internal/geocode"
	"github.com/tripscope/tripscope/internal/pipeline"
	"github.com/tripscope/tripscope/internal/weather"
)

func main() {
	var (
		inputPath   = flag.String("input", "", "path to the timeline export JSON (default: stdin)")
		outputPath  = flag.String("output", "", "path for the result JSON (default: stdout)")
		cachePath   = flag.String("cache", "tripscope-cache.db", "path to the sqlite cache, empty disables persistence")
		concurrency = flag.Int("concurrency", enrich.DefaultConcurrency, "enrichment batch size")
		skipEnrich  = flag.Bool("skip-enrich", false, "skip network enrichment, report grouped trips only")
		verbose     = flag.Bool("verbose", false, "enable debug logging")
	)
	flag.Parse()

	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().
		Timestamp().
		Logger()

	if err := run(log, *inputPath, *outputPath, *cachePath, *concurrency, *skipEnrich); err != nil {
		log.Error().Err(err).Msg("analysis failed")
		os.Exit(1)
	}
}

func run(log zerolog.Logger, inputPath, outputPath, cachePath string, concurrency int, skipEnrich bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	input := io.Reader(os.Stdin)
	if inputPath != "" {
		f, err := os.Open(inputPath)
		if err != nil {
			return fmt.Errorf("open export: %w", err)
		}
		defer f.Close()
		input = f
	}

	var enricher *enrich.Enricher
	if !skipEnrich {
		var persistent cache.Store = cache.NewMemoryStore()
		if cachePath != "" {
			store, err := cache.OpenSQLite(cachePath)
			if err != nil {
				return fmt.Errorf("open cache: %w", err)
			}
			defer store.Close()
			persistent = store
		}

		countryService := country.NewService(country.ServiceConfig{
			Persistent: persistent,
			Logger:     log,
		})
		if err := countryService.Initialize(ctx); err != nil {
			log.Warn().Err(err).Msg("country table unavailable")
		}

		enricher = enrich.New(enrich.Config{
			Geocoder: geocode.NewService(geocode.ServiceConfig{
				Geocoder:   geocode.NewClient(geocode.ClientConfig{Logger: log}),
				Persistent: persistent,
				Logger:     log,
			}),
			Weather: weather.NewService(weather.ServiceConfig{
				Provider:   weather.NewClient(weather.ClientConfig{Logger: log}),
				Persistent: persistent,
				Logger:     log,
			}),
			Countries:   countryService,
			Logger:      log,
			Concurrency: concurrency,
		})
	}

	p := pipeline.New(pipeline.Config{
		Enricher: enricher,
		Logger:   log,
	})

	progress := func(percent int, stage string) {
		fmt.Fprintf(os.Stderr, "\r%3d%% %-14s", percent, stage)
		if percent == 100 {
			fmt.Fprintln(os.Stderr)
		}
	}

	result, err := p.Run(ctx, input, progress)
	if err != nil {
		return err
	}

	output := io.Writer(os.Stdout)
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		output = f
	}

	enc := json.NewEncoder(output)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("write result: %w", err)
	}

	for _, msg := range result.Errors {
		log.Warn().Str("error", msg).Msg("segment skipped")
	}
	log.Info().
		Int("segments", result.TotalSegments).
		Int("trips", len(result.EnhancedTrips)).
		Msg("analysis complete")

	return nil
}
