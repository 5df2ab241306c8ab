// Package main provides the entrypoint for the TripScope API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/tripscope/tripscope/internal/api"
	"github.com/tripscope/tripscope/internal/api/middleware"
	"github.com/tripscope/tripscope/internal/cache"
	"github.com/tripscope/tripscope/internal/config"
	"github.com/tripscope/tripscope/internal/country"
	"github.com/tripscope/tripscope/internal/database"
	"github.com/tripscope/tripscope/internal/enrich"
	"github.com/tripscope/tripscope/internal/geocode"
	"github.com/tripscope/tripscope/internal/pipeline"
	"github.com/tripscope/tripscope/internal/provider/resilience"
	"github.com/tripscope/tripscope/internal/weather"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "tripscope-api"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting TripScope API")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx := context.Background()

	// Persistent cache backend
	var persistent cache.Store
	switch cfg.CacheBackend {
	case config.CacheBackendSQLite:
		store, err := cache.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.SQLitePath).Msg("failed to open sqlite cache")
		}
		defer store.Close()
		persistent = store
		log.Info().Str("path", cfg.SQLitePath).Msg("sqlite cache opened")
	case config.CacheBackendPostgres:
		dbConfig := database.ConfigFromEnv()
		pool, err := database.Connect(ctx, dbConfig)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		store, err := cache.NewPostgresStore(ctx, pool)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize postgres cache")
		}
		persistent = store
		log.Info().
			Str("host", dbConfig.Host).
			Str("database", dbConfig.Database).
			Msg("postgres cache connected")
	default:
		persistent = cache.NewMemoryStore()
	}

	// Resilient callers for the external providers
	registry := resilience.NewRegistry()

	geocodeCaller := resilience.NewCaller(observedConfig(geocode.ProviderName, registry))
	weatherCaller := resilience.NewCaller(observedConfig(weather.ProviderName, registry))
	countryCaller := resilience.NewCaller(observedConfig(country.ProviderName, registry))
	registry.Register(geocodeCaller)
	registry.Register(weatherCaller)
	registry.Register(countryCaller)

	geocodeService := geocode.NewService(geocode.ServiceConfig{
		Geocoder: geocode.NewClient(geocode.ClientConfig{
			BaseURL: cfg.NominatimBaseURL,
			Caller:  geocodeCaller,
			Logger:  log,
		}),
		Persistent: persistent,
		Logger:     log,
	})

	weatherService := weather.NewService(weather.ServiceConfig{
		Provider: weather.NewClient(weather.ClientConfig{
			BaseURL: cfg.OpenMeteoBaseURL,
			Caller:  weatherCaller,
			Logger:  log,
		}),
		Persistent: persistent,
		Logger:     log,
	})

	countryService := country.NewService(country.ServiceConfig{
		BaseURL:    cfg.RESTCountriesBaseURL,
		Caller:     countryCaller,
		Persistent: persistent,
		Logger:     log,
	})
	if err := countryService.Initialize(ctx); err != nil {
		log.Warn().Err(err).Msg("country table unavailable, falling back to geocoder only")
	}

	enricher := enrich.New(enrich.Config{
		Geocoder:    geocodeService,
		Weather:     weatherService,
		Countries:   countryService,
		Logger:      log,
		Concurrency: cfg.EnrichConcurrency,
	})

	p := pipeline.New(pipeline.Config{
		Enricher: enricher,
		Logger:   log,
	})

	metrics := middleware.NewMetrics()

	router := api.NewRouter(api.RouterConfig{
		Version:   Version,
		BuildTime: BuildTime,
		Logger:    log,
		Metrics:   metrics,
		Pipeline:  p,
		Registry:  registry,
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
		// Analysis of a large export can legitimately take minutes.
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}

func observedConfig(name string, registry *resilience.Registry) resilience.CallerConfig {
	cfg := resilience.DefaultCallerConfig(name)
	cfg.Observer = registry
	return cfg
}
