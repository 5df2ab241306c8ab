package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tripscope/tripscope/internal/cache"
	"github.com/tripscope/tripscope/internal/geo"
)

// persistentTTL is the persistent-cache lifetime. Historical weather for a
// fixed date never changes; 24h just bounds unbounded growth.
const persistentTTL = 24 * time.Hour

// memoryTTL shields a session from refetching the same day repeatedly.
const memoryTTL = time.Hour

// ServiceConfig holds configuration for the weather service.
type ServiceConfig struct {
	// Provider is the upstream historical weather source.
	Provider Provider

	// Persistent is the injectable persistent cache. Optional.
	Persistent cache.Store

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service provides historical weather with two-tier caching. Lookups check
// the persistent cache, then the memory cache, before touching the network.
type Service struct {
	provider   Provider
	persistent cache.Store
	memory     *cache.MemoryStore
	logger     zerolog.Logger
}

// NewService creates a new weather service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		provider:   cfg.Provider,
		persistent: cfg.Persistent,
		memory:     cache.NewMemoryStore(),
		logger:     cfg.Logger,
	}
}

// WeatherForDate returns the observation for a coordinate and calendar day,
// or nil when the provider has no data or is unavailable. Weather absence is
// expected and never an enrichment failure.
func (s *Service) WeatherForDate(ctx context.Context, coord geo.Coordinate, date time.Time) *Observation {
	key := cacheKey(coord, date)

	if obs := s.cached(ctx, key); obs != nil {
		return obs
	}

	obs, err := s.provider.GetWeatherForDate(ctx, coord, date)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("provider", s.provider.Name()).
			Str("coord", coord.String()).
			Str("date", date.UTC().Format("2006-01-02")).
			Msg("weather lookup degraded, trip keeps no weather")
		return nil
	}

	s.store(ctx, key, obs)
	return obs
}

func (s *Service) cached(ctx context.Context, key string) *Observation {
	if s.persistent != nil {
		if data, ok, err := s.persistent.Get(ctx, key); err == nil && ok {
			var obs Observation
			if json.Unmarshal(data, &obs) == nil {
				return &obs
			}
		} else if err != nil {
			s.logger.Debug().Err(err).Str("key", key).Msg("persistent cache read failed")
		}
	}

	if data, ok, _ := s.memory.Get(ctx, key); ok {
		var obs Observation
		if json.Unmarshal(data, &obs) == nil {
			return &obs
		}
	}
	return nil
}

func (s *Service) store(ctx context.Context, key string, obs *Observation) {
	data, err := json.Marshal(obs)
	if err != nil {
		return
	}
	_ = s.memory.Put(ctx, key, data, memoryTTL, cache.ServiceWeather)
	if s.persistent != nil {
		if err := s.persistent.Put(ctx, key, data, persistentTTL, cache.ServiceWeather); err != nil {
			s.logger.Debug().Err(err).Str("key", key).Msg("persistent cache write failed")
		}
	}
}

// cacheKey encodes the request's full identity: rounded coordinate plus day.
func cacheKey(coord geo.Coordinate, date time.Time) string {
	return fmt.Sprintf("weather:%.4f,%.4f:%s",
		coord.Latitude, coord.Longitude, date.UTC().Format("2006-01-02"))
}
