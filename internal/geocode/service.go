package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tripscope/tripscope/internal/cache"
	"github.com/tripscope/tripscope/internal/geo"
)

// persistentTTL is how long geocoding results live in the persistent cache.
// A coordinate's address does not change within a session or a day.
const persistentTTL = 24 * time.Hour

// memoryTTL protects short sessions from repeated lookups when no persistent
// store is configured.
const memoryTTL = time.Hour

// ServiceConfig holds configuration for the geocoding service.
type ServiceConfig struct {
	// Geocoder is the upstream provider.
	Geocoder Geocoder

	// Persistent is the injectable persistent cache. Optional.
	Persistent cache.Store

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service resolves locations through a two-tier cache and degrades to a
// coordinates-as-name fallback instead of failing: a missing place name must
// never abort enrichment.
type Service struct {
	geocoder   Geocoder
	persistent cache.Store
	memory     *cache.MemoryStore
	logger     zerolog.Logger
}

// NewService creates a new geocoding service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		geocoder:   cfg.Geocoder,
		persistent: cfg.Persistent,
		memory:     cache.NewMemoryStore(),
		logger:     cfg.Logger,
	}
}

// ReverseGeocode resolves a coordinate to a place. On any unrecovered
// provider failure it returns a degraded fallback place, never an error.
func (s *Service) ReverseGeocode(ctx context.Context, coord geo.Coordinate) *Place {
	key := reverseKey(coord)

	if place := s.cached(ctx, key); place != nil {
		return place
	}

	place, err := s.geocoder.ReverseGeocode(ctx, coord)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("provider", s.geocoder.Name()).
			Str("coord", coord.String()).
			Msg("reverse geocoding degraded to fallback")
		return fallbackPlace(coord)
	}

	s.store(ctx, key, place)
	return place
}

// ForwardGeocode resolves a free-text query, returning nil when the provider
// has no answer or is unavailable.
func (s *Service) ForwardGeocode(ctx context.Context, query string) *Place {
	key := forwardKey(query)

	if place := s.cached(ctx, key); place != nil {
		return place
	}

	place, err := s.geocoder.ForwardGeocode(ctx, query)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("provider", s.geocoder.Name()).
			Str("query", query).
			Msg("forward geocoding failed")
		return nil
	}

	s.store(ctx, key, place)
	return place
}

// cached checks the persistent cache, then the memory cache.
func (s *Service) cached(ctx context.Context, key string) *Place {
	if s.persistent != nil {
		if data, ok, err := s.persistent.Get(ctx, key); err == nil && ok {
			var place Place
			if json.Unmarshal(data, &place) == nil {
				return &place
			}
		} else if err != nil {
			s.logger.Debug().Err(err).Str("key", key).Msg("persistent cache read failed")
		}
	}

	if data, ok, _ := s.memory.Get(ctx, key); ok {
		var place Place
		if json.Unmarshal(data, &place) == nil {
			return &place
		}
	}
	return nil
}

func (s *Service) store(ctx context.Context, key string, place *Place) {
	data, err := json.Marshal(place)
	if err != nil {
		return
	}
	_ = s.memory.Put(ctx, key, data, memoryTTL, cache.ServiceGeocoding)
	if s.persistent != nil {
		if err := s.persistent.Put(ctx, key, data, persistentTTL, cache.ServiceGeocoding); err != nil {
			s.logger.Debug().Err(err).Str("key", key).Msg("persistent cache write failed")
		}
	}
}

// fallbackPlace is the degraded result used when the provider cannot be
// reached: the coordinate rendered as a name, with low confidence.
func fallbackPlace(coord geo.Coordinate) *Place {
	loc := coord
	return &Place{
		Name:       coord.String(),
		Location:   &loc,
		Confidence: 0.1,
	}
}

// reverseKey encodes the full identity of a reverse lookup. Coordinates are
// rounded to 4 decimals (~11 m) so nearby points share an entry.
func reverseKey(coord geo.Coordinate) string {
	return fmt.Sprintf("geocode:rev:%.4f,%.4f", coord.Latitude, coord.Longitude)
}

func forwardKey(query string) string {
	return "geocode:fwd:" + strings.ToLower(strings.TrimSpace(query))
}
