// Package country resolves coordinates to countries via a one-time lookup
// table of country centroids, and renders flag glyphs from ISO codes.
package country

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tripscope/tripscope/internal/cache"
	"github.com/tripscope/tripscope/internal/geo"
	"github.com/tripscope/tripscope/internal/provider/resilience"
)

const (
	// ProviderName identifies the country lookup provider.
	ProviderName = "restcountries"

	// DefaultBaseURL is the REST Countries API.
	DefaultBaseURL = "https://restcountries.com"

	// tableTTL is how long the country table lives in the persistent cache.
	tableTTL = 24 * time.Hour

	// maxCentroidDistanceKm bounds nearest-centroid matching; a point
	// further than this from every centroid (mid-ocean) resolves to nothing.
	maxCentroidDistanceKm = 1500.0

	tableCacheKey = "countries:all"
)

// ErrNotInitialized is returned when lookups run before Initialize.
var ErrNotInitialized = errors.New("country table not initialized")

// Country is one entry of the lookup table.
type Country struct {
	Name     string         `json:"name"`
	Code     string         `json:"code"`
	Centroid geo.Coordinate `json:"centroid"`
}

// ServiceConfig holds configuration for the country service.
type ServiceConfig struct {
	// BaseURL overrides the REST Countries endpoint (for tests).
	BaseURL string

	// Caller is the resilient HTTP executor. If nil, a caller with
	// defaults is created.
	Caller *resilience.Caller

	// Persistent caches the downloaded table across runs. Optional.
	Persistent cache.Store

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service answers coordinate-to-country queries from an in-memory table
// loaded once by Initialize.
type Service struct {
	baseURL    string
	caller     *resilience.Caller
	persistent cache.Store
	logger     zerolog.Logger

	initOnce sync.Once
	initErr  error

	mu        sync.RWMutex
	countries []Country
}

// NewService creates a new country service.
func NewService(cfg ServiceConfig) *Service {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	caller := cfg.Caller
	if caller == nil {
		caller = resilience.NewCaller(resilience.DefaultCallerConfig(ProviderName))
	}
	return &Service{
		baseURL:    baseURL,
		caller:     caller,
		persistent: cfg.Persistent,
		logger:     cfg.Logger,
	}
}

// Initialize loads the country lookup table, from the persistent cache when
// possible. Safe to call repeatedly; only the first call does work.
func (s *Service) Initialize(ctx context.Context) error {
	s.initOnce.Do(func() {
		s.initErr = s.load(ctx)
	})
	return s.initErr
}

func (s *Service) load(ctx context.Context) error {
	if s.persistent != nil {
		if data, ok, err := s.persistent.Get(ctx, tableCacheKey); err == nil && ok {
			var countries []Country
			if json.Unmarshal(data, &countries) == nil && len(countries) > 0 {
				s.setTable(countries)
				s.logger.Debug().Int("countries", len(countries)).Msg("country table loaded from cache")
				return nil
			}
		}
	}

	countries, err := s.fetchTable(ctx)
	if err != nil {
		return err
	}
	s.setTable(countries)

	if s.persistent != nil {
		if data, err := json.Marshal(countries); err == nil {
			_ = s.persistent.Put(ctx, tableCacheKey, data, tableTTL, cache.ServiceCountries)
		}
	}
	s.logger.Info().Int("countries", len(countries)).Msg("country table loaded")
	return nil
}

func (s *Service) setTable(countries []Country) {
	s.mu.Lock()
	s.countries = countries
	s.mu.Unlock()
}

func (s *Service) fetchTable(ctx context.Context) ([]Country, error) {
	endpoint := s.baseURL + "/v3.1/all?fields=name,cca2,latlng"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := s.caller.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	var raw []restCountry
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	countries := make([]Country, 0, len(raw))
	for _, rc := range raw {
		if rc.CCA2 == "" || len(rc.LatLng) != 2 {
			continue
		}
		countries = append(countries, Country{
			Name: rc.Name.Common,
			Code: rc.CCA2,
			Centroid: geo.Coordinate{
				Latitude:  rc.LatLng[0],
				Longitude: rc.LatLng[1],
			},
		})
	}
	return countries, nil
}

// ByCoordinates returns the country whose centroid is nearest to the point,
// or nil for mid-ocean coordinates. Requires Initialize.
func (s *Service) ByCoordinates(lat, lon float64) *Country {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.countries) == 0 {
		return nil
	}

	point := geo.Coordinate{Latitude: lat, Longitude: lon}
	var best *Country
	bestKm := maxCentroidDistanceKm
	for i := range s.countries {
		d := geo.HaversineKm(point, s.countries[i].Centroid)
		if d < bestKm {
			bestKm = d
			best = &s.countries[i]
		}
	}
	if best == nil {
		return nil
	}
	found := *best
	return &found
}

// FlagEmoji renders an ISO 3166-1 alpha-2 code as its regional-indicator
// flag glyph. Unknown or malformed codes render as an empty string.
func FlagEmoji(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 2 {
		return ""
	}
	var b strings.Builder
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return ""
		}
		b.WriteRune('\U0001F1E6' + (r - 'A'))
	}
	return b.String()
}

// restCountry is one element of the REST Countries response.
type restCountry struct {
	Name struct {
		Common string `json:"common"`
	} `json:"name"`
	CCA2   string    `json:"cca2"`
	LatLng []float64 `json:"latlng"`
}
