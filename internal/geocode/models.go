// Package geocode provides reverse and forward geocoding with caching and
// graceful degradation.
package geocode

import (
	"context"
	"errors"

	"github.com/tripscope/tripscope/internal/geo"
)

// Geocode errors.
var (
	ErrNoResult            = errors.New("no geocoding result")
	ErrProviderUnavailable = errors.New("geocoding provider unavailable")
)

// Place is a geocoding result. Fields the provider cannot determine are left
// empty.
type Place struct {
	Name        string          `json:"name,omitempty"`
	Address     string          `json:"address,omitempty"`
	City        string          `json:"city,omitempty"`
	Country     string          `json:"country,omitempty"`
	CountryCode string          `json:"countryCode,omitempty"`
	Location    *geo.Coordinate `json:"location,omitempty"`
	Confidence  float64         `json:"confidence"`
}

// Geocoder resolves coordinates and free-text queries to places. Both
// operations are idempotent and safe to retry.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, coord geo.Coordinate) (*Place, error)
	ForwardGeocode(ctx context.Context, query string) (*Place, error)

	// Name returns the provider name for logging.
	Name() string
}
