// Package weather provides historical weather lookups with caching.
package weather

import (
	"context"
	"errors"
	"time"

	"github.com/tripscope/tripscope/internal/geo"
)

// Weather errors.
var (
	ErrProviderUnavailable = errors.New("weather provider unavailable")
	ErrNoDataForDate       = errors.New("no weather data for date")
)

// Observation is the weather at a location on a specific calendar day.
type Observation struct {
	// Temperature is the daily mean in Celsius.
	Temperature float64 `json:"temperature"`

	// WeatherCode is the WMO weather interpretation code.
	WeatherCode int `json:"weatherCode"`

	// Description is a human-readable form of the weather code.
	Description string `json:"description"`
}

// Provider fetches historical weather from an external source.
type Provider interface {
	// GetWeatherForDate returns the observation for a coordinate on the
	// given calendar day, or ErrNoDataForDate when the archive has none.
	GetWeatherForDate(ctx context.Context, coord geo.Coordinate, date time.Time) (*Observation, error)

	// Name returns the provider name for logging.
	Name() string
}

// describeWMOCode maps WMO weather interpretation codes to descriptions.
func describeWMOCode(code int) string {
	switch {
	case code == 0:
		return "clear sky"
	case code <= 3:
		return "partly cloudy"
	case code <= 48:
		return "fog"
	case code <= 57:
		return "drizzle"
	case code <= 67:
		return "rain"
	case code <= 77:
		return "snow"
	case code <= 82:
		return "rain showers"
	case code <= 86:
		return "snow showers"
	case code <= 99:
		return "thunderstorm"
	default:
		return "unknown"
	}
}
