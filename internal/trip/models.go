// Package trip defines the trip domain model and the grouping and
// deduplication stages that turn parsed segments into travel trips.
package trip

import (
	"time"

	"github.com/tripscope/tripscope/internal/geo"
	"github.com/tripscope/tripscope/internal/timeline"
	"github.com/tripscope/tripscope/internal/weather"
)

// Type classifies a trip as a stationary stay or a journey between places.
type Type string

const (
	// Stay is a stationary period at one place.
	Stay Type = "STAY"

	// Journey is a movement between two places.
	Journey Type = "JOURNEY"
)

// Trip is a grouped, optionally enriched travel record. It owns its
// constituent segments; they are created by grouping and consumed only by
// deduplication and statistics.
type Trip struct {
	ID              string                    `json:"id"`
	Type            Type                      `json:"type"`
	StartTime       time.Time                 `json:"startTime"`
	EndTime         time.Time                 `json:"endTime"`
	Location        geo.Coordinate            `json:"location"`
	EndLocation     *geo.Coordinate           `json:"endLocation,omitempty"`
	PlaceName       string                    `json:"placeName,omitempty"`
	Address         string                    `json:"address,omitempty"`
	City            string                    `json:"city,omitempty"`
	Country         string                    `json:"country,omitempty"`
	CountryCode     string                    `json:"countryCode,omitempty"`
	DistanceKm      float64                   `json:"distanceKm,omitempty"`
	DurationMinutes int                       `json:"durationMinutes"`
	Confidence      float64                   `json:"confidence"`
	Weather         *weather.Observation      `json:"weather,omitempty"`
	Segments        []*timeline.ProcessedTrip `json:"segments"`
}

// recalcDuration keeps DurationMinutes consistent with the time range.
func (t *Trip) recalcDuration() {
	t.DurationMinutes = int(t.EndTime.Sub(t.StartTime).Minutes())
}
