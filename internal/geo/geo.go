// Package geo provides coordinate parsing and spherical distance math.
package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/golang/geo/s2"
)

// EarthRadiusMeters is the mean Earth radius used for haversine distances.
const EarthRadiusMeters = 6371000.0

// Geo errors.
var (
	ErrInvalidCoordinate = errors.New("coordinate out of range")
	ErrInvalidLatLng     = errors.New("invalid lat/lng string")
)

// Coordinate is a WGS84 latitude/longitude pair in degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks that the coordinate is within valid bounds.
func (c Coordinate) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 || c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w: %.4f, %.4f", ErrInvalidCoordinate, c.Latitude, c.Longitude)
	}
	return nil
}

// String renders the coordinate as "lat, lon" with 4 decimal places.
func (c Coordinate) String() string {
	return fmt.Sprintf("%.4f, %.4f", c.Latitude, c.Longitude)
}

// ParseLatLng parses a timeline-export coordinate string of the form
// "52.3676°, 4.9041°" into a Coordinate.
func ParseLatLng(s string) (Coordinate, error) {
	cleaned := strings.ReplaceAll(s, "°", "")
	parts := strings.Split(cleaned, ",")
	if len(parts) != 2 {
		return Coordinate{}, fmt.Errorf("%w: %q", ErrInvalidLatLng, s)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: latitude in %q", ErrInvalidLatLng, s)
	}

	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: longitude in %q", ErrInvalidLatLng, s)
	}

	coord := Coordinate{Latitude: lat, Longitude: lon}
	if err := coord.Validate(); err != nil {
		return Coordinate{}, err
	}
	return coord, nil
}

// Haversine returns the great-circle distance between two coordinates in meters.
func Haversine(a, b Coordinate) float64 {
	p1 := s2.LatLngFromDegrees(a.Latitude, a.Longitude)
	p2 := s2.LatLngFromDegrees(b.Latitude, b.Longitude)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// HaversineKm returns the great-circle distance between two coordinates in kilometers.
func HaversineKm(a, b Coordinate) float64 {
	return Haversine(a, b) / 1000
}

// ApproxUTCOffset approximates the UTC offset of a longitude by dividing the
// globe into 15-degree bands. The result is clamped to the real-world offset
// range [-12, 14].
func ApproxUTCOffset(longitude float64) int {
	offset := int(math.Round(longitude / 15))
	if offset < -12 {
		return -12
	}
	if offset > 14 {
		return 14
	}
	return offset
}
