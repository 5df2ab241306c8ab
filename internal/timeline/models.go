// Package timeline parses Google Timeline location-history exports into
// normalized movement and stay records.
package timeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tripscope/tripscope/internal/geo"
)

// Timeline errors.
var (
	// ErrInvalidExport indicates the top-level export structure is missing
	// its segments array. This is the only fatal input error.
	ErrInvalidExport = errors.New("export has no semantic segments array")
)

// ActivityTypeStay marks a trip produced from a visit segment.
const ActivityTypeStay = "STAY"

// ActivityTypeMovement marks a trip produced from a bare timeline path.
const ActivityTypeMovement = "MOVEMENT"

// Export is the root of a Timeline JSON export.
type Export struct {
	SemanticSegments []Segment `json:"semanticSegments"`
}

// Segment is one semantic segment of the export: a time-boxed visit, an
// activity between two points, or a raw path of timestamped points. Exactly
// one interpretation is used; visit takes priority, then activity, then path.
type Segment struct {
	StartTime    string      `json:"startTime"`
	EndTime      string      `json:"endTime"`
	Visit        *Visit      `json:"visit,omitempty"`
	Activity     *Activity   `json:"activity,omitempty"`
	TimelinePath []PathPoint `json:"timelinePath,omitempty"`
}

// Visit is a stationary period at a place candidate.
type Visit struct {
	Probability  string          `json:"probability,omitempty"`
	TopCandidate *PlaceCandidate `json:"topCandidate,omitempty"`
}

// PlaceCandidate is the most likely place for a visit.
type PlaceCandidate struct {
	PlaceID       string         `json:"placeId,omitempty"`
	SemanticType  string         `json:"semanticType,omitempty"`
	Probability   string         `json:"probability,omitempty"`
	PlaceLocation *PlaceLocation `json:"placeLocation,omitempty"`
}

// PlaceLocation holds a candidate's coordinate in "lat°, lon°" form.
type PlaceLocation struct {
	LatLng string `json:"latLng"`
}

// Activity is a movement between two points.
type Activity struct {
	Start          *PlaceLocation     `json:"start,omitempty"`
	End            *PlaceLocation     `json:"end,omitempty"`
	DistanceMeters string             `json:"distanceMeters,omitempty"`
	TopCandidate   *ActivityCandidate `json:"topCandidate,omitempty"`
}

// ActivityCandidate is the most likely movement type for an activity.
type ActivityCandidate struct {
	Type        string `json:"type,omitempty"`
	Probability string `json:"probability,omitempty"`
}

// PathPoint is one timestamped point of a raw timeline path.
type PathPoint struct {
	Point string `json:"point"`
	Time  string `json:"time,omitempty"`
}

// ProcessedTrip is the leaf-level normalized record produced from one segment.
type ProcessedTrip struct {
	ID             string         `json:"id"`
	StartTime      time.Time      `json:"startTime"`
	EndTime        time.Time      `json:"endTime"`
	StartLocation  geo.Coordinate `json:"startLocation"`
	EndLocation    geo.Coordinate `json:"endLocation"`
	PlaceName      string         `json:"placeName,omitempty"`
	Address        string         `json:"address,omitempty"`
	DistanceMeters float64        `json:"distanceMeters,omitempty"`
	ActivityType   string         `json:"activityType"`
	Confidence     float64        `json:"confidence"`
}

// Duration returns the trip's time span.
func (t *ProcessedTrip) Duration() time.Duration {
	return t.EndTime.Sub(t.StartTime)
}

// IsStay reports whether the trip represents a stationary period.
func (t *ProcessedTrip) IsStay() bool {
	return t.ActivityType == ActivityTypeStay
}

// ParseError describes a malformed segment. Parse errors are recorded and
// skipped; they never abort processing.
type ParseError struct {
	Index int
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("segment %d: %v", e.Index, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Decode reads a Timeline export from r. A missing segments array is the one
// fatal input error; individual bad segments surface later as ParseErrors.
func Decode(r io.Reader) (*Export, error) {
	var export Export
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, fmt.Errorf("decoding export: %w", err)
	}
	if export.SemanticSegments == nil {
		return nil, ErrInvalidExport
	}
	return &export, nil
}
