package timeline

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tripscope/tripscope/internal/geo"
)

// minPathDistanceMeters is the straight-line distance below which a path-only
// segment is treated as GPS jitter and dropped.
const minPathDistanceMeters = 100.0

// pathConfidence is assigned to path-only segments, which carry no native
// confidence signal.
const pathConfidence = 0.5

var (
	errNoLocation   = errors.New("no usable location data")
	errTimeOrder    = errors.New("start time after end time")
	errShortSegment = errors.New("segment empty")
)

// ParseSegment converts one raw segment into a ProcessedTrip. A nil trip with
// a nil error means the segment was intentionally dropped (noise, micro
// movement). A non-nil error is a recoverable ParseError for the caller to
// record.
//
// Interpretation priority: visit, then activity, then raw path.
func ParseSegment(seg Segment, index int) (*ProcessedTrip, error) {
	start, end, err := parseTimeRange(seg)
	if err != nil {
		return nil, &ParseError{Index: index, Err: err}
	}

	switch {
	case seg.Visit != nil && seg.Visit.TopCandidate != nil:
		trip, err := parseVisit(seg, start, end)
		if err != nil {
			return nil, &ParseError{Index: index, Err: err}
		}
		return trip, nil

	case seg.Activity != nil && seg.Activity.Start != nil && seg.Activity.End != nil:
		trip, err := parseActivity(seg, start, end)
		if err != nil {
			return nil, &ParseError{Index: index, Err: err}
		}
		return trip, nil

	case len(seg.TimelinePath) >= 2:
		return parsePath(seg, start, end)

	default:
		// Nothing usable; intentional drop.
		return nil, nil
	}
}

func parseTimeRange(seg Segment) (start, end time.Time, err error) {
	start, err = parseTimestamp(seg.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start time: %w", err)
	}
	end, err = parseTimestamp(seg.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("end time: %w", err)
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, errTimeOrder
	}
	return start, end, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errShortSegment
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		// Some exports carry a zone offset without the colon variant.
		t, err = time.Parse("2006-01-02T15:04:05.000-07:00", s)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
		}
	}
	return t, nil
}

func parseVisit(seg Segment, start, end time.Time) (*ProcessedTrip, error) {
	candidate := seg.Visit.TopCandidate

	var loc geo.Coordinate
	switch {
	case candidate.PlaceLocation != nil && candidate.PlaceLocation.LatLng != "":
		parsed, err := geo.ParseLatLng(candidate.PlaceLocation.LatLng)
		if err != nil {
			return nil, fmt.Errorf("visit location: %w", err)
		}
		loc = parsed
	case len(seg.TimelinePath) > 0:
		parsed, err := geo.ParseLatLng(seg.TimelinePath[0].Point)
		if err != nil {
			return nil, fmt.Errorf("visit path fallback: %w", err)
		}
		loc = parsed
	default:
		return nil, errNoLocation
	}

	confidence := parseProbability(seg.Visit.Probability)
	if confidence == 0 {
		confidence = parseProbability(candidate.Probability)
	}

	return &ProcessedTrip{
		ID:            uuid.New().String(),
		StartTime:     start,
		EndTime:       end,
		StartLocation: loc,
		EndLocation:   loc,
		PlaceName:     candidate.SemanticType,
		ActivityType:  ActivityTypeStay,
		Confidence:    confidence,
	}, nil
}

func parseActivity(seg Segment, start, end time.Time) (*ProcessedTrip, error) {
	activity := seg.Activity

	from, err := geo.ParseLatLng(activity.Start.LatLng)
	if err != nil {
		return nil, fmt.Errorf("activity start: %w", err)
	}
	to, err := geo.ParseLatLng(activity.End.LatLng)
	if err != nil {
		return nil, fmt.Errorf("activity end: %w", err)
	}

	distance := parseDistance(activity.DistanceMeters)
	if distance == 0 {
		distance = geo.Haversine(from, to)
	}

	activityType := "UNKNOWN"
	var confidence float64
	if activity.TopCandidate != nil {
		if activity.TopCandidate.Type != "" {
			activityType = activity.TopCandidate.Type
		}
		confidence = parseProbability(activity.TopCandidate.Probability)
	}

	return &ProcessedTrip{
		ID:             uuid.New().String(),
		StartTime:      start,
		EndTime:        end,
		StartLocation:  from,
		EndLocation:    to,
		DistanceMeters: distance,
		ActivityType:   activityType,
		Confidence:     confidence,
	}, nil
}

func parsePath(seg Segment, start, end time.Time) (*ProcessedTrip, error) {
	first, err := geo.ParseLatLng(seg.TimelinePath[0].Point)
	if err != nil {
		return nil, nil //nolint:nilnil // unparseable path points are noise, not an error
	}
	last, err := geo.ParseLatLng(seg.TimelinePath[len(seg.TimelinePath)-1].Point)
	if err != nil {
		return nil, nil //nolint:nilnil // unparseable path points are noise, not an error
	}

	distance := geo.Haversine(first, last)
	if distance <= minPathDistanceMeters {
		return nil, nil //nolint:nilnil // sub-100m paths are GPS jitter
	}

	return &ProcessedTrip{
		ID:             uuid.New().String(),
		StartTime:      start,
		EndTime:        end,
		StartLocation:  first,
		EndLocation:    last,
		DistanceMeters: distance,
		ActivityType:   ActivityTypeMovement,
		Confidence:     pathConfidence,
	}, nil
}

// parseProbability parses a probability string, clamping to [0, 1].
// The export encodes probabilities as strings.
func parseProbability(s string) float64 {
	if s == "" {
		return 0
	}
	p, err := strconv.ParseFloat(s, 64)
	if err != nil || p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

func parseDistance(s string) float64 {
	if s == "" {
		return 0
	}
	d, err := strconv.ParseFloat(s, 64)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// ParseAll converts every segment of an export, collecting recoverable parse
// errors. Dropped segments are counted as processed; they are an expected
// part of real export data.
func ParseAll(export *Export) (trips []*ProcessedTrip, processed int, parseErrs []error) {
	for i, seg := range export.SemanticSegments {
		trip, err := ParseSegment(seg, i)
		if err != nil {
			parseErrs = append(parseErrs, err)
			processed++
			continue
		}
		processed++
		if trip != nil {
			trips = append(trips, trip)
		}
	}
	return trips, processed, parseErrs
}
