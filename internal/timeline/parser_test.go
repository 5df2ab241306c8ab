package timeline_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripscope/tripscope/internal/timeline"
)

func visitSegment(latLng, probability string) timeline.Segment {
	return timeline.Segment{
		StartTime: "2024-06-01T09:00:00Z",
		EndTime:   "2024-06-01T11:30:00Z",
		Visit: &timeline.Visit{
			Probability: probability,
			TopCandidate: &timeline.PlaceCandidate{
				SemanticType:  "Home",
				PlaceLocation: &timeline.PlaceLocation{LatLng: latLng},
			},
		},
	}
}

func TestParseSegment_Visit(t *testing.T) {
	trip, err := timeline.ParseSegment(visitSegment("52.3676°, 4.9041°", "0.92"), 0)
	require.NoError(t, err)
	require.NotNil(t, trip)

	assert.Equal(t, timeline.ActivityTypeStay, trip.ActivityType)
	assert.True(t, trip.IsStay())
	assert.Equal(t, "Home", trip.PlaceName)
	assert.InDelta(t, 0.92, trip.Confidence, 1e-9)
	assert.InDelta(t, 52.3676, trip.StartLocation.Latitude, 1e-9)
	assert.Equal(t, trip.StartLocation, trip.EndLocation)
	assert.True(t, trip.StartTime.Before(trip.EndTime))
	assert.NotEmpty(t, trip.ID)
}

func TestParseSegment_VisitCandidateConfidenceFallback(t *testing.T) {
	seg := visitSegment("52.3676°, 4.9041°", "")
	seg.Visit.TopCandidate.Probability = "0.75"

	trip, err := timeline.ParseSegment(seg, 0)
	require.NoError(t, err)
	require.NotNil(t, trip)
	assert.InDelta(t, 0.75, trip.Confidence, 1e-9)
}

func TestParseSegment_VisitFallsBackToPathPoint(t *testing.T) {
	seg := timeline.Segment{
		StartTime: "2024-06-01T09:00:00Z",
		EndTime:   "2024-06-01T10:00:00Z",
		Visit: &timeline.Visit{
			Probability:  "0.8",
			TopCandidate: &timeline.PlaceCandidate{SemanticType: "Work"},
		},
		TimelinePath: []timeline.PathPoint{{Point: "48.8566°, 2.3522°"}},
	}

	trip, err := timeline.ParseSegment(seg, 0)
	require.NoError(t, err)
	require.NotNil(t, trip)
	assert.InDelta(t, 48.8566, trip.StartLocation.Latitude, 1e-9)
}

func TestParseSegment_VisitWithoutLocationIsParseError(t *testing.T) {
	seg := timeline.Segment{
		StartTime: "2024-06-01T09:00:00Z",
		EndTime:   "2024-06-01T10:00:00Z",
		Visit: &timeline.Visit{
			Probability:  "0.8",
			TopCandidate: &timeline.PlaceCandidate{SemanticType: "Work"},
		},
	}

	trip, err := timeline.ParseSegment(seg, 7)
	assert.Nil(t, trip)
	require.Error(t, err)

	var parseErr *timeline.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, 7, parseErr.Index)
	assert.Contains(t, parseErr.Error(), "segment 7")
}

func TestParseSegment_Activity(t *testing.T) {
	seg := timeline.Segment{
		StartTime: "2024-06-02T08:00:00Z",
		EndTime:   "2024-06-02T09:15:00Z",
		Activity: &timeline.Activity{
			Start:          &timeline.PlaceLocation{LatLng: "52.3676°, 4.9041°"},
			End:            &timeline.PlaceLocation{LatLng: "52.0705°, 4.3007°"},
			DistanceMeters: "55000",
			TopCandidate:   &timeline.ActivityCandidate{Type: "in train", Probability: "0.87"},
		},
	}

	trip, err := timeline.ParseSegment(seg, 0)
	require.NoError(t, err)
	require.NotNil(t, trip)

	assert.Equal(t, "in train", trip.ActivityType)
	assert.InDelta(t, 55000, trip.DistanceMeters, 1e-9)
	assert.InDelta(t, 0.87, trip.Confidence, 1e-9)
	assert.NotEqual(t, trip.StartLocation, trip.EndLocation)
}

func TestParseSegment_ActivityDistanceFallsBackToHaversine(t *testing.T) {
	seg := timeline.Segment{
		StartTime: "2024-06-02T08:00:00Z",
		EndTime:   "2024-06-02T09:00:00Z",
		Activity: &timeline.Activity{
			Start:        &timeline.PlaceLocation{LatLng: "52.3676°, 4.9041°"},
			End:          &timeline.PlaceLocation{LatLng: "48.8566°, 2.3522°"},
			TopCandidate: &timeline.ActivityCandidate{Type: "flying", Probability: "0.9"},
		},
	}

	trip, err := timeline.ParseSegment(seg, 0)
	require.NoError(t, err)
	require.NotNil(t, trip)

	// Amsterdam to Paris, roughly 430 km.
	assert.InDelta(t, 430000, trip.DistanceMeters, 5000)
}

func TestParseSegment_ActivityWithBadCoordinateIsParseError(t *testing.T) {
	seg := timeline.Segment{
		StartTime: "2024-06-02T08:00:00Z",
		EndTime:   "2024-06-02T09:00:00Z",
		Activity: &timeline.Activity{
			Start: &timeline.PlaceLocation{LatLng: "not a coordinate"},
			End:   &timeline.PlaceLocation{LatLng: "48.8566°, 2.3522°"},
		},
	}

	_, err := timeline.ParseSegment(seg, 3)
	var parseErr *timeline.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, 3, parseErr.Index)
}

func TestParseSegment_Path(t *testing.T) {
	seg := timeline.Segment{
		StartTime: "2024-06-03T12:00:00Z",
		EndTime:   "2024-06-03T12:40:00Z",
		TimelinePath: []timeline.PathPoint{
			{Point: "52.3676°, 4.9041°"},
			{Point: "52.3700°, 4.9100°"},
			{Point: "52.3900°, 4.9500°"},
		},
	}

	trip, err := timeline.ParseSegment(seg, 0)
	require.NoError(t, err)
	require.NotNil(t, trip)

	assert.Equal(t, timeline.ActivityTypeMovement, trip.ActivityType)
	assert.InDelta(t, 0.5, trip.Confidence, 1e-9)
	assert.Greater(t, trip.DistanceMeters, 100.0)
}

func TestParseSegment_ShortPathDropped(t *testing.T) {
	seg := timeline.Segment{
		StartTime: "2024-06-03T12:00:00Z",
		EndTime:   "2024-06-03T12:05:00Z",
		TimelinePath: []timeline.PathPoint{
			{Point: "52.36760°, 4.90410°"},
			{Point: "52.36765°, 4.90415°"},
		},
	}

	trip, err := timeline.ParseSegment(seg, 0)
	assert.NoError(t, err)
	assert.Nil(t, trip, "sub-100m path should be dropped as jitter")
}

func TestParseSegment_EmptySegmentDropped(t *testing.T) {
	seg := timeline.Segment{
		StartTime: "2024-06-03T12:00:00Z",
		EndTime:   "2024-06-03T12:05:00Z",
	}

	trip, err := timeline.ParseSegment(seg, 0)
	assert.NoError(t, err)
	assert.Nil(t, trip)
}

func TestParseSegment_ReversedTimeRange(t *testing.T) {
	seg := visitSegment("52.3676°, 4.9041°", "0.9")
	seg.StartTime = "2024-06-01T12:00:00Z"
	seg.EndTime = "2024-06-01T09:00:00Z"

	_, err := timeline.ParseSegment(seg, 0)
	assert.Error(t, err)
}

func TestParseAll_CountsAndErrors(t *testing.T) {
	export := &timeline.Export{
		SemanticSegments: []timeline.Segment{
			visitSegment("52.3676°, 4.9041°", "0.9"),
			{StartTime: "bad", EndTime: "2024-06-01T10:00:00Z"},
			{StartTime: "2024-06-01T10:00:00Z", EndTime: "2024-06-01T10:05:00Z"},
		},
	}

	trips, processed, errs := timeline.ParseAll(export)
	assert.Len(t, trips, 1)
	assert.Equal(t, 3, processed, "all segments count as processed")
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "segment 1")
}

func TestDecode(t *testing.T) {
	export, err := timeline.Decode(strings.NewReader(`{"semanticSegments":[]}`))
	require.NoError(t, err)
	assert.Empty(t, export.SemanticSegments)
}

func TestDecode_MissingSegmentsIsFatal(t *testing.T) {
	_, err := timeline.Decode(strings.NewReader(`{"other":true}`))
	assert.ErrorIs(t, err, timeline.ErrInvalidExport)
}

func TestDecode_MalformedJSON(t *testing.T) {
	_, err := timeline.Decode(strings.NewReader(`{"semanticSegments":`))
	assert.Error(t, err)
}
