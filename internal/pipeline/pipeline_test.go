package pipeline_test

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripscope/tripscope/internal/enrich"
	"github.com/tripscope/tripscope/internal/geo"
	"github.com/tripscope/tripscope/internal/geocode"
	"github.com/tripscope/tripscope/internal/pipeline"
	"github.com/tripscope/tripscope/internal/trip"
)

// exportJSON holds a long visit, a journey, and one malformed segment.
const exportJSON = `{
  "semanticSegments": [
    {
      "startTime": "2024-06-01T08:00:00Z",
      "endTime": "2024-06-01T20:00:00Z",
      "visit": {
        "probability": "0.92",
        "topCandidate": {
          "placeId": "p1",
          "semanticType": "Searched location",
          "placeLocation": {"latLng": "52.3700°, 4.9000°"}
        }
      }
    },
    {
      "startTime": "2024-06-02T09:00:00Z",
      "endTime": "2024-06-02T11:00:00Z",
      "activity": {
        "start": {"latLng": "52.3700°, 4.9000°"},
        "end": {"latLng": "48.8500°, 2.3500°"},
        "distanceMeters": "431000",
        "topCandidate": {"type": "in passenger vehicle", "probability": "0.8"}
      }
    },
    {
      "startTime": "not-a-time",
      "endTime": "2024-06-03T10:00:00Z",
      "visit": {
        "topCandidate": {"placeLocation": {"latLng": "52.3700°, 4.9000°"}}
      }
    }
  ]
}`

type fakeGeocoder struct{}

func (fakeGeocoder) ReverseGeocode(_ context.Context, coord geo.Coordinate) *geocode.Place {
	return &geocode.Place{
		Name:       "Somewhere",
		City:       "Amsterdam",
		Country:    "Netherlands",
		Confidence: 0.9,
	}
}

func newPipeline(enricher *enrich.Enricher) *pipeline.Pipeline {
	return pipeline.New(pipeline.Config{
		Enricher: enricher,
		Logger:   zerolog.Nop(),
	})
}

func TestRun_FullPass(t *testing.T) {
	enricher := enrich.New(enrich.Config{Geocoder: fakeGeocoder{}})
	p := newPipeline(enricher)

	result, err := p.Run(context.Background(), strings.NewReader(exportJSON), nil)
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalSegments)
	assert.Equal(t, 3, result.ProcessedSegments)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "segment 2")

	require.Len(t, result.EnhancedTrips, 2)
	assert.Equal(t, trip.Stay, result.EnhancedTrips[0].Type)
	assert.Equal(t, "Amsterdam", result.EnhancedTrips[0].City)
	assert.Equal(t, trip.Journey, result.EnhancedTrips[1].Type)
	assert.InDelta(t, 431.0, result.EnhancedTrips[1].DistanceKm, 0.001)

	require.NotNil(t, result.BasicStats)
	assert.Equal(t, 2, result.BasicStats.TotalTrips)
	require.NotNil(t, result.EnhancedStats)
	assert.InDelta(t, 431.0, result.EnhancedStats.TotalDistanceKm, 0.001)
}

func TestRun_NoEnricherLeavesTripsBare(t *testing.T) {
	p := newPipeline(nil)

	result, err := p.Run(context.Background(), strings.NewReader(exportJSON), nil)
	require.NoError(t, err)

	require.Len(t, result.EnhancedTrips, 2)
	assert.Empty(t, result.EnhancedTrips[0].City)
	assert.Empty(t, result.BasicTrips[0].City, "basic view stays untouched")
}

func TestRun_InvalidExport(t *testing.T) {
	p := newPipeline(nil)

	_, err := p.Run(context.Background(), strings.NewReader(`{"foo": 1}`), nil)
	assert.Error(t, err)
}

func TestRun_ProgressIsMonotonicAndReachesOneHundred(t *testing.T) {
	enricher := enrich.New(enrich.Config{Geocoder: fakeGeocoder{}})
	p := newPipeline(enricher)

	var percents []int
	progress := func(percent int, _ string) {
		percents = append(percents, percent)
	}

	_, err := p.Run(context.Background(), strings.NewReader(exportJSON), progress)
	require.NoError(t, err)

	require.NotEmpty(t, percents)
	for i := 1; i < len(percents); i++ {
		assert.GreaterOrEqual(t, percents[i], percents[i-1])
	}
	assert.Equal(t, 100, percents[len(percents)-1])
}
