package trip

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/tripscope/tripscope/internal/timeline"
)

const (
	// minStayDuration is the accumulated stay time below which an isolated
	// run of stay segments is dropped as noise.
	minStayDuration = 10 * time.Minute

	// minJourneyDistanceMeters filters out micro-movements such as GPS
	// jitter around a parking spot.
	minJourneyDistanceMeters = 1000.0
)

// Group run-length groups consecutive same-kind segments into candidate
// trips: runs of stay segments become one STAY trip when long enough, and
// each sufficiently long movement segment becomes a standalone JOURNEY.
// The input is sorted by start time first; Group performs no I/O.
func Group(segments []*timeline.ProcessedTrip) []*Trip {
	sorted := make([]*timeline.ProcessedTrip, len(segments))
	copy(sorted, segments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime.Before(sorted[j].StartTime)
	})

	var trips []*Trip
	var run []*timeline.ProcessedTrip

	flush := func() {
		if trip := stayFromRun(run); trip != nil {
			trips = append(trips, trip)
		}
		run = nil
	}

	for _, seg := range sorted {
		if seg.IsStay() {
			run = append(run, seg)
			continue
		}
		flush()
		if trip := journeyFromSegment(seg); trip != nil {
			trips = append(trips, trip)
		}
	}
	flush()

	return trips
}

// stayFromRun collapses a run of stay segments into one STAY trip, taking
// identity fields from the highest-confidence member. Runs shorter than the
// minimum stay duration are dropped.
func stayFromRun(run []*timeline.ProcessedTrip) *Trip {
	if len(run) == 0 {
		return nil
	}

	var total time.Duration
	best := run[0]
	for _, seg := range run {
		total += seg.Duration()
		if seg.Confidence > best.Confidence {
			best = seg
		}
	}
	if total < minStayDuration {
		return nil
	}

	trip := &Trip{
		ID:         uuid.New().String(),
		Type:       Stay,
		StartTime:  run[0].StartTime,
		EndTime:    run[len(run)-1].EndTime,
		Location:   best.StartLocation,
		PlaceName:  best.PlaceName,
		Address:    best.Address,
		Confidence: best.Confidence,
		Segments:   run,
	}
	trip.recalcDuration()
	return trip
}

func journeyFromSegment(seg *timeline.ProcessedTrip) *Trip {
	if seg.DistanceMeters <= minJourneyDistanceMeters {
		return nil
	}

	end := seg.EndLocation
	trip := &Trip{
		ID:          uuid.New().String(),
		Type:        Journey,
		StartTime:   seg.StartTime,
		EndTime:     seg.EndTime,
		Location:    seg.StartLocation,
		EndLocation: &end,
		DistanceKm:  seg.DistanceMeters / 1000,
		Confidence:  seg.Confidence,
		Segments:    []*timeline.ProcessedTrip{seg},
	}
	trip.recalcDuration()
	return trip
}
