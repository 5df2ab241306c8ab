package trip

import (
	"math"
	"sort"

	"github.com/tripscope/tripscope/internal/geo"
)

// proximityThresholdMeters is the maximum distance at which two STAY trips
// are considered the same place and merged.
const proximityThresholdMeters = 100.0

// Deduplicate merges proximate STAY trips after enrichment. Journeys pass
// through unchanged. Merging mutates the kept trip in place and discards its
// partner; this is the one place in the pipeline where a previously produced
// value is mutated, and it keeps unaffected trips in order. The result is
// sorted by start time.
func Deduplicate(trips []*Trip) []*Trip {
	kept := make([]*Trip, 0, len(trips))

	for _, t := range trips {
		if t.Type != Stay {
			kept = append(kept, t)
			continue
		}

		merged := false
		for _, existing := range kept {
			if existing.Type != Stay {
				continue
			}
			if geo.Haversine(existing.Location, t.Location) <= proximityThresholdMeters {
				mergeStays(existing, t)
				merged = true
				break
			}
		}
		if !merged {
			kept = append(kept, t)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].StartTime.Before(kept[j].StartTime)
	})
	return kept
}

// mergeStays folds discarded into kept: the time range widens, the more
// extreme weather reading survives, identity fields come from the higher
// confidence trip, and segments are appended exactly once.
func mergeStays(kept, discarded *Trip) {
	if discarded.StartTime.Before(kept.StartTime) {
		kept.StartTime = discarded.StartTime
	}
	if discarded.EndTime.After(kept.EndTime) {
		kept.EndTime = discarded.EndTime
	}
	kept.recalcDuration()

	if kept.Weather == nil {
		kept.Weather = discarded.Weather
	} else if discarded.Weather != nil &&
		math.Abs(discarded.Weather.Temperature) > math.Abs(kept.Weather.Temperature) {
		kept.Weather = discarded.Weather
	}

	if discarded.Confidence > kept.Confidence {
		kept.PlaceName = discarded.PlaceName
		kept.Address = discarded.Address
		kept.City = discarded.City
		kept.Country = discarded.Country
		kept.CountryCode = discarded.CountryCode
		kept.Confidence = discarded.Confidence
	}

	kept.Segments = append(kept.Segments, discarded.Segments...)
}
