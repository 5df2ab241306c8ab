package stats

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tripscope/tripscope/internal/geo"
	"github.com/tripscope/tripscope/internal/trip"
)

// maxStreakGap is the largest gap between consecutive trips that still
// extends a travel streak.
const maxStreakGap = 7 * 24 * time.Hour

// ComputeEnhanced derives the full analytics bundle: the basic aggregates
// plus calendar buckets, the longest streak, timezone crossings, and the
// transport mode breakdown.
func ComputeEnhanced(trips []*trip.Trip) *EnhancedTravelStats {
	sorted := make([]*trip.Trip, len(trips))
	copy(sorted, trips)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime.Before(sorted[j].StartTime)
	})

	return &EnhancedTravelStats{
		TravelStats:       *Compute(sorted),
		BusiestMonth:      busiestMonth(sorted),
		BusiestSeason:     busiestSeason(sorted),
		LongestStreak:     longestStreak(sorted),
		TimezoneCrossings: timezoneCrossings(sorted),
		TransportModes:    transportModes(sorted),
	}
}

// busiestMonth returns the calendar month holding the most trips, or nil
// when there are none. The earlier month wins ties.
func busiestMonth(trips []*trip.Trip) *MonthBucket {
	type key struct {
		year  int
		month time.Month
	}
	counts := map[key]int{}
	var order []key

	for _, t := range trips {
		k := key{t.StartTime.Year(), t.StartTime.Month()}
		if _, seen := counts[k]; !seen {
			order = append(order, k)
		}
		counts[k]++
	}
	if len(order) == 0 {
		return nil
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].year != order[j].year {
			return order[i].year < order[j].year
		}
		return order[i].month < order[j].month
	})

	best := order[0]
	for _, k := range order[1:] {
		if counts[k] > counts[best] {
			best = k
		}
	}
	return &MonthBucket{
		Year:  best.year,
		Month: best.month,
		Label: fmt.Sprintf("%s %d", best.month, best.year),
		Trips: counts[best],
	}
}

var seasonOrder = []string{"Winter", "Spring", "Summer", "Autumn"}

// seasonOf maps a month to its northern-hemisphere meteorological season.
func seasonOf(m time.Month) string {
	switch m {
	case time.December, time.January, time.February:
		return "Winter"
	case time.March, time.April, time.May:
		return "Spring"
	case time.June, time.July, time.August:
		return "Summer"
	default:
		return "Autumn"
	}
}

// busiestSeason returns the season holding the most trips, with calendar
// order breaking ties.
func busiestSeason(trips []*trip.Trip) *SeasonBucket {
	if len(trips) == 0 {
		return nil
	}
	counts := map[string]int{}
	for _, t := range trips {
		counts[seasonOf(t.StartTime.Month())]++
	}

	best := ""
	for _, season := range seasonOrder {
		if counts[season] > counts[best] {
			best = season
		}
	}
	return &SeasonBucket{Season: best, Trips: counts[best]}
}

// longestStreak finds the longest run of trips where each starts within
// maxStreakGap of the previous trip's end. Length is measured in trips; the
// earliest streak wins ties.
func longestStreak(trips []*trip.Trip) *Streak {
	if len(trips) == 0 {
		return nil
	}

	var best *Streak
	start := 0
	for i := 1; i <= len(trips); i++ {
		if i < len(trips) && trips[i].StartTime.Sub(trips[i-1].EndTime) <= maxStreakGap {
			continue
		}
		streak := buildStreak(trips[start:i])
		if best == nil || streak.Trips > best.Trips {
			best = streak
		}
		start = i
	}
	return best
}

func buildStreak(run []*trip.Trip) *Streak {
	countries := map[string]struct{}{}
	streak := &Streak{
		Start: run[0].StartTime,
		End:   run[len(run)-1].EndTime,
		Trips: len(run),
	}
	for _, t := range run {
		if t.Country != "" {
			countries[strings.ToLower(t.Country)] = struct{}{}
		}
		if t.Type == trip.Journey {
			streak.DistanceKm += t.DistanceKm
		}
	}
	streak.Countries = len(countries)
	return streak
}

// timezoneCrossings walks trips in chronological order and records every
// change in the approximate UTC offset of the trip location.
func timezoneCrossings(trips []*trip.Trip) []TimezoneCrossing {
	crossings := []TimezoneCrossing{}
	if len(trips) == 0 {
		return crossings
	}

	prev := geo.ApproxUTCOffset(trips[0].Location.Longitude)
	for _, t := range trips[1:] {
		offset := geo.ApproxUTCOffset(t.Location.Longitude)
		if offset == prev {
			continue
		}
		crossings = append(crossings, TimezoneCrossing{
			FromOffset: prev,
			ToOffset:   offset,
			Location:   placeLabel(t),
			Date:       t.StartTime,
		})
		prev = offset
	}
	return crossings
}
