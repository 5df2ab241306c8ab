package stats

import (
	"sort"
	"strings"

	"github.com/tripscope/tripscope/internal/country"
	"github.com/tripscope/tripscope/internal/trip"
)

// minutesPerDay converts trip durations to day counts for destination ranking.
const minutesPerDay = 24 * 60

// Compute derives the basic aggregate bundle from trips. Ties in counted
// rankings break toward the first-seen entry, in trip order, so results are
// deterministic.
func Compute(trips []*trip.Trip) *TravelStats {
	stats := &TravelStats{
		TotalTrips:      len(trips),
		Countries:       []CountryVisit{},
		TopDestinations: []Destination{},
	}
	if len(trips) == 0 {
		return stats
	}

	cities := map[string]struct{}{}
	countrySet := map[string]struct{}{}

	for _, t := range trips {
		if t.Type == trip.Journey {
			stats.TotalDistanceKm += t.DistanceKm
			if t.DistanceKm > stats.LongestTripKm {
				stats.LongestTripKm = t.DistanceKm
			}
		}
		if t.City != "" {
			cities[strings.ToLower(t.City)] = struct{}{}
		}
		if t.Country != "" {
			countrySet[strings.ToLower(t.Country)] = struct{}{}
		}

		if stats.FirstTripDate == nil || t.StartTime.Before(*stats.FirstTripDate) {
			start := t.StartTime
			stats.FirstTripDate = &start
		}
		if stats.LastTripDate == nil || t.EndTime.After(*stats.LastTripDate) {
			end := t.EndTime
			stats.LastTripDate = &end
		}
	}
	stats.UniqueCities = len(cities)
	stats.UniqueCountries = len(countrySet)

	stats.MostVisitedPlace = mostVisitedPlace(trips)
	stats.HottestTrip, stats.ColdestTrip = temperatureExtremes(trips)
	stats.Countries = countryVisits(trips)
	stats.TopDestinations = topDestinations(trips, 10)
	return stats
}

// mostVisitedPlace counts raw occurrences of each place name across all
// trips; the first-seen name wins ties.
func mostVisitedPlace(trips []*trip.Trip) string {
	counts := map[string]int{}
	var order []string

	for _, t := range trips {
		name := placeLabel(t)
		if name == "" {
			continue
		}
		if _, seen := counts[name]; !seen {
			order = append(order, name)
		}
		counts[name]++
	}

	best := ""
	bestCount := 0
	for _, name := range order {
		if counts[name] > bestCount {
			best = name
			bestCount = counts[name]
		}
	}
	return best
}

func placeLabel(t *trip.Trip) string {
	if t.PlaceName != "" {
		return t.PlaceName
	}
	return t.City
}

// temperatureExtremes finds the hottest and coldest weather-bearing trips.
// Both are nil when no trip carries weather.
func temperatureExtremes(trips []*trip.Trip) (hottest, coldest *WeatherMark) {
	for _, t := range trips {
		if t.Weather == nil {
			continue
		}
		mark := &WeatherMark{
			PlaceName:   t.PlaceName,
			City:        t.City,
			Temperature: t.Weather.Temperature,
			Date:        t.StartTime,
		}
		if hottest == nil || mark.Temperature > hottest.Temperature {
			hottest = mark
		}
		if coldest == nil || mark.Temperature < coldest.Temperature {
			coldest = mark
		}
	}
	return hottest, coldest
}

// countryVisits counts visits per country, sorted by visit count descending
// with first-seen order breaking ties.
func countryVisits(trips []*trip.Trip) []CountryVisit {
	byCode := map[string]*CountryVisit{}
	var order []string

	for _, t := range trips {
		if t.Country == "" {
			continue
		}
		key := strings.ToLower(t.Country)
		v, ok := byCode[key]
		if !ok {
			v = &CountryVisit{
				Name: t.Country,
				Code: strings.ToUpper(t.CountryCode),
				Flag: country.FlagEmoji(t.CountryCode),
			}
			byCode[key] = v
			order = append(order, key)
		}
		v.Visits++
	}

	visits := make([]CountryVisit, 0, len(order))
	for _, key := range order {
		visits = append(visits, *byCode[key])
	}
	sort.SliceStable(visits, func(i, j int) bool {
		return visits[i].Visits > visits[j].Visits
	})
	return visits
}

// topDestinations ranks destinations by visit count, then total days spent.
// Day count per visit is the trip duration in days, rounded up, minimum one.
func topDestinations(trips []*trip.Trip, limit int) []Destination {
	byName := map[string]*Destination{}
	var order []string

	for _, t := range trips {
		name := t.City
		if name == "" {
			name = t.PlaceName
		}
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		d, ok := byName[key]
		if !ok {
			d = &Destination{Name: name}
			byName[key] = d
			order = append(order, key)
		}
		d.Visits++
		days := (t.DurationMinutes + minutesPerDay - 1) / minutesPerDay
		if days < 1 {
			days = 1
		}
		d.TotalDays += days
	}

	destinations := make([]Destination, 0, len(order))
	for _, key := range order {
		destinations = append(destinations, *byName[key])
	}
	sort.SliceStable(destinations, func(i, j int) bool {
		if destinations[i].Visits != destinations[j].Visits {
			return destinations[i].Visits > destinations[j].Visits
		}
		return destinations[i].TotalDays > destinations[j].TotalDays
	})

	if len(destinations) > limit {
		destinations = destinations[:limit]
	}
	return destinations
}
