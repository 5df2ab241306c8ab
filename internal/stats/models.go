// Package stats derives basic and advanced travel statistics from enriched
// trips. Every computation is a pure function of its input: running it twice
// on the same trips yields identical results.
package stats

import "time"

// TravelStats is the basic aggregate bundle.
type TravelStats struct {
	TotalTrips       int            `json:"totalTrips"`
	TotalDistanceKm  float64        `json:"totalDistanceKm"`
	UniqueCities     int            `json:"uniqueCities"`
	UniqueCountries  int            `json:"uniqueCountries"`
	LongestTripKm    float64        `json:"longestTripKm"`
	MostVisitedPlace string         `json:"mostVisitedPlace,omitempty"`
	FirstTripDate    *time.Time     `json:"firstTripDate,omitempty"`
	LastTripDate     *time.Time     `json:"lastTripDate,omitempty"`
	HottestTrip      *WeatherMark   `json:"hottestTrip,omitempty"`
	ColdestTrip      *WeatherMark   `json:"coldestTrip,omitempty"`
	Countries        []CountryVisit `json:"countries"`
	TopDestinations  []Destination  `json:"topDestinations"`
}

// EnhancedTravelStats extends TravelStats with the advanced analytics.
type EnhancedTravelStats struct {
	TravelStats

	BusiestMonth      *MonthBucket         `json:"busiestMonth,omitempty"`
	BusiestSeason     *SeasonBucket        `json:"busiestSeason,omitempty"`
	LongestStreak     *Streak              `json:"longestStreak,omitempty"`
	TimezoneCrossings []TimezoneCrossing   `json:"timezoneCrossings"`
	TransportModes    []TransportModeStats `json:"transportModes"`
}

// WeatherMark points at the trip holding a temperature extreme.
type WeatherMark struct {
	PlaceName   string    `json:"placeName,omitempty"`
	City        string    `json:"city,omitempty"`
	Temperature float64   `json:"temperature"`
	Date        time.Time `json:"date"`
}

// CountryVisit is one visited country with its visit count and flag glyph.
type CountryVisit struct {
	Name   string `json:"name"`
	Code   string `json:"code"`
	Flag   string `json:"flag,omitempty"`
	Visits int    `json:"visits"`
}

// Destination is one ranked destination.
type Destination struct {
	Name      string `json:"name"`
	Visits    int    `json:"visits"`
	TotalDays int    `json:"totalDays"`
}

// MonthBucket is the trip count of one calendar month.
type MonthBucket struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Label string     `json:"label"`
	Trips int        `json:"trips"`
}

// SeasonBucket is the trip count of one fixed three-month season.
type SeasonBucket struct {
	Season string `json:"season"`
	Trips  int    `json:"trips"`
}

// Streak is a contiguous run of trips with gaps of at most the streak window.
type Streak struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Trips      int       `json:"trips"`
	Countries  int       `json:"countries"`
	DistanceKm float64   `json:"distanceKm"`
}

// TimezoneCrossing is one transition between approximate UTC-offset zones.
type TimezoneCrossing struct {
	FromOffset int       `json:"fromOffset"`
	ToOffset   int       `json:"toOffset"`
	Location   string    `json:"location,omitempty"`
	Date       time.Time `json:"date"`
}

// TransportModeStats aggregates journeys of one canonical transport mode.
type TransportModeStats struct {
	Mode          string  `json:"mode"`
	DistanceKm    float64 `json:"distanceKm"`
	Percent       float64 `json:"percent"`
	Trips         int     `json:"trips"`
	AvgDistanceKm float64 `json:"avgDistanceKm"`
}
