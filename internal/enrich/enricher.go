// Package enrich runs the batched, fault-tolerant enrichment stage: it fans
// grouped trips out to the geocoding, weather and country services under
// bounded concurrency and reports progress as batches complete.
package enrich

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tripscope/tripscope/internal/country"
	"github.com/tripscope/tripscope/internal/geo"
	"github.com/tripscope/tripscope/internal/geocode"
	"github.com/tripscope/tripscope/internal/trip"
	"github.com/tripscope/tripscope/internal/weather"
)

// DefaultConcurrency is the batch size: the number of trips enriched at once.
const DefaultConcurrency = 5

// journeyWeatherMinDelta is the coordinate delta (degrees, either axis)
// above which a journey's endpoints are far enough apart to sample weather
// at both ends.
const journeyWeatherMinDelta = 0.1

// ProgressFunc receives enrichment progress, at minimum once per batch.
type ProgressFunc func(percent int, stage string)

// Geocoder resolves a coordinate to a place, degrading instead of failing.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, coord geo.Coordinate) *geocode.Place
}

// WeatherSource returns the weather for a coordinate and day, or nil.
type WeatherSource interface {
	WeatherForDate(ctx context.Context, coord geo.Coordinate, date time.Time) *weather.Observation
}

// CountryResolver maps a coordinate to a country, or nil.
type CountryResolver interface {
	ByCoordinates(lat, lon float64) *country.Country
}

// Config holds the enricher's collaborators.
type Config struct {
	Geocoder    Geocoder
	Weather     WeatherSource
	Countries   CountryResolver
	Logger      zerolog.Logger
	Concurrency int
}

// Enricher enriches grouped trips with place, country and weather data.
type Enricher struct {
	geocoder    Geocoder
	weather     WeatherSource
	countries   CountryResolver
	logger      zerolog.Logger
	concurrency int
}

// New creates an Enricher. A zero or negative concurrency falls back to
// DefaultConcurrency.
func New(cfg Config) *Enricher {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Enricher{
		geocoder:    cfg.Geocoder,
		weather:     cfg.Weather,
		countries:   cfg.Countries,
		logger:      cfg.Logger,
		concurrency: concurrency,
	}
}

// Enrich processes trips in fixed-size batches: within a batch every trip
// enriches concurrently, batches run sequentially, and progress is reported
// after each batch. Result order matches input order because each result is
// written to its input index, never by completion time. Enrichment failures
// degrade per field and never abort the run.
func (e *Enricher) Enrich(ctx context.Context, trips []*trip.Trip, progress ProgressFunc) []*trip.Trip {
	out := make([]*trip.Trip, len(trips))
	if len(trips) == 0 {
		if progress != nil {
			progress(100, "enriching")
		}
		return out
	}

	done := 0
	for start := 0; start < len(trips); start += e.concurrency {
		end := start + e.concurrency
		if end > len(trips) {
			end = len(trips)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				out[i] = e.enrichTrip(ctx, trips[i])
			}(i)
		}
		wg.Wait()

		done += end - start
		if progress != nil {
			progress(done*100/len(trips), "enriching")
		}
	}
	return out
}

// enrichTrip returns an enriched copy of t; the input is never mutated.
func (e *Enricher) enrichTrip(ctx context.Context, t *trip.Trip) *trip.Trip {
	enriched := *t

	if enriched.City == "" || enriched.Country == "" {
		e.resolvePlace(ctx, &enriched)
	}
	if e.wantsWeather(&enriched) {
		enriched.Weather = e.lookupWeather(ctx, &enriched)
	}
	return &enriched
}

func (e *Enricher) resolvePlace(ctx context.Context, t *trip.Trip) {
	if e.geocoder == nil {
		return
	}
	place := e.geocoder.ReverseGeocode(ctx, t.Location)
	if place == nil {
		return
	}

	if t.PlaceName == "" && place.Name != "" {
		t.PlaceName = place.Name
	}
	if t.Address == "" {
		t.Address = place.Address
	}
	if t.City == "" {
		t.City = place.City
	}
	if place.Country != "" {
		t.Country = place.Country
		t.CountryCode = place.CountryCode
		return
	}

	// Geocoder had no country; fall back to the coordinate lookup table.
	if e.countries == nil {
		return
	}
	if c := e.countries.ByCoordinates(t.Location.Latitude, t.Location.Longitude); c != nil {
		t.Country = c.Name
		t.CountryCode = c.Code
	}
}

// wantsWeather decides whether a trip gets a weather lookup: stays always,
// journeys only when the endpoints are far enough apart that the weather
// plausibly differed.
func (e *Enricher) wantsWeather(t *trip.Trip) bool {
	if e.weather == nil {
		return false
	}
	if t.Type == trip.Stay {
		return true
	}
	if t.EndLocation == nil {
		return false
	}
	return math.Abs(t.EndLocation.Latitude-t.Location.Latitude) > journeyWeatherMinDelta ||
		math.Abs(t.EndLocation.Longitude-t.Location.Longitude) > journeyWeatherMinDelta
}

// lookupWeather samples the trip's start date at the primary location and,
// for journeys, at the end location too, keeping whichever reading is more
// extreme in absolute temperature.
func (e *Enricher) lookupWeather(ctx context.Context, t *trip.Trip) *weather.Observation {
	obs := e.weather.WeatherForDate(ctx, t.Location, t.StartTime)

	if t.Type == trip.Journey && t.EndLocation != nil {
		if other := e.weather.WeatherForDate(ctx, *t.EndLocation, t.StartTime); other != nil {
			if obs == nil || math.Abs(other.Temperature) > math.Abs(obs.Temperature) {
				obs = other
			}
		}
	}
	return obs
}
