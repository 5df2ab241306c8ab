package stats

import (
	"sort"
	"strings"

	"github.com/tripscope/tripscope/internal/trip"
)

// Canonical transport modes, in the order raw activity labels are matched.
const (
	ModeFlying     = "Flying"
	ModeTrain      = "Train"
	ModeBus        = "Bus"
	ModeCar        = "Car"
	ModeMotorcycle = "Motorcycle"
	ModeBicycle    = "Bicycle"
	ModeWalking    = "Walking"
	ModeRunning    = "Running"
	ModeOther      = "Other"
)

// modeRules map raw activity label substrings to canonical modes. The first
// matching rule wins, so more specific labels come first.
var modeRules = []struct {
	substrings []string
	mode       string
}{
	{[]string{"fly"}, ModeFlying},
	{[]string{"train", "rail", "subway", "tram"}, ModeTrain},
	{[]string{"bus"}, ModeBus},
	{[]string{"passenger vehicle", "driv", "car", "taxi"}, ModeCar},
	{[]string{"motorcycl", "scooter"}, ModeMotorcycle},
	{[]string{"cycl", "bike"}, ModeBicycle},
	{[]string{"walk", "hik"}, ModeWalking},
	{[]string{"run", "jog"}, ModeRunning},
}

// canonicalMode maps a raw activity label to its canonical transport mode.
// Matching is case-insensitive and substring-based; unknown labels fall
// through to ModeOther.
func canonicalMode(label string) string {
	normalized := strings.ToLower(strings.ReplaceAll(label, "_", " "))
	for _, rule := range modeRules {
		for _, sub := range rule.substrings {
			if strings.Contains(normalized, sub) {
				return rule.mode
			}
		}
	}
	return ModeOther
}

// transportModes aggregates journey distances per canonical mode. A journey's
// mode comes from its own activity label; when the journey groups several
// segments the distance splits across each segment's own mode. Buckets sort
// by distance descending, ties by first appearance.
func transportModes(trips []*trip.Trip) []TransportModeStats {
	byMode := map[string]*TransportModeStats{}
	var order []string
	var totalKm float64

	add := func(mode string, km float64) *TransportModeStats {
		bucket, ok := byMode[mode]
		if !ok {
			bucket = &TransportModeStats{Mode: mode}
			byMode[mode] = bucket
			order = append(order, mode)
		}
		bucket.DistanceKm += km
		totalKm += km
		return bucket
	}

	for _, t := range trips {
		if t.Type != trip.Journey {
			continue
		}
		if len(t.Segments) == 0 {
			add(ModeOther, t.DistanceKm).Trips++
			continue
		}
		modes := map[string]struct{}{}
		for _, seg := range t.Segments {
			mode := canonicalMode(seg.ActivityType)
			add(mode, seg.DistanceMeters/1000)
			modes[mode] = struct{}{}
		}
		for mode := range modes {
			byMode[mode].Trips++
		}
	}

	stats := make([]TransportModeStats, 0, len(order))
	for _, mode := range order {
		bucket := *byMode[mode]
		if totalKm > 0 {
			bucket.Percent = bucket.DistanceKm / totalKm * 100
		}
		if bucket.Trips > 0 {
			bucket.AvgDistanceKm = bucket.DistanceKm / float64(bucket.Trips)
		}
		stats = append(stats, bucket)
	}
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].DistanceKm > stats[j].DistanceKm
	})
	return stats
}
