// Package astro computes lunar phase data for journal entries and the moon
// endpoint. The computation is pure and total: any date in the supported
// calendar range yields a valid phase.
package astro

import (
	"math"
	"time"

	"riverlog/internal/types"
)

// Reference new moon: January 6, 2000 18:14 UTC.
const (
	newMoonJD    = 2451549.259722
	synodicMonth = 29.5305888531
)

// Phase bucket boundaries in days of lunar age. Ages at or beyond the last
// boundary wrap back to New Moon.
var phaseBoundaries = []float64{
	1.84566,  // New Moon
	5.53699,  // Waxing Crescent
	9.22831,  // First Quarter
	12.91963, // Waxing Gibbous
	16.61096, // Full Moon
	20.30228, // Waning Gibbous
	23.99361, // Last Quarter
	27.68493, // Waning Crescent
}

var phaseNames = []string{
	"New Moon",
	"Waxing Crescent",
	"First Quarter",
	"Waxing Gibbous",
	"Full Moon",
	"Waning Gibbous",
	"Last Quarter",
	"Waning Crescent",
}

var phaseEmojis = []string{"🌑", "🌒", "🌓", "🌔", "🌕", "🌖", "🌗", "🌘"}

// ComputePhase returns the lunar phase for the civil date of t.
// Only the year, month, and day components are used; time of day is ignored.
func ComputePhase(t time.Time) types.LunarPhase {
	year, month, day := t.Date()

	jd := julianDay(year, int(month), day)

	// Fractional position within the current lunation cycle.
	lunations := (jd - newMoonJD) / synodicMonth
	cycle := lunations - math.Floor(lunations)
	if cycle < 0 {
		cycle += 1
	}

	age := cycle * synodicMonth

	idx := len(phaseBoundaries) - 1
	for i, boundary := range phaseBoundaries {
		if age < boundary {
			idx = i
			break
		}
	}
	// Ages past the final boundary wrap to New Moon.
	if age >= phaseBoundaries[len(phaseBoundaries)-1] {
		idx = 0
	}

	illumination := int(math.Round(50 * (1 - math.Cos(2*math.Pi*cycle))))
	if illumination < 0 {
		illumination = 0
	}
	if illumination > 100 {
		illumination = 100
	}

	return types.LunarPhase{
		Name:         phaseNames[idx],
		Emoji:        phaseEmojis[idx],
		Illumination: illumination,
		AgeDays:      math.Round(age*100) / 100,
	}
}

// julianDay converts a civil calendar date to a Julian Day anchored at noon.
func julianDay(year, month, day int) float64 {
	a := (14 - month) / 12
	y := year - a
	m := month + 12*a - 3
	jdn := day + (153*m+2)/5 + 365*y + y/4 - y/100 + y/400 + 1721119
	return float64(jdn) + 0.5
}
