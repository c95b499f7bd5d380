package weather

import (
	"math"
	"math/rand/v2"
	"time"

	"riverlog/internal/types"
)

// simulatedConditions is the pool of sky descriptions for simulated
// snapshots.
var simulatedConditions = []string{
	"clear sky", "few clouds", "scattered clouds", "overcast clouds",
	"light rain", "mist",
}

// SimulateWeather produces a plausible weather snapshot for a latitude and
// date when the live integration is unavailable. Temperature comes from a
// latitude band plus seasonal and daily sine terms; pressure jitters around
// the standard atmosphere and is clamped to a realistic range. Always
// marked simulated.
func SimulateWeather(lat float64, date time.Time) *types.WeatherSnapshot {
	if lat == 0 {
		lat = 44.0
	}

	var baseTemp float64
	switch {
	case lat >= 45:
		baseTemp = 50
	case lat >= 40:
		baseTemp = 60
	case lat >= 35:
		baseTemp = 70
	case lat >= 30:
		baseTemp = 75
	default:
		baseTemp = 80
	}

	month := float64(int(date.Month()))
	day := float64(date.Day())
	seasonal := math.Sin((month-4)*math.Pi/6) * 30
	daily := math.Sin(day*math.Pi/15) * 5
	temp := clamp(math.Round(baseTemp+seasonal+daily), 10, 105)

	pressure := 29.92 + (rand.Float64()-0.5)*2
	pressure = clamp(math.Round(pressure*100)/100, 28.5, 31.0)

	return &types.WeatherSnapshot{
		TempF:        temp,
		FeelsLikeF:   temp,
		Humidity:     40 + rand.IntN(50),
		PressureInHg: pressure,
		WindMph:      math.Round(rand.Float64()*15 + 5),
		WindDir:      windDirections[rand.IntN(16)],
		Conditions:   simulatedConditions[rand.IntN(len(simulatedConditions))],
		Simulated:    true,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
