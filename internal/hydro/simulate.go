package hydro

import (
	"math"
	"math/rand/v2"
	"strconv"
	"time"
)

// SimulateFlow produces a plausible CFS reading for a site when the
// upstream service is unreachable. A base flow is adjusted by a
// site-derived offset, a seasonal sine term, and a random daily jitter,
// then floored at 50 so the result is always a positive, bounded number.
// Not a hydrological model; a placeholder the UI labels as simulated.
func SimulateFlow(siteNumber string, date time.Time) float64 {
	const baseFlow = 500.0

	site, err := strconv.ParseInt(siteNumber, 10, 64)
	if err != nil {
		site = int64(len(siteNumber))
	}
	siteVariation := float64(site%1000) / 10

	month := float64(int(date.Month()) - 1)
	seasonalVariation := math.Sin(month*math.Pi/6) * 200

	randomVariation := (rand.Float64() - 0.5) * 100

	cfs := math.Round(baseFlow + siteVariation + seasonalVariation + randomVariation)
	return math.Max(50, cfs)
}

// simulateHourlyCurve spreads a simulated base value across 24 hours with
// a gentle diurnal swing and small jitter so the graph is not a flat line.
func simulateHourlyCurve(base float64) [24]float64 {
	var curve [24]float64
	for hour := 0; hour < 24; hour++ {
		v := math.Round(base + math.Sin(float64(hour)/4)*20 + (rand.Float64()-0.5)*10)
		curve[hour] = math.Max(50, v)
	}
	return curve
}
