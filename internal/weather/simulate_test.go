package weather

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulateWeather_BoundedRanges(t *testing.T) {
	date := time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 50; i++ {
		snap := SimulateWeather(44.95, date)
		require.NotNil(t, snap)

		assert.True(t, snap.Simulated)
		assert.GreaterOrEqual(t, snap.TempF, 10.0)
		assert.LessOrEqual(t, snap.TempF, 105.0)
		assert.GreaterOrEqual(t, snap.PressureInHg, 28.5)
		assert.LessOrEqual(t, snap.PressureInHg, 31.0)
		assert.GreaterOrEqual(t, snap.WindMph, 5.0)
		assert.LessOrEqual(t, snap.WindMph, 20.0)
		assert.GreaterOrEqual(t, snap.Humidity, 40)
		assert.Less(t, snap.Humidity, 90)
		assert.Contains(t, windDirections, snap.WindDir)
		assert.NotEmpty(t, snap.Conditions)
	}
}

func TestSimulateWeather_LatitudeBandsTrackClimate(t *testing.T) {
	// Same midsummer date; a northern latitude should simulate cooler
	// than a deep-south one. The daily jitter terms are deterministic,
	// so the comparison is stable.
	date := time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)
	north := SimulateWeather(47.5, date)
	south := SimulateWeather(28.0, date)

	assert.Less(t, north.TempF, south.TempF)
}

func TestSimulateWeather_ZeroLatitudeDefaultsToMidwest(t *testing.T) {
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	snap := SimulateWeather(0, date)

	// The 44-degree default lands in the 60F base band; January pulls it
	// well below the deep-south winter range.
	tropics := SimulateWeather(20.0, date)
	assert.Less(t, snap.TempF, tropics.TempF)
}
