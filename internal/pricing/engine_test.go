package pricing

import (
	"testing"
	"time"

	"github.com/richxcame/ride-pooling/internal/vehicle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// weekdayPeak is a Wednesday 09:00.
var weekdayPeak = time.Date(2025, time.March, 5, 9, 0, 0, 0, time.UTC)

// saturdayNoon is outside every peak window.
var saturdayNoon = time.Date(2025, time.March, 8, 12, 0, 0, 0, time.UTC)

func TestPriceSingleRiderWeekdayPeak(t *testing.T) {
	// JFK to midtown: 21.3 km at 30 km/h is 42.6 minutes.
	quote, err := Price(Factors{
		DistanceKm:  21.3,
		DurationMin: 42.6,
		Class:       vehicle.ClassSedan,
		PoolSize:    1,
		Weather:     WeatherClear,
		At:          weekdayPeak,
	})
	require.NoError(t, err)

	// base = 21.3*2.50 + 42.6*0.40 = 70.29, above the sedan minimum
	assert.InDelta(t, 70.29, quote.Base, 0.001)
	assert.InDelta(t, 1.3, quote.Surge, 0.001)
	assert.Equal(t, 1.0, quote.PoolDiscount)
	assert.InDelta(t, 91.38, quote.Final, 0.01)
	assert.True(t, quote.Breakdown.PeakApplied)
	assert.False(t, quote.Breakdown.MinFareApplied)
}

func TestPriceMinimumFare(t *testing.T) {
	quote, err := Price(Factors{
		DistanceKm:  1.0,
		DurationMin: 2.0,
		Class:       vehicle.ClassVan,
		PoolSize:    1,
		Weather:     WeatherClear,
		At:          saturdayNoon,
	})
	require.NoError(t, err)

	assert.Equal(t, 15.00, quote.Base)
	assert.True(t, quote.Breakdown.MinFareApplied)
	assert.Equal(t, 1.0, quote.Surge)
}

func TestPriceUnknownClass(t *testing.T) {
	_, err := Price(Factors{Class: vehicle.Class("rickshaw"), PoolSize: 1, At: saturdayNoon})
	assert.Error(t, err)
}

func TestSurgeComposition(t *testing.T) {
	tests := []struct {
		name     string
		factors  Factors
		expected float64
	}{
		{
			name: "zone demand above threshold",
			factors: Factors{
				DistanceKm: 10, DurationMin: 20, Class: vehicle.ClassSedan, PoolSize: 1,
				Zone:    &SurgeZone{Multiplier: 1.0, ActiveRequests: 25, AvailableDrivers: 10},
				Weather: WeatherClear, At: saturdayNoon,
			},
			// r = 2.5, 1.0 + (2.5-1.5)*0.5 = 1.5
			expected: 1.5,
		},
		{
			name: "stored zone multiplier wins when higher",
			factors: Factors{
				DistanceKm: 10, DurationMin: 20, Class: vehicle.ClassSedan, PoolSize: 1,
				Zone:    &SurgeZone{Multiplier: 2.0, ActiveRequests: 5, AvailableDrivers: 10},
				Weather: WeatherClear, At: saturdayNoon,
			},
			expected: 2.0,
		},
		{
			name: "rain on a weekday peak",
			factors: Factors{
				DistanceKm: 10, DurationMin: 20, Class: vehicle.ClassSedan, PoolSize: 1,
				Weather: WeatherRain, At: weekdayPeak,
			},
			// 1.0 * 1.3 * 1.2
			expected: 1.56,
		},
		{
			name: "clamped at the ceiling",
			factors: Factors{
				DistanceKm: 10, DurationMin: 20, Class: vehicle.ClassSedan, PoolSize: 1,
				Zone:    &SurgeZone{Multiplier: 3.5, ActiveRequests: 100, AvailableDrivers: 1},
				Weather: WeatherSnow, At: weekdayPeak,
			},
			expected: MaxSurge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quote, err := Price(tt.factors)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, quote.Surge, 0.001)
			assert.GreaterOrEqual(t, quote.Surge, MinSurge)
			assert.LessOrEqual(t, quote.Surge, MaxSurge)
		})
	}
}

func TestDiscountMultiplier(t *testing.T) {
	tests := []struct {
		name     string
		poolSize int
		detour   float64
		expected float64
	}{
		{name: "solo ride", poolSize: 1, detour: 0, expected: 1.0},
		{name: "zero pool size", poolSize: 0, detour: 5, expected: 1.0},
		{name: "pair no detour", poolSize: 2, detour: 0, expected: 0.85},
		{name: "three riders no detour", poolSize: 3, detour: 0, expected: 0.70},
		{name: "detour erodes discount", poolSize: 3, detour: 10, expected: 0.90},
		{name: "detour exceeds discount", poolSize: 2, detour: 20, expected: 1.0},
		{name: "floor at half fare", poolSize: 8, detour: 0, expected: 0.50},
		{name: "negative detour treated as zero", poolSize: 2, detour: -3, expected: 0.85},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DiscountMultiplier(tt.poolSize, tt.detour)
			assert.InDelta(t, tt.expected, got, 0.0001)
			assert.GreaterOrEqual(t, got, 0.50)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestRefreshSurge(t *testing.T) {
	tests := []struct {
		name         string
		active       int
		drivers      int
		prev         float64
		expected     float64
		expectedTier DemandTier
	}{
		{name: "low demand", active: 2, drivers: 10, prev: 1.0, expected: 1.0, expectedTier: TierLow},
		{name: "normal demand", active: 10, drivers: 10, prev: 1.0, expected: 1.0, expectedTier: TierNormal},
		{
			name: "high demand", active: 20, drivers: 10, prev: 1.0,
			// raw = 1.0 + (2.0-1.5)*0.4 = 1.2; 0.3*1.2 + 0.7*1.0 = 1.06
			expected: 1.06, expectedTier: TierHigh,
		},
		{
			name: "very high demand smoothing", active: 30, drivers: 5, prev: 1.0,
			// r = 6, raw = 1.6 + 3.0*0.3 = 2.5; 0.3*2.5 + 0.7*1.0 = 1.45
			expected: 1.45, expectedTier: TierVeryHigh,
		},
		{name: "zero drivers", active: 1, drivers: 0, prev: 1.0, expected: 1.0, expectedTier: TierNormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, tier := RefreshSurge(tt.active, tt.drivers, tt.prev)
			assert.InDelta(t, tt.expected, got, 0.001)
			assert.Equal(t, tt.expectedTier, tier)
			assert.GreaterOrEqual(t, got, MinSurge)
			assert.LessOrEqual(t, got, MaxSurge)
		})
	}
}

func TestRefreshSurgeConverges(t *testing.T) {
	// Repeated refreshes with the same counters approach the raw value.
	surge := 1.0
	for i := 0; i < 30; i++ {
		surge, _ = RefreshSurge(30, 5, surge)
	}
	assert.InDelta(t, 2.5, surge, 0.02)
}

func TestIsPeakHour(t *testing.T) {
	assert.True(t, isPeakHour(time.Date(2025, time.March, 5, 7, 0, 0, 0, time.UTC)))
	assert.True(t, isPeakHour(time.Date(2025, time.March, 5, 17, 30, 0, 0, time.UTC)))
	assert.False(t, isPeakHour(time.Date(2025, time.March, 5, 10, 0, 0, 0, time.UTC)))
	assert.False(t, isPeakHour(time.Date(2025, time.March, 5, 20, 0, 0, 0, time.UTC)))
	assert.False(t, isPeakHour(saturdayNoon))
}
