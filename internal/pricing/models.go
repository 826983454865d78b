package pricing

import (
	"time"

	"github.com/richxcame/ride-pooling/internal/vehicle"
	"github.com/richxcame/ride-pooling/pkg/geo"
)

// Weather represents the current weather condition at the pickup.
type Weather string

const (
	WeatherClear Weather = "clear"
	WeatherRain  Weather = "rain"
	WeatherSnow  Weather = "snow"
)

// DemandTier classifies a surge zone's demand/supply pressure.
type DemandTier string

const (
	TierLow      DemandTier = "low"
	TierNormal   DemandTier = "normal"
	TierHigh     DemandTier = "high"
	TierVeryHigh DemandTier = "very_high"
)

// Surge bounds and composition constants.
const (
	MinSurge = 1.0
	MaxSurge = 3.5

	peakMultiplier    = 1.3
	surgeSmoothFactor = 0.3
)

// classRates holds the per-class fare rates.
type classRates struct {
	PerKm   float64
	PerMin  float64
	MinFare float64
}

var rateTable = map[vehicle.Class]classRates{
	vehicle.ClassSedan: {PerKm: 2.50, PerMin: 0.40, MinFare: 8.00},
	vehicle.ClassSUV:   {PerKm: 3.50, PerMin: 0.55, MinFare: 12.00},
	vehicle.ClassVan:   {PerKm: 4.50, PerMin: 0.70, MinFare: 15.00},
}

// SurgeZone is a circular geographic region with a demand-driven multiplier.
type SurgeZone struct {
	ID               string     `json:"id" db:"id"`
	Name             string     `json:"name" db:"name"`
	Center           geo.Point  `json:"center"`
	RadiusKm         float64    `json:"radius_km" db:"radius_km"`
	Multiplier       float64    `json:"multiplier" db:"multiplier"`
	Tier             DemandTier `json:"tier" db:"tier"`
	ActiveRequests   int        `json:"active_requests" db:"active_requests"`
	AvailableDrivers int        `json:"available_drivers" db:"available_drivers"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// Contains reports whether p falls inside the zone's radius.
func (z *SurgeZone) Contains(p geo.Point) bool {
	return geo.WithinRadius(p, z.Center, z.RadiusKm)
}

// Factors contains all inputs for a fare calculation.
type Factors struct {
	DistanceKm    float64
	DurationMin   float64
	Class         vehicle.Class
	PoolSize      int
	DetourMinutes float64
	Zone          *SurgeZone
	Weather       Weather
	At            time.Time
}

// Quote is the result of a fare calculation. All monetary values are
// rounded to two decimal places.
type Quote struct {
	Base         float64   `json:"base"`
	Surge        float64   `json:"surge"`
	PoolDiscount float64   `json:"pool_discount"`
	Final        float64   `json:"final"`
	Breakdown    Breakdown `json:"breakdown"`
}

// Breakdown itemizes the fare components for transparency.
type Breakdown struct {
	DistanceCharge float64 `json:"distance_charge"`
	TimeCharge     float64 `json:"time_charge"`
	MinFareApplied bool    `json:"min_fare_applied"`
	ZoneSurge      float64 `json:"zone_surge"`
	PeakApplied    bool    `json:"peak_applied"`
	WeatherFactor  float64 `json:"weather_factor"`
}
