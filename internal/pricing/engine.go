package pricing

import (
	"fmt"
	"math"
	"time"

	"github.com/richxcame/ride-pooling/internal/vehicle"
)

// Price computes the full fare quote for the given inputs. It is a pure
// function: every demand signal it consults arrives through Factors.
func Price(f Factors) (Quote, error) {
	rates, ok := rateTable[f.Class]
	if !ok {
		return Quote{}, fmt.Errorf("unknown vehicle class %q", f.Class)
	}

	distanceCharge := f.DistanceKm * rates.PerKm
	timeCharge := f.DurationMin * rates.PerMin
	base := distanceCharge + timeCharge
	minApplied := false
	if base < rates.MinFare {
		base = rates.MinFare
		minApplied = true
	}

	surge, breakdown := composeSurge(f)
	breakdown.DistanceCharge = round2(distanceCharge)
	breakdown.TimeCharge = round2(timeCharge)
	breakdown.MinFareApplied = minApplied

	discount := DiscountMultiplier(f.PoolSize, f.DetourMinutes)

	return Quote{
		Base:         round2(base),
		Surge:        surge,
		PoolDiscount: discount,
		Final:        round2(base * surge * discount),
		Breakdown:    breakdown,
	}, nil
}

// composeSurge builds the surge multiplier from zone demand, peak hours and
// weather, clamped to [MinSurge, MaxSurge].
func composeSurge(f Factors) (float64, Breakdown) {
	var b Breakdown

	surge := MinSurge
	if f.Zone != nil {
		r := demandRatio(f.Zone.ActiveRequests, f.Zone.AvailableDrivers)
		if r > 1.5 {
			surge += math.Min((r-1.5)*0.5, 1.5)
		}
		surge = math.Max(surge, f.Zone.Multiplier)
		b.ZoneSurge = round2(surge)
	}

	if isPeakHour(f.At) {
		surge *= peakMultiplier
		b.PeakApplied = true
	}

	weather := weatherFactor(f.Weather)
	surge *= weather
	b.WeatherFactor = weather

	return clampSurge(surge), b
}

// DiscountMultiplier returns the pool discount multiplier for a pool of
// size poolSize whose rider experiences detourMin minutes of detour. Solo
// rides are undiscounted; the discount never exceeds half the fare.
func DiscountMultiplier(poolSize int, detourMin float64) float64 {
	if poolSize <= 1 {
		return 1.0
	}
	raw := 0.15*float64(poolSize-1) - 0.02*math.Max(detourMin, 0)
	return math.Max(1-math.Max(raw, 0), 0.50)
}

func demandRatio(active, drivers int) float64 {
	if drivers < 1 {
		drivers = 1
	}
	return float64(active) / float64(drivers)
}

// isPeakHour reports whether t falls in the weekday commute windows
// (07:00-10:00 and 17:00-20:00, Monday through Friday).
func isPeakHour(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	h := t.Hour()
	return (h >= 7 && h < 10) || (h >= 17 && h < 20)
}

func weatherFactor(w Weather) float64 {
	switch w {
	case WeatherRain:
		return 1.2
	case WeatherSnow:
		return 1.5
	default:
		return 1.0
	}
}

func clampSurge(s float64) float64 {
	return math.Max(MinSurge, math.Min(MaxSurge, s))
}

// EstimateFor prices a solo ride for an intake estimate. The committed
// final price is recomputed at match time with the realized pool size and
// detour.
func EstimateFor(distanceKm, durationMin float64, class vehicle.Class, zone *SurgeZone, at time.Time) (Quote, error) {
	if !vehicle.IsValid(class) {
		class = vehicle.ClassSedan
	}
	return Price(Factors{
		DistanceKm:  distanceKm,
		DurationMin: durationMin,
		Class:       class,
		PoolSize:    1,
		Zone:        zone,
		Weather:     WeatherClear,
		At:          at,
	})
}

// FinalFare applies the realized pool discount to an already quoted base
// and surge, rounding to cents.
func FinalFare(base, surge float64, poolSize int, detourMin float64) float64 {
	return round2(base * surge * DiscountMultiplier(poolSize, detourMin))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
