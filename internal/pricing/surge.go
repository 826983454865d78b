package pricing

import "math"

// RefreshSurge recomputes a zone's surge multiplier from its current
// counters, exponentially smoothed against the previous value so one noisy
// tick cannot whipsaw prices.
func RefreshSurge(activeRequests, availableDrivers int, prevSurge float64) (float64, DemandTier) {
	r := demandRatio(activeRequests, availableDrivers)
	raw, tier := rawSurgeForRatio(r)

	smoothed := surgeSmoothFactor*raw + (1-surgeSmoothFactor)*prevSurge
	return clampSurge(math.Round(smoothed*100) / 100), tier
}

func rawSurgeForRatio(r float64) (float64, DemandTier) {
	switch {
	case r < 0.5:
		return 1.0, TierLow
	case r < 1.5:
		return 1.0, TierNormal
	case r < 3.0:
		return 1.0 + (r-1.5)*0.4, TierHigh
	default:
		return 1.6 + (r-3.0)*0.3, TierVeryHigh
	}
}
