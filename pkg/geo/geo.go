package geo

import "math"

const (
	earthRadiusKm   = 6371.0
	averageSpeedKmh = 30.0 // city traffic average

	// DefaultDirectionThreshold is the maximum bearing difference, in
	// degrees, for two routes to count as heading the same way.
	DefaultDirectionThreshold = 45.0
)

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Distance calculates the great-circle distance in kilometres between two
// coordinates using the haversine formula.
func Distance(a, b Point) float64 {
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180.0
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180.0

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Latitude*math.Pi/180.0)*math.Cos(b.Latitude*math.Pi/180.0)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

// Bearing calculates the initial bearing from a to b in degrees, normalized
// to [0, 360).
func Bearing(a, b Point) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)

	bearing := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(bearing+360, 360)
}

// TravelTimeMinutes returns the estimated travel time in minutes for a
// distance in kilometres, assuming the average city speed.
func TravelTimeMinutes(distanceKm float64) float64 {
	return (distanceKm / averageSpeedKmh) * 60
}

// WithinRadius reports whether p lies within radiusKm of center.
func WithinRadius(p, center Point, radiusKm float64) bool {
	return Distance(p, center) <= radiusKm
}

// SameDirection reports whether the route a1->a2 and the route b1->b2 head
// in roughly the same direction: the minimum circular difference between
// their bearings must not exceed thresholdDeg.
func SameDirection(a1, a2, b1, b2 Point, thresholdDeg float64) bool {
	return SameHeading(Bearing(a1, a2), Bearing(b1, b2), thresholdDeg)
}

// SameHeading reports whether two bearings differ by at most thresholdDeg,
// accounting for wrap-around at 360.
func SameHeading(b1, b2, thresholdDeg float64) bool {
	diff := math.Abs(b1 - b2)
	if diff > 180 {
		diff = 360 - diff
	}
	return diff <= thresholdDeg
}
