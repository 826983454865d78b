package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	jfk       = Point{Latitude: 40.6413, Longitude: -73.7781}
	timesSq   = Point{Latitude: 40.7580, Longitude: -73.9855}
	equator0  = Point{Latitude: 0, Longitude: 0}
	equator10 = Point{Latitude: 0, Longitude: 10}
	north10   = Point{Latitude: 10, Longitude: 0}
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Point
		expected float64
		delta    float64
	}{
		{name: "same point", a: jfk, b: jfk, expected: 0, delta: 0.001},
		{name: "jfk to times square", a: jfk, b: timesSq, expected: 21.9, delta: 1.0},
		{name: "one degree of longitude at equator", a: equator0, b: equator10, expected: 1111.9, delta: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Distance(tt.a, tt.b), tt.delta)
			// symmetric
			assert.InDelta(t, Distance(tt.a, tt.b), Distance(tt.b, tt.a), 0.0001)
		})
	}
}

func TestBearing(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Point
		expected float64
	}{
		{name: "due north", a: equator0, b: north10, expected: 0},
		{name: "due east", a: equator0, b: equator10, expected: 90},
		{name: "due south", a: north10, b: equator0, expected: 180},
		{name: "due west", a: equator10, b: equator0, expected: 270},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Bearing(tt.a, tt.b)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.Less(t, got, 360.0)
			assert.InDelta(t, tt.expected, got, 1.0)
		})
	}
}

func TestTravelTimeMinutes(t *testing.T) {
	// 30 km/h means one kilometre takes two minutes.
	assert.InDelta(t, 2.0, TravelTimeMinutes(1), 0.0001)
	assert.InDelta(t, 42.6, TravelTimeMinutes(21.3), 0.0001)
	assert.Zero(t, TravelTimeMinutes(0))
}

func TestWithinRadius(t *testing.T) {
	assert.True(t, WithinRadius(jfk, jfk, 0.1))
	assert.False(t, WithinRadius(jfk, timesSq, 5))
	assert.True(t, WithinRadius(jfk, timesSq, 30))
}

func TestSameDirection(t *testing.T) {
	// Two trips both heading north.
	assert.True(t, SameDirection(equator0, north10,
		Point{Latitude: 0, Longitude: 1}, Point{Latitude: 10, Longitude: 1}, DefaultDirectionThreshold))

	// Opposite directions, 180 degrees apart.
	assert.False(t, SameDirection(equator0, north10, north10, equator0, DefaultDirectionThreshold))

	// Orthogonal routes fail the default threshold but pass a loose one.
	assert.False(t, SameDirection(equator0, north10, equator0, equator10, DefaultDirectionThreshold))
	assert.True(t, SameDirection(equator0, north10, equator0, equator10, 90))
}
