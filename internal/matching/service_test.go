package matching

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richxcame/ride-pooling/internal/pricing"
	"github.com/richxcame/ride-pooling/internal/vehicle"
	"github.com/richxcame/ride-pooling/pkg/geo"
)

var matchT0 = time.Date(2025, time.March, 5, 9, 0, 0, 0, time.UTC)

func jfkCandidate(pickup, dropoff geo.Point, seats, luggage int, offset time.Duration) Candidate {
	return Candidate{
		ID:           uuid.New(),
		Pickup:       pickup,
		Dropoff:      dropoff,
		Seats:        seats,
		Luggage:      luggage,
		MaxDetourMin: 20,
		RequestedAt:  matchT0.Add(offset),
	}
}

func newTestMatcher(cfg Config) *Matcher {
	m := NewMatcher(cfg, nil)
	m.now = func() time.Time { return matchT0 }
	return m
}

func TestMatchThreeCompatibleRiders(t *testing.T) {
	manhattan := geo.Point{Latitude: 40.7580, Longitude: -73.9855}
	candidates := []Candidate{
		jfkCandidate(geo.Point{Latitude: 40.6413, Longitude: -73.7781}, manhattan, 1, 1, 0),
		jfkCandidate(geo.Point{Latitude: 40.6420, Longitude: -73.7790},
			geo.Point{Latitude: 40.7600, Longitude: -73.9840}, 1, 0, time.Minute),
		jfkCandidate(geo.Point{Latitude: 40.6425, Longitude: -73.7795},
			geo.Point{Latitude: 40.7560, Longitude: -73.9870}, 1, 2, 2*time.Minute),
	}

	m := newTestMatcher(DefaultConfig())
	proposals, augmentations := m.Match(context.Background(), candidates, nil)

	require.Len(t, proposals, 1)
	assert.Empty(t, augmentations)

	p := proposals[0]
	assert.Equal(t, vehicle.ClassSedan, p.Class)
	assert.Equal(t, 3, p.TotalSeats)
	assert.Equal(t, 3, p.TotalLuggage)
	assert.Len(t, p.PassengerIDs, 3)
	assert.Len(t, p.Route.Waypoints, 6)

	for _, c := range candidates {
		assert.LessOrEqual(t, p.Route.DetourPerPassenger[c.ID.String()], c.MaxDetourMin)
		quote, present := p.Fares[c.ID]
		require.True(t, present)
		assert.InDelta(t, 0.70, quote.PoolDiscount, 1e-9)
		assert.Greater(t, quote.Final, 0.0)
		assert.LessOrEqual(t, quote.Final, quote.Base*quote.Surge+0.01)
		assert.GreaterOrEqual(t, quote.Final, 0.5*quote.Base*quote.Surge-0.01)
	}
}

func TestMatchIncompatibleDirections(t *testing.T) {
	// Same JFK cluster, dropoffs 180 degrees apart.
	north := jfkCandidate(geo.Point{Latitude: 40.6413, Longitude: -73.7781},
		geo.Point{Latitude: 40.90, Longitude: -73.7781}, 1, 0, 0)
	south := jfkCandidate(geo.Point{Latitude: 40.6420, Longitude: -73.7790},
		geo.Point{Latitude: 40.40, Longitude: -73.7790}, 1, 0, time.Minute)
	north.MaxDetourMin = 5
	south.MaxDetourMin = 5

	m := newTestMatcher(DefaultConfig())
	proposals, _ := m.Match(context.Background(), []Candidate{north, south}, nil)

	require.Len(t, proposals, 2)
	for _, p := range proposals {
		assert.Len(t, p.PassengerIDs, 1)
	}
}

func TestMatchSoloDisallowed(t *testing.T) {
	north := jfkCandidate(geo.Point{Latitude: 40.6413, Longitude: -73.7781},
		geo.Point{Latitude: 40.90, Longitude: -73.7781}, 1, 0, 0)

	cfg := DefaultConfig()
	cfg.AllowSolo = false
	m := newTestMatcher(cfg)
	proposals, _ := m.Match(context.Background(), []Candidate{north}, nil)
	assert.Empty(t, proposals)
}

func TestMatchSoloDisallowedAfterClusterSplit(t *testing.T) {
	// Incompatible pair: the whole-cluster attempt fails, the greedy walk
	// yields two singles, and neither survives with solo pools off.
	north := jfkCandidate(geo.Point{Latitude: 40.6413, Longitude: -73.7781},
		geo.Point{Latitude: 40.90, Longitude: -73.7781}, 1, 0, 0)
	south := jfkCandidate(geo.Point{Latitude: 40.6420, Longitude: -73.7790},
		geo.Point{Latitude: 40.40, Longitude: -73.7790}, 1, 0, time.Minute)
	north.MaxDetourMin = 5
	south.MaxDetourMin = 5

	cfg := DefaultConfig()
	cfg.AllowSolo = false
	m := newTestMatcher(cfg)
	proposals, _ := m.Match(context.Background(), []Candidate{north, south}, nil)
	assert.Empty(t, proposals)
}

func TestMatchOversizedPassengerStaysPending(t *testing.T) {
	// Nine seats exceed even a van; no proposal may include this rider.
	giant := jfkCandidate(geo.Point{Latitude: 40.6413, Longitude: -73.7781},
		geo.Point{Latitude: 40.7580, Longitude: -73.9855}, 9, 0, 0)

	m := newTestMatcher(DefaultConfig())
	proposals, augmentations := m.Match(context.Background(), []Candidate{giant}, nil)
	assert.Empty(t, proposals)
	assert.Empty(t, augmentations)
}

func TestMatchDeterministicAcrossRuns(t *testing.T) {
	manhattan := geo.Point{Latitude: 40.7580, Longitude: -73.9855}
	candidates := []Candidate{
		jfkCandidate(geo.Point{Latitude: 40.6413, Longitude: -73.7781}, manhattan, 1, 1, 0),
		jfkCandidate(geo.Point{Latitude: 40.6420, Longitude: -73.7790}, manhattan, 2, 1, time.Minute),
	}

	m := newTestMatcher(DefaultConfig())
	first, _ := m.Match(context.Background(), candidates, nil)
	second, _ := m.Match(context.Background(), candidates, nil)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].PassengerIDs, second[0].PassengerIDs)
	assert.Equal(t, first[0].Route.Waypoints, second[0].Route.Waypoints)
	assert.Equal(t, first[0].Fares[candidates[0].ID], second[0].Fares[candidates[0].ID])
}

func TestMatchBudgetExhausted(t *testing.T) {
	// Two far-apart clusters; the clock jumps past the budget after the
	// first, so only one cluster is processed.
	jfk := jfkCandidate(geo.Point{Latitude: 40.6413, Longitude: -73.7781},
		geo.Point{Latitude: 40.7580, Longitude: -73.9855}, 1, 0, 0)
	bronx := jfkCandidate(geo.Point{Latitude: 40.8448, Longitude: -73.8648},
		geo.Point{Latitude: 40.7580, Longitude: -73.9855}, 1, 0, time.Minute)

	m := NewMatcher(DefaultConfig(), nil)
	calls := 0
	m.now = func() time.Time {
		calls++
		if calls <= 2 {
			return matchT0
		}
		return matchT0.Add(time.Second)
	}

	proposals, _ := m.Match(context.Background(), []Candidate{jfk, bronx}, nil)
	assert.Len(t, proposals, 1)
}

func TestAugmentExistingPool(t *testing.T) {
	start := geo.Point{Latitude: 40.6413, Longitude: -73.7781}
	manhattan := geo.Point{Latitude: 40.7580, Longitude: -73.9855}
	pool := FormingPool{
		ID:             uuid.New(),
		Class:          vehicle.ClassSedan,
		CurrentSeats:   2,
		CurrentLuggage: 1,
		Start:          start,
		Bearing:        geo.Bearing(start, manhattan),
		CreatedAt:      matchT0.Add(-4 * time.Minute),
		Cell:           geo.CellOf(start, geo.H3ResolutionPooling),
	}

	rider := jfkCandidate(geo.Point{Latitude: 40.6420, Longitude: -73.7790}, manhattan, 1, 1, 0)

	m := newTestMatcher(DefaultConfig())
	proposals, augmentations := m.Match(context.Background(), []Candidate{rider}, []FormingPool{pool})

	assert.Empty(t, proposals)
	require.Len(t, augmentations, 1)
	assert.Equal(t, pool.ID, augmentations[0].PoolID)
	assert.Equal(t, rider.ID, augmentations[0].PassengerID)
	// 100 - 20*(2/4) - 4*2 = 82
	assert.InDelta(t, 82, augmentations[0].Score, 1e-9)
}

func TestAugmentSkipsFullOrOppositePool(t *testing.T) {
	start := geo.Point{Latitude: 40.6413, Longitude: -73.7781}
	manhattan := geo.Point{Latitude: 40.7580, Longitude: -73.9855}
	full := FormingPool{
		ID:             uuid.New(),
		Class:          vehicle.ClassSedan,
		CurrentSeats:   4,
		CurrentLuggage: 3,
		Start:          start,
		Bearing:        geo.Bearing(start, manhattan),
		CreatedAt:      matchT0,
		Cell:           geo.CellOf(start, geo.H3ResolutionPooling),
	}
	opposite := full
	opposite.ID = uuid.New()
	opposite.CurrentSeats = 1
	opposite.CurrentLuggage = 0
	opposite.Bearing = geo.Bearing(manhattan, start)

	rider := jfkCandidate(geo.Point{Latitude: 40.6420, Longitude: -73.7790}, manhattan, 1, 1, 0)

	m := newTestMatcher(DefaultConfig())
	_, augmentations := m.Match(context.Background(), []Candidate{rider}, []FormingPool{full, opposite})
	assert.Empty(t, augmentations)
}

func TestScorePoolFit(t *testing.T) {
	tests := []struct {
		name     string
		seats    int
		maxSeats int
		age      time.Duration
		want     float64
	}{
		{"empty new pool", 0, 4, 0, 100},
		{"half full four minutes old", 2, 4, 4 * time.Minute, 82},
		{"age penalty capped", 0, 4, time.Hour, 70},
		{"full pool", 4, 4, 0, 80},
		{"zero max seats", 1, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ScorePoolFit(tt.seats, tt.maxSeats, tt.age), 1e-9)
		})
	}
}

func TestClusterByPickup(t *testing.T) {
	jfk1 := jfkCandidate(geo.Point{Latitude: 40.6413, Longitude: -73.7781},
		geo.Point{Latitude: 40.7580, Longitude: -73.9855}, 1, 0, 0)
	jfk2 := jfkCandidate(geo.Point{Latitude: 40.6500, Longitude: -73.7800},
		geo.Point{Latitude: 40.7580, Longitude: -73.9855}, 1, 0, time.Minute)
	bronx := jfkCandidate(geo.Point{Latitude: 40.8448, Longitude: -73.8648},
		geo.Point{Latitude: 40.7580, Longitude: -73.9855}, 1, 0, 2*time.Minute)

	clusters := clusterByPickup([]Candidate{jfk1, jfk2, bronx}, 5.0)
	require.Len(t, clusters, 2)
	assert.Len(t, clusters[0], 2)
	assert.Len(t, clusters[1], 1)
}

var _ ZoneLookup = (*pricing.ZoneCache)(nil)
