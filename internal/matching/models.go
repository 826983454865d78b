package matching

import (
	"time"

	"github.com/google/uuid"
	"github.com/uber/h3-go/v4"

	"github.com/richxcame/ride-pooling/internal/planner"
	"github.com/richxcame/ride-pooling/internal/pricing"
	"github.com/richxcame/ride-pooling/internal/vehicle"
	"github.com/richxcame/ride-pooling/pkg/geo"
)

// Ceilings for pool growth, taken from the largest vehicle class the
// compatibility check is willing to fill by accretion.
const (
	maxCombinedSeats   = 6
	maxCombinedLuggage = 8
)

// Candidate is a pending passenger as seen by the matcher.
type Candidate struct {
	ID           uuid.UUID
	Pickup       geo.Point
	Dropoff      geo.Point
	Seats        int
	Luggage      int
	MaxDetourMin float64
	RequestedAt  time.Time
}

// FormingPool is a read-only view of a pool that is still accepting riders.
// Bearing is the overall heading of its planned route, start to final
// dropoff.
type FormingPool struct {
	ID             uuid.UUID
	Class          vehicle.Class
	CurrentSeats   int
	CurrentLuggage int
	Start          geo.Point
	Bearing        float64
	CreatedAt      time.Time
	Cell           h3.Cell
}

// Proposal is a pool the matcher wants dispatch to commit. The matcher never
// writes state itself.
type Proposal struct {
	PoolID       uuid.UUID
	PassengerIDs []uuid.UUID
	Class        vehicle.Class
	TotalSeats   int
	TotalLuggage int
	Start        geo.Point
	Cell         h3.Cell
	Route        *planner.Route
	Fares        map[uuid.UUID]pricing.Quote
	Efficiency   float64
}

// Augmentation proposes adding a single pending passenger to a pool that is
// already forming. Dispatch re-plans the route under the pool's lease before
// committing.
type Augmentation struct {
	PoolID      uuid.UUID
	PassengerID uuid.UUID
	Score       float64
}

// ScorePoolFit rates how attractive a forming pool is for one more rider.
// Fuller and older pools score lower; the result is floored at zero.
func ScorePoolFit(currentSeats, maxSeats int, age time.Duration) float64 {
	if maxSeats <= 0 {
		return 0
	}
	load := float64(currentSeats) / float64(maxSeats)
	agePenalty := age.Minutes() * 2
	if agePenalty > 30 {
		agePenalty = 30
	}
	score := 100 - 20*load - agePenalty
	if score < 0 {
		return 0
	}
	return score
}
