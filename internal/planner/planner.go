package planner

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/richxcame/ride-pooling/pkg/geo"
)

// WaypointKind is the type of a stop on a pooled route.
type WaypointKind string

const (
	KindPickup  WaypointKind = "pickup"
	KindDropoff WaypointKind = "dropoff"
)

// twoOptMaxIterations caps the local-search passes over a route.
const twoOptMaxIterations = 100

// distanceEpsilon separates genuinely shorter candidates from float noise.
const distanceEpsilon = 1e-9

// Waypoint is one pickup or dropoff stop in a planned sequence.
type Waypoint struct {
	PassengerID string       `json:"passenger_id"`
	Kind        WaypointKind `json:"kind"`
	Location    geo.Point    `json:"location"`
}

// Constraint carries the per-passenger inputs the planner must honor.
type Constraint struct {
	Pickup           geo.Point
	Dropoff          geo.Point
	Seats            int
	Luggage          int
	MaxDetourMin     float64
	DirectDistanceKm float64
	DirectTimeMin    float64
	RequestedAt      time.Time
}

// Request is a full planning problem: a start coordinate, vehicle capacity,
// and the passengers to sequence.
type Request struct {
	Start      geo.Point
	MaxSeats   int
	MaxLuggage int
	Passengers map[string]Constraint
}

// Route is a feasible waypoint sequence with its realized costs.
type Route struct {
	Waypoints          []Waypoint         `json:"waypoints"`
	TotalDistanceKm    float64            `json:"total_distance_km"`
	TotalTimeMin       float64            `json:"total_time_min"`
	DetourPerPassenger map[string]float64 `json:"detour_per_passenger"`
	Efficiency         float64            `json:"efficiency"`
}

// Plan builds a pickup/dropoff sequence satisfying capacity, precedence and
// per-passenger detour limits, then improves it with 2-opt. Infeasibility
// is a normal outcome reported through ok=false; an error means the inputs
// themselves are malformed.
func Plan(req Request) (route *Route, ok bool, err error) {
	if len(req.Passengers) == 0 {
		return &Route{DetourPerPassenger: map[string]float64{}, Efficiency: 1.0}, true, nil
	}
	for id, c := range req.Passengers {
		if c.Seats < 1 {
			return nil, false, fmt.Errorf("passenger %s: seats must be >= 1", id)
		}
		if c.Luggage < 0 {
			return nil, false, fmt.Errorf("passenger %s: negative luggage", id)
		}
		if c.MaxDetourMin <= 0 {
			return nil, false, fmt.Errorf("passenger %s: max detour must be positive", id)
		}
	}

	seq, ok := greedyConstruct(req)
	if !ok {
		return nil, false, nil
	}

	cost, ok := evaluate(req, seq)
	if !ok {
		return nil, false, nil
	}

	seq, cost = twoOpt(req, seq, cost)

	return &Route{
		Waypoints:          seq,
		TotalDistanceKm:    cost.distanceKm,
		TotalTimeMin:       cost.timeMin,
		DetourPerPassenger: cost.detours,
		Efficiency:         efficiency(req, cost.distanceKm),
	}, true, nil
}

// greedyConstruct picks, at each step, the nearest unvisited waypoint that
// is feasible: dropoffs require the passenger on board, pickups must fit
// the remaining capacity. Distance ties go to the longer-waiting passenger.
func greedyConstruct(req Request) ([]Waypoint, bool) {
	pending := expand(req)
	seq := make([]Waypoint, 0, len(pending))

	pos := req.Start
	seats, luggage := 0, 0
	onboard := make(map[string]bool, len(req.Passengers))

	for len(seq) < len(pending) {
		best := -1
		bestDist := math.MaxFloat64
		for i, w := range pending {
			if w.visited {
				continue
			}
			c := req.Passengers[w.PassengerID]
			if w.Kind == KindDropoff && !onboard[w.PassengerID] {
				continue
			}
			if w.Kind == KindPickup && (seats+c.Seats > req.MaxSeats || luggage+c.Luggage > req.MaxLuggage) {
				continue
			}

			d := geo.Distance(pos, w.Location)
			if d < bestDist-distanceEpsilon {
				best, bestDist = i, d
				continue
			}
			if best >= 0 && math.Abs(d-bestDist) <= distanceEpsilon {
				if earlierRequest(req, pending[i], pending[best]) {
					best = i
				}
			}
		}

		if best < 0 {
			// Waypoints remain but none is reachable under the constraints.
			return nil, false
		}

		w := &pending[best]
		w.visited = true
		c := req.Passengers[w.PassengerID]
		if w.Kind == KindPickup {
			onboard[w.PassengerID] = true
			seats += c.Seats
			luggage += c.Luggage
		} else {
			onboard[w.PassengerID] = false
			seats -= c.Seats
			luggage -= c.Luggage
		}
		pos = w.Location
		seq = append(seq, w.Waypoint)
	}

	return seq, true
}

type candidateWaypoint struct {
	Waypoint
	visited bool
}

// expand turns each passenger into its pickup/dropoff waypoint pair. The
// order is fixed by passenger id so planning is deterministic regardless of
// map iteration.
func expand(req Request) []candidateWaypoint {
	ids := make([]string, 0, len(req.Passengers))
	for id := range req.Passengers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]candidateWaypoint, 0, 2*len(ids))
	for _, id := range ids {
		c := req.Passengers[id]
		out = append(out,
			candidateWaypoint{Waypoint: Waypoint{PassengerID: id, Kind: KindPickup, Location: c.Pickup}},
			candidateWaypoint{Waypoint: Waypoint{PassengerID: id, Kind: KindDropoff, Location: c.Dropoff}},
		)
	}
	return out
}

func earlierRequest(req Request, a, b candidateWaypoint) bool {
	ca, cb := req.Passengers[a.PassengerID], req.Passengers[b.PassengerID]
	if !ca.RequestedAt.Equal(cb.RequestedAt) {
		return ca.RequestedAt.Before(cb.RequestedAt)
	}
	return a.PassengerID < b.PassengerID
}

type routeCost struct {
	distanceKm float64
	timeMin    float64
	detours    map[string]float64
}

// evaluate walks a sequence from the start, accumulating cost and checking
// precedence, capacity and each passenger's detour tolerance. A dropoff
// ahead of its pickup makes the sequence infeasible outright.
func evaluate(req Request, seq []Waypoint) (routeCost, bool) {
	var cost routeCost
	pickupAt := make(map[string]float64, len(req.Passengers))
	dropoffAt := make(map[string]float64, len(req.Passengers))

	pos := req.Start
	seats, luggage := 0, 0
	for _, w := range seq {
		c := req.Passengers[w.PassengerID]
		cost.distanceKm += geo.Distance(pos, w.Location)
		cost.timeMin = geo.TravelTimeMinutes(cost.distanceKm)
		pos = w.Location

		switch w.Kind {
		case KindPickup:
			seats += c.Seats
			luggage += c.Luggage
			if seats > req.MaxSeats || luggage > req.MaxLuggage {
				return routeCost{}, false
			}
			pickupAt[w.PassengerID] = cost.timeMin
		case KindDropoff:
			if _, picked := pickupAt[w.PassengerID]; !picked {
				return routeCost{}, false
			}
			seats -= c.Seats
			luggage -= c.Luggage
			dropoffAt[w.PassengerID] = cost.timeMin
		}
	}

	cost.detours = make(map[string]float64, len(req.Passengers))
	for id, c := range req.Passengers {
		drop, ok := dropoffAt[id]
		if !ok {
			return routeCost{}, false
		}
		detour := (drop - pickupAt[id]) - c.DirectTimeMin
		if detour < 0 {
			detour = 0
		}
		if detour > c.MaxDetourMin {
			return routeCost{}, false
		}
		cost.detours[id] = detour
	}

	return cost, true
}

// twoOpt repeatedly reverses subsequences, adopting any candidate that is
// strictly shorter and still satisfies every constraint.
func twoOpt(req Request, seq []Waypoint, cost routeCost) ([]Waypoint, routeCost) {
	for iter := 0; iter < twoOptMaxIterations; iter++ {
		improved := false
		for i := 0; i < len(seq)-2 && !improved; i++ {
			for j := i + 2; j < len(seq); j++ {
				candidate := reverseSegment(seq, i+1, j)
				candCost, ok := evaluate(req, candidate)
				if !ok || candCost.distanceKm >= cost.distanceKm-distanceEpsilon {
					continue
				}
				seq, cost = candidate, candCost
				improved = true
				break
			}
		}
		if !improved {
			break
		}
	}
	return seq, cost
}

func reverseSegment(seq []Waypoint, from, to int) []Waypoint {
	out := make([]Waypoint, len(seq))
	copy(out, seq)
	for lo, hi := from, to; lo < hi; lo, hi = lo+1, hi-1 {
		out[lo], out[hi] = out[hi], out[lo]
	}
	return out
}

// efficiency is the ratio of summed direct distances to the realized route
// distance: 1.0 means perfectly co-linear sharing.
func efficiency(req Request, totalDistanceKm float64) float64 {
	if totalDistanceKm <= 0 {
		return 1.0
	}
	var direct float64
	for _, c := range req.Passengers {
		direct += c.DirectDistanceKm
	}
	return direct / totalDistanceKm
}
