package dispatch

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/richxcame/ride-pooling/internal/planner"
	"github.com/richxcame/ride-pooling/internal/vehicle"
	"github.com/richxcame/ride-pooling/pkg/geo"
)

// PassengerState is the lifecycle state of a ride request.
type PassengerState string

const (
	PassengerPending   PassengerState = "pending"
	PassengerMatched   PassengerState = "matched"
	PassengerInTransit PassengerState = "in_transit"
	PassengerCompleted PassengerState = "completed"
	PassengerCancelled PassengerState = "cancelled"
)

// Terminal reports whether no further transitions are allowed.
func (s PassengerState) Terminal() bool {
	return s == PassengerCompleted || s == PassengerCancelled
}

// PoolState is the lifecycle state of a shared trip.
type PoolState string

const (
	PoolForming   PoolState = "forming"
	PoolMatched   PoolState = "matched"
	PoolInTransit PoolState = "in_transit"
	PoolCompleted PoolState = "completed"
)

// Passenger is one ride request. A non-nil PoolID exists iff the state is
// matched, in_transit or completed.
type Passenger struct {
	ID                 uuid.UUID      `json:"id" db:"id"`
	UserID             uuid.UUID      `json:"user_id" db:"user_id"`
	PickupLatitude     float64        `json:"pickup_latitude" db:"pickup_latitude"`
	PickupLongitude    float64        `json:"pickup_longitude" db:"pickup_longitude"`
	DropoffLatitude    float64        `json:"dropoff_latitude" db:"dropoff_latitude"`
	DropoffLongitude   float64        `json:"dropoff_longitude" db:"dropoff_longitude"`
	LuggageCount       int            `json:"luggage_count" db:"luggage_count"`
	SeatsRequired      int            `json:"seats_required" db:"seats_required"`
	MaxDetourMinutes   float64        `json:"max_detour_minutes" db:"max_detour_minutes"`
	State              PassengerState `json:"state" db:"state"`
	PoolID             *uuid.UUID     `json:"pool_id,omitempty" db:"pool_id"`
	BaseFare           float64        `json:"base_fare" db:"base_fare"`
	FinalFare          *float64       `json:"final_fare,omitempty" db:"final_fare"`
	SurgeMultiplier    float64        `json:"surge_multiplier" db:"surge_multiplier"`
	RequestedAt        time.Time      `json:"requested_at" db:"requested_at"`
	MatchedAt          *time.Time     `json:"matched_at,omitempty" db:"matched_at"`
	CompletedAt        *time.Time     `json:"completed_at,omitempty" db:"completed_at"`
	CancelledAt        *time.Time     `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CancellationReason *string        `json:"cancellation_reason,omitempty" db:"cancellation_reason"`
	CreatedAt          time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at" db:"updated_at"`
}

// Pickup returns the pickup coordinate.
func (p *Passenger) Pickup() geo.Point {
	return geo.Point{Latitude: p.PickupLatitude, Longitude: p.PickupLongitude}
}

// Dropoff returns the dropoff coordinate.
func (p *Passenger) Dropoff() geo.Point {
	return geo.Point{Latitude: p.DropoffLatitude, Longitude: p.DropoffLongitude}
}

// Pool is a shared trip. Version starts at 0 and increments on every
// mutation; writers either hold the pool lease or pass a version check.
type Pool struct {
	ID              uuid.UUID     `json:"id" db:"id"`
	DriverID        *uuid.UUID    `json:"driver_id,omitempty" db:"driver_id"`
	VehicleClass    vehicle.Class `json:"vehicle_class" db:"vehicle_class"`
	MaxSeats        int           `json:"max_seats" db:"max_seats"`
	MaxLuggage      int           `json:"max_luggage" db:"max_luggage"`
	CurrentSeats    int           `json:"current_seats" db:"current_seats"`
	CurrentLuggage  int           `json:"current_luggage" db:"current_luggage"`
	State           PoolState     `json:"state" db:"state"`
	TotalDistanceKm float64       `json:"total_distance_km" db:"total_distance_km"`
	PlannedRoute    []byte        `json:"-" db:"planned_route"`
	H3Index         string        `json:"h3_index" db:"h3_index"`
	Version         int64         `json:"version" db:"version"`
	StartedAt       *time.Time    `json:"started_at,omitempty" db:"started_at"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at" db:"updated_at"`
}

// Route decodes the serialized planned route. A pool always carries one.
func (p *Pool) Route() (*planner.Route, error) {
	var route planner.Route
	if err := json.Unmarshal(p.PlannedRoute, &route); err != nil {
		return nil, err
	}
	return &route, nil
}

// SetRoute serializes the planned route onto the pool.
func (p *Pool) SetRoute(route *planner.Route) error {
	data, err := json.Marshal(route)
	if err != nil {
		return err
	}
	p.PlannedRoute = data
	p.TotalDistanceKm = route.TotalDistanceKm
	return nil
}

// Waypoint is one stop on a pool's route. Waypoints are insert-only; a
// passenger's pair is deleted wholesale on cancellation.
type Waypoint struct {
	ID          uuid.UUID `json:"id" db:"id"`
	PoolID      uuid.UUID `json:"pool_id" db:"pool_id"`
	PassengerID uuid.UUID `json:"passenger_id" db:"passenger_id"`
	Sequence    int       `json:"sequence" db:"sequence"`
	Kind        string    `json:"kind" db:"kind"`
	Latitude    float64   `json:"latitude" db:"latitude"`
	Longitude   float64   `json:"longitude" db:"longitude"`
}

// RideRequest is the intake payload for a new ride.
type RideRequest struct {
	UserID           uuid.UUID `json:"user_id" validate:"required"`
	PickupLatitude   float64   `json:"pickup_lat" validate:"latitude"`
	PickupLongitude  float64   `json:"pickup_lng" validate:"longitude"`
	DropoffLatitude  float64   `json:"dropoff_lat" validate:"latitude"`
	DropoffLongitude float64   `json:"dropoff_lng" validate:"longitude"`
	LuggageCount     *int      `json:"luggage_count,omitempty" validate:"omitempty,gte=0"`
	SeatsRequired    *int      `json:"seats_required,omitempty" validate:"omitempty,gte=1"`
	MaxDetourMinutes *float64  `json:"max_detour_minutes,omitempty" validate:"omitempty,gt=0"`
}

// RideResponse is returned from intake.
type RideResponse struct {
	PassengerID    uuid.UUID `json:"passenger_id"`
	EstimatedPrice float64   `json:"estimated_price"`
	Status         string    `json:"status"`
}

// EstimateRequest prices a route without creating a request.
type EstimateRequest struct {
	PickupLatitude   float64 `form:"pickup_lat" validate:"latitude"`
	PickupLongitude  float64 `form:"pickup_lng" validate:"longitude"`
	DropoffLatitude  float64 `form:"dropoff_lat" validate:"latitude"`
	DropoffLongitude float64 `form:"dropoff_lng" validate:"longitude"`
	VehicleType      string  `form:"vehicle_type" validate:"omitempty,oneof=sedan suv van"`
}

// CancelResponse reports a cancellation. RefundAmount is always 0 for now.
// TODO: compute partial refunds once the billing rules for post-match
// cancellation are settled.
type CancelResponse struct {
	PassengerID  uuid.UUID `json:"passenger_id"`
	Status       string    `json:"status"`
	RefundAmount float64   `json:"refund_amount"`
}

// MatchingCycleResult summarizes one matching pass.
type MatchingCycleResult struct {
	Matched      int `json:"matched"`
	PoolsCreated int `json:"pools_created"`
}

// PoolStats aggregates committed pools for the analytics endpoint.
type PoolStats struct {
	TotalPools        int     `json:"total_pools"`
	ActivePools       int     `json:"active_pools"`
	CompletedPools    int     `json:"completed_pools"`
	AverageOccupancy  float64 `json:"average_occupancy"`
	AverageEfficiency float64 `json:"average_efficiency"`
}
