package dispatch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/richxcame/ride-pooling/pkg/logger"
)

// Event subjects.
const (
	SubjectRideRequested = "ride.requested"
	SubjectPoolMatched   = "pool.matched"
	SubjectRideCancelled = "ride.cancelled"
)

// RideRequestedEvent is published when intake accepts a request.
type RideRequestedEvent struct {
	PassengerID     uuid.UUID `json:"passenger_id"`
	UserID          uuid.UUID `json:"user_id"`
	PickupLatitude  float64   `json:"pickup_latitude"`
	PickupLongitude float64   `json:"pickup_longitude"`
	SeatsRequired   int       `json:"seats_required"`
	RequestedAt     time.Time `json:"requested_at"`
}

// PoolMatchedEvent is published when passengers are committed to a pool.
type PoolMatchedEvent struct {
	PoolID       uuid.UUID   `json:"pool_id"`
	VehicleClass string      `json:"vehicle_class"`
	PassengerIDs []uuid.UUID `json:"passenger_ids"`
	CurrentSeats int         `json:"current_seats"`
	MatchedAt    time.Time   `json:"matched_at"`
}

// RideCancelledEvent is published on successful cancellation.
type RideCancelledEvent struct {
	PassengerID uuid.UUID `json:"passenger_id"`
	Reason      string    `json:"reason,omitempty"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// Events publishes dispatch events to NATS. A nil *Events or nil connection
// drops everything silently, so deployments without a broker need no
// conditionals at call sites.
type Events struct {
	conn *nats.Conn
}

// NewEvents wraps a NATS connection; conn may be nil.
func NewEvents(conn *nats.Conn) *Events {
	return &Events{conn: conn}
}

// PublishRideRequested emits a ride.requested event.
func (e *Events) PublishRideRequested(ctx context.Context, p *Passenger) {
	e.publish(ctx, SubjectRideRequested, RideRequestedEvent{
		PassengerID:     p.ID,
		UserID:          p.UserID,
		PickupLatitude:  p.PickupLatitude,
		PickupLongitude: p.PickupLongitude,
		SeatsRequired:   p.SeatsRequired,
		RequestedAt:     p.RequestedAt,
	})
}

// PublishPoolMatched emits a pool.matched event.
func (e *Events) PublishPoolMatched(ctx context.Context, pool *Pool, passengerIDs []uuid.UUID) {
	e.publish(ctx, SubjectPoolMatched, PoolMatchedEvent{
		PoolID:       pool.ID,
		VehicleClass: string(pool.VehicleClass),
		PassengerIDs: passengerIDs,
		CurrentSeats: pool.CurrentSeats,
		MatchedAt:    time.Now().UTC(),
	})
}

// PublishRideCancelled emits a ride.cancelled event.
func (e *Events) PublishRideCancelled(ctx context.Context, p *Passenger, reason string) {
	e.publish(ctx, SubjectRideCancelled, RideCancelledEvent{
		PassengerID: p.ID,
		Reason:      reason,
		CancelledAt: time.Now().UTC(),
	})
}

func (e *Events) publish(ctx context.Context, subject string, event interface{}) {
	if e == nil || e.conn == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		logger.WithContext(ctx).Error("failed to marshal event",
			zap.String("subject", subject), zap.Error(err))
		return
	}
	if err := e.conn.Publish(subject, data); err != nil {
		// Event delivery is best-effort; dispatch state is already durable.
		logger.WithContext(ctx).Warn("failed to publish event",
			zap.String("subject", subject), zap.Error(err))
	}
}
