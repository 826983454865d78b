package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/richxcame/ride-pooling/internal/lease"
	"github.com/richxcame/ride-pooling/internal/matching"
	"github.com/richxcame/ride-pooling/internal/planner"
	"github.com/richxcame/ride-pooling/internal/pricing"
	"github.com/richxcame/ride-pooling/internal/vehicle"
	"github.com/richxcame/ride-pooling/pkg/common"
	"github.com/richxcame/ride-pooling/pkg/config"
	"github.com/richxcame/ride-pooling/pkg/geo"
	"github.com/richxcame/ride-pooling/pkg/logger"
	"github.com/richxcame/ride-pooling/pkg/validation"
)

const (
	defaultSeatsRequired    = 1
	defaultMaxDetourMinutes = 15.0
)

// Service orchestrates intake, matching cycles and cancellation. It owns all
// state transitions; the matcher only proposes.
type Service struct {
	store   Store
	leases  *lease.Manager
	zones   *pricing.ZoneCache
	matcher *matching.Matcher
	events  *Events
	cfg     config.DispatchConfig
	now     func() time.Time
}

// NewService wires the dispatch service. events may be nil for deployments
// without a broker.
func NewService(store Store, leases *lease.Manager, zones *pricing.ZoneCache, events *Events, cfg config.DispatchConfig) *Service {
	matcher := matching.NewMatcher(matching.Config{
		Budget:          cfg.MatcherBudget,
		ClusterRadiusKm: cfg.ClusterRadiusKm,
		MaxPoolSize:     cfg.MaxPoolSize,
		AllowSolo:       true,
	}, zones)
	return &Service{
		store:   store,
		leases:  leases,
		zones:   zones,
		matcher: matcher,
		events:  events,
		cfg:     cfg,
		now:     time.Now,
	}
}

// CreateRequest registers a new ride request and returns an advisory
// estimate. The committed final price is determined at match time.
func (s *Service) CreateRequest(ctx context.Context, req *RideRequest) (*Passenger, error) {
	if err := validation.Validate(req); err != nil {
		return nil, common.NewValidationError(err.Error())
	}

	pickup := geo.Point{Latitude: req.PickupLatitude, Longitude: req.PickupLongitude}
	dropoff := geo.Point{Latitude: req.DropoffLatitude, Longitude: req.DropoffLongitude}
	distance := geo.Distance(pickup, dropoff)
	duration := geo.TravelTimeMinutes(distance)

	zone, err := s.zones.FindZoneContaining(ctx, pickup)
	if err != nil {
		logger.WithContext(ctx).Warn("surge zone lookup failed for intake", zap.Error(err))
		zone = nil
	}

	quote, err := pricing.EstimateFor(distance, duration, vehicle.ClassSedan, zone, s.now())
	if err != nil {
		return nil, common.NewInternalError("failed to price request", err)
	}

	seats := defaultSeatsRequired
	if req.SeatsRequired != nil {
		seats = *req.SeatsRequired
	}
	luggage := 0
	if req.LuggageCount != nil {
		luggage = *req.LuggageCount
	}
	maxDetour := defaultMaxDetourMinutes
	if req.MaxDetourMinutes != nil {
		maxDetour = *req.MaxDetourMinutes
	}

	passenger := &Passenger{
		ID:               uuid.New(),
		UserID:           req.UserID,
		PickupLatitude:   req.PickupLatitude,
		PickupLongitude:  req.PickupLongitude,
		DropoffLatitude:  req.DropoffLatitude,
		DropoffLongitude: req.DropoffLongitude,
		LuggageCount:     luggage,
		SeatsRequired:    seats,
		MaxDetourMinutes: maxDetour,
		State:            PassengerPending,
		BaseFare:         quote.Base,
		SurgeMultiplier:  quote.Surge,
		RequestedAt:      s.now().UTC(),
	}
	if err := s.store.InsertPassenger(ctx, passenger); err != nil {
		return nil, common.NewInternalError("failed to persist request", err)
	}

	if zone != nil {
		if err := s.store.IncrementZoneActiveRequests(ctx, zone.ID); err != nil {
			// Zone counters drive pricing only; a missed increment is
			// tolerable.
			logger.WithContext(ctx).Warn("failed to bump zone demand counter",
				zap.String("zone_id", zone.ID), zap.Error(err))
		}
	}

	requestsCreated.Inc()
	s.events.PublishRideRequested(ctx, passenger)

	logger.WithContext(ctx).Info("ride request created",
		zap.String("passenger_id", passenger.ID.String()),
		zap.Float64("estimated_price", quote.Final))
	return passenger, nil
}

// Estimate prices a route without creating a request.
func (s *Service) Estimate(ctx context.Context, req *EstimateRequest) (pricing.Quote, *pricing.SurgeZone, error) {
	if err := validation.Validate(req); err != nil {
		return pricing.Quote{}, nil, common.NewValidationError(err.Error())
	}

	pickup := geo.Point{Latitude: req.PickupLatitude, Longitude: req.PickupLongitude}
	dropoff := geo.Point{Latitude: req.DropoffLatitude, Longitude: req.DropoffLongitude}
	distance := geo.Distance(pickup, dropoff)

	zone, err := s.zones.FindZoneContaining(ctx, pickup)
	if err != nil {
		logger.WithContext(ctx).Warn("surge zone lookup failed for estimate", zap.Error(err))
		zone = nil
	}

	class := vehicle.Class(req.VehicleType)
	quote, err := pricing.EstimateFor(distance, geo.TravelTimeMinutes(distance), class, zone, s.now())
	if err != nil {
		return pricing.Quote{}, nil, common.NewInternalError("failed to price estimate", err)
	}
	return quote, zone, nil
}

// GetRide returns a passenger and, when matched, its pool waypoints.
func (s *Service) GetRide(ctx context.Context, id uuid.UUID) (*Passenger, []*Waypoint, error) {
	passenger, err := s.store.GetPassenger(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if passenger.PoolID == nil {
		return passenger, nil, nil
	}
	waypoints, err := s.store.ListWaypointsForPool(ctx, *passenger.PoolID)
	if err != nil {
		return nil, nil, err
	}
	return passenger, waypoints, nil
}

// ListByUser returns a user's requests, optionally filtered by state.
func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID, state *PassengerState) ([]*Passenger, error) {
	return s.store.ListPassengersByUser(ctx, userID, state)
}

// GetPool returns one pool with its waypoints.
func (s *Service) GetPool(ctx context.Context, id uuid.UUID) (*Pool, []*Waypoint, error) {
	pool, err := s.store.GetPool(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	waypoints, err := s.store.ListWaypointsForPool(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return pool, waypoints, nil
}

// ListPools returns pools, optionally filtered by state.
func (s *Service) ListPools(ctx context.Context, state *PoolState) ([]*Pool, error) {
	return s.store.ListPools(ctx, state)
}

// RunMatchingCycle fetches pending passengers and forming pools, invokes the
// matcher, and commits each proposal independently: one failed commit never
// rolls back another.
func (s *Service) RunMatchingCycle(ctx context.Context) (*MatchingCycleResult, error) {
	pending, err := s.store.QueryPendingPassengers(ctx, s.cfg.PendingLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch pending passengers: %w", err)
	}
	forming, err := s.store.QueryFormingPools(ctx, s.cfg.FormingPoolMaxAge)
	if err != nil {
		return nil, fmt.Errorf("fetch forming pools: %w", err)
	}

	candidates := make([]matching.Candidate, 0, len(pending))
	byID := make(map[uuid.UUID]*Passenger, len(pending))
	for _, p := range pending {
		byID[p.ID] = p
		candidates = append(candidates, matching.Candidate{
			ID:           p.ID,
			Pickup:       p.Pickup(),
			Dropoff:      p.Dropoff(),
			Seats:        p.SeatsRequired,
			Luggage:      p.LuggageCount,
			MaxDetourMin: p.MaxDetourMinutes,
			RequestedAt:  p.RequestedAt,
		})
	}
	views := make([]matching.FormingPool, 0, len(forming))
	for _, pool := range forming {
		view, ok := s.formingView(ctx, pool)
		if !ok {
			continue
		}
		views = append(views, view)
	}

	proposals, augmentations := s.matcher.Match(ctx, candidates, views)

	result := &MatchingCycleResult{}
	for _, proposal := range proposals {
		matched, err := s.commitProposal(ctx, proposal, byID)
		if err != nil {
			logger.WithContext(ctx).Error("proposal commit failed",
				zap.String("pool_id", proposal.PoolID.String()), zap.Error(err))
			continue
		}
		result.PoolsCreated++
		result.Matched += matched
	}
	for _, aug := range augmentations {
		passenger, present := byID[aug.PassengerID]
		if !present {
			continue
		}
		if err := s.commitAugmentation(ctx, aug, passenger); err != nil {
			logger.WithContext(ctx).Warn("augmentation commit failed",
				zap.String("pool_id", aug.PoolID.String()),
				zap.String("passenger_id", aug.PassengerID.String()),
				zap.Error(err))
			continue
		}
		result.Matched++
	}

	passengersMatched.Add(float64(result.Matched))
	poolsCreated.Add(float64(result.PoolsCreated))
	return result, nil
}

// formingView projects a stored pool into the matcher's read-only view.
func (s *Service) formingView(ctx context.Context, pool *Pool) (matching.FormingPool, bool) {
	route, err := pool.Route()
	if err != nil || len(route.Waypoints) == 0 {
		logger.WithContext(ctx).Warn("pool has no usable route, skipping for augmentation",
			zap.String("pool_id", pool.ID.String()), zap.Error(err))
		return matching.FormingPool{}, false
	}
	start := route.Waypoints[0].Location
	end := route.Waypoints[len(route.Waypoints)-1].Location
	return matching.FormingPool{
		ID:             pool.ID,
		Class:          pool.VehicleClass,
		CurrentSeats:   pool.CurrentSeats,
		CurrentLuggage: pool.CurrentLuggage,
		Start:          start,
		Bearing:        geo.Bearing(start, end),
		CreatedAt:      pool.CreatedAt,
		Cell:           geo.StringToCell(pool.H3Index),
	}, true
}

// commitProposal persists one proposal: pool at version 0, passengers to
// matched with final fares carrying the realized detour penalty, waypoints
// numbered by sequence. Returns how many passengers were flipped.
func (s *Service) commitProposal(ctx context.Context, proposal matching.Proposal, byID map[uuid.UUID]*Passenger) (int, error) {
	caps, known := vehicle.CapacityOf(proposal.Class)
	if !known {
		return 0, fmt.Errorf("unknown vehicle class %q", proposal.Class)
	}

	pool := &Pool{
		ID:             proposal.PoolID,
		VehicleClass:   proposal.Class,
		MaxSeats:       caps.MaxSeats,
		MaxLuggage:     caps.MaxLuggage,
		CurrentSeats:   proposal.TotalSeats,
		CurrentLuggage: proposal.TotalLuggage,
		State:          PoolForming,
		H3Index:        proposal.Cell.String(),
		Version:        0,
		CreatedAt:      s.now().UTC(),
	}
	if err := pool.SetRoute(proposal.Route); err != nil {
		return 0, fmt.Errorf("serialize route: %w", err)
	}
	if err := s.store.InsertPool(ctx, pool); err != nil {
		return 0, fmt.Errorf("insert pool: %w", err)
	}

	now := s.now().UTC()
	matched := 0
	for _, id := range proposal.PassengerIDs {
		passenger, present := byID[id]
		if !present {
			continue
		}
		quote := proposal.Fares[id]
		detour := proposal.Route.DetourPerPassenger[id.String()]
		final := pricing.FinalFare(quote.Base, quote.Surge, len(proposal.PassengerIDs), detour)

		passenger.State = PassengerMatched
		passenger.PoolID = &pool.ID
		passenger.BaseFare = quote.Base
		passenger.SurgeMultiplier = quote.Surge
		passenger.FinalFare = &final
		passenger.MatchedAt = &now
		if err := s.store.UpdatePassengerState(ctx, passenger); err != nil {
			return matched, fmt.Errorf("update passenger %s: %w", id, err)
		}
		matched++
	}

	for seq, w := range proposal.Route.Waypoints {
		pid, err := uuid.Parse(w.PassengerID)
		if err != nil {
			return matched, fmt.Errorf("waypoint passenger id: %w", err)
		}
		waypoint := &Waypoint{
			ID:          uuid.New(),
			PoolID:      pool.ID,
			PassengerID: pid,
			Sequence:    seq,
			Kind:        string(w.Kind),
			Latitude:    w.Location.Latitude,
			Longitude:   w.Location.Longitude,
		}
		if err := s.store.InsertWaypoint(ctx, waypoint); err != nil {
			return matched, fmt.Errorf("insert waypoint %d: %w", seq, err)
		}
	}

	s.events.PublishPoolMatched(ctx, pool, proposal.PassengerIDs)
	logger.WithContext(ctx).Info("pool committed",
		zap.String("pool_id", pool.ID.String()),
		zap.Int("passengers", matched),
		zap.String("vehicle_class", string(pool.VehicleClass)),
		zap.Float64("efficiency", proposal.Efficiency))
	return matched, nil
}

// commitAugmentation adds one passenger to an existing forming pool under
// its lease: re-plan with the full member set, then write the grown pool
// with a version bump.
func (s *Service) commitAugmentation(ctx context.Context, aug matching.Augmentation, passenger *Passenger) error {
	holder := uuid.New().String()
	return s.leases.WithLease(ctx, leaseName(aug.PoolID), holder, func(ctx context.Context) error {
		pool, err := s.store.GetPool(ctx, aug.PoolID)
		if err != nil {
			return err
		}
		if pool.State != PoolForming {
			return fmt.Errorf("pool %s no longer forming", pool.ID)
		}
		if pool.CurrentSeats+passenger.SeatsRequired > pool.MaxSeats ||
			pool.CurrentLuggage+passenger.LuggageCount > pool.MaxLuggage {
			return fmt.Errorf("pool %s cannot fit passenger", pool.ID)
		}

		members, err := s.store.ListPassengersByPool(ctx, pool.ID)
		if err != nil {
			return err
		}
		all := append(members, passenger)
		route, ok, err := s.planFor(all, pool)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no feasible route for grown pool %s", pool.ID)
		}

		pool.CurrentSeats += passenger.SeatsRequired
		pool.CurrentLuggage += passenger.LuggageCount
		if err := pool.SetRoute(route); err != nil {
			return err
		}
		if err := s.store.UpdatePoolUnderLease(ctx, pool); err != nil {
			return err
		}

		// Waypoints are rebuilt for the new route.
		for _, m := range all {
			if err := s.store.DeleteWaypointsForPassenger(ctx, m.ID); err != nil {
				return err
			}
		}
		for seq, w := range route.Waypoints {
			pid, err := uuid.Parse(w.PassengerID)
			if err != nil {
				return err
			}
			waypoint := &Waypoint{
				ID:          uuid.New(),
				PoolID:      pool.ID,
				PassengerID: pid,
				Sequence:    seq,
				Kind:        string(w.Kind),
				Latitude:    w.Location.Latitude,
				Longitude:   w.Location.Longitude,
			}
			if err := s.store.InsertWaypoint(ctx, waypoint); err != nil {
				return err
			}
		}

		now := s.now().UTC()
		size := len(all)
		for _, m := range all {
			detour := route.DetourPerPassenger[m.ID.String()]
			final := pricing.FinalFare(m.BaseFare, m.SurgeMultiplier, size, detour)
			m.FinalFare = &final
			if m.ID == passenger.ID {
				m.State = PassengerMatched
				m.PoolID = &pool.ID
				m.MatchedAt = &now
			}
			if err := s.store.UpdatePassengerState(ctx, m); err != nil {
				return err
			}
		}

		s.events.PublishPoolMatched(ctx, pool, []uuid.UUID{passenger.ID})
		return nil
	})
}

// planFor rebuilds a route for the given passengers within the pool's
// capacity.
func (s *Service) planFor(members []*Passenger, pool *Pool) (*planner.Route, bool, error) {
	var lat, lng float64
	for _, m := range members {
		lat += m.PickupLatitude
		lng += m.PickupLongitude
	}
	n := float64(len(members))

	req := planner.Request{
		Start:      geo.Point{Latitude: lat / n, Longitude: lng / n},
		MaxSeats:   pool.MaxSeats,
		MaxLuggage: pool.MaxLuggage,
		Passengers: make(map[string]planner.Constraint, len(members)),
	}
	for _, m := range members {
		direct := geo.Distance(m.Pickup(), m.Dropoff())
		req.Passengers[m.ID.String()] = planner.Constraint{
			Pickup:           m.Pickup(),
			Dropoff:          m.Dropoff(),
			Seats:            m.SeatsRequired,
			Luggage:          m.LuggageCount,
			MaxDetourMin:     m.MaxDetourMinutes,
			DirectDistanceKm: direct,
			DirectTimeMin:    geo.TravelTimeMinutes(direct),
			RequestedAt:      m.RequestedAt,
		}
	}
	return planner.Plan(req)
}

// CancelRequest cancels a passenger. Terminal states fail; pending
// passengers cancel directly; matched passengers shrink their pool under
// its lease, destroying the pool when the last seat empties.
func (s *Service) CancelRequest(ctx context.Context, passengerID uuid.UUID, reason string) error {
	passenger, err := s.store.GetPassenger(ctx, passengerID)
	if err != nil {
		return err
	}
	if passenger.State.Terminal() {
		return common.NewBadRequestError(fmt.Sprintf("request already %s", passenger.State), nil)
	}

	if passenger.State == PassengerPending {
		s.markCancelled(passenger, reason)
		if err := s.store.UpdatePassengerState(ctx, passenger); err != nil {
			return err
		}
		cancellations.Inc()
		s.events.PublishRideCancelled(ctx, passenger, reason)
		return nil
	}

	poolID := *passenger.PoolID
	holder := uuid.New().String()
	err = s.leases.WithLease(ctx, leaseName(poolID), holder, func(ctx context.Context) error {
		// Re-read inside the lease; a parallel cancel may have run first.
		current, err := s.store.GetPassenger(ctx, passengerID)
		if err != nil {
			return err
		}
		if current.State.Terminal() {
			return common.NewBadRequestError(fmt.Sprintf("request already %s", current.State), nil)
		}

		pool, err := s.store.GetPool(ctx, poolID)
		if err != nil {
			return err
		}

		s.markCancelled(current, reason)
		if err := s.store.UpdatePassengerState(ctx, current); err != nil {
			return err
		}
		if err := s.store.DeleteWaypointsForPassenger(ctx, current.ID); err != nil {
			return err
		}

		pool.CurrentSeats -= current.SeatsRequired
		pool.CurrentLuggage -= current.LuggageCount
		if pool.CurrentLuggage < 0 {
			pool.CurrentLuggage = 0
		}
		if pool.CurrentSeats <= 0 {
			if err := s.store.UpdatePoolUnderLease(ctx, pool); err != nil {
				return err
			}
			return s.store.DeletePool(ctx, pool.ID)
		}
		return s.store.UpdatePoolUnderLease(ctx, pool)
	})
	if errors.Is(err, lease.ErrUnavailable) {
		leaseConflicts.Inc()
		return common.NewConflictError("pool is busy, try again")
	}
	if err != nil {
		return err
	}

	cancellations.Inc()
	s.events.PublishRideCancelled(ctx, passenger, reason)
	return nil
}

func (s *Service) markCancelled(p *Passenger, reason string) {
	now := s.now().UTC()
	p.State = PassengerCancelled
	p.PoolID = nil
	p.CancelledAt = &now
	if reason != "" {
		p.CancellationReason = &reason
	}
}

// StartPool moves a pool and its passengers into transit.
func (s *Service) StartPool(ctx context.Context, poolID uuid.UUID) error {
	holder := uuid.New().String()
	err := s.leases.WithLease(ctx, leaseName(poolID), holder, func(ctx context.Context) error {
		pool, err := s.store.GetPool(ctx, poolID)
		if err != nil {
			return err
		}
		if pool.State != PoolForming && pool.State != PoolMatched {
			return common.NewBadRequestError(fmt.Sprintf("pool is %s, cannot start", pool.State), nil)
		}
		now := s.now().UTC()
		pool.State = PoolInTransit
		pool.StartedAt = &now
		if err := s.store.UpdatePoolUnderLease(ctx, pool); err != nil {
			return err
		}
		members, err := s.store.ListPassengersByPool(ctx, poolID)
		if err != nil {
			return err
		}
		for _, m := range members {
			m.State = PassengerInTransit
			if err := s.store.UpdatePassengerState(ctx, m); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, lease.ErrUnavailable) {
		leaseConflicts.Inc()
		return common.NewConflictError("pool is busy, try again")
	}
	return err
}

// CompletePool finishes a pool in transit, stamping each passenger.
func (s *Service) CompletePool(ctx context.Context, poolID uuid.UUID) error {
	holder := uuid.New().String()
	err := s.leases.WithLease(ctx, leaseName(poolID), holder, func(ctx context.Context) error {
		pool, err := s.store.GetPool(ctx, poolID)
		if err != nil {
			return err
		}
		if pool.State != PoolInTransit {
			return common.NewBadRequestError(fmt.Sprintf("pool is %s, cannot complete", pool.State), nil)
		}
		now := s.now().UTC()
		pool.State = PoolCompleted
		pool.CompletedAt = &now
		if err := s.store.UpdatePoolUnderLease(ctx, pool); err != nil {
			return err
		}
		members, err := s.store.ListPassengersByPool(ctx, poolID)
		if err != nil {
			return err
		}
		for _, m := range members {
			m.State = PassengerCompleted
			m.CompletedAt = &now
			if err := s.store.UpdatePassengerState(ctx, m); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, lease.ErrUnavailable) {
		leaseConflicts.Inc()
		return common.NewConflictError("pool is busy, try again")
	}
	return err
}

// CleanupExpiredForming dissolves forming pools older than the freshness
// window, returning their passengers to pending so the next cycle can try
// again.
func (s *Service) CleanupExpiredForming(ctx context.Context) (int, error) {
	state := PoolForming
	pools, err := s.store.ListPools(ctx, &state)
	if err != nil {
		return 0, err
	}

	cutoff := s.now().UTC().Add(-s.cfg.FormingPoolMaxAge)
	cleaned := 0
	for _, pool := range pools {
		if !pool.CreatedAt.Before(cutoff) {
			continue
		}
		holder := uuid.New().String()
		err := s.leases.WithLease(ctx, leaseName(pool.ID), holder, func(ctx context.Context) error {
			members, err := s.store.ListPassengersByPool(ctx, pool.ID)
			if err != nil {
				return err
			}
			for _, m := range members {
				m.State = PassengerPending
				m.PoolID = nil
				m.FinalFare = nil
				m.MatchedAt = nil
				if err := s.store.UpdatePassengerState(ctx, m); err != nil {
					return err
				}
				if err := s.store.DeleteWaypointsForPassenger(ctx, m.ID); err != nil {
					return err
				}
			}
			return s.store.DeletePool(ctx, pool.ID)
		})
		if err != nil {
			logger.WithContext(ctx).Warn("expired pool cleanup skipped",
				zap.String("pool_id", pool.ID.String()), zap.Error(err))
			continue
		}
		cleaned++
	}
	if cleaned > 0 {
		logger.WithContext(ctx).Info("dissolved expired forming pools", zap.Int("count", cleaned))
	}
	return cleaned, nil
}

// RefreshSurgeZones recomputes every zone's multiplier from its demand
// counters, smoothing toward the raw value, and resets the per-window
// request counter.
func (s *Service) RefreshSurgeZones(ctx context.Context) error {
	zones, err := s.store.ListSurgeZones(ctx)
	if err != nil {
		return err
	}
	for _, zone := range zones {
		multiplier, tier := pricing.RefreshSurge(zone.ActiveRequests, zone.AvailableDrivers, zone.Multiplier)
		zone.Multiplier = multiplier
		zone.Tier = tier
		zone.ActiveRequests = 0
		zone.UpdatedAt = s.now().UTC()
		if err := s.zones.UpdateZone(ctx, zone); err != nil {
			logger.WithContext(ctx).Error("surge zone refresh failed",
				zap.String("zone_id", zone.ID), zap.Error(err))
		}
	}
	return nil
}

// SweepLeases drops expired lease records.
func (s *Service) SweepLeases(ctx context.Context) (int64, error) {
	return s.leases.Sweep(ctx)
}

// Stats aggregates pool counts and averages for the analytics endpoint.
func (s *Service) Stats(ctx context.Context) (*PoolStats, error) {
	pools, err := s.store.ListPools(ctx, nil)
	if err != nil {
		return nil, err
	}

	stats := &PoolStats{TotalPools: len(pools)}
	var occupancy, efficiency float64
	withRoute := 0
	for _, pool := range pools {
		switch pool.State {
		case PoolCompleted:
			stats.CompletedPools++
		default:
			stats.ActivePools++
		}
		if pool.MaxSeats > 0 {
			occupancy += float64(pool.CurrentSeats) / float64(pool.MaxSeats)
		}
		if route, err := pool.Route(); err == nil {
			efficiency += route.Efficiency
			withRoute++
		}
	}
	if len(pools) > 0 {
		stats.AverageOccupancy = occupancy / float64(len(pools))
	}
	if withRoute > 0 {
		stats.AverageEfficiency = efficiency / float64(withRoute)
	}
	return stats, nil
}

// SurgeSnapshot returns the current surge zones for the analytics endpoint.
func (s *Service) SurgeSnapshot(ctx context.Context) ([]*pricing.SurgeZone, error) {
	return s.zones.ListZones(ctx)
}

func leaseName(poolID uuid.UUID) string {
	return "pool:" + poolID.String()
}
