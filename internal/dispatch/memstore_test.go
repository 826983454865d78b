package dispatch

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/richxcame/ride-pooling/internal/pricing"
	"github.com/richxcame/ride-pooling/pkg/common"
)

// memStore is an in-memory Store for service tests. It is concurrency-safe
// so parallel-cancellation tests exercise realistic interleavings.
type memStore struct {
	mu         sync.Mutex
	passengers map[uuid.UUID]*Passenger
	pools      map[uuid.UUID]*Pool
	waypoints  map[uuid.UUID]*Waypoint
	zones      map[string]*pricing.SurgeZone
}

func newMemStore() *memStore {
	return &memStore{
		passengers: make(map[uuid.UUID]*Passenger),
		pools:      make(map[uuid.UUID]*Pool),
		waypoints:  make(map[uuid.UUID]*Waypoint),
		zones:      make(map[string]*pricing.SurgeZone),
	}
}

func clonePassenger(p *Passenger) *Passenger {
	cp := *p
	return &cp
}

func clonePool(p *Pool) *Pool {
	cp := *p
	cp.PlannedRoute = append([]byte(nil), p.PlannedRoute...)
	return &cp
}

func (s *memStore) InsertPassenger(_ context.Context, p *Passenger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	s.passengers[p.ID] = clonePassenger(p)
	return nil
}

func (s *memStore) GetPassenger(_ context.Context, id uuid.UUID) (*Passenger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, present := s.passengers[id]
	if !present {
		return nil, common.NewNotFoundError("passenger not found", nil)
	}
	return clonePassenger(p), nil
}

func (s *memStore) UpdatePassengerState(_ context.Context, p *Passenger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, present := s.passengers[p.ID]; !present {
		return common.NewNotFoundError("passenger not found", nil)
	}
	p.UpdatedAt = time.Now().UTC()
	s.passengers[p.ID] = clonePassenger(p)
	return nil
}

func (s *memStore) ListPassengersByUser(_ context.Context, userID uuid.UUID, state *PassengerState) ([]*Passenger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Passenger
	for _, p := range s.passengers {
		if p.UserID != userID {
			continue
		}
		if state != nil && p.State != *state {
			continue
		}
		out = append(out, clonePassenger(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.After(out[j].RequestedAt) })
	return out, nil
}

func (s *memStore) ListPassengersByPool(_ context.Context, poolID uuid.UUID) ([]*Passenger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Passenger
	for _, p := range s.passengers {
		if p.PoolID != nil && *p.PoolID == poolID && p.State != PassengerCancelled {
			out = append(out, clonePassenger(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	return out, nil
}

func (s *memStore) QueryPendingPassengers(_ context.Context, limit int) ([]*Passenger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Passenger
	for _, p := range s.passengers {
		if p.State == PassengerPending {
			out = append(out, clonePassenger(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) InsertPool(_ context.Context, pool *Pool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if pool.CreatedAt.IsZero() {
		pool.CreatedAt = now
	}
	pool.UpdatedAt = now
	pool.Version = 0
	s.pools[pool.ID] = clonePool(pool)
	return nil
}

func (s *memStore) GetPool(_ context.Context, id uuid.UUID) (*Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pool, present := s.pools[id]
	if !present {
		return nil, common.NewNotFoundError("pool not found", nil)
	}
	return clonePool(pool), nil
}

func (s *memStore) ListPools(_ context.Context, state *PoolState) ([]*Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Pool
	for _, pool := range s.pools {
		if state != nil && pool.State != *state {
			continue
		}
		out = append(out, clonePool(pool))
	}
	return out, nil
}

func (s *memStore) QueryFormingPools(_ context.Context, maxAge time.Duration) ([]*Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().UTC().Add(-maxAge)
	var out []*Pool
	for _, pool := range s.pools {
		if pool.State == PoolForming && !pool.CreatedAt.Before(cutoff) {
			out = append(out, clonePool(pool))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *memStore) UpdatePoolUnderLease(_ context.Context, pool *Pool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, present := s.pools[pool.ID]
	if !present {
		return common.NewNotFoundError("pool not found", nil)
	}
	pool.Version = stored.Version + 1
	pool.UpdatedAt = time.Now().UTC()
	s.pools[pool.ID] = clonePool(pool)
	return nil
}

func (s *memStore) UpdatePoolByVersion(_ context.Context, pool *Pool, expectedVersion int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, present := s.pools[pool.ID]
	if !present {
		return false, common.NewNotFoundError("pool not found", nil)
	}
	if stored.Version != expectedVersion {
		return false, nil
	}
	pool.Version = expectedVersion + 1
	pool.UpdatedAt = time.Now().UTC()
	s.pools[pool.ID] = clonePool(pool)
	return true, nil
}

func (s *memStore) DeletePool(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pools, id)
	for wid, w := range s.waypoints {
		if w.PoolID == id {
			delete(s.waypoints, wid)
		}
	}
	return nil
}

func (s *memStore) InsertWaypoint(_ context.Context, w *Waypoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cw := *w
	s.waypoints[w.ID] = &cw
	return nil
}

func (s *memStore) DeleteWaypointsForPassenger(_ context.Context, passengerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, w := range s.waypoints {
		if w.PassengerID == passengerID {
			delete(s.waypoints, id)
		}
	}
	return nil
}

func (s *memStore) ListWaypointsForPool(_ context.Context, poolID uuid.UUID) ([]*Waypoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Waypoint
	for _, w := range s.waypoints {
		if w.PoolID == poolID {
			cw := *w
			out = append(out, &cw)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (s *memStore) GetSurgeZone(_ context.Context, id string) (*pricing.SurgeZone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	zone, present := s.zones[id]
	if !present {
		return nil, common.NewNotFoundError("surge zone not found", nil)
	}
	cz := *zone
	return &cz, nil
}

func (s *memStore) ListSurgeZones(_ context.Context) ([]*pricing.SurgeZone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*pricing.SurgeZone
	for _, zone := range s.zones {
		cz := *zone
		out = append(out, &cz)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memStore) UpdateSurgeZone(_ context.Context, zone *pricing.SurgeZone) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, present := s.zones[zone.ID]; !present {
		return common.NewNotFoundError("surge zone not found", nil)
	}
	cz := *zone
	s.zones[zone.ID] = &cz
	return nil
}

func (s *memStore) IncrementZoneActiveRequests(_ context.Context, zoneID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	zone, present := s.zones[zoneID]
	if !present {
		return common.NewNotFoundError("surge zone not found", nil)
	}
	zone.ActiveRequests++
	return nil
}

var _ Store = (*memStore)(nil)
