package matching

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/uber/h3-go/v4"
	"go.uber.org/zap"

	"github.com/richxcame/ride-pooling/internal/planner"
	"github.com/richxcame/ride-pooling/internal/pricing"
	"github.com/richxcame/ride-pooling/internal/vehicle"
	"github.com/richxcame/ride-pooling/pkg/geo"
	"github.com/richxcame/ride-pooling/pkg/logger"
)

// ZoneLookup resolves the surge zone covering a coordinate, if any.
type ZoneLookup interface {
	FindZoneContaining(ctx context.Context, p geo.Point) (*pricing.SurgeZone, error)
}

// Config controls one matching pass.
type Config struct {
	// Budget bounds the wall-clock time of a pass; checked at cluster
	// boundaries, so a pass may overrun by at most one cluster.
	Budget time.Duration

	// ClusterRadiusKm groups passengers whose pickups are near each other.
	ClusterRadiusKm float64

	// MaxPoolSize caps how many passengers a single proposal may carry.
	MaxPoolSize int

	// AllowSolo permits proposals with a single passenger.
	AllowSolo bool
}

// DefaultConfig returns the standard matching parameters.
func DefaultConfig() Config {
	return Config{
		Budget:          250 * time.Millisecond,
		ClusterRadiusKm: 5.0,
		MaxPoolSize:     4,
		AllowSolo:       true,
	}
}

// Matcher turns pending passengers into pool proposals. It holds no mutable
// state and is safe for concurrent use.
type Matcher struct {
	cfg   Config
	zones ZoneLookup
	now   func() time.Time
}

// NewMatcher creates a matcher. zones may be nil, in which case fares are
// quoted without zone surge.
func NewMatcher(cfg Config, zones ZoneLookup) *Matcher {
	if cfg.Budget <= 0 {
		cfg.Budget = DefaultConfig().Budget
	}
	if cfg.ClusterRadiusKm <= 0 {
		cfg.ClusterRadiusKm = DefaultConfig().ClusterRadiusKm
	}
	if cfg.MaxPoolSize <= 0 {
		cfg.MaxPoolSize = DefaultConfig().MaxPoolSize
	}
	return &Matcher{cfg: cfg, zones: zones, now: time.Now}
}

// Match runs one pass over the pending passengers and the pools still
// forming. It returns new-pool proposals plus augmentations of existing
// pools, and never mutates anything itself.
func (m *Matcher) Match(ctx context.Context, candidates []Candidate, pools []FormingPool) ([]Proposal, []Augmentation) {
	started := m.now()
	deadline := started.Add(m.cfg.Budget)

	ordered := make([]Candidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].RequestedAt.Equal(ordered[j].RequestedAt) {
			return ordered[i].RequestedAt.Before(ordered[j].RequestedAt)
		}
		return ordered[i].ID.String() < ordered[j].ID.String()
	})

	augmented, remaining := m.augmentExisting(ordered, pools)

	var proposals []Proposal
	clusters := clusterByPickup(remaining, m.cfg.ClusterRadiusKm)
	for _, cluster := range clusters {
		if m.now().After(deadline) {
			logger.WithContext(ctx).Warn("matching pass exceeded budget, returning partial result",
				zap.Duration("budget", m.cfg.Budget),
				zap.Int("proposals", len(proposals)))
			break
		}
		proposals = append(proposals, m.formFromCluster(ctx, cluster)...)
	}

	logger.WithContext(ctx).Info("matching pass complete",
		zap.Int("candidates", len(candidates)),
		zap.Int("clusters", len(clusters)),
		zap.Int("proposals", len(proposals)),
		zap.Int("augmentations", len(augmented)),
		zap.Duration("elapsed", m.now().Sub(started)))

	return proposals, augmented
}

// augmentExisting tries to place candidates into pools that are already
// forming nearby, preferring the highest-scoring pool per candidate. Each
// pool absorbs at most one candidate per pass; dispatch re-plans before
// committing, so growth stays one rider at a time.
func (m *Matcher) augmentExisting(candidates []Candidate, pools []FormingPool) ([]Augmentation, []Candidate) {
	if len(pools) == 0 {
		return nil, candidates
	}

	byCell := make(map[h3.Cell][]int, len(pools))
	for i, p := range pools {
		byCell[p.Cell] = append(byCell[p.Cell], i)
	}
	taken := make(map[uuid.UUID]bool, len(pools))

	var out []Augmentation
	remaining := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		best, bestScore := -1, 0.0
		for _, cell := range geo.KRing(c.Pickup, geo.H3ResolutionPooling, geo.H3KRingPooling) {
			for _, i := range byCell[cell] {
				p := pools[i]
				if taken[p.ID] || !fitsPool(p, c) {
					continue
				}
				caps, known := vehicle.CapacityOf(p.Class)
				if !known {
					continue
				}
				score := ScorePoolFit(p.CurrentSeats, caps.MaxSeats, m.now().Sub(p.CreatedAt))
				if score > bestScore {
					best, bestScore = i, score
				}
			}
		}
		if best >= 0 {
			taken[pools[best].ID] = true
			out = append(out, Augmentation{
				PoolID:      pools[best].ID,
				PassengerID: c.ID,
				Score:       bestScore,
			})
			continue
		}
		remaining = append(remaining, c)
	}
	return out, remaining
}

// fitsPool checks capacity and heading for adding c to a forming pool.
func fitsPool(p FormingPool, c Candidate) bool {
	caps, known := vehicle.CapacityOf(p.Class)
	if !known {
		return false
	}
	if p.CurrentSeats+c.Seats > caps.MaxSeats || p.CurrentLuggage+c.Luggage > caps.MaxLuggage {
		return false
	}
	return geo.SameHeading(p.Bearing, geo.Bearing(c.Pickup, c.Dropoff), geo.DefaultDirectionThreshold)
}

// clusterByPickup groups candidates whose pickups lie within radiusKm of a
// seed, walking in order so the result is deterministic for a given input
// ordering.
func clusterByPickup(candidates []Candidate, radiusKm float64) [][]Candidate {
	assigned := make([]bool, len(candidates))
	var clusters [][]Candidate
	for i := range candidates {
		if assigned[i] {
			continue
		}
		cluster := []Candidate{candidates[i]}
		assigned[i] = true
		for j := i + 1; j < len(candidates); j++ {
			if assigned[j] {
				continue
			}
			if geo.WithinRadius(candidates[j].Pickup, candidates[i].Pickup, radiusKm) {
				cluster = append(cluster, candidates[j])
				assigned[j] = true
			}
		}
		clusters = append(clusters, cluster)
	}
	return clusters
}

// formFromCluster turns one pickup cluster into zero or more proposals.
// Small clusters are attempted whole; larger ones, or whole attempts that
// fail, grow pools greedily from the oldest unassigned rider.
func (m *Matcher) formFromCluster(ctx context.Context, cluster []Candidate) []Proposal {
	if len(cluster) <= m.cfg.MaxPoolSize {
		if p, ok := m.tryFormPool(ctx, cluster); ok && m.admissible(p) {
			return []Proposal{p}
		}
	}

	var proposals []Proposal
	unassigned := cluster
	for len(unassigned) > 0 {
		admitted := []Candidate{unassigned[0]}
		seats, luggage := unassigned[0].Seats, unassigned[0].Luggage
		rest := unassigned[1:]

		// Walk newest-first so long-waiting riders seed their own pools
		// rather than piling onto the head's.
		for k := len(rest) - 1; k >= 0; k-- {
			c := rest[k]
			if len(admitted) >= m.cfg.MaxPoolSize {
				break
			}
			if seats+c.Seats > maxCombinedSeats || luggage+c.Luggage > maxCombinedLuggage {
				continue
			}
			if !compatible(admitted, c) {
				continue
			}
			admitted = append(admitted, c)
			seats += c.Seats
			luggage += c.Luggage
		}

		if p, ok := m.tryFormPool(ctx, admitted); ok && m.admissible(p) {
			proposals = append(proposals, p)
		}

		inPool := make(map[uuid.UUID]bool, len(admitted))
		for _, a := range admitted {
			inPool[a.ID] = true
		}
		next := unassigned[:0:0]
		for _, c := range unassigned {
			if !inPool[c.ID] {
				next = append(next, c)
			}
		}
		unassigned = next
	}
	return proposals
}

// compatible reports whether c can join the admitted set: every existing
// member must be heading c's way.
// admissible rejects single-rider proposals unless solo pools are enabled.
func (m *Matcher) admissible(p Proposal) bool {
	return len(p.PassengerIDs) > 1 || m.cfg.AllowSolo
}

func compatible(admitted []Candidate, c Candidate) bool {
	for _, e := range admitted {
		if !geo.SameDirection(e.Pickup, e.Dropoff, c.Pickup, c.Dropoff, geo.DefaultDirectionThreshold) {
			return false
		}
	}
	return true
}

// tryFormPool builds a complete proposal for the given members: vehicle
// class, planned route and per-seat fares. The fares here are pre-commit;
// dispatch applies the realized detour penalty when it commits.
func (m *Matcher) tryFormPool(ctx context.Context, members []Candidate) (Proposal, bool) {
	if len(members) == 0 {
		return Proposal{}, false
	}

	totalSeats, totalLuggage := 0, 0
	for _, c := range members {
		totalSeats += c.Seats
		totalLuggage += c.Luggage
	}
	class, ok := vehicle.SmallestFor(totalSeats, totalLuggage)
	if !ok {
		return Proposal{}, false
	}
	caps, _ := vehicle.CapacityOf(class)

	start := pickupCentroid(members)
	req := planner.Request{
		Start:      start,
		MaxSeats:   caps.MaxSeats,
		MaxLuggage: caps.MaxLuggage,
		Passengers: make(map[string]planner.Constraint, len(members)),
	}
	for _, c := range members {
		direct := geo.Distance(c.Pickup, c.Dropoff)
		req.Passengers[c.ID.String()] = planner.Constraint{
			Pickup:           c.Pickup,
			Dropoff:          c.Dropoff,
			Seats:            c.Seats,
			Luggage:          c.Luggage,
			MaxDetourMin:     c.MaxDetourMin,
			DirectDistanceKm: direct,
			DirectTimeMin:    geo.TravelTimeMinutes(direct),
			RequestedAt:      c.RequestedAt,
		}
	}

	route, feasible, err := planner.Plan(req)
	if err != nil {
		logger.WithContext(ctx).Error("route planning failed", zap.Error(err))
		return Proposal{}, false
	}
	if !feasible {
		return Proposal{}, false
	}

	at := m.now()
	fares := make(map[uuid.UUID]pricing.Quote, len(members))
	for _, c := range members {
		cons := req.Passengers[c.ID.String()]
		quote, err := pricing.Price(pricing.Factors{
			DistanceKm:  cons.DirectDistanceKm,
			DurationMin: cons.DirectTimeMin,
			Class:       class,
			PoolSize:    len(members),
			Zone:        m.lookupZone(ctx, c.Pickup),
			At:          at,
		})
		if err != nil {
			logger.WithContext(ctx).Error("fare calculation failed",
				zap.String("passenger_id", c.ID.String()), zap.Error(err))
			return Proposal{}, false
		}
		fares[c.ID] = quote
	}

	ids := make([]uuid.UUID, len(members))
	for i, c := range members {
		ids[i] = c.ID
	}
	return Proposal{
		PoolID:       uuid.New(),
		PassengerIDs: ids,
		Class:        class,
		TotalSeats:   totalSeats,
		TotalLuggage: totalLuggage,
		Start:        start,
		Cell:         geo.CellOf(start, geo.H3ResolutionPooling),
		Route:        route,
		Fares:        fares,
		Efficiency:   route.Efficiency,
	}, true
}

func (m *Matcher) lookupZone(ctx context.Context, p geo.Point) *pricing.SurgeZone {
	if m.zones == nil {
		return nil
	}
	zone, err := m.zones.FindZoneContaining(ctx, p)
	if err != nil {
		logger.WithContext(ctx).Warn("surge zone lookup failed, quoting without zone surge", zap.Error(err))
		return nil
	}
	return zone
}

func pickupCentroid(members []Candidate) geo.Point {
	var lat, lng float64
	for _, c := range members {
		lat += c.Pickup.Latitude
		lng += c.Pickup.Longitude
	}
	n := float64(len(members))
	return geo.Point{Latitude: lat / n, Longitude: lng / n}
}
