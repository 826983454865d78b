package pricing

import (
	"context"
	"encoding/json"
	"time"

	"github.com/richxcame/ride-pooling/pkg/geo"
	"github.com/richxcame/ride-pooling/pkg/logger"
	redisclient "github.com/richxcame/ride-pooling/pkg/redis"
	"github.com/richxcame/ride-pooling/pkg/resilience"
	"go.uber.org/zap"
)

const (
	zoneListCacheKey = "surge:zones"
	zoneCacheTTL     = 30 * time.Second
)

// ZoneStore is the persistence surface the zone cache sits in front of.
type ZoneStore interface {
	GetSurgeZone(ctx context.Context, id string) (*SurgeZone, error)
	ListSurgeZones(ctx context.Context) ([]*SurgeZone, error)
	UpdateSurgeZone(ctx context.Context, zone *SurgeZone) error
}

// ZoneCache is a write-through Redis cache over the surge zone store. Zone
// reads happen on every estimate, so they get the cache; writes always go
// to the store first. Redis failures trip a breaker and reads degrade to
// the store directly.
type ZoneCache struct {
	store   ZoneStore
	redis   *redisclient.Client
	breaker *resilience.CircuitBreaker
}

// NewZoneCache creates a zone cache. redis may be nil, in which case all
// calls pass straight through to the store.
func NewZoneCache(store ZoneStore, redis *redisclient.Client) *ZoneCache {
	var breaker *resilience.CircuitBreaker
	if redis != nil {
		breaker = resilience.NewCircuitBreaker(resilience.Settings{
			Name:             "surge-zone-cache",
			Timeout:          30 * time.Second,
			FailureThreshold: 5,
		}, nil)
	}
	return &ZoneCache{store: store, redis: redis, breaker: breaker}
}

// FindZoneContaining returns the first surge zone whose radius contains p,
// or nil when no zone covers the point.
func (c *ZoneCache) FindZoneContaining(ctx context.Context, p geo.Point) (*SurgeZone, error) {
	zones, err := c.listZones(ctx)
	if err != nil {
		return nil, err
	}
	for _, z := range zones {
		if z.Contains(p) {
			return z, nil
		}
	}
	return nil, nil
}

// UpdateZone persists a zone and refreshes the cache write-through.
func (c *ZoneCache) UpdateZone(ctx context.Context, zone *SurgeZone) error {
	if err := c.store.UpdateSurgeZone(ctx, zone); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}

// ListZones exposes the cached zone list for the surge refresh loop.
func (c *ZoneCache) ListZones(ctx context.Context) ([]*SurgeZone, error) {
	return c.listZones(ctx)
}

func (c *ZoneCache) listZones(ctx context.Context) ([]*SurgeZone, error) {
	if c.redis != nil {
		cached, err := c.breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
			return c.redis.RetryableGet(ctx, zoneListCacheKey)
		})
		if err == nil {
			var zones []*SurgeZone
			if jsonErr := json.Unmarshal([]byte(cached.(string)), &zones); jsonErr == nil {
				return zones, nil
			}
		}
	}

	zones, err := c.store.ListSurgeZones(ctx)
	if err != nil {
		return nil, err
	}
	c.fillCache(ctx, zones)
	return zones, nil
}

func (c *ZoneCache) fillCache(ctx context.Context, zones []*SurgeZone) {
	if c.redis == nil {
		return
	}
	payload, err := json.Marshal(zones)
	if err != nil {
		return
	}
	_, _ = c.breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, c.redis.RetryableSet(ctx, zoneListCacheKey, payload, zoneCacheTTL)
	})
}

func (c *ZoneCache) invalidate(ctx context.Context) {
	if c.redis == nil {
		return
	}
	if _, err := c.breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, c.redis.RetryableDelete(ctx, zoneListCacheKey)
	}); err != nil {
		logger.Warn("failed to invalidate surge zone cache", zap.Error(err))
	}
}
