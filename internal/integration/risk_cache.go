package integration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/abelzeko/dengue-watch/internal/entities"
)

// RiskCache holds the risk dataset in memory and refetches it once it is
// older than the TTL. Concurrent misses share a single upstream fetch
type RiskCache struct {
	source     RiskSource
	ttl        time.Duration
	logger     *zap.SugaredLogger
	now        func() time.Time
	group      singleflight.Group
	mutex      sync.RWMutex
	data       []entities.RiskPoint
	lastUpdate time.Time
}

// NewRiskCache wraps a risk source with a TTL cache
func NewRiskCache(source RiskSource, ttl time.Duration, logger *zap.SugaredLogger) *RiskCache {
	return &RiskCache{
		source: source,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Get returns the cached points and their fetch time, fetching when the
// cache is empty or expired. If a refetch fails the stale data is served
func (c *RiskCache) Get(ctx context.Context) ([]entities.RiskPoint, time.Time, error) {
	c.mutex.RLock()
	data, lastUpdate := c.data, c.lastUpdate
	c.mutex.RUnlock()

	if !lastUpdate.IsZero() && c.now().Sub(lastUpdate) < c.ttl {
		c.logger.Debugf("Using cached risk data (last updated: %s)", lastUpdate.Format(time.RFC3339))
		return data, lastUpdate, nil
	}

	if err := c.Refresh(ctx); err != nil {
		if !lastUpdate.IsZero() {
			c.logger.Warnf("Serving stale risk data from %s: %v", lastUpdate.Format(time.RFC3339), err)
			return data, lastUpdate, nil
		}
		return nil, time.Time{}, fmt.Errorf("%w: %v", ErrNoRiskData, err)
	}

	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.data, c.lastUpdate, nil
}

// Refresh fetches fresh data unconditionally and replaces the cache on success
func (c *RiskCache) Refresh(ctx context.Context) error {
	_, err, shared := c.group.Do("risk", func() (interface{}, error) {
		points, err := c.source.FetchRiskData(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		if len(points) == 0 {
			return nil, ErrNoRiskData
		}

		c.mutex.Lock()
		c.data = points
		c.lastUpdate = c.now()
		c.mutex.Unlock()
		c.logger.Infof("Risk cache updated with %d points", len(points))
		return nil, nil
	})
	if shared {
		c.logger.Debugf("Risk refresh shared with a concurrent caller")
	}
	return err
}

// LastUpdate returns when the cache was last filled, zero if never
func (c *RiskCache) LastUpdate() time.Time {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.lastUpdate
}
