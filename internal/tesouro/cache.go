package tesouro

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Cache is a read-through cache of the raw table over a Source.
// A zero TTL keeps the entry until Invalidate is called.
type Cache struct {
	source Source
	ttl    time.Duration
	logger zerolog.Logger
	now    func() time.Time

	group    singleflight.Group
	mu       sync.RWMutex
	table    *Table
	loadedAt time.Time
}

// NewCache wraps source.
func NewCache(source Source, ttl time.Duration, logger zerolog.Logger) *Cache {
	return &Cache{
		source: source,
		ttl:    ttl,
		logger: logger.With().Str("component", "tesouro_cache").Logger(),
		now:    time.Now,
	}
}

// Get returns the cached table, loading it on first use or after expiry.
// Concurrent callers share one in-flight fetch.
func (c *Cache) Get(ctx context.Context) (*Table, error) {
	if table, ok := c.cached(); ok {
		return table, nil
	}

	v, err, shared := c.group.Do("table", func() (interface{}, error) {
		if table, ok := c.cached(); ok {
			return table, nil
		}
		table, err := c.source.Fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.table = table
		c.loadedAt = c.now()
		c.mu.Unlock()
		return table, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug().Msg("joined in-flight table load")
	}
	return v.(*Table), nil
}

// Invalidate drops the cached table so the next Get refetches.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.table = nil
	c.loadedAt = time.Time{}
	c.mu.Unlock()
	c.logger.Debug().Msg("table cache invalidated")
}

// LoadedAt reports when the current entry was fetched.
func (c *Cache) LoadedAt() (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt, c.table != nil
}

func (c *Cache) cached() (*Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.table == nil {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(c.loadedAt) >= c.ttl {
		return nil, false
	}
	return c.table, true
}

// Fetch satisfies Source so a Cache can stand in for its source.
func (c *Cache) Fetch(ctx context.Context) (*Table, error) {
	return c.Get(ctx)
}

var _ Source = (*Cache)(nil)
