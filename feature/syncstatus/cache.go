package syncstatus

import (
	"context"
	"sync"
	"time"

	"clouddisk-sync/feature/clouddisk/handler"

	"golang.org/x/sync/singleflight"
)

// cachedStatus is one status report and when it was built.
type cachedStatus struct {
	status handler.Status
	built  time.Time
}

// statusCache serves the last report until its TTL passes. Concurrent
// misses share a single rebuild.
type statusCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	current *cachedStatus
	sf      singleflight.Group
}

func newStatusCache(ttl time.Duration) *statusCache {
	return &statusCache{ttl: ttl, now: time.Now}
}

func (c *statusCache) fresh() (handler.Status, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil || c.ttl <= 0 || c.now().Sub(c.current.built) > c.ttl {
		return handler.Status{}, false
	}
	return c.current.status, true
}

// get returns the cached report or builds a new one with load.
func (c *statusCache) get(ctx context.Context, load func(context.Context) (handler.Status, error)) (handler.Status, error) {
	if st, ok := c.fresh(); ok {
		return st, nil
	}

	v, err, _ := c.sf.Do("status", func() (interface{}, error) {
		if st, ok := c.fresh(); ok {
			return st, nil
		}
		st, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.current = &cachedStatus{status: st, built: c.now()}
		c.mu.Unlock()
		return st, nil
	})
	if err != nil {
		return handler.Status{}, err
	}
	return v.(handler.Status), nil
}

// invalidate drops the cached report.
func (c *statusCache) invalidate() {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
}
