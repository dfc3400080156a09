package records

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"ledgerview/internal/cache"
	"ledgerview/internal/core"
)

// DefaultSharedFetchTimeout bounds a backend call shared by several callers.
const DefaultSharedFetchTimeout = 30 * time.Second

// Cached decorates a Repository with a short-lived LRU cache keyed by kind
// and scope. Concurrent misses for the same key share one backend call.
// Failed fetches are never cached.
//
// The shared call does not inherit any one caller's cancellation: each
// caller stops waiting when its own context ends, and the backend call is
// bounded by the shared timeout instead.
type Cached struct {
	next    Repository
	cache   *cache.LRUCache[[]core.Record]
	group   singleflight.Group
	epoch   atomic.Uint64
	timeout time.Duration
}

func NewCached(next Repository, size int, ttl time.Duration) *Cached {
	return &Cached{
		next:    next,
		cache:   cache.NewLRUCache[[]core.Record](size, ttl),
		timeout: DefaultSharedFetchTimeout,
	}
}

// WithTimeout sets the bound on shared backend calls. Non-positive values
// are ignored.
func (c *Cached) WithTimeout(d time.Duration) *Cached {
	if d > 0 {
		c.timeout = d
	}
	return c
}

func cacheKey(kind core.Kind, scope core.Scope) string {
	return string(kind) + "|" + scope.String()
}

func (c *Cached) Fetch(ctx context.Context, kind core.Kind, scope core.Scope) ([]core.Record, error) {
	key := cacheKey(kind, scope)
	if hit, ok := c.cache.Get(key); ok {
		return clone(hit), nil
	}

	epoch := c.epoch.Load()
	ch := c.group.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		recs, err := c.next.Fetch(fetchCtx, kind, scope)
		if err != nil {
			return nil, err
		}
		// Skip the write if an invalidation raced with this fetch.
		if c.epoch.Load() == epoch {
			c.cache.Set(key, recs)
		}
		return recs, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return clone(res.Val.([]core.Record)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate drops the cached list for kind and scope.
func (c *Cached) Invalidate(kind core.Kind, scope core.Scope) {
	key := cacheKey(kind, scope)
	c.epoch.Add(1)
	c.group.Forget(key)
	c.cache.Delete(key)
}

// CleanExpired implements cache.Cleaner.
func (c *Cached) CleanExpired() int {
	return c.cache.CleanExpired()
}

func clone(in []core.Record) []core.Record {
	if in == nil {
		return nil
	}
	return append([]core.Record(nil), in...)
}
