package workspace

import (
	"context"
	"time"

	"ledgerview/internal/cache"
	"ledgerview/internal/core"
)

// Registry keeps live workspaces in an LRU cache with a TTL. Workspaces that
// fall out of the cache are stopped.
type Registry struct {
	ctx   context.Context
	deps  Deps
	cache *cache.LRUCache[*Workspace]
}

func NewRegistry(ctx context.Context, deps Deps, size int, ttl time.Duration) *Registry {
	r := &Registry{
		ctx:   ctx,
		deps:  deps,
		cache: cache.NewLRUCache[*Workspace](size, ttl),
	}
	r.cache.OnEvict(func(_ string, ws *Workspace) {
		ws.Stop()
	})
	return r
}

// Get returns the workspace for id, creating it on first use.
func (r *Registry) Get(id string) *Workspace {
	return r.cache.GetOrSet(id, func() *Workspace {
		return New(r.ctx, id, r.deps)
	})
}

// Lookup returns the workspace for id without creating one.
func (r *Registry) Lookup(id string) (*Workspace, bool) {
	return r.cache.Get(id)
}

// Each calls fn for every live workspace.
func (r *Registry) Each(fn func(*Workspace)) {
	for _, ws := range r.cache.Values() {
		fn(ws)
	}
}

// RefreshMatching refreshes every list of kind that shows scope and returns
// how many refreshed.
func (r *Registry) RefreshMatching(ctx context.Context, kind core.Kind, scope core.Scope) int {
	n := 0
	r.Each(func(ws *Workspace) {
		if ws.RefreshIfShowing(ctx, kind, scope) {
			n++
		}
	})
	return n
}

// Size returns the number of live workspaces.
func (r *Registry) Size() int {
	return r.cache.Size()
}

// CleanExpired implements cache.Cleaner.
func (r *Registry) CleanExpired() int {
	return r.cache.CleanExpired()
}
