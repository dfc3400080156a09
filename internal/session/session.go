// Package session holds the two pieces of ambient state a list depends on:
// the signed-in identity and the selected tenant. Both are observable and
// safe for concurrent use.
package session

import (
	"sync"

	"ledgerview/internal/core"
)

// observers is a set of change callbacks. Callbacks run synchronously on the
// goroutine that made the change, after the owner's lock is released.
type observers struct {
	mu   sync.Mutex
	next int
	fns  map[int]func()
}

func (o *observers) add(fn func()) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fns == nil {
		o.fns = make(map[int]func())
	}
	id := o.next
	o.next++
	o.fns[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.fns, id)
			o.mu.Unlock()
		})
	}
}

func (o *observers) notify() {
	o.mu.Lock()
	fns := make([]func(), 0, len(o.fns))
	for i := 0; i < o.next; i++ {
		if fn, ok := o.fns[i]; ok {
			fns = append(fns, fn)
		}
	}
	o.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Session is the Session Resolver: it knows who is signed in.
type Session struct {
	mu       sync.RWMutex
	identity *core.Identity
	obs      observers
}

func New() *Session {
	return &Session{}
}

// CurrentIdentity returns the current identity, or false when nobody is signed in.
func (s *Session) CurrentIdentity() (core.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return core.Identity{}, false
	}
	return *s.identity, true
}

// SignIn sets the identity. An identity with an empty ID signs out.
func (s *Session) SignIn(id core.Identity) {
	s.mu.Lock()
	if id.ID == "" {
		s.identity = nil
	} else {
		s.identity = &id
	}
	s.mu.Unlock()
	s.obs.notify()
}

func (s *Session) SignOut() {
	s.SignIn(core.Identity{})
}

// Subscribe registers fn to run after every sign-in or sign-out. The returned
// function unsubscribes and is safe to call more than once.
func (s *Session) Subscribe(fn func()) func() {
	return s.obs.add(fn)
}

// TenantContext is the currently selected company.
type TenantContext struct {
	mu     sync.RWMutex
	tenant *core.Tenant
	obs    observers
}

func NewTenantContext() *TenantContext {
	return &TenantContext{}
}

// CurrentTenant returns the selected tenant, or false when none is selected.
func (c *TenantContext) CurrentTenant() (core.Tenant, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.tenant == nil {
		return core.Tenant{}, false
	}
	return *c.tenant, true
}

// Select makes t the current tenant. Subscribers are notified even when t is
// already selected, so re-selecting acts as a refresh.
func (c *TenantContext) Select(t core.Tenant) {
	c.mu.Lock()
	if t.ID == "" {
		c.tenant = nil
	} else {
		c.tenant = &t
	}
	c.mu.Unlock()
	c.obs.notify()
}

func (c *TenantContext) Clear() {
	c.Select(core.Tenant{})
}

// Subscribe registers fn to run after every Select or Clear.
func (c *TenantContext) Subscribe(fn func()) func() {
	return c.obs.add(fn)
}
