package listview

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ledgerview/internal/core"
	"ledgerview/internal/log"
	"ledgerview/internal/notify"
	"ledgerview/internal/records"
)

// IdentitySource is the Session Resolver as seen by a list.
type IdentitySource interface {
	CurrentIdentity() (core.Identity, bool)
	Subscribe(fn func()) (unsubscribe func())
}

// TenantSource is the Tenant Context as seen by a list.
type TenantSource interface {
	CurrentTenant() (core.Tenant, bool)
	Subscribe(fn func()) (unsubscribe func())
}

type Options struct {
	Repository records.Repository
	Identity   IdentitySource
	Tenants    TenantSource
	Notifier   notify.Notifier
	Logger     *log.Logger
	// FetchTimeout bounds each repository call. Zero means no bound.
	FetchTimeout time.Duration
}

// Controller drives one list through Loading, Empty, Populated and Failed.
//
// Every context change or Refresh starts a new generation. A fetch result is
// applied only if its generation is still current, so a superseded fetch can
// never overwrite a newer state.
type Controller struct {
	def      Definition
	repo     records.Repository
	identity IdentitySource
	tenants  TenantSource
	notifier notify.Notifier
	logger   *log.Logger
	timeout  time.Duration

	mu      sync.Mutex
	gen     uint64
	version uint64
	state   State
	ctx     context.Context
	cancel  context.CancelFunc
	unsubs  []func()

	// deliverMu serializes delivery so subscribers see versions in order.
	// pubMu guards the subscriber set and is never held while a callback runs.
	deliverMu sync.Mutex
	pubMu     sync.Mutex
	published uint64
	subs      map[int]func(State)
	nextSub   int

	inflight sync.WaitGroup
}

func New(def Definition, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = &log.Logger{Logger: slog.Default()}
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.Discard
	}
	return &Controller{
		def:      def,
		repo:     opts.Repository,
		identity: opts.Identity,
		tenants:  opts.Tenants,
		notifier: notifier,
		logger:   logger.With(log.FieldKind, string(def.Kind)),
		timeout:  opts.FetchTimeout,
		state:    State{Phase: PhaseLoading},
		ctx:      context.Background(),
		subs:     make(map[int]func(State)),
	}
}

func (c *Controller) Definition() Definition {
	return c.def
}

// Start subscribes to identity and tenant changes and begins the first load.
// Fetches started by context changes run on their own goroutine and use ctx.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()

	var unsubs []func()
	if c.identity != nil {
		unsubs = append(unsubs, c.identity.Subscribe(c.contextChanged))
	}
	if c.tenants != nil {
		unsubs = append(unsubs, c.tenants.Subscribe(c.contextChanged))
	}
	c.mu.Lock()
	c.unsubs = unsubs
	c.mu.Unlock()

	c.contextChanged()
}

// Stop unsubscribes from context changes and discards any in-flight result.
func (c *Controller) Stop() {
	c.mu.Lock()
	unsubs := c.unsubs
	c.unsubs = nil
	c.gen++
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()

	for _, u := range unsubs {
		u()
	}
}

// Wait blocks until fetches started by context changes have returned.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn to receive every published state, in order. Stale
// snapshots are never delivered after newer ones. fn may subscribe or
// unsubscribe, but must not change the tenant or identity synchronously.
func (c *Controller) Subscribe(fn func(State)) (unsubscribe func()) {
	c.pubMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.pubMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.pubMu.Lock()
			delete(c.subs, id)
			c.pubMu.Unlock()
		})
	}
}

// Refresh restarts the machine and waits for the fetch to finish. applied is
// false when a newer generation superseded this one before it completed.
func (c *Controller) Refresh(ctx context.Context) (st State, applied bool) {
	gen, scope, ok := c.begin()
	if !ok {
		return c.State(), true
	}
	return c.fetch(ctx, gen, scope)
}

// Scope resolves the scope the list would fetch with right now.
func (c *Controller) Scope() (core.Scope, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolveScope()
}

func (c *Controller) contextChanged() {
	gen, scope, ok := c.begin()
	if !ok {
		return
	}
	c.mu.Lock()
	ctx := c.ctx
	c.mu.Unlock()

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		c.fetch(ctx, gen, scope)
	}()
}

// begin enters Loading. The scope snapshot and the generation bump happen in
// one critical section. ok is false when the scope is missing and the list
// went straight to Empty/NoContext.
func (c *Controller) begin() (gen uint64, scope core.Scope, ok bool) {
	c.mu.Lock()
	c.gen++
	gen = c.gen
	scope, ok = c.resolveScope()
	if ok {
		c.state = State{Phase: PhaseLoading, Generation: gen}
	} else {
		c.state = State{Phase: PhaseEmpty, NoContext: true, Reason: c.def.NoContextMessage(), Generation: gen}
	}
	st, version := c.commit()
	c.mu.Unlock()

	if !ok {
		c.logger.Debug("List has no scope", log.FieldGeneration, gen)
	}
	c.publish(st, version)
	return gen, scope, ok
}

func (c *Controller) resolveScope() (core.Scope, bool) {
	rule := c.def.Kind.ScopeRule()
	switch rule {
	case core.ScopeIdentity:
		if c.identity == nil {
			return core.Scope{}, false
		}
		id, ok := c.identity.CurrentIdentity()
		if !ok || id.ID == "" {
			return core.Scope{}, false
		}
		return core.Scope{Rule: rule, ID: id.ID}, true
	default:
		if c.tenants == nil {
			return core.Scope{}, false
		}
		t, ok := c.tenants.CurrentTenant()
		if !ok || t.ID == "" {
			return core.Scope{}, false
		}
		return core.Scope{Rule: rule, ID: t.ID}, true
	}
}

func (c *Controller) fetch(ctx context.Context, gen uint64, scope core.Scope) (State, bool) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	recs, err := c.repo.Fetch(ctx, c.def.Kind, scope)

	c.mu.Lock()
	if gen != c.gen {
		st := c.state
		c.mu.Unlock()
		c.logger.Debug("Discarding stale fetch result",
			log.FieldGeneration, gen,
			log.FieldScope, scope.String())
		return st, false
	}
	switch {
	case err != nil:
		c.state = State{Phase: PhaseFailed, Reason: c.def.ErrorMessage, Generation: gen}
	case len(recs) == 0:
		c.state = State{Phase: PhaseEmpty, Generation: gen}
	default:
		c.state = State{Phase: PhasePopulated, Rows: classifyRows(recs), Generation: gen}
	}
	st, version := c.commit()
	c.mu.Unlock()

	fields := log.NewFields().WithList(c.def.Kind, scope, gen)
	fields[log.FieldDuration] = time.Since(start).Milliseconds()
	if err != nil {
		c.logger.ErrorContext(ctx, "Fetch failed", fields.WithError(err).ToSlice()...)
		c.notifier.NotifyError(ctx, st.Reason)
	} else {
		fields[log.FieldRowCount] = len(recs)
		c.logger.DebugContext(ctx, "Fetch completed", fields.ToSlice()...)
	}

	c.publish(st, version)
	return st, true
}

// commit stamps a new state version. Callers hold c.mu.
func (c *Controller) commit() (State, uint64) {
	c.version++
	return c.state, c.version
}

func (c *Controller) publish(st State, version uint64) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.pubMu.Lock()
	if version <= c.published {
		c.pubMu.Unlock()
		return
	}
	c.published = version
	fns := make([]func(State), 0, len(c.subs))
	for i := 0; i < c.nextSub; i++ {
		if fn, ok := c.subs[i]; ok {
			fns = append(fns, fn)
		}
	}
	c.pubMu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}
