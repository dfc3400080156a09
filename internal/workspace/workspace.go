// Package workspace composes one caller's lists: a Session, a Tenant Context,
// a notification inbox and one list controller per document kind. Nothing is
// shared between workspaces except the repository.
package workspace

import (
	"context"
	"time"

	"ledgerview/internal/core"
	"ledgerview/internal/listview"
	"ledgerview/internal/log"
	"ledgerview/internal/notify"
	"ledgerview/internal/records"
	"ledgerview/internal/session"
)

// Deps are shared by every workspace a Registry creates.
type Deps struct {
	Repository records.Repository
	// Notifier receives every failure in addition to the workspace inbox.
	Notifier     notify.Notifier
	Logger       *log.Logger
	FetchTimeout time.Duration
}

type Workspace struct {
	id      string
	session *session.Session
	tenants *session.TenantContext
	inbox   *notify.Inbox
	lists   map[core.Kind]*listview.Controller
}

// New builds a workspace and starts its controllers with ctx.
func New(ctx context.Context, id string, deps Deps) *Workspace {
	ws := &Workspace{
		id:      id,
		session: session.New(),
		tenants: session.NewTenantContext(),
		inbox:   notify.NewInbox(0),
		lists:   make(map[core.Kind]*listview.Controller, len(core.Kinds())),
	}

	logger := deps.Logger
	if logger != nil {
		logger = logger.With("workspace", id)
	}
	notifier := notify.Multi{ws.inbox, deps.Notifier}
	for _, def := range listview.Definitions() {
		c := listview.New(def, listview.Options{
			Repository:   deps.Repository,
			Identity:     ws.session,
			Tenants:      ws.tenants,
			Notifier:     notifier,
			Logger:       logger,
			FetchTimeout: deps.FetchTimeout,
		})
		c.Start(ctx)
		ws.lists[def.Kind] = c
	}
	return ws
}

func (w *Workspace) ID() string                    { return w.id }
func (w *Workspace) Session() *session.Session       { return w.session }
func (w *Workspace) Tenants() *session.TenantContext { return w.tenants }
func (w *Workspace) Inbox() *notify.Inbox            { return w.inbox }

// List returns the controller for kind.
func (w *Workspace) List(kind core.Kind) (*listview.Controller, bool) {
	c, ok := w.lists[kind]
	return c, ok
}

// Lists returns every controller in navigation order.
func (w *Workspace) Lists() []*listview.Controller {
	out := make([]*listview.Controller, 0, len(w.lists))
	for _, k := range core.Kinds() {
		out = append(out, w.lists[k])
	}
	return out
}

// Identify signs the caller in as id unless already signed in as id.
func (w *Workspace) Identify(id core.Identity) {
	if cur, ok := w.session.CurrentIdentity(); ok && cur.ID == id.ID {
		return
	}
	w.session.SignIn(id)
}

// RefreshIfShowing refreshes the kind's list when it currently shows scope.
// It reports whether a refresh ran.
func (w *Workspace) RefreshIfShowing(ctx context.Context, kind core.Kind, scope core.Scope) bool {
	c, ok := w.lists[kind]
	if !ok {
		return false
	}
	cur, ok := c.Scope()
	if !ok || cur != scope {
		return false
	}
	c.Refresh(ctx)
	return true
}

// Stop detaches every controller from the session and tenant context.
func (w *Workspace) Stop() {
	for _, c := range w.lists {
		c.Stop()
	}
}
