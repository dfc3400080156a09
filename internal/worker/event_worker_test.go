package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"ledgerview/internal/amqp"
	"ledgerview/internal/core"
	"ledgerview/internal/listview"
	"ledgerview/internal/records/memory"
	"ledgerview/internal/workspace"
)

type fakeConsumer struct {
	events []*amqp.Event
}

func (f *fakeConsumer) ConsumeWithRetry(ctx context.Context, handler func(context.Context, *amqp.Event) error) error {
	for _, e := range f.events {
		if err := handler(ctx, e); err != nil {
			return err
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

type recordingInvalidator struct {
	calls []core.Scope
}

func (r *recordingInvalidator) Invalidate(_ core.Kind, scope core.Scope) {
	r.calls = append(r.calls, scope)
}

func waitIdle(ws *workspace.Workspace) {
	for _, c := range ws.Lists() {
		c.Wait()
	}
}

func TestTenantSelectedAppliesToKnownWorkspace(t *testing.T) {
	ctx := context.Background()
	reg := workspace.NewRegistry(ctx, workspace.Deps{Repository: memory.New()}, 4, time.Minute)
	ws := reg.Get("u1")
	w := NewEventWorker(&fakeConsumer{}, reg, nil, nil)

	if err := w.Handle(ctx, amqp.NewTenantSelected("u1", core.Tenant{ID: "acme", Name: "Acme"})); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if cur, ok := ws.Tenants().CurrentTenant(); !ok || cur.ID != "acme" {
		t.Fatalf("tenant = %+v, %v", cur, ok)
	}

	if err := w.Handle(ctx, amqp.NewTenantSelected("stranger", core.Tenant{ID: "acme"})); err != nil {
		t.Fatalf("unknown workspace should be ignored: %v", err)
	}
	if _, ok := reg.Lookup("stranger"); ok {
		t.Fatalf("worker created a workspace")
	}
}

func TestRecordCreatedRefreshesMatchingLists(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	reg := workspace.NewRegistry(ctx, workspace.Deps{Repository: store}, 4, time.Minute)
	ws := reg.Get("u1")
	ws.Tenants().Select(core.Tenant{ID: "acme"})
	waitIdle(ws)

	rec, err := store.Create(ctx, core.Record{Kind: core.KindInvoice, TenantID: "acme", Number: "INV-1", Status: "paid"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	inv := &recordingInvalidator{}
	w := NewEventWorker(&fakeConsumer{}, reg, inv, nil)
	if err := w.Handle(ctx, amqp.NewRecordCreated(rec)); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(inv.calls) != 1 || inv.calls[0].ID != "acme" {
		t.Fatalf("invalidations = %+v", inv.calls)
	}
	list, _ := ws.List(core.KindInvoice)
	if st := list.State(); st.Phase != listview.PhasePopulated || len(st.Rows) != 1 {
		t.Fatalf("invoice list = %+v", st)
	}
}

func TestHandleRejectsBadEvents(t *testing.T) {
	ctx := context.Background()
	reg := workspace.NewRegistry(ctx, workspace.Deps{Repository: memory.New()}, 4, time.Minute)
	w := NewEventWorker(&fakeConsumer{}, reg, nil, nil)

	if err := w.Handle(ctx, &amqp.Event{Type: "nope"}); err == nil {
		t.Fatalf("expected error for unknown type")
	}
	if err := w.Handle(ctx, &amqp.Event{Type: amqp.RoutingRecordCreated, Kind: core.KindInvoice}); err == nil {
		t.Fatalf("expected error for missing scope")
	}
	if err := w.Handle(ctx, amqp.NewListFailed("Error loading invoices")); err != nil {
		t.Fatalf("list failed: %v", err)
	}
}

func TestRunStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reg := workspace.NewRegistry(ctx, workspace.Deps{Repository: memory.New()}, 4, time.Minute)
	reg.Get("u1")
	w := NewEventWorker(&fakeConsumer{events: []*amqp.Event{
		amqp.NewTenantSelected("u1", core.Tenant{ID: "acme"}),
	}}, reg, nil, nil)

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("worker did not stop")
	}
}
