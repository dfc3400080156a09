package worker

import (
	"context"
	"fmt"
	"log/slog"

	"ledgerview/internal/amqp"
	"ledgerview/internal/core"
	"ledgerview/internal/workspace"
)

// Consumer delivers events from other processes.
type Consumer interface {
	ConsumeWithRetry(ctx context.Context, handler func(context.Context, *amqp.Event) error) error
}

// Invalidator drops cached lists after another process wrote to them.
type Invalidator interface {
	Invalidate(kind core.Kind, scope core.Scope)
}

// EventWorker applies events published by other replicas to the local
// workspaces.
type EventWorker struct {
	consumer    Consumer
	registry    *workspace.Registry
	invalidator Invalidator
	logger      *slog.Logger
}

func NewEventWorker(consumer Consumer, registry *workspace.Registry, invalidator Invalidator, logger *slog.Logger) *EventWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventWorker{
		consumer:    consumer,
		registry:    registry,
		invalidator: invalidator,
		logger:      logger,
	}
}

// Run consumes until ctx is done.
func (w *EventWorker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Event worker started")
	err := w.consumer.ConsumeWithRetry(ctx, w.Handle)
	if ctx.Err() != nil {
		w.logger.InfoContext(ctx, "Event worker stopped")
		return nil
	}
	return err
}

// Handle applies a single event.
func (w *EventWorker) Handle(ctx context.Context, e *amqp.Event) error {
	switch e.Type {
	case amqp.RoutingTenantSelected:
		return w.handleTenantSelected(ctx, e)
	case amqp.RoutingRecordCreated:
		return w.handleRecordCreated(ctx, e)
	case amqp.RoutingListFailed:
		w.logger.WarnContext(ctx, "List failed on another replica",
			"origin", e.Origin,
			"message", e.Message)
		return nil
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
}

func (w *EventWorker) handleTenantSelected(ctx context.Context, e *amqp.Event) error {
	ws, ok := w.registry.Lookup(e.WorkspaceID)
	if !ok {
		w.logger.DebugContext(ctx, "No local workspace for tenant selection", "workspace", e.WorkspaceID)
		return nil
	}
	if cur, ok := ws.Tenants().CurrentTenant(); ok && cur == e.Tenant() {
		return nil
	}
	ws.Tenants().Select(e.Tenant())
	w.logger.InfoContext(ctx, "Applied remote tenant selection",
		"workspace", e.WorkspaceID,
		"tenant_id", e.TenantID)
	return nil
}

func (w *EventWorker) handleRecordCreated(ctx context.Context, e *amqp.Event) error {
	scope, err := e.Scope()
	if err != nil {
		return fmt.Errorf("record created event: %w", err)
	}
	if w.invalidator != nil {
		w.invalidator.Invalidate(e.Kind, scope)
	}
	n := w.registry.RefreshMatching(ctx, e.Kind, scope)
	w.logger.InfoContext(ctx, "Refreshed lists after remote record creation",
		"kind", e.Kind,
		"scope", scope.String(),
		"lists", n)
	return nil
}
