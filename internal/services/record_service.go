package services

import (
	"context"
	"fmt"
	"log/slog"

	"ledgerview/internal/amqp"
	"ledgerview/internal/core"
	"ledgerview/internal/records"
)

// Publisher announces created records to other processes.
type Publisher interface {
	Publish(ctx context.Context, e *amqp.Event) error
}

// Invalidator drops cached lists for a scope.
type Invalidator interface {
	Invalidate(kind core.Kind, scope core.Scope)
}

// RecordService orchestrates record creation across the store, the list
// cache and the event bus.
type RecordService struct {
	store       records.Writer
	invalidator Invalidator
	publisher   Publisher
	onCreated   []func(context.Context, core.Record)
}

// NewRecordService wires the service. invalidator and publisher may be nil.
func NewRecordService(store records.Writer, invalidator Invalidator, publisher Publisher) *RecordService {
	return &RecordService{
		store:       store,
		invalidator: invalidator,
		publisher:   publisher,
	}
}

// OnCreated registers fn to run in-process after every successful Create.
func (s *RecordService) OnCreated(fn func(context.Context, core.Record)) {
	s.onCreated = append(s.onCreated, fn)
}

// Create validates and saves a record. A publish failure is logged and does
// not fail the call because the record is already stored.
func (s *RecordService) Create(ctx context.Context, r core.Record) (core.Record, error) {
	if err := r.Validate(); err != nil {
		return core.Record{}, fmt.Errorf("validate record: %w", err)
	}

	saved, err := s.store.Create(ctx, r)
	if err != nil {
		return core.Record{}, fmt.Errorf("save record: %w", err)
	}

	if s.invalidator != nil {
		s.invalidator.Invalidate(saved.Kind, saved.Scope())
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, amqp.NewRecordCreated(saved)); err != nil {
			slog.ErrorContext(ctx, "Failed to publish record created event",
				"id", saved.ID,
				"kind", saved.Kind,
				"error", err)
		}
	}

	for _, fn := range s.onCreated {
		fn(ctx, saved)
	}

	return saved, nil
}
