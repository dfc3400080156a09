package records

import (
	"context"
	"fmt"

	"ledgerview/internal/core"
)

// Ports for outbound adapters.
type (
	// Repository returns the records of one kind visible to a scope, newest
	// first. Implementations filter by scope inside the backing store.
	Repository interface {
		Fetch(ctx context.Context, kind core.Kind, scope core.Scope) ([]core.Record, error)
	}

	// Writer persists a new record. The store assigns ID and CreatedAt when
	// they are empty and never changes an assigned ID.
	Writer interface {
		Create(ctx context.Context, r core.Record) (core.Record, error)
	}

	// TenantLister returns the tenants a caller can pick from.
	TenantLister interface {
		ListTenants(ctx context.Context) ([]core.Tenant, error)
		SaveTenant(ctx context.Context, t core.Tenant) error
	}

	// Store is a complete backend.
	Store interface {
		Repository
		Writer
		TenantLister
		Close() error
	}
)

// FetchError is returned by stores when a fetch cannot be served.
type FetchError struct {
	Kind  core.Kind
	Scope core.Scope
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s for %s: %v", e.Kind, e.Scope, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
