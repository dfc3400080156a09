package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"ledgerview/internal/core"
	"ledgerview/internal/records"
	"ledgerview/internal/seed"
)

type entry struct {
	seq    int64
	record core.Record
}

type Store struct {
	mu      sync.Mutex
	tenants []core.Tenant
	items   []entry
	seq     int64
	now     func() time.Time
}

func New() *Store {
	return &Store{now: time.Now}
}

// NewFromSeed loads tenants and records from a YAML seed file. A missing file
// yields an empty store.
func NewFromSeed(path string) (*Store, error) {
	s := New()
	data, err := seed.Load(path)
	if err != nil {
		return nil, err
	}
	ctx := context.Background()
	for _, t := range data.Tenants {
		if err := s.SaveTenant(ctx, t); err != nil {
			return nil, err
		}
	}
	for _, r := range data.Records {
		if _, err := s.Create(ctx, r); err != nil {
			return nil, fmt.Errorf("seed record %s: %w", r.Number, err)
		}
	}
	return s, nil
}

// WithClock replaces the clock used to stamp CreatedAt.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

// Create stores the record, assigning an ID and creation time if missing.
func (s *Store) Create(_ context.Context, r core.Record) (core.Record, error) {
	if err := r.Validate(); err != nil {
		return core.Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.items {
		if e.record.Kind == r.Kind && e.record.Scope() == r.Scope() && e.record.Number == r.Number {
			return core.Record{}, fmt.Errorf("%w: %s %s", core.ErrDuplicateNumber, r.Kind, r.Number)
		}
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	s.seq++
	s.items = append(s.items, entry{seq: s.seq, record: r})
	return r, nil
}

// Fetch returns the records of kind owned by scope, newest first. Records
// created at the same instant are ordered by insertion, latest first.
func (s *Store) Fetch(_ context.Context, kind core.Kind, scope core.Scope) ([]core.Record, error) {
	if scope.IsZero() || scope.Rule != kind.ScopeRule() {
		return nil, &records.FetchError{Kind: kind, Scope: scope, Err: core.ErrMissingScope}
	}
	s.mu.Lock()
	matched := make([]entry, 0, len(s.items))
	for _, e := range s.items {
		if e.record.Kind == kind && e.record.Scope() == scope {
			matched = append(matched, e)
		}
	}
	s.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.record.CreatedAt.Equal(b.record.CreatedAt) {
			return a.record.CreatedAt.After(b.record.CreatedAt)
		}
		return a.seq > b.seq
	})
	out := make([]core.Record, len(matched))
	for i, e := range matched {
		out[i] = e.record
	}
	return out, nil
}

// ListTenants returns tenants in insertion order.
func (s *Store) ListTenants(_ context.Context) ([]core.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Tenant(nil), s.tenants...), nil
}

// SaveTenant adds the tenant or renames an existing one.
func (s *Store) SaveTenant(_ context.Context, t core.Tenant) error {
	if t.ID == "" {
		return fmt.Errorf("save tenant: %w", core.ErrMissingScope)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tenants {
		if s.tenants[i].ID == t.ID {
			s.tenants[i].Name = t.Name
			return nil
		}
	}
	s.tenants = append(s.tenants, t)
	return nil
}

func (s *Store) Close() error {
	return nil
}
