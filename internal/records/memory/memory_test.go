package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"ledgerview/internal/core"
	"ledgerview/internal/records"
)

func invoice(tenant, number string, createdAt time.Time) core.Record {
	return core.Record{
		Kind:      core.KindInvoice,
		TenantID:  tenant,
		Number:    number,
		Status:    "draft",
		Total:     core.MustAmount("10"),
		CreatedAt: createdAt,
	}
}

func TestCreateAssignsIDAndTimestamp(t *testing.T) {
	fixed := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	s := New().WithClock(func() time.Time { return fixed })

	got, err := s.Create(context.Background(), invoice("acme", "INV-1", time.Time{}))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got.ID == "" || !got.CreatedAt.Equal(fixed) {
		t.Fatalf("unexpected record: %+v", got)
	}

	kept, err := s.Create(context.Background(), core.Record{
		ID: "fixed-id", Kind: core.KindInvoice, TenantID: "acme", Number: "INV-2",
	})
	if err != nil || kept.ID != "fixed-id" {
		t.Fatalf("expected id to be kept, got %q (err=%v)", kept.ID, err)
	}

	if _, err := s.Create(context.Background(), core.Record{Kind: core.KindInvoice, Number: "x"}); err == nil {
		t.Fatalf("expected validation error for unscoped record")
	}
}

func TestCreateRejectsDuplicateNumberInScope(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, err := s.Create(ctx, invoice("acme", "INV-1", time.Time{})); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Create(ctx, invoice("acme", "INV-1", time.Time{})); !errors.Is(err, core.ErrDuplicateNumber) {
		t.Fatalf("expected ErrDuplicateNumber, got %v", err)
	}
	if _, err := s.Create(ctx, invoice("globex", "INV-1", time.Time{})); err != nil {
		t.Fatalf("same number in another company should be allowed: %v", err)
	}
}

func TestFetchOrdersNewestFirstRegardlessOfInsertion(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New()
	// T2, T3, T1 inserted out of order
	for _, r := range []core.Record{
		invoice("acme", "T2", base.Add(2*time.Hour)),
		invoice("acme", "T3", base.Add(1*time.Hour)),
		invoice("acme", "T1", base.Add(3*time.Hour)),
	} {
		if _, err := s.Create(ctx, r); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	got, err := s.Fetch(ctx, core.KindInvoice, core.Scope{Rule: core.ScopeTenant, ID: "acme"})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	var numbers []string
	for _, r := range got {
		numbers = append(numbers, r.Number)
	}
	if want := []string{"T1", "T2", "T3"}; !reflect.DeepEqual(numbers, want) {
		t.Fatalf("order = %v, want %v", numbers, want)
	}
}

func TestFetchTiesAreDeterministic(t *testing.T) {
	ctx := context.Background()
	same := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New()
	for _, n := range []string{"A", "B", "C"} {
		if _, err := s.Create(ctx, invoice("acme", n, same)); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	scope := core.Scope{Rule: core.ScopeTenant, ID: "acme"}
	first, _ := s.Fetch(ctx, core.KindInvoice, scope)
	second, _ := s.Fetch(ctx, core.KindInvoice, scope)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("fetch not idempotent:\n%v\n%v", first, second)
	}
	if first[0].Number != "C" || first[2].Number != "A" {
		t.Fatalf("ties should be latest insertion first, got %s..%s", first[0].Number, first[2].Number)
	}
}

func TestFetchScopesInsideStore(t *testing.T) {
	ctx := context.Background()
	s := New()
	mustCreate := func(r core.Record) {
		t.Helper()
		if _, err := s.Create(ctx, r); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	mustCreate(invoice("acme", "A-1", time.Time{}))
	mustCreate(invoice("globex", "G-1", time.Time{}))
	mustCreate(core.Record{Kind: core.KindExpense, TenantID: "acme", OwnerID: "u1", Number: "E-1"})
	mustCreate(core.Record{Kind: core.KindExpense, TenantID: "acme", OwnerID: "u2", Number: "E-2"})

	inv, _ := s.Fetch(ctx, core.KindInvoice, core.Scope{Rule: core.ScopeTenant, ID: "acme"})
	if len(inv) != 1 || inv[0].Number != "A-1" {
		t.Fatalf("tenant scoping leaked: %+v", inv)
	}
	exp, _ := s.Fetch(ctx, core.KindExpense, core.Scope{Rule: core.ScopeIdentity, ID: "u1"})
	if len(exp) != 1 || exp[0].Number != "E-1" {
		t.Fatalf("identity scoping leaked: %+v", exp)
	}

	// Expenses are never matched by tenant.
	_, err := s.Fetch(ctx, core.KindExpense, core.Scope{Rule: core.ScopeTenant, ID: "acme"})
	var fe *records.FetchError
	if !errors.As(err, &fe) || !errors.Is(err, core.ErrMissingScope) {
		t.Fatalf("expected FetchError for wrong scope rule, got %v", err)
	}
}

func TestFetchReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, err := s.Create(ctx, invoice("acme", "A-1", time.Time{})); err != nil {
		t.Fatalf("create: %v", err)
	}
	scope := core.Scope{Rule: core.ScopeTenant, ID: "acme"}
	got, _ := s.Fetch(ctx, core.KindInvoice, scope)
	got[0].Number = "mutated"
	again, _ := s.Fetch(ctx, core.KindInvoice, scope)
	if again[0].Number != "A-1" {
		t.Fatalf("store was mutated through fetched slice")
	}
}

func TestNewFromSeed(t *testing.T) {
	dir := t.TempDir()
	// No file -> empty store
	s, err := NewFromSeed(filepath.Join(dir, "seed.yaml"))
	if err != nil {
		t.Fatalf("missing seed: %v", err)
	}
	if tenants, _ := s.ListTenants(context.Background()); len(tenants) != 0 {
		t.Fatalf("expected no tenants")
	}

	content := "tenants:\n  - id: acme\n    name: Acme\n  - id: acme\n    name: Acme Ltd\nrecords:\n  - kind: invoice\n    tenant: acme\n    number: INV-1\n    status: paid\n    total: \"5\"\n"
	path := filepath.Join(dir, "seed.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err = NewFromSeed(path)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	tenants, _ := s.ListTenants(context.Background())
	if len(tenants) != 1 || tenants[0].Name != "Acme Ltd" {
		t.Fatalf("unexpected tenants: %+v", tenants)
	}
	got, _ := s.Fetch(context.Background(), core.KindInvoice, core.Scope{Rule: core.ScopeTenant, ID: "acme"})
	if len(got) != 1 {
		t.Fatalf("expected seeded invoice, got %d", len(got))
	}
}
