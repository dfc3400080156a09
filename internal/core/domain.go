package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	KindExpense       Kind = "expense"
	KindInvoice       Kind = "invoice"
	KindPurchaseOrder Kind = "purchase_order"
	KindSaleReceipt   Kind = "sale_receipt"
)

const (
	// ScopeTenant filters records by the owning company.
	ScopeTenant ScopeRule = iota + 1
	// ScopeIdentity filters records by the identity that recorded them.
	ScopeIdentity
)

type (
	// Kind identifies a document kind.
	Kind string

	// ScopeRule says which key a kind's records are filtered by.
	ScopeRule int

	// Scope is the key a fetch is restricted to.
	Scope struct {
		Rule ScopeRule
		ID   string
	}

	Date struct {
		time.Time
	}

	Tenant struct {
		ID   string
		Name string
	}

	Identity struct {
		ID    string
		Email string
	}

	// Record is one financial document. Fields that do not apply to a kind
	// are left at their zero value.
	Record struct {
		ID            string
		Kind          Kind
		TenantID      string // company the document belongs to
		OwnerID       string // identity that recorded it
		Number        string // expense_number, invoice_number, po_number, receipt_number
		Counterparty  string // vendor, customer or supplier
		Category      string // expenses only
		Date          Date
		DueDate       Date // invoices only
		Status        string
		PaymentMethod string
		Total         decimal.Decimal
		PaidAmount    decimal.Decimal // invoices only
		CreatedAt     time.Time
	}
)

var (
	ErrUnknownKind    = errors.New("unknown document kind")
	ErrEmptyNumber    = errors.New("empty document number")
	ErrNegativeAmount = errors.New("negative amount")
	ErrMissingScope   = errors.New("missing scope")
	ErrInvalidAmount  = errors.New("invalid amount")
)

// ErrDuplicateNumber is returned when a document number is already used
// within the same scope.
var ErrDuplicateNumber = errors.New("duplicate document number")

var kindSlugs = map[Kind]string{
	KindExpense:       "expenses",
	KindInvoice:       "invoices",
	KindPurchaseOrder: "purchase-orders",
	KindSaleReceipt:   "sale-receipts",
}

// Kinds returns every supported kind in navigation order.
func Kinds() []Kind {
	return []Kind{KindExpense, KindInvoice, KindPurchaseOrder, KindSaleReceipt}
}

// IsValid returns true if the kind is one of the supported kinds
func (k Kind) IsValid() bool {
	_, ok := kindSlugs[k]
	return ok
}

// Slug returns the URL path segment for the kind.
func (k Kind) Slug() string {
	return kindSlugs[k]
}

// String implements fmt.Stringer
func (k Kind) String() string {
	return string(k)
}

// ScopeRule returns how records of this kind are scoped. Expenses are owned by
// the identity that recorded them; every other kind belongs to a tenant.
func (k Kind) ScopeRule() ScopeRule {
	if k == KindExpense {
		return ScopeIdentity
	}
	return ScopeTenant
}

// ParseKind accepts either a kind ("purchase_order") or its slug ("purchase-orders").
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, slug := range kindSlugs {
		if s == string(k) || s == slug {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func (r ScopeRule) String() string {
	switch r {
	case ScopeTenant:
		return "tenant"
	case ScopeIdentity:
		return "identity"
	default:
		return "unknown"
	}
}

// IsZero reports whether the scope carries no key.
func (s Scope) IsZero() bool {
	return strings.TrimSpace(s.ID) == ""
}

func (s Scope) String() string {
	return s.Rule.String() + ":" + s.ID
}

// Scope returns the scope the record belongs to under its kind's rule.
func (r Record) Scope() Scope {
	rule := r.Kind.ScopeRule()
	if rule == ScopeIdentity {
		return Scope{Rule: rule, ID: r.OwnerID}
	}
	return Scope{Rule: rule, ID: r.TenantID}
}

// Outstanding returns Total minus PaidAmount. It is negative for overpaid
// invoices since nothing upstream enforces PaidAmount <= Total.
func (r Record) Outstanding() decimal.Decimal {
	return r.Total.Sub(r.PaidAmount)
}

// Validate applies creation-time checks. Listing never validates records.
func (r Record) Validate() error {
	if !r.Kind.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, r.Kind)
	}
	if strings.TrimSpace(r.Number) == "" {
		return ErrEmptyNumber
	}
	if r.Scope().IsZero() {
		return fmt.Errorf("%w: %s records need a %s", ErrMissingScope, r.Kind, r.Kind.ScopeRule())
	}
	if r.Total.IsNegative() || r.PaidAmount.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a date string in YYYY-MM-DD format. An empty string yields
// the zero Date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// IsEmpty returns true if the date is zero
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// ISO returns the date as YYYY-MM-DD, or "" for the zero date.
func (d Date) ISO() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}
