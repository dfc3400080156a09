package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ledgerview/internal/core"
	"ledgerview/internal/records"

	_ "modernc.org/sqlite"
)

// SQLiteRepository implements records.Store on a single SQLite file. Every
// list query filters by its scope column in SQL.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Fetch implements records.Repository
func (r *SQLiteRepository) Fetch(ctx context.Context, kind core.Kind, scope core.Scope) ([]core.Record, error) {
	if scope.IsZero() || scope.Rule != kind.ScopeRule() {
		return nil, &records.FetchError{Kind: kind, Scope: scope, Err: core.ErrMissingScope}
	}

	var (
		rows []RecordRow
		err  error
	)
	switch kind {
	case core.KindExpense:
		rows, err = r.queries.ListExpensesByUser(ctx, scope.ID)
	case core.KindInvoice:
		rows, err = r.queries.ListInvoicesByCompany(ctx, scope.ID)
	case core.KindPurchaseOrder:
		rows, err = r.queries.ListPurchaseOrdersByCompany(ctx, scope.ID)
	case core.KindSaleReceipt:
		rows, err = r.queries.ListSaleReceiptsByCompany(ctx, scope.ID)
	default:
		err = core.ErrUnknownKind
	}
	if err != nil {
		return nil, &records.FetchError{Kind: kind, Scope: scope, Err: err}
	}

	out := make([]core.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toRecord(kind)
		if err != nil {
			slog.WarnContext(ctx, "Malformed record fields left empty",
				"id", row.ID,
				"kind", kind,
				"error", err)
		}
		out = append(out, rec)
	}

	slog.DebugContext(ctx, "Records fetched from SQLite",
		"kind", kind,
		"scope", scope.String(),
		"count", len(out))

	return out, nil
}

// Create implements records.Writer
func (r *SQLiteRepository) Create(ctx context.Context, rec core.Record) (core.Record, error) {
	if err := rec.Validate(); err != nil {
		return core.Record{}, err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now()
	}

	row := fromRecord(rec)
	var err error
	switch rec.Kind {
	case core.KindExpense:
		err = r.queries.InsertExpense(ctx, row)
	case core.KindInvoice:
		err = r.queries.InsertInvoice(ctx, row)
	case core.KindPurchaseOrder:
		err = r.queries.InsertPurchaseOrder(ctx, row)
	case core.KindSaleReceipt:
		err = r.queries.InsertSaleReceipt(ctx, row)
	}
	if err != nil {
		if isUniqueViolation(err) {
			return core.Record{}, fmt.Errorf("create %s %s: %w", rec.Kind, rec.Number, core.ErrDuplicateNumber)
		}
		return core.Record{}, fmt.Errorf("create %s: %w", rec.Kind, err)
	}

	slog.InfoContext(ctx, "Record saved to SQLite",
		"id", rec.ID,
		"kind", rec.Kind,
		"number", rec.Number,
		"total", rec.Total.String())

	return rec, nil
}

// ListTenants implements records.TenantLister
func (r *SQLiteRepository) ListTenants(ctx context.Context) ([]core.Tenant, error) {
	companies, err := r.queries.ListCompanies(ctx)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	tenants := make([]core.Tenant, len(companies))
	for i, c := range companies {
		tenants[i] = core.Tenant{ID: c.ID, Name: c.Name}
	}
	return tenants, nil
}

// SaveTenant implements records.TenantLister
func (r *SQLiteRepository) SaveTenant(ctx context.Context, t core.Tenant) error {
	if t.ID == "" {
		return fmt.Errorf("save tenant: %w", core.ErrMissingScope)
	}
	return r.queries.UpsertCompany(ctx, Company{ID: t.ID, Name: t.Name})
}

// toRecord converts a row. Unparseable dates, amounts and timestamps are
// left at their zero value; the returned error lists them and the record is
// still usable.
func (row RecordRow) toRecord(kind core.Kind) (core.Record, error) {
	var problems []error
	date, err := core.ParseDate(row.Date)
	if err != nil {
		problems = append(problems, err)
	}
	due, err := core.ParseDate(row.DueDate)
	if err != nil {
		problems = append(problems, err)
	}
	total, err := parseStoredAmount(row.Total)
	if err != nil {
		problems = append(problems, fmt.Errorf("total: %w", err))
	}
	paid, err := parseStoredAmount(row.PaidAmount)
	if err != nil {
		problems = append(problems, fmt.Errorf("paid amount: %w", err))
	}
	var created time.Time
	if nanos, err := strconv.ParseInt(strings.TrimSpace(row.CreatedAt), 10, 64); err != nil {
		problems = append(problems, fmt.Errorf("parse created_at %q: %w", row.CreatedAt, err))
	} else {
		created = time.Unix(0, nanos).UTC()
	}

	return core.Record{
		ID:            row.ID,
		Kind:          kind,
		TenantID:      row.CompanyID,
		OwnerID:       row.UserID,
		Number:        row.Number,
		Counterparty:  row.Counterparty,
		Category:      row.Category,
		Date:          date,
		DueDate:       due,
		Status:        row.Status,
		PaymentMethod: row.PaymentMethod,
		Total:         total,
		PaidAmount:    paid,
		CreatedAt:     created,
	}, errors.Join(problems...)
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// parseStoredAmount reads an amount written by any client of the database.
// Unlike core.ParseAmount it accepts signs, since stored values are not user
// input. An empty value is zero.
func parseStoredAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, core.ErrInvalidAmount)
	}
	return d, nil
}

func fromRecord(rec core.Record) RecordRow {
	return RecordRow{
		ID:            rec.ID,
		CompanyID:     rec.TenantID,
		UserID:        rec.OwnerID,
		Number:        rec.Number,
		Counterparty:  rec.Counterparty,
		Category:      rec.Category,
		Date:          rec.Date.ISO(),
		DueDate:       rec.DueDate.ISO(),
		Status:        rec.Status,
		PaymentMethod: rec.PaymentMethod,
		Total:         rec.Total.String(),
		PaidAmount:    rec.PaidAmount.String(),
		CreatedAt:     strconv.FormatInt(rec.CreatedAt.UnixNano(), 10),
	}
}
