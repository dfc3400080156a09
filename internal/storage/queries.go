package storage

import (
	"context"
	"database/sql"
	"fmt"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// RecordRow is the shared projection every list query selects into.
type RecordRow struct {
	ID            string
	CompanyID     string
	UserID        string
	Number        string
	Counterparty  string
	Category      string
	Date          string
	DueDate       string
	Status        string
	PaymentMethod string
	// Amounts and created_at are scanned as text and parsed by toRecord,
	// so one malformed value cannot fail the whole query.
	Total         string
	PaidAmount    string
	CreatedAt     string
}

type Company struct {
	ID   string
	Name string
}

const listExpensesByUser = `
SELECT id, company_id, user_id, expense_number, vendor, category, expense_date, '' AS due_date,
       status, payment_method, total_amount, '0' AS paid_amount, created_at
FROM expenses
WHERE user_id = ?
ORDER BY created_at DESC, rowid DESC
`

const listInvoicesByCompany = `
SELECT id, company_id, user_id, invoice_number, customer, '' AS category, invoice_date, due_date,
       status, '' AS payment_method, total_amount, paid_amount, created_at
FROM invoices
WHERE company_id = ?
ORDER BY created_at DESC, rowid DESC
`

const listPurchaseOrdersByCompany = `
SELECT id, company_id, user_id, po_number, supplier, '' AS category, order_date, '' AS due_date,
       status, '' AS payment_method, total_amount, '0' AS paid_amount, created_at
FROM purchase_orders
WHERE company_id = ?
ORDER BY created_at DESC, rowid DESC
`

const listSaleReceiptsByCompany = `
SELECT id, company_id, user_id, receipt_number, customer, '' AS category, receipt_date, '' AS due_date,
       '' AS status, payment_method, total_amount, '0' AS paid_amount, created_at
FROM sale_receipts
WHERE company_id = ?
ORDER BY created_at DESC, rowid DESC
`

func (q *Queries) ListExpensesByUser(ctx context.Context, userID string) ([]RecordRow, error) {
	return q.listRecords(ctx, listExpensesByUser, userID)
}

func (q *Queries) ListInvoicesByCompany(ctx context.Context, companyID string) ([]RecordRow, error) {
	return q.listRecords(ctx, listInvoicesByCompany, companyID)
}

func (q *Queries) ListPurchaseOrdersByCompany(ctx context.Context, companyID string) ([]RecordRow, error) {
	return q.listRecords(ctx, listPurchaseOrdersByCompany, companyID)
}

func (q *Queries) ListSaleReceiptsByCompany(ctx context.Context, companyID string) ([]RecordRow, error) {
	return q.listRecords(ctx, listSaleReceiptsByCompany, companyID)
}

func (q *Queries) listRecords(ctx context.Context, query string, arg string) ([]RecordRow, error) {
	rows, err := q.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []RecordRow{}
	for rows.Next() {
		var i RecordRow
		if err := rows.Scan(
			&i.ID,
			&i.CompanyID,
			&i.UserID,
			&i.Number,
			&i.Counterparty,
			&i.Category,
			&i.Date,
			&i.DueDate,
			&i.Status,
			&i.PaymentMethod,
			&i.Total,
			&i.PaidAmount,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertExpense = `
INSERT INTO expenses (id, company_id, user_id, expense_number, vendor, category, expense_date,
                      status, payment_method, total_amount, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const insertInvoice = `
INSERT INTO invoices (id, company_id, user_id, invoice_number, customer, invoice_date, due_date,
                      status, total_amount, paid_amount, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const insertPurchaseOrder = `
INSERT INTO purchase_orders (id, company_id, user_id, po_number, supplier, order_date,
                             status, total_amount, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const insertSaleReceipt = `
INSERT INTO sale_receipts (id, company_id, user_id, receipt_number, customer, receipt_date,
                           payment_method, total_amount, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) InsertExpense(ctx context.Context, arg RecordRow) error {
	_, err := q.db.ExecContext(ctx, insertExpense,
		arg.ID, arg.CompanyID, arg.UserID, arg.Number, arg.Counterparty, arg.Category, arg.Date,
		arg.Status, arg.PaymentMethod, arg.Total, arg.CreatedAt)
	return err
}

func (q *Queries) InsertInvoice(ctx context.Context, arg RecordRow) error {
	_, err := q.db.ExecContext(ctx, insertInvoice,
		arg.ID, arg.CompanyID, arg.UserID, arg.Number, arg.Counterparty, arg.Date, arg.DueDate,
		arg.Status, arg.Total, arg.PaidAmount, arg.CreatedAt)
	return err
}

func (q *Queries) InsertPurchaseOrder(ctx context.Context, arg RecordRow) error {
	_, err := q.db.ExecContext(ctx, insertPurchaseOrder,
		arg.ID, arg.CompanyID, arg.UserID, arg.Number, arg.Counterparty, arg.Date,
		arg.Status, arg.Total, arg.CreatedAt)
	return err
}

func (q *Queries) InsertSaleReceipt(ctx context.Context, arg RecordRow) error {
	_, err := q.db.ExecContext(ctx, insertSaleReceipt,
		arg.ID, arg.CompanyID, arg.UserID, arg.Number, arg.Counterparty, arg.Date,
		arg.PaymentMethod, arg.Total, arg.CreatedAt)
	return err
}

const listCompanies = `
SELECT id, name FROM companies ORDER BY rowid
`

func (q *Queries) ListCompanies(ctx context.Context) ([]Company, error) {
	rows, err := q.db.QueryContext(ctx, listCompanies)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Company{}
	for rows.Next() {
		var i Company
		if err := rows.Scan(&i.ID, &i.Name); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertCompany = `
INSERT INTO companies (id, name) VALUES (?, ?)
ON CONFLICT (id) DO UPDATE SET name = excluded.name
`

func (q *Queries) UpsertCompany(ctx context.Context, arg Company) error {
	_, err := q.db.ExecContext(ctx, upsertCompany, arg.ID, arg.Name)
	if err != nil {
		return fmt.Errorf("upsert company %s: %w", arg.ID, err)
	}
	return nil
}
