// Package listview implements the generic tenant-scoped record list: one
// Controller per document kind, driven by a Definition that carries the
// kind's columns and messages.
package listview

import (
	"github.com/shopspring/decimal"

	"ledgerview/internal/core"
)

// Style tells a renderer how to draw a cell.
type Style int

const (
	StyleText Style = iota
	StyleEmphasis
	StyleDate
	// StyleStatus is a badge colored by the row's category.
	StyleStatus
	// StyleOutline is an uncolored badge.
	StyleOutline
	// StyleMoney is right-aligned and formatted at render time.
	StyleMoney
)

func (s Style) String() string {
	switch s {
	case StyleEmphasis:
		return "emphasis"
	case StyleDate:
		return "date"
	case StyleStatus:
		return "status"
	case StyleOutline:
		return "outline"
	case StyleMoney:
		return "money"
	default:
		return "text"
	}
}

const dateLayout = "1/2/2006"

const (
	MessageNoTenant   = "Please select a company first."
	MessageNoIdentity = "Please sign in first."
)

// Column describes one table column. Money columns set Amount; every other
// style sets Text.
type Column struct {
	Header string
	Style  Style
	Text   func(core.Record) string
	Amount func(core.Record) decimal.Decimal
}

type Definition struct {
	Kind         core.Kind
	Title        string
	Subtitle     string
	Columns      []Column
	EmptyMessage string
	ErrorMessage string
}

func number(r core.Record) string { return r.Number }
func counterparty(r core.Record) string { return r.Counterparty }
func category(r core.Record) string { return r.Category }
func status(r core.Record) string { return r.Status }
func payment(r core.Record) string { return r.PaymentMethod }
func total(r core.Record) decimal.Decimal { return r.Total }
func paid(r core.Record) decimal.Decimal { return r.PaidAmount }

func date(r core.Record) string {
	if r.Date.IsEmpty() {
		return ""
	}
	return r.Date.Format(dateLayout)
}

func dueDate(r core.Record) string {
	if r.DueDate.IsEmpty() {
		return ""
	}
	return r.DueDate.Format(dateLayout)
}

var definitions = map[core.Kind]Definition{
	core.KindExpense: {
		Kind:     core.KindExpense,
		Title:    "Expenses",
		Subtitle: "Track your business expenses",
		Columns: []Column{
			{Header: "Expense #", Style: StyleEmphasis, Text: number},
			{Header: "Category", Style: StyleText, Text: category},
			{Header: "Vendor", Style: StyleText, Text: counterparty},
			{Header: "Date", Style: StyleDate, Text: date},
			{Header: "Payment", Style: StyleOutline, Text: payment},
			{Header: "Status", Style: StyleStatus, Text: status},
			{Header: "Amount", Style: StyleMoney, Amount: total},
		},
		EmptyMessage: "No expenses found. Record your first one!",
		ErrorMessage: "Error loading expenses",
	},
	core.KindInvoice: {
		Kind:     core.KindInvoice,
		Title:    "Invoices",
		Subtitle: "Manage your invoices",
		Columns: []Column{
			{Header: "Invoice #", Style: StyleEmphasis, Text: number},
			{Header: "Customer", Style: StyleText, Text: counterparty},
			{Header: "Date", Style: StyleDate, Text: date},
			{Header: "Due Date", Style: StyleDate, Text: dueDate},
			{Header: "Status", Style: StyleStatus, Text: status},
			{Header: "Total", Style: StyleMoney, Amount: total},
			{Header: "Paid", Style: StyleMoney, Amount: paid},
		},
		EmptyMessage: "No invoices found. Create your first one!",
		ErrorMessage: "Error loading invoices",
	},
	core.KindPurchaseOrder: {
		Kind:     core.KindPurchaseOrder,
		Title:    "Purchase Orders",
		Subtitle: "Manage your purchase orders",
		Columns: []Column{
			{Header: "PO Number", Style: StyleEmphasis, Text: number},
			{Header: "Supplier", Style: StyleText, Text: counterparty},
			{Header: "Date", Style: StyleDate, Text: date},
			{Header: "Status", Style: StyleStatus, Text: status},
			{Header: "Total", Style: StyleMoney, Amount: total},
		},
		EmptyMessage: "No purchase orders found. Create your first one!",
		ErrorMessage: "Error loading purchase orders",
	},
	core.KindSaleReceipt: {
		Kind:     core.KindSaleReceipt,
		Title:    "Sale Receipts",
		Subtitle: "Record your sales",
		Columns: []Column{
			{Header: "Receipt #", Style: StyleEmphasis, Text: number},
			{Header: "Customer", Style: StyleText, Text: counterparty},
			{Header: "Date", Style: StyleDate, Text: date},
			{Header: "Payment Method", Style: StyleStatus, Text: payment},
			{Header: "Total", Style: StyleMoney, Amount: total},
		},
		EmptyMessage: "No sale receipts found. Create your first one!",
		ErrorMessage: "Error loading sale receipts",
	},
}

// DefinitionFor returns the built-in definition for kind.
func DefinitionFor(kind core.Kind) (Definition, bool) {
	d, ok := definitions[kind]
	return d, ok
}

// Definitions returns the built-in definitions in navigation order.
func Definitions() []Definition {
	out := make([]Definition, 0, len(definitions))
	for _, k := range core.Kinds() {
		out = append(out, definitions[k])
	}
	return out
}

// NoContextMessage is the placeholder shown when the kind's scope is missing.
func (d Definition) NoContextMessage() string {
	if d.Kind.ScopeRule() == core.ScopeIdentity {
		return MessageNoIdentity
	}
	return MessageNoTenant
}
