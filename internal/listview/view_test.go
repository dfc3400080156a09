package listview

import (
	"bytes"
	"strings"
	"testing"

	"ledgerview/internal/core"
	"ledgerview/internal/currency"
)

func TestDefinitionsCoverEveryKind(t *testing.T) {
	defs := Definitions()
	if len(defs) != len(core.Kinds()) {
		t.Fatalf("got %d definitions", len(defs))
	}
	for i, k := range core.Kinds() {
		d := defs[i]
		if d.Kind != k || d.Title == "" || d.EmptyMessage == "" || d.ErrorMessage == "" || len(d.Columns) == 0 {
			t.Fatalf("incomplete definition for %s: %+v", k, d)
		}
		for _, col := range d.Columns {
			if col.Style == StyleMoney && col.Amount == nil {
				t.Fatalf("%s money column %q has no amount", k, col.Header)
			}
			if col.Style != StyleMoney && col.Text == nil {
				t.Fatalf("%s column %q has no text", k, col.Header)
			}
		}
	}
}

func TestBuildViewSaleReceipt(t *testing.T) {
	def := mustDefinition(t, core.KindSaleReceipt)
	rec := core.Record{
		ID: "r1", Kind: core.KindSaleReceipt, TenantID: "acme", Number: "SR-9",
		Counterparty: "Walk-in", Date: core.NewDate(2025, 3, 7), PaymentMethod: "mpesa",
		Total: core.MustAmount("1250"),
	}
	st := State{Phase: PhasePopulated, Rows: classifyRows([]core.Record{rec}), Generation: 3}
	v := BuildView(def, st, currency.Must("KES", "KSh", "en-KE"))

	if v.Slug != "sale-receipts" || v.Generation != 3 || len(v.Rows) != 1 {
		t.Fatalf("unexpected view: %+v", v)
	}
	cells := v.Rows[0].Cells
	want := []string{"SR-9", "Walk-in", "3/7/2025", "mpesa", "KSh 1,250.00"}
	for i, w := range want {
		if cells[i].Text != w {
			t.Errorf("cell %d = %q, want %q", i, cells[i].Text, w)
		}
	}
	if cells[3].Style != StyleStatus || cells[3].Category != core.CategoryAccent {
		t.Errorf("payment badge = %+v", cells[3])
	}
	if cells[0].Category != "" {
		t.Errorf("non-badge cell carries a category: %+v", cells[0])
	}
}

func TestBuildViewMissingFieldsPassThrough(t *testing.T) {
	def := mustDefinition(t, core.KindExpense)
	rec := core.Record{ID: "e1", Kind: core.KindExpense, OwnerID: "u1"}
	st := State{Phase: PhasePopulated, Rows: classifyRows([]core.Record{rec})}
	v := BuildView(def, st, currency.Must("KES", "KSh", "en-KE"))

	cells := v.Rows[0].Cells
	if cells[3].Text != "" {
		t.Errorf("empty date rendered as %q", cells[3].Text)
	}
	if cells[5].Category != core.CategoryWarning {
		t.Errorf("empty expense status should fall back to warning, got %q", cells[5].Category)
	}
	if cells[6].Text != "KSh 0.00" {
		t.Errorf("zero amount rendered as %q", cells[6].Text)
	}
}

func TestBuildViewMessages(t *testing.T) {
	def := mustDefinition(t, core.KindPurchaseOrder)
	f := currency.Must("KES", "KSh", "en-KE")

	cases := []struct {
		name string
		st   State
		want string
	}{
		{"empty", State{Phase: PhaseEmpty}, "No purchase orders found. Create your first one!"},
		{"no context", State{Phase: PhaseEmpty, NoContext: true, Reason: MessageNoTenant}, "Please select a company first."},
		{"failed", State{Phase: PhaseFailed, Reason: def.ErrorMessage}, "Error loading purchase orders"},
		{"loading", State{Phase: PhaseLoading}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := BuildView(def, tc.st, f)
			if v.Message != tc.want {
				t.Fatalf("message = %q, want %q", v.Message, tc.want)
			}
			if len(v.Rows) != 0 {
				t.Fatalf("unexpected rows")
			}
		})
	}
}

func TestRenderText(t *testing.T) {
	def := mustDefinition(t, core.KindInvoice)
	f := currency.Must("KES", "KSh", "en-KE")
	rec := core.Record{
		ID: "i1", Kind: core.KindInvoice, TenantID: "acme", Number: "INV-1", Counterparty: "Globex",
		Status: "paid", Total: core.MustAmount("500"), PaidAmount: core.MustAmount("500"),
	}
	st := State{Phase: PhasePopulated, Rows: classifyRows([]core.Record{rec})}

	var buf bytes.Buffer
	if err := RenderText(&buf, BuildView(def, st, f)); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Invoices", "Invoice #", "Due Date", "INV-1", "paid [success]", "KSh 500.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := RenderText(&buf, BuildView(def, State{Phase: PhaseFailed, Reason: def.ErrorMessage}, f)); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), "Error: Error loading invoices") || strings.Contains(buf.String(), "Invoice #") {
		t.Fatalf("failed render = %q", buf.String())
	}
}

func TestPhaseString(t *testing.T) {
	if PhasePopulated.String() != "populated" || Phase(42).String() != "unknown" {
		t.Fatalf("unexpected phase strings")
	}
}

func TestStyleString(t *testing.T) {
	if StyleMoney.String() != "money" || StyleStatus.String() != "status" || Style(99).String() != "text" {
		t.Fatalf("unexpected style strings")
	}
}
