package listview

import (
	"github.com/shopspring/decimal"

	"ledgerview/internal/core"
)

// Formatter is the Currency Formatter as seen by a list.
type Formatter interface {
	Format(amount decimal.Decimal) string
}

type Header struct {
	Text  string
	Style Style
}

type Cell struct {
	Text     string
	Style    Style
	Category core.Category // set for StyleStatus cells
}

type ViewRow struct {
	ID       string
	Category core.Category
	Cells    []Cell
}

// View is the render-ready form of a State. Money cells are formatted when
// the view is built, never stored on the state.
type View struct {
	Kind       core.Kind
	Slug       string
	Title      string
	Subtitle   string
	Headers    []Header
	Phase      Phase
	Loading    bool
	NoContext  bool
	Failed     bool
	Message    string
	Rows       []ViewRow
	Generation uint64
}

// BuildView renders st through def's column schema.
func BuildView(def Definition, st State, f Formatter) View {
	v := View{
		Kind:       def.Kind,
		Slug:       def.Kind.Slug(),
		Title:      def.Title,
		Subtitle:   def.Subtitle,
		Phase:      st.Phase,
		Loading:    st.Phase == PhaseLoading,
		NoContext:  st.NoContext,
		Failed:     st.Phase == PhaseFailed,
		Generation: st.Generation,
	}
	v.Headers = make([]Header, len(def.Columns))
	for i, col := range def.Columns {
		v.Headers[i] = Header{Text: col.Header, Style: col.Style}
	}

	switch st.Phase {
	case PhaseEmpty:
		if st.NoContext {
			v.Message = st.Reason
		} else {
			v.Message = def.EmptyMessage
		}
	case PhaseFailed:
		v.Message = st.Reason
	case PhasePopulated:
		v.Rows = make([]ViewRow, len(st.Rows))
		for i, row := range st.Rows {
			v.Rows[i] = buildRow(def.Columns, row, f)
		}
	}
	return v
}

func buildRow(cols []Column, row Row, f Formatter) ViewRow {
	vr := ViewRow{ID: row.Record.ID, Category: row.Category, Cells: make([]Cell, len(cols))}
	for i, col := range cols {
		cell := Cell{Style: col.Style}
		switch {
		case col.Style == StyleMoney && col.Amount != nil:
			cell.Text = f.Format(col.Amount(row.Record))
		case col.Text != nil:
			cell.Text = col.Text(row.Record)
		}
		if col.Style == StyleStatus {
			cell.Category = row.Category
		}
		vr.Cells[i] = cell
	}
	return vr
}

// View builds the current view with f.
func (c *Controller) View(f Formatter) View {
	return BuildView(c.def, c.State(), f)
}
