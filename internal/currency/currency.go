// Package currency formats decimal amounts for display.
package currency

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Formatter renders amounts as "<symbol> <grouped digits><sep><fraction>".
// It is safe for concurrent use.
type Formatter struct {
	symbol  string
	scale   int32
	sep     string
	printer *message.Printer
}

// New builds a formatter for an ISO 4217 code and a BCP 47 locale. The
// fraction length comes from the currency's standard rounding and digit
// grouping from the locale. An empty symbol falls back to the ISO code.
func New(code, symbol, locale string) (*Formatter, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, fmt.Errorf("parse currency %q: %w", code, err)
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parse locale %q: %w", locale, err)
	}
	scale, _ := currency.Standard.Rounding(unit)
	if symbol == "" {
		symbol = unit.String()
	}

	p := message.NewPrinter(tag)
	// The locale's decimal separator is the character after the "1" in 1.5.
	sep := "."
	if s := p.Sprintf("%.1f", 1.5); len(s) == 3 {
		sep = s[1:2]
	}

	return &Formatter{
		symbol:  symbol,
		scale:   int32(scale),
		sep:     sep,
		printer: p,
	}, nil
}

// Must is New that panics on error.
func Must(code, symbol, locale string) *Formatter {
	f, err := New(code, symbol, locale)
	if err != nil {
		panic(err)
	}
	return f
}

// Format rounds d to the currency scale and renders it. Negative amounts
// carry a leading "-".
func (f *Formatter) Format(d decimal.Decimal) string {
	rounded := d.Round(f.scale)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Neg()
	}

	_, frac, _ := strings.Cut(rounded.StringFixed(f.scale), ".")
	grouped := f.printer.Sprintf("%d", rounded.IntPart())

	var b strings.Builder
	b.WriteString(sign)
	b.WriteString(f.symbol)
	b.WriteByte(' ')
	b.WriteString(grouped)
	if f.scale > 0 {
		b.WriteString(f.sep)
		b.WriteString(frac)
	}
	return b.String()
}
