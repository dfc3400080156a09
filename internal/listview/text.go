package listview

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// RenderText writes v as an aligned plain-text table.
func RenderText(w io.Writer, v View) error {
	if _, err := fmt.Fprintf(w, "%s\n", v.Title); err != nil {
		return err
	}
	switch {
	case v.Loading:
		_, err := fmt.Fprintln(w, "Loading...")
		return err
	case v.Failed:
		_, err := fmt.Fprintf(w, "Error: %s\n", v.Message)
		return err
	case len(v.Rows) == 0:
		_, err := fmt.Fprintln(w, v.Message)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	headers := make([]string, len(v.Headers))
	for i, h := range v.Headers {
		headers[i] = h.Text
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range v.Rows {
		cells := make([]string, len(row.Cells))
		for i, c := range row.Cells {
			switch c.Style {
			case StyleStatus:
				cells[i] = fmt.Sprintf("%s [%s]", c.Text, c.Category)
			default:
				cells[i] = c.Text
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}
